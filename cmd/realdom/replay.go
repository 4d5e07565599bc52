// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/AleutianAI/realdom/pkg/focus"
	"github.com/AleutianAI/realdom/pkg/mutation"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/passes"
	"github.com/AleutianAI/realdom/pkg/tree"
)

var replayTabs int

var replayCmd = &cobra.Command{
	Use:   "replay <batch.yaml>...",
	Short: "Apply YAML mutation batches and print the resulting tree",
	Long: `Applies each file as one mutation batch, in order, resolving state
after every batch. The final tree is printed with each node's focus level
and the number of focusable nodes below it. With --tabs N, focus is
advanced N times first and the focused node is marked with '*'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&replayTabs, "tabs", 0, "advance focus this many times before printing (negative goes backward)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()

	a, err := newApp(rt.logger.Slog())
	if err != nil {
		return err
	}
	for _, path := range args {
		batch, err := mutation.LoadFile(path)
		if err != nil {
			return err
		}
		changed, err := a.apply(cmd.Context(), batch)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rt.logger.Info("batch replayed",
			"file", path,
			"edits", len(batch.Edits),
			"changed_nodes", len(changed),
		)
	}

	forward := replayTabs > 0
	for range abs(replayTabs) {
		if !a.advance(forward) {
			break
		}
	}
	return printTree(cmd.OutOrStdout(), a)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// printTree renders the attached tree, root first.
func printTree(w io.Writer, a *app) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	root := a.dom.Root()
	out := treeprint.NewWithRoot(nodeLabel(a, root))
	var add func(parent treeprint.Tree, id tree.NodeID)
	add = func(parent treeprint.Tree, id tree.NodeID) {
		kids, _ := a.dom.Children(id)
		for _, k := range kids {
			grand, _ := a.dom.Children(k)
			if len(grand) == 0 {
				parent.AddNode(nodeLabel(a, k))
				continue
			}
			add(parent.AddBranch(nodeLabel(a, k)), k)
		}
	}
	add(out, root)
	_, err := io.WriteString(w, out.String())
	return err
}

func nodeLabel(a *app, id tree.NodeID) string {
	n, _ := a.dom.Get(id)
	var b strings.Builder
	if a.nav.IsFocused(id) {
		b.WriteString("* ")
	}
	switch t := n.Type.(type) {
	case *node.Element:
		b.WriteString("<" + t.Tag + ">")
		if cls, ok := t.Attribute(classAttr); ok {
			b.WriteString(" ." + cls.String())
		}
	case *node.Text:
		b.WriteString(strconv.Quote(t.Value))
	default:
		b.WriteString("placeholder")
	}
	if eid, ok := n.ElementID(); ok {
		b.WriteString(" " + eid.String())
	}
	f := focus.StateOf(n)
	count, _ := passes.StateOf[int](n, passFocusables)
	fmt.Fprintf(&b, " [%s", f.Level)
	if !f.PassFocus {
		b.WriteString(" keeps-focus")
	}
	fmt.Fprintf(&b, " focusables=%d]", count)
	return b.String()
}
