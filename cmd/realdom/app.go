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
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/AleutianAI/realdom/pkg/focus"
	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/mutation"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/passes"
	"github.com/AleutianAI/realdom/pkg/realdom"
	"github.com/AleutianAI/realdom/pkg/tree"
)

const (
	toggledAttr = "data-toggled"
	classAttr   = "class"

	passToggled    passes.ID = "toggled"
	passFocusables passes.ID = "focusables"
)

// buildPasses registers the focus pass plus two demo passes: whether a
// button is toggled, and how many focusable nodes each subtree holds.
func buildPasses(logger *slog.Logger) (*passes.Set, error) {
	return passes.NewBuilder().
		WithLogger(logger).
		Add(focus.Pass()).
		Add(passes.Pass{
			ID:   passToggled,
			Kind: passes.KindNode,
			Mask: mask.NodeMask{}.WithAttributes(mask.Single(toggledAttr)),
			Reduce: passes.Compare(func(in passes.Input) bool {
				v, ok := in.Node.Attribute(toggledAttr)
				if !ok {
					return false
				}
				b, isBool := v.Bool()
				return isBool && b
			}),
		}).
		Add(passes.Pass{
			ID:        passFocusables,
			Kind:      passes.KindChild,
			NodeDeps:  []passes.ID{focus.PassID},
			ChildDeps: []passes.ID{passFocusables},
			Reduce: passes.Compare(func(in passes.Input) int {
				total := 0
				if f, ok := passes.Dep[focus.Focus](in, focus.PassID); ok && f.Level.IsFocusable() {
					total = 1
				}
				for _, n := range passes.ChildStates[int](in, passFocusables) {
					total += n
				}
				return total
			}),
		}).
		Build()
}

// app couples a DOM and a navigator behind one lock so the TUI and the
// telemetry router can share them.
type app struct {
	mu     sync.Mutex
	dom    *realdom.RealDOM
	nav    *focus.Navigator
	logger *slog.Logger
	nextID node.ElementID
}

func newApp(logger *slog.Logger) (*app, error) {
	set, err := buildPasses(logger)
	if err != nil {
		return nil, fmt.Errorf("build passes: %w", err)
	}
	return &app{
		dom:    realdom.New(set, realdom.WithLogger(logger)),
		nav:    focus.NewNavigator(logger),
		logger: logger,
		nextID: 1,
	}, nil
}

// apply runs one batch and resolves state.
func (a *app) apply(ctx context.Context, batch mutation.Batch) (tree.NodeSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.dom.ApplyMutations(ctx, batch); err != nil {
		return nil, err
	}
	changed, _ := a.dom.UpdateState(ctx, nil)
	return changed, nil
}

func (a *app) allocID() node.ElementID {
	id := a.nextID
	a.nextID++
	return id
}

var gridTemplates = []mutation.Template{
	{
		Name: "row",
		Roots: []mutation.TemplateNode{mutation.TemplateElement{
			Tag:   "div",
			Attrs: []mutation.TemplateAttribute{{Name: classAttr, Value: "row"}},
		}},
	},
	{
		Name: "button",
		Roots: []mutation.TemplateNode{mutation.TemplateElement{
			Tag: "div",
			Attrs: []mutation.TemplateAttribute{
				{Name: classAttr, Value: "button"},
				{Name: focus.TabIndexAttr, Dynamic: true},
			},
			Children: []mutation.TemplateNode{mutation.TemplateElement{
				Tag:      "p",
				Children: []mutation.TemplateNode{mutation.TemplateDynamicText{}},
			}},
		}},
	},
	{
		Name: "filler",
		Roots: []mutation.TemplateNode{mutation.TemplateElement{
			Tag:   "div",
			Attrs: []mutation.TemplateAttribute{{Name: classAttr, Value: "filler"}},
		}},
	},
}

// gridBatch lays out rows x cols cells. Cells where x+y is even are
// fillers; the rest are buttons with tab index (x+y)%3 that listen for
// keydown.
func (a *app) gridBatch(rows, cols int) mutation.Batch {
	var edits []mutation.Edit
	for y := 1; y <= rows; y++ {
		row := a.allocID()
		edits = append(edits, mutation.LoadTemplate{Name: "row", ID: row})
		for x := 1; x <= cols; x++ {
			if (x+y)%2 == 0 {
				edits = append(edits, mutation.LoadTemplate{Name: "filler", ID: a.allocID()})
				continue
			}
			layer := (x + y) % 3
			btn := a.allocID()
			edits = append(edits,
				mutation.LoadTemplate{Name: "button", ID: btn},
				mutation.HydrateText{Path: mutation.Path{0, 0}, Value: "tabindex: " + strconv.Itoa(layer), ID: a.allocID()},
				mutation.SetAttribute{Name: focus.TabIndexAttr, Value: node.IntValue(int64(layer)), ID: btn},
				mutation.NewEventListener{Name: "keydown", ID: btn},
			)
		}
		edits = append(edits, mutation.AppendChildren{ID: row, M: cols})
	}
	edits = append(edits, mutation.AppendChildren{ID: 0, M: rows})
	return mutation.Batch{Templates: gridTemplates, Edits: edits}
}

func (a *app) advance(forward bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nav.Advance(a.dom, forward)
}

// toggleFocused flips the toggled attribute of the focused node when it
// listens for keydown.
func (a *app) toggleFocused(ctx context.Context) (bool, error) {
	eid, on, ok := a.focusedButton()
	if !ok {
		return false, nil
	}
	_, err := a.apply(ctx, mutation.Batch{Edits: []mutation.Edit{
		mutation.SetAttribute{Name: toggledAttr, Value: node.BoolValue(!on), ID: eid},
	}})
	return err == nil, err
}

// focusedButton returns the element id and toggled state of the focused
// node if it is a bound element listening for keydown.
func (a *app) focusedButton() (node.ElementID, bool, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.nav.Focused()
	if !ok {
		return 0, false, false
	}
	n, live := a.dom.Get(id)
	if !live {
		return 0, false, false
	}
	el, isElement := n.Element()
	eid, bound := n.ElementID()
	if !isElement || !bound || !el.HasListener("keydown") {
		return 0, false, false
	}
	on, _ := passes.StateOf[bool](n, passToggled)
	return eid, on, true
}

// cell is one grid slot as the view sees it.
type cell struct {
	button  bool
	label   string
	focused bool
	toggled bool
}

// grid reads the rows back out of the tree.
func (a *app) grid() [][]cell {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, _ := a.dom.Children(a.dom.Root())
	out := make([][]cell, 0, len(rows))
	for _, r := range rows {
		cells, _ := a.dom.Children(r)
		line := make([]cell, 0, len(cells))
		for _, c := range cells {
			n, _ := a.dom.Get(c)
			el, _ := n.Element()
			cl := cell{focused: a.nav.IsFocused(c)}
			if el != nil {
				if v, ok := el.Attribute(classAttr); ok && v.String() == "button" {
					cl.button = true
					cl.label = focus.StateOf(n).Level.String()
					cl.toggled, _ = passes.StateOf[bool](n, passToggled)
				}
			}
			line = append(line, cl)
		}
		out = append(out, line)
	}
	return out
}

// focusSummary reports the focused node and the level being traversed.
func (a *app) focusSummary() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := map[string]any{"level": a.nav.Level().String()}
	if id, ok := a.nav.Focused(); ok {
		out["focused"] = id.String()
		if n, live := a.dom.Get(id); live {
			if eid, bound := n.ElementID(); bound {
				out["element"] = eid.String()
			}
		}
	}
	root, _ := a.dom.Get(a.dom.Root())
	out["focusable_nodes"], _ = passes.StateOf[int](root, passFocusables)
	return out
}
