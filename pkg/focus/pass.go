// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package focus

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/passes"
)

// PassID identifies the focus pass.
const PassID passes.ID = "focus"

const (
	// PreventDefaultAttr set to "true" keeps focus on the node.
	PreventDefaultAttr = "prevent-default"
	// TabIndexAttr holds the tab index.
	TabIndexAttr = "tabindex"
)

// keyEvents make a node without a tab index focusable.
var keyEvents = []string{"keydown", "keypress", "keyup"}

// Focus is the state the focus pass commits on every node.
type Focus struct {
	Level Level
	// PassFocus is false when the node refuses to give focus away.
	PassFocus bool
}

// Pass returns the focus pass. It reads only the node itself.
func Pass() passes.Pass {
	return passes.Pass{
		ID:   PassID,
		Kind: passes.KindNode,
		Mask: mask.NodeMask{}.
			WithAttributes(mask.MustStatic(PreventDefaultAttr, TabIndexAttr)).
			WithListeners(),
		Reduce: passes.Compare(reduce),
	}
}

func reduce(in passes.Input) Focus {
	return Focus{
		Level:     levelOf(in.Node),
		PassFocus: !preventsDefault(in.Node),
	}
}

func preventsDefault(v node.View) bool {
	a, ok := v.Attribute(PreventDefaultAttr)
	return ok && strings.TrimSpace(a.String()) == "true"
}

func levelOf(v node.View) Level {
	if a, ok := v.Attribute(TabIndexAttr); ok {
		idx, err := strconv.ParseInt(a.String(), 10, 32)
		switch {
		case err != nil || idx < 0:
			return Unfocusable
		case idx == 0:
			return Focusable
		default:
			return Ordered(uint16(min(idx, math.MaxUint16)))
		}
	}
	if slices.ContainsFunc(keyEvents, v.HasListener) {
		return Focusable
	}
	return Unfocusable
}

// StateOf returns the committed focus state of n. Nodes the pass has not
// reached yet are unfocusable and pass focus on.
func StateOf(n *node.Node) Focus {
	if f, ok := passes.StateOf[Focus](n, PassID); ok {
		return f
	}
	return Focus{Level: Unfocusable, PassFocus: true}
}
