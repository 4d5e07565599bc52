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
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// ErrNotAttached is returned when focusing a node that is not in the tree.
var ErrNotAttached = errors.New("node is not attached to the tree")

// Navigator moves focus through a tree in tab order.
//
// Description:
//
//	The navigator reads the committed focus pass state, so the DOM must
//	be resolved with Pass() registered before calling Advance. One mutex
//	guards the cursor and focus for the duration of each call.
//
// Thread Safety:
//
//	Safe for concurrent use. The tree itself must not be mutated during a
//	call.
type Navigator struct {
	mu      sync.Mutex
	cursor  Cursor
	focused tree.NodeID
	level   Level
	logger  *slog.Logger
}

// NewNavigator creates a navigator with nothing focused, seeking
// Unfocusable so the first Advance picks the lowest focusable level.
func NewNavigator(logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{logger: logger}
}

// Focused returns the focused node, if any.
func (nav *Navigator) Focused() (tree.NodeID, bool) {
	nav.mu.Lock()
	defer nav.mu.Unlock()
	return nav.focused, !nav.focused.IsZero()
}

// IsFocused reports whether id holds focus.
func (nav *Navigator) IsFocused(id tree.NodeID) bool {
	nav.mu.Lock()
	defer nav.mu.Unlock()
	return !id.IsZero() && nav.focused == id
}

// Level returns the level currently being traversed.
func (nav *Navigator) Level() Level {
	nav.mu.Lock()
	defer nav.mu.Unlock()
	return nav.level
}

// Advance moves focus to the next (forward) or previous focusable node.
//
// Description:
//
//	The cursor steps one node at a time looking for a node at the level
//	being traversed. Each time it wraps around the document, the level
//	moves to the nearest level present in the tree above it (forward) or
//	below it (backward). Forward with nothing above falls back to
//	Unfocusable; backward with nothing below rises to Focusable. Nodes at
//	the same level are visited in document order.
//
// Inputs:
//
//	t - The resolved tree.
//	forward - Direction of travel.
//
// Outputs:
//
//	bool - True if focus moved. False when the focused node refuses to
//	       pass focus on or no other candidate exists.
func (nav *Navigator) Advance(t Tree, forward bool) bool {
	nav.mu.Lock()
	defer nav.mu.Unlock()

	if n, ok := t.Get(nav.focused); ok && !StateOf(n).PassFocus {
		return false
	}

	marker, hasMarker := nav.focused, !nav.focused.IsZero()
	start := nav.level
	seen := map[Level]struct{}{start: {}}
	var target tree.NodeID
	found := false

	for !found {
		var id tree.NodeID
		var looped bool
		if forward {
			id, looped = nav.cursor.Next(t)
		} else {
			id, looped = nav.cursor.Prev(t)
		}
		n, _ := t.Get(id)
		current := StateOf(n).Level

		if looped {
			nav.level = closestLevel(t, nav.level, forward)
			hasMarker = false
			if _, again := seen[nav.level]; again {
				break
			}
			seen[nav.level] = struct{}{}
		}

		if hasMarker {
			if id == marker {
				break
			}
		} else {
			marker, hasMarker = id, true
		}

		if current.IsFocusable() && current == nav.level {
			target, found = id, true
		}
	}

	if !found {
		nav.level = start
		nav.cursor.MoveTo(t, nav.focused)
		return false
	}
	nav.logger.Debug("focus advanced",
		slog.String("from", nav.focused.String()),
		slog.String("to", target.String()),
		slog.String("level", nav.level.String()),
		slog.Bool("forward", forward),
	)
	nav.focused = target
	nav.cursor.MoveTo(t, target)
	return true
}

// SetFocus focuses id directly and continues traversal from its level.
func (nav *Navigator) SetFocus(t Tree, id tree.NodeID) error {
	nav.mu.Lock()
	defer nav.mu.Unlock()

	n, ok := t.Get(id)
	if !ok || !nav.cursor.MoveTo(t, id) {
		return fmt.Errorf("%w: %s", ErrNotAttached, id)
	}
	nav.focused = id
	nav.level = StateOf(n).Level
	return nil
}

// Blur drops focus without moving the cursor.
func (nav *Navigator) Blur() {
	nav.mu.Lock()
	defer nav.mu.Unlock()
	nav.focused = tree.NodeID{}
}

// closestLevel scans the whole tree for the nearest level strictly above
// (forward) or below current.
func closestLevel(t Tree, current Level, forward bool) Level {
	var best Level
	have := false
	t.TraverseDepthFirst(func(_ tree.NodeID, n *node.Node) bool {
		l := StateOf(n).Level
		switch {
		case forward && current.Less(l):
			if !have || l.Less(best) {
				best, have = l, true
			}
		case !forward && l.Less(current):
			if !have || best.Less(l) {
				best, have = l, true
			}
		}
		return true
	})
	switch {
	case have:
		return best
	case forward:
		return Unfocusable
	default:
		return Focusable
	}
}
