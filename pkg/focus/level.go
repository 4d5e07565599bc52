// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package focus computes per-node focusability and moves keyboard focus
// through a RealDOM in tab order.
//
// Levels are ordered
//
//	Unfocusable < Ordered(1) < Ordered(2) < ... < Focusable
//
// so a forward traversal visits explicitly ranked nodes first, in rank
// order, then every plainly focusable node in document order, then wraps.
package focus

import (
	"cmp"
	"fmt"
)

type levelKind uint8

const (
	kindUnfocusable levelKind = iota
	kindOrdered
	kindFocusable
)

// Level is a node's rank in the focus order. The zero value is Unfocusable.
type Level struct {
	kind levelKind
	rank uint16
}

var (
	// Unfocusable nodes never receive focus.
	Unfocusable = Level{}
	// Focusable nodes receive focus after every ordered node.
	Focusable = Level{kind: kindFocusable}
)

// Ordered returns the level for a positive tab index. Ordered(0) is
// Focusable.
func Ordered(rank uint16) Level {
	if rank == 0 {
		return Focusable
	}
	return Level{kind: kindOrdered, rank: rank}
}

// IsFocusable reports whether nodes at this level can take focus.
func (l Level) IsFocusable() bool {
	return l.kind != kindUnfocusable
}

// Rank returns the tab index of an ordered level.
func (l Level) Rank() (uint16, bool) {
	return l.rank, l.kind == kindOrdered
}

// Compare orders levels. Ranks compare numerically.
func (l Level) Compare(other Level) int {
	if c := cmp.Compare(l.kind, other.kind); c != 0 {
		return c
	}
	return cmp.Compare(l.rank, other.rank)
}

// Less reports whether l sorts before other.
func (l Level) Less(other Level) bool {
	return l.Compare(other) < 0
}

func (l Level) String() string {
	switch l.kind {
	case kindOrdered:
		return fmt.Sprintf("ordered(%d)", l.rank)
	case kindFocusable:
		return "focusable"
	default:
		return "unfocusable"
	}
}
