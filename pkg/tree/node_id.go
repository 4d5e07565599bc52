// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

import (
	"cmp"
	"fmt"
	"slices"
)

// NodeID is a stable handle to a node in a Tree.
//
// The zero value never refers to a node.
type NodeID struct {
	index uint32
	gen   uint32
}

// Index returns the arena slot of the node.
func (id NodeID) Index() int {
	return int(id.index)
}

// Generation returns how many times the slot had been allocated when this
// node was created.
func (id NodeID) Generation() int {
	return int(id.gen)
}

// IsZero reports whether id is the zero identity.
func (id NodeID) IsZero() bool {
	return id.gen == 0
}

// Compare orders identities by slot, then generation.
func (id NodeID) Compare(other NodeID) int {
	if c := cmp.Compare(id.index, other.index); c != 0 {
		return c
	}
	return cmp.Compare(id.gen, other.gen)
}

// String returns "index#generation".
func (id NodeID) String() string {
	return fmt.Sprintf("%d#%d", id.index, id.gen)
}

// NodeSet is a set of node identities.
type NodeSet map[NodeID]struct{}

// Add inserts id into the set.
func (s NodeSet) Add(id NodeID) {
	s[id] = struct{}{}
}

// Contains reports whether id is in the set.
func (s NodeSet) Contains(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in identity order.
func (s NodeSet) Sorted() []NodeID {
	ids := make([]NodeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, NodeID.Compare)
	return ids
}
