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
	"slices"

	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// Tree is the read view of a DOM that focus traversal needs.
// *realdom.RealDOM satisfies it.
type Tree interface {
	Root() tree.NodeID
	Get(id tree.NodeID) (*node.Node, bool)
	Parent(id tree.NodeID) (tree.NodeID, bool)
	Children(id tree.NodeID) ([]tree.NodeID, bool)
	TraverseDepthFirst(fn func(id tree.NodeID, n *node.Node) bool)
}

// Cursor is a position in the document order of a tree.
//
// Description:
//
//	The cursor keeps the chain of nodes from the root to its position,
//	with the child index of each link, and re-derives where it is from
//	the live tree before every step, so edits between steps are safe.
//	When the node it sat on is gone, the cursor sits in the gap it left
//	inside the deepest ancestor still attached: Next yields whatever now
//	occupies that slot and Prev whatever precedes it. The zero value sits
//	on the root.
//
//	Stepping is cyclic: Next from the last node returns the root and Prev
//	from the root returns the last node, both reporting looped.
type Cursor struct {
	path  []tree.NodeID
	slots []int
}

// position is a resolved cursor: on node, or in a gap of parent at slot.
type position struct {
	node   tree.NodeID
	gap    bool
	parent tree.NodeID
	slot   int
}

// Current returns the node the cursor sits on, or the ancestor holding
// the gap it sits in.
func (c *Cursor) Current(t Tree) tree.NodeID {
	p := c.resolve(t)
	if p.gap {
		return p.parent
	}
	return p.node
}

// MoveTo places the cursor on id. It fails if id is not attached.
func (c *Cursor) MoveTo(t Tree, id tree.NodeID) bool {
	chain, slots, ok := ancestry(t, id)
	if !ok {
		return false
	}
	c.path, c.slots = chain, slots
	return true
}

// Next steps forward in document order.
func (c *Cursor) Next(t Tree) (tree.NodeID, bool) {
	var next tree.NodeID
	var looped bool
	if p := c.resolve(t); p.gap {
		kids, _ := t.Children(p.parent)
		if p.slot < len(kids) {
			next = kids[p.slot]
		} else {
			next, looped = skip(t, p.parent)
		}
	} else {
		next, looped = successor(t, p.node)
	}
	c.MoveTo(t, next)
	return next, looped
}

// Prev steps backward in document order.
func (c *Cursor) Prev(t Tree) (tree.NodeID, bool) {
	var prev tree.NodeID
	var looped bool
	if p := c.resolve(t); p.gap {
		kids, _ := t.Children(p.parent)
		if slot := min(p.slot, len(kids)); slot > 0 {
			prev = lastDescendant(t, kids[slot-1])
		} else {
			prev = p.parent
		}
	} else {
		prev, looped = predecessor(t, p.node)
	}
	c.MoveTo(t, prev)
	return prev, looped
}

func (c *Cursor) resolve(t Tree) position {
	for i := len(c.path) - 1; i >= 0; i-- {
		chain, slots, ok := ancestry(t, c.path[i])
		if !ok {
			continue
		}
		if i == len(c.path)-1 {
			c.path, c.slots = chain, slots
			return position{node: c.path[i]}
		}
		gapSlot := c.slots[i+1]
		c.path, c.slots = append(chain, c.path[i+1]), append(slots, gapSlot)
		return position{gap: true, parent: chain[len(chain)-1], slot: gapSlot}
	}
	root := t.Root()
	c.path, c.slots = []tree.NodeID{root}, []int{0}
	return position{node: root}
}

// ancestry returns the chain from the root down to id and the child index
// of each link within its parent.
func ancestry(t Tree, id tree.NodeID) ([]tree.NodeID, []int, bool) {
	if _, ok := t.Get(id); !ok {
		return nil, nil, false
	}
	root := t.Root()
	chain := []tree.NodeID{id}
	slots := []int{}
	for cur := id; cur != root; {
		p, ok := t.Parent(cur)
		if !ok {
			return nil, nil, false
		}
		siblings, _ := t.Children(p)
		slots = append(slots, slices.Index(siblings, cur))
		chain = append(chain, p)
		cur = p
	}
	slots = append(slots, 0)
	slices.Reverse(chain)
	slices.Reverse(slots)
	return chain, slots, true
}

func successor(t Tree, id tree.NodeID) (tree.NodeID, bool) {
	if kids, _ := t.Children(id); len(kids) > 0 {
		return kids[0], false
	}
	return skip(t, id)
}

// skip returns the first node after the subtree of id.
func skip(t Tree, id tree.NodeID) (tree.NodeID, bool) {
	root := t.Root()
	for cur := id; cur != root; {
		p, _ := t.Parent(cur)
		siblings, _ := t.Children(p)
		if i := slices.Index(siblings, cur); i+1 < len(siblings) {
			return siblings[i+1], false
		}
		cur = p
	}
	return root, true
}

func predecessor(t Tree, id tree.NodeID) (tree.NodeID, bool) {
	root := t.Root()
	if id == root {
		return lastDescendant(t, root), true
	}
	p, _ := t.Parent(id)
	siblings, _ := t.Children(p)
	if i := slices.Index(siblings, id); i > 0 {
		return lastDescendant(t, siblings[i-1]), false
	}
	return p, false
}

func lastDescendant(t Tree, id tree.NodeID) tree.NodeID {
	for {
		kids, _ := t.Children(id)
		if len(kids) == 0 {
			return id
		}
		id = kids[len(kids)-1]
	}
}
