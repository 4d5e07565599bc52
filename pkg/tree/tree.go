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
	"fmt"
	"slices"
)

type slot[T any] struct {
	gen      uint32
	live     bool
	value    T
	parent   NodeID
	children []NodeID
	height   int
}

// Tree is an arena of nodes with parent, child and sibling linkage.
//
// Description:
//
//	Tree owns every node value. Nodes are created detached; a detached node
//	has height 0 relative to itself until it is attached below a parent.
//	Heights are kept current on every structural edit, so Height is O(1).
//
// Thread Safety:
//
//	Tree is NOT safe for concurrent use.
type Tree[T any] struct {
	slots []slot[T]
	free  []uint32
	root  NodeID
	size  int

	childChanged  NodeSet
	parentChanged NodeSet
}

// New creates a tree whose root holds rootValue.
//
// Inputs:
//
//	rootValue - The value stored on the root node.
//
// Outputs:
//
//	*Tree[T] - The tree. Never nil.
func New[T any](rootValue T) *Tree[T] {
	t := &Tree[T]{
		childChanged:  make(NodeSet),
		parentChanged: make(NodeSet),
	}
	t.root = t.CreateNode(rootValue)
	return t
}

// Root returns the identity of the root node.
func (t *Tree[T]) Root() NodeID {
	return t.root
}

// Size returns the number of live nodes, including the root and detached nodes.
func (t *Tree[T]) Size() int {
	return t.size
}

func (t *Tree[T]) lookup(id NodeID) (*slot[T], bool) {
	if id.gen == 0 || int(id.index) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[id.index]
	if !s.live || s.gen != id.gen {
		return nil, false
	}
	return s, true
}

func (t *Tree[T]) mustLookup(id NodeID) (*slot[T], error) {
	s, ok := t.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return s, nil
}

// Contains reports whether id refers to a live node.
func (t *Tree[T]) Contains(id NodeID) bool {
	_, ok := t.lookup(id)
	return ok
}

// Get returns the value stored on a node.
func (t *Tree[T]) Get(id NodeID) (T, bool) {
	s, ok := t.lookup(id)
	if !ok {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Set replaces the value stored on a node.
func (t *Tree[T]) Set(id NodeID, value T) error {
	s, err := t.mustLookup(id)
	if err != nil {
		return err
	}
	s.value = value
	return nil
}

// CreateNode allocates a detached node holding value.
//
// Description:
//
//	Reuses a freed slot when one is available. The reused slot's generation
//	is bumped, so identities handed out for the previous occupant stay dead.
//
// Outputs:
//
//	NodeID - The identity of the new node.
func (t *Tree[T]) CreateNode(value T) NodeID {
	t.size++
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		s := &t.slots[idx]
		s.gen++
		s.live = true
		s.value = value
		s.parent = NodeID{}
		s.children = nil
		s.height = 0
		return NodeID{index: idx, gen: s.gen}
	}
	t.slots = append(t.slots, slot[T]{gen: 1, live: true, value: value})
	return NodeID{index: uint32(len(t.slots) - 1), gen: 1}
}

// Parent returns the parent of a node. It returns false for the root,
// detached nodes and dead identities.
func (t *Tree[T]) Parent(id NodeID) (NodeID, bool) {
	s, ok := t.lookup(id)
	if !ok || s.parent.IsZero() {
		return NodeID{}, false
	}
	return s.parent, true
}

// Children returns a copy of the ordered child list of a node.
func (t *Tree[T]) Children(id NodeID) ([]NodeID, bool) {
	s, ok := t.lookup(id)
	if !ok {
		return nil, false
	}
	return slices.Clone(s.children), true
}

// ChildCount returns the number of children of a node.
func (t *Tree[T]) ChildCount(id NodeID) int {
	s, ok := t.lookup(id)
	if !ok {
		return 0
	}
	return len(s.children)
}

// ChildAt returns the i-th child of a node.
func (t *Tree[T]) ChildAt(id NodeID, i int) (NodeID, bool) {
	s, ok := t.lookup(id)
	if !ok || i < 0 || i >= len(s.children) {
		return NodeID{}, false
	}
	return s.children[i], true
}

// Height returns the depth of a node. The root has height 0.
//
// Description:
//
//	The second result doubles as a liveness check: it is false for any
//	identity whose node has been removed.
func (t *Tree[T]) Height(id NodeID) (int, bool) {
	s, ok := t.lookup(id)
	if !ok {
		return 0, false
	}
	return s.height, true
}

// IsAttached reports whether a node is reachable from the root.
func (t *Tree[T]) IsAttached(id NodeID) bool {
	for cur := id; ; {
		if cur == t.root {
			return true
		}
		s, ok := t.lookup(cur)
		if !ok || s.parent.IsZero() {
			return false
		}
		cur = s.parent
	}
}

// isAncestorOrSelf reports whether a is b or one of b's ancestors.
func (t *Tree[T]) isAncestorOrSelf(a, b NodeID) bool {
	for cur := b; !cur.IsZero(); {
		if cur == a {
			return true
		}
		s, ok := t.lookup(cur)
		if !ok {
			return false
		}
		cur = s.parent
	}
	return false
}

// AddChild appends child to the end of parent's child list.
//
// Description:
//
//	A child that is already attached elsewhere is moved. Records a
//	child-set change on every parent involved and a parent-linkage change
//	on the child.
//
// Inputs:
//
//	parent - The new parent. Must be live.
//	child - The node to attach. Must be live, not the root, and not an
//	        ancestor of parent.
//
// Outputs:
//
//	error - ErrNodeNotFound, ErrIsRoot or ErrCycle.
func (t *Tree[T]) AddChild(parent, child NodeID) error {
	if err := t.checkAttach(parent, child); err != nil {
		return err
	}
	t.detach(child)
	p, _ := t.lookup(parent)
	p.children = append(p.children, child)
	t.link(parent, child, p.height+1)
	return nil
}

// Move reattaches id as the last child of newParent.
func (t *Tree[T]) Move(id, newParent NodeID) error {
	return t.AddChild(newParent, id)
}

// InsertBefore places node immediately before anchor among anchor's siblings.
func (t *Tree[T]) InsertBefore(anchor, node NodeID) error {
	return t.insertSibling(anchor, node, 0)
}

// InsertAfter places node immediately after anchor among anchor's siblings.
func (t *Tree[T]) InsertAfter(anchor, node NodeID) error {
	return t.insertSibling(anchor, node, 1)
}

func (t *Tree[T]) insertSibling(anchor, node NodeID, offset int) error {
	a, err := t.mustLookup(anchor)
	if err != nil {
		return err
	}
	if a.parent.IsZero() {
		return fmt.Errorf("%w: %s", ErrNoParent, anchor)
	}
	if node == anchor {
		return fmt.Errorf("%w: %s relative to itself", ErrCycle, node)
	}
	parent := a.parent
	if err := t.checkAttach(parent, node); err != nil {
		return err
	}
	t.detach(node)

	p, _ := t.lookup(parent)
	idx := slices.Index(p.children, anchor) + offset
	p.children = slices.Insert(p.children, idx, node)
	t.link(parent, node, p.height+1)
	return nil
}

// Replace puts replacement in old's position and removes old's subtree.
//
// Outputs:
//
//	[]NodeID - Every identity removed with old.
//	error - Non-nil if either node is invalid or old is detached.
func (t *Tree[T]) Replace(old, replacement NodeID) ([]NodeID, error) {
	if err := t.InsertBefore(old, replacement); err != nil {
		return nil, err
	}
	return t.Remove(old)
}

// Remove detaches a node and frees it together with its entire subtree.
//
// Outputs:
//
//	[]NodeID - Every removed identity in pre-order. These identities are
//	           dead after the call.
//	error - ErrNodeNotFound or ErrIsRoot.
func (t *Tree[T]) Remove(id NodeID) ([]NodeID, error) {
	if id == t.root {
		return nil, ErrIsRoot
	}
	if _, err := t.mustLookup(id); err != nil {
		return nil, err
	}
	t.detach(id)

	var removed []NodeID
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s, _ := t.lookup(cur)
		removed = append(removed, cur)
		for i := len(s.children) - 1; i >= 0; i-- {
			stack = append(stack, s.children[i])
		}
		var zero T
		s.live = false
		s.value = zero
		s.parent = NodeID{}
		s.children = nil
		t.free = append(t.free, cur.index)
		t.size--
	}
	return removed, nil
}

// Walk visits every node attached to the root in depth-first pre-order,
// the root first. Returning false from fn stops the walk.
func (t *Tree[T]) Walk(fn func(id NodeID, value T) bool) {
	t.WalkFrom(t.root, fn)
}

// WalkFrom visits start and its descendants in depth-first pre-order.
func (t *Tree[T]) WalkFrom(start NodeID, fn func(id NodeID, value T) bool) {
	if !t.Contains(start) {
		return
	}
	stack := []NodeID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s, _ := t.lookup(cur)
		if !fn(cur, s.value) {
			return
		}
		for i := len(s.children) - 1; i >= 0; i-- {
			stack = append(stack, s.children[i])
		}
	}
}

// TakeChanges returns and clears the structural change signals recorded
// since the previous call.
//
// Outputs:
//
//	childChanged - Nodes whose child list changed.
//	parentChanged - Nodes whose parent linkage changed.
func (t *Tree[T]) TakeChanges() (childChanged, parentChanged NodeSet) {
	childChanged, parentChanged = t.childChanged, t.parentChanged
	t.childChanged = make(NodeSet)
	t.parentChanged = make(NodeSet)
	return childChanged, parentChanged
}

func (t *Tree[T]) checkAttach(parent, child NodeID) error {
	if _, err := t.mustLookup(parent); err != nil {
		return err
	}
	if _, err := t.mustLookup(child); err != nil {
		return err
	}
	if child == t.root {
		return ErrIsRoot
	}
	if t.isAncestorOrSelf(child, parent) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, child, parent)
	}
	return nil
}

// detach unlinks id from its parent, if any.
func (t *Tree[T]) detach(id NodeID) {
	s, ok := t.lookup(id)
	if !ok || s.parent.IsZero() {
		return
	}
	parent := s.parent
	if p, ok := t.lookup(parent); ok {
		if i := slices.Index(p.children, id); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
		t.childChanged.Add(parent)
	}
	s.parent = NodeID{}
	t.parentChanged.Add(id)
	t.setHeight(id, 0)
}

func (t *Tree[T]) link(parent, child NodeID, height int) {
	s, _ := t.lookup(child)
	s.parent = parent
	t.setHeight(child, height)
	t.childChanged.Add(parent)
	t.parentChanged.Add(child)
}

// setHeight assigns height to id and re-derives the heights below it.
func (t *Tree[T]) setHeight(id NodeID, height int) {
	type entry struct {
		id     NodeID
		height int
	}
	stack := []entry{{id, height}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s, ok := t.lookup(e.id)
		if !ok {
			continue
		}
		s.height = e.height
		for _, c := range s.children {
			stack = append(stack, entry{c, e.height + 1})
		}
	}
}
