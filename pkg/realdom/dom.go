// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package realdom keeps a retained tree in sync with a stream of mutation
// batches and resolves pass state over it.
//
// # Overview
//
// RealDOM applies mutation.Batch values produced by a diffing engine. It
// owns the operand stack the edits push to and pop from, the template
// cache, the map from external element ids to tree nodes, and an index of
// nodes by the events they listen for. Every facet an edit touches is
// unioned into a per-node change mask. UpdateState hands the masks, the
// structural changes recorded by the tree, and the created nodes to the
// pass engine and returns what changed.
//
// # Thread Safety
//
// RealDOM is NOT safe for concurrent use. One goroutine applies batches
// and resolves state; readers must synchronize with it externally.
package realdom

import (
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/passes"
	"github.com/AleutianAI/realdom/pkg/tree"
)

var tracer = otel.Tracer("realdom.dom")

// RootTag is the tag and namespace of the root element.
const RootTag = "Root"

// RealDOM is a retained tree driven by mutation batches.
type RealDOM struct {
	tree   *tree.Tree[*node.Node]
	passes *passes.Set
	logger *slog.Logger

	elements  []tree.NodeID
	stack     []tree.NodeID
	templates map[string][]tree.NodeID
	listening map[string]tree.NodeSet

	masks   map[tree.NodeID]mask.NodeMask
	created tree.NodeSet
}

// Option configures a RealDOM.
type Option func(*RealDOM)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *RealDOM) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a DOM holding only the root element.
//
// Description:
//
//	The root is an element tagged "Root" in namespace "Root" and bound to
//	element id 0. It starts with a full change mask, so the first
//	UpdateState resolves every pass on it. The root also sits at the bottom
//	of the operand stack: paths of edits issued on an otherwise empty stack
//	are walked from the root, and no edit can pop it.
//
// Inputs:
//
//	set - The passes to resolve. May be nil for a DOM without state.
//	opts - Optional configuration.
//
// Outputs:
//
//	*RealDOM - The DOM. Never nil.
func New(set *passes.Set, opts ...Option) *RealDOM {
	root := node.New(node.NewElement(RootTag, RootTag))
	root.SetElementID(0)
	t := tree.New(root)

	d := &RealDOM{
		tree:      t,
		passes:    set,
		logger:    slog.Default(),
		elements:  []tree.NodeID{t.Root()},
		stack:     []tree.NodeID{t.Root()},
		templates: make(map[string][]tree.NodeID),
		listening: make(map[string]tree.NodeSet),
		masks:     map[tree.NodeID]mask.NodeMask{t.Root(): mask.NodeMaskAll},
		created:   make(tree.NodeSet),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RootID returns the identity of the root node.
func (d *RealDOM) RootID() tree.NodeID {
	return d.tree.Root()
}

// Root returns the identity of the root node.
func (d *RealDOM) Root() tree.NodeID {
	return d.tree.Root()
}

// Size returns the number of nodes, excluding the root. Template sources
// and nodes still on the operand stack are counted.
func (d *RealDOM) Size() int {
	return d.tree.Size() - 1
}

// ElementToNodeID returns the node bound to an external element id.
func (d *RealDOM) ElementToNodeID(id node.ElementID) (tree.NodeID, bool) {
	if uint64(id) >= uint64(len(d.elements)) {
		return tree.NodeID{}, false
	}
	nid := d.elements[id]
	if nid.IsZero() || !d.tree.Contains(nid) {
		return tree.NodeID{}, false
	}
	return nid, true
}

// Get returns a node for reading. Writes through the returned pointer are
// not tracked; use Mutate or MutateRaw.
func (d *RealDOM) Get(id tree.NodeID) (*node.Node, bool) {
	return d.tree.Get(id)
}

// Parent returns the parent of a node.
func (d *RealDOM) Parent(id tree.NodeID) (tree.NodeID, bool) {
	return d.tree.Parent(id)
}

// Children returns the ordered children of a node.
func (d *RealDOM) Children(id tree.NodeID) ([]tree.NodeID, bool) {
	return d.tree.Children(id)
}

// Height returns the depth of a node below the root.
func (d *RealDOM) Height(id tree.NodeID) (int, bool) {
	return d.tree.Height(id)
}

// TraverseDepthFirst visits every node attached to the root in document
// order, the root first. Returning false from fn stops the walk.
func (d *RealDOM) TraverseDepthFirst(fn func(id tree.NodeID, n *node.Node) bool) {
	d.tree.Walk(fn)
}

// MutateRaw runs fn on a node without recording any change. State will
// not be recomputed for such edits.
func (d *RealDOM) MutateRaw(id tree.NodeID, fn func(n *node.Node)) bool {
	n, ok := d.tree.Get(id)
	if !ok {
		return false
	}
	fn(n)
	return true
}

// NodesListening returns the nodes listening for event, deepest first.
// Nodes at the same depth are ordered by identity.
func (d *RealDOM) NodesListening(event string) []tree.NodeID {
	set := d.listening[event]
	type entry struct {
		id     tree.NodeID
		height int
	}
	entries := make([]entry, 0, len(set))
	for id := range set {
		if h, ok := d.tree.Height(id); ok {
			entries = append(entries, entry{id, h})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if a.height != b.height {
			return b.height - a.height
		}
		return a.id.Compare(b.id)
	})
	out := make([]tree.NodeID, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

// markDirty unions m into the pending change mask of id.
func (d *RealDOM) markDirty(id tree.NodeID, m mask.NodeMask) {
	if m.IsEmpty() {
		if _, ok := d.masks[id]; !ok {
			return
		}
	}
	d.masks[id] = d.masks[id].Union(m)
}

func (d *RealDOM) createNode(n *node.Node) tree.NodeID {
	id := d.tree.CreateNode(n)
	d.created.Add(id)
	return id
}

func checkElementID(eid node.ElementID) error {
	if eid > node.MaxElementID {
		return fmt.Errorf("%w: %s", ErrElementIDRange, eid)
	}
	return nil
}

func (d *RealDOM) bindElement(id tree.NodeID, eid node.ElementID) error {
	if err := checkElementID(eid); err != nil {
		return err
	}
	n, _ := d.tree.Get(id)
	n.SetElementID(eid)
	if int(eid) >= len(d.elements) {
		d.elements = append(d.elements, make([]tree.NodeID, int(eid)+1-len(d.elements))...)
	}
	d.elements[eid] = id
	return nil
}

func (d *RealDOM) listen(id tree.NodeID, event string) {
	set, ok := d.listening[event]
	if !ok {
		set = make(tree.NodeSet)
		d.listening[event] = set
	}
	set.Add(id)
}

func (d *RealDOM) unlisten(id tree.NodeID, event string) {
	if set, ok := d.listening[event]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(d.listening, event)
		}
	}
}

// removeSubtree deletes id and its descendants and forgets every index
// entry that pointed into the subtree.
func (d *RealDOM) removeSubtree(id tree.NodeID) error {
	type binding struct {
		id     tree.NodeID
		events []string
		eid    node.ElementID
		bound  bool
	}
	var doomed []binding
	d.tree.WalkFrom(id, func(nid tree.NodeID, n *node.Node) bool {
		b := binding{id: nid}
		if el, ok := n.Element(); ok {
			b.events = el.ListenerNames()
		}
		b.eid, b.bound = n.ElementID()
		doomed = append(doomed, b)
		return true
	})

	if _, err := d.tree.Remove(id); err != nil {
		return err
	}
	for _, b := range doomed {
		for _, ev := range b.events {
			d.unlisten(b.id, ev)
		}
		if b.bound && uint64(b.eid) < uint64(len(d.elements)) && d.elements[b.eid] == b.id {
			d.elements[b.eid] = tree.NodeID{}
		}
		delete(d.masks, b.id)
		delete(d.created, b.id)
	}
	return nil
}
