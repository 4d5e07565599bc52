// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package node defines the payload stored on every node of the retained DOM.
//
// A Node carries one of three payload variants (element, text, placeholder),
// an optional external element identity assigned by the producer of the
// mutation stream, and the per-pass state slots written by the incremental
// state engine.
package node

import "strconv"

// ElementID is the identity the mutation producer uses to address a node.
type ElementID uint64

// MaxElementID is the largest element id a DOM accepts. Ids index a dense
// table.
const MaxElementID ElementID = 1<<20 - 1

// String renders the id as "e<n>".
func (id ElementID) String() string {
	return "e" + strconv.FormatUint(uint64(id), 10)
}

// Node is one entry in the retained tree.
type Node struct {
	Type Type

	elementID ElementID
	bound     bool
	states    map[string]any
}

// New creates a node with payload t and no element id.
func New(t Type) *Node {
	return &Node{Type: t}
}

// ElementID returns the external identity bound to the node, if any.
func (n *Node) ElementID() (ElementID, bool) {
	return n.elementID, n.bound
}

// SetElementID binds an external identity to the node.
func (n *Node) SetElementID(id ElementID) {
	n.elementID = id
	n.bound = true
}

// State returns the value a pass stored on the node.
func (n *Node) State(key string) (any, bool) {
	v, ok := n.states[key]
	return v, ok
}

// SetState stores a pass value on the node.
func (n *Node) SetState(key string, v any) {
	if n.states == nil {
		n.states = make(map[string]any)
	}
	n.states[key] = v
}

// Clone deep-copies the payload. The clone has no element id and no state.
func (n *Node) Clone() *Node {
	return &Node{Type: CloneType(n.Type)}
}

// Element returns the element payload, if the node is an element.
func (n *Node) Element() (*Element, bool) {
	return AsElement(n.Type)
}

// Text returns the text payload, if the node is a text node.
func (n *Node) Text() (*Text, bool) {
	return AsText(n.Type)
}

// Kind returns the payload variant.
func (n *Node) Kind() Kind {
	if n.Type == nil {
		return KindPlaceholder
	}
	return n.Type.Kind()
}
