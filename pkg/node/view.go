// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package node

import (
	"maps"
	"slices"

	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// View is a read-only window onto a node restricted to the facets of a mask.
//
// Description:
//
//	A pass receives a View built from its own watched mask, so it can only
//	observe what it declared. A facet outside the mask reads as absent even
//	when the node has it.
type View struct {
	id   tree.NodeID
	node *Node
	mask mask.NodeMask
}

// NewView builds a view of n restricted to m.
func NewView(id tree.NodeID, n *Node, m mask.NodeMask) View {
	return View{id: id, node: n, mask: m}
}

// NodeID returns the internal identity of the node.
func (v View) NodeID() tree.NodeID { return v.id }

// ElementID returns the external identity of the node, if bound.
func (v View) ElementID() (ElementID, bool) {
	if v.node == nil {
		return 0, false
	}
	return v.node.ElementID()
}

// Kind returns the payload variant. It is always visible.
func (v View) Kind() Kind {
	if v.node == nil {
		return KindPlaceholder
	}
	return v.node.Kind()
}

func (v View) element() (*Element, bool) {
	if v.node == nil {
		return nil, false
	}
	return v.node.Element()
}

// Tag returns the element tag when the mask includes the tag facet.
func (v View) Tag() (string, bool) {
	if !v.mask.Tag {
		return "", false
	}
	e, ok := v.element()
	if !ok {
		return "", false
	}
	return e.Tag, true
}

// Namespace returns the element namespace when the mask includes it.
func (v View) Namespace() (string, bool) {
	if !v.mask.Namespace {
		return "", false
	}
	e, ok := v.element()
	if !ok || e.Namespace == "" {
		return "", false
	}
	return e.Namespace, true
}

// Text returns the text payload when the mask includes the text facet.
func (v View) Text() (string, bool) {
	if !v.mask.Text || v.node == nil {
		return "", false
	}
	t, ok := v.node.Text()
	if !ok {
		return "", false
	}
	return t.Value, true
}

// Attribute returns an unqualified attribute if the mask covers its name.
func (v View) Attribute(name string) (AttributeValue, bool) {
	if !v.mask.Attributes.Contains(name) {
		return AttributeValue{}, false
	}
	e, ok := v.element()
	if !ok {
		return AttributeValue{}, false
	}
	return e.Attribute(name)
}

// Attributes returns the attributes whose names the mask covers.
func (v View) Attributes() map[AttributeName]AttributeValue {
	out := make(map[AttributeName]AttributeValue)
	e, ok := v.element()
	if !ok {
		return out
	}
	for k, val := range e.Attributes {
		if v.mask.Attributes.Contains(k.Name) {
			out[k] = val
		}
	}
	return out
}

// Listeners returns the sorted listener set when the mask includes it.
func (v View) Listeners() []string {
	if !v.mask.Listeners {
		return nil
	}
	e, ok := v.element()
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(e.Listeners))
}

// HasListener reports whether the node listens for event, if visible.
func (v View) HasListener(event string) bool {
	if !v.mask.Listeners {
		return false
	}
	e, ok := v.element()
	return ok && e.HasListener(event)
}
