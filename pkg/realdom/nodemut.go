// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package realdom

import (
	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// NodeMut edits one node and records every facet it touches.
//
// Description:
//
//	Edits apply immediately; the touched facets are merged into the
//	node's change mask on Commit. A NodeMut that is never committed leaves
//	its edits invisible to the pass engine.
//
// Example:
//
//	m, ok := dom.Mutate(id)
//	if ok {
//	    m.SetAttribute(node.AttributeName{Name: "class"}, node.TextValue("on"))
//	    m.Commit()
//	}
type NodeMut struct {
	dom   *RealDOM
	id    tree.NodeID
	node  *node.Node
	dirty mask.NodeMask
}

// Mutate starts a tracked edit of a node.
func (d *RealDOM) Mutate(id tree.NodeID) (*NodeMut, bool) {
	n, ok := d.tree.Get(id)
	if !ok {
		return nil, false
	}
	return &NodeMut{dom: d, id: id, node: n}, true
}

// Node returns the node being edited.
func (m *NodeMut) Node() *node.Node {
	return m.node
}

// SetTag changes the element tag. No-op on non-elements.
func (m *NodeMut) SetTag(tag string) {
	if el, ok := m.node.Element(); ok {
		el.Tag = tag
		m.dirty.Tag = true
	}
}

// SetNamespace changes the element namespace. No-op on non-elements.
func (m *NodeMut) SetNamespace(ns string) {
	if el, ok := m.node.Element(); ok {
		el.Namespace = ns
		m.dirty.Namespace = true
	}
}

// SetAttribute sets one attribute, or removes it when value is none.
// No-op on non-elements.
func (m *NodeMut) SetAttribute(key node.AttributeName, value node.AttributeValue) {
	el, ok := m.node.Element()
	if !ok {
		return
	}
	if value.IsNone() {
		el.RemoveAttribute(key)
	} else {
		el.SetAttribute(key, value)
	}
	m.dirty.Attributes = m.dirty.Attributes.Union(mask.Single(key.Name))
}

// SetText replaces the text of a text node. No-op otherwise.
func (m *NodeMut) SetText(value string) {
	if txt, ok := m.node.Text(); ok {
		txt.Value = value
		m.dirty.Text = true
	}
}

// AddListener registers event and keeps the listener index current.
func (m *NodeMut) AddListener(event string) {
	if el, ok := m.node.Element(); ok {
		el.AddListener(event)
		m.dirty.Listeners = true
		m.dom.listen(m.id, event)
	}
}

// RemoveListener unregisters event and keeps the listener index current.
func (m *NodeMut) RemoveListener(event string) {
	if el, ok := m.node.Element(); ok {
		el.RemoveListener(event)
		m.dirty.Listeners = true
		m.dom.unlisten(m.id, event)
	}
}

// SetType replaces the payload. Every facet is marked.
func (m *NodeMut) SetType(t node.Type) {
	if el, ok := m.node.Element(); ok {
		for _, ev := range el.ListenerNames() {
			m.dom.unlisten(m.id, ev)
		}
	}
	m.node.Type = t
	if el, ok := node.AsElement(t); ok {
		for _, ev := range el.ListenerNames() {
			m.dom.listen(m.id, ev)
		}
	}
	m.dirty = mask.NodeMaskAll
}

// Commit merges the touched facets into the node's change mask.
func (m *NodeMut) Commit() {
	if m.dom.tree.Contains(m.id) {
		m.dom.markDirty(m.id, m.dirty)
	}
	m.dirty = mask.NodeMask{}
}
