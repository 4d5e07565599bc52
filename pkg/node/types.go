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
)

// Kind enumerates the payload variants of a node.
type Kind uint8

const (
	KindElement Kind = iota
	KindText
	KindPlaceholder
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Type is the payload of a node: *Element, *Text or Placeholder.
//
// The set of implementations is closed; use AsElement and AsText to reach
// variant data.
type Type interface {
	Kind() Kind
	clone() Type
}

// Element is a tagged node with attributes and event listeners.
type Element struct {
	Tag        string
	Namespace  string
	Attributes map[AttributeName]AttributeValue
	Listeners  map[string]struct{}
}

// NewElement creates an element with empty attribute and listener sets.
func NewElement(tag, namespace string) *Element {
	return &Element{
		Tag:        tag,
		Namespace:  namespace,
		Attributes: make(map[AttributeName]AttributeValue),
		Listeners:  make(map[string]struct{}),
	}
}

// Kind returns KindElement.
func (e *Element) Kind() Kind { return KindElement }

func (e *Element) clone() Type {
	return &Element{
		Tag:        e.Tag,
		Namespace:  e.Namespace,
		Attributes: maps.Clone(e.Attributes),
		Listeners:  maps.Clone(e.Listeners),
	}
}

// Attribute returns the value of an attribute without a namespace.
func (e *Element) Attribute(name string) (AttributeValue, bool) {
	return e.AttributeNS(name, "")
}

// AttributeNS returns the value of a namespaced attribute.
func (e *Element) AttributeNS(name, namespace string) (AttributeValue, bool) {
	v, ok := e.Attributes[AttributeName{Name: name, Namespace: namespace}]
	return v, ok
}

// SetAttribute stores value under key, replacing any previous value.
func (e *Element) SetAttribute(key AttributeName, value AttributeValue) {
	if e.Attributes == nil {
		e.Attributes = make(map[AttributeName]AttributeValue)
	}
	e.Attributes[key] = value
}

// RemoveAttribute deletes key and reports whether it was present.
func (e *Element) RemoveAttribute(key AttributeName) bool {
	_, ok := e.Attributes[key]
	delete(e.Attributes, key)
	return ok
}

// HasListener reports whether the element listens for event.
func (e *Element) HasListener(event string) bool {
	_, ok := e.Listeners[event]
	return ok
}

// AddListener registers event and reports whether it was new.
func (e *Element) AddListener(event string) bool {
	if e.Listeners == nil {
		e.Listeners = make(map[string]struct{})
	}
	if _, ok := e.Listeners[event]; ok {
		return false
	}
	e.Listeners[event] = struct{}{}
	return true
}

// RemoveListener unregisters event and reports whether it was present.
func (e *Element) RemoveListener(event string) bool {
	_, ok := e.Listeners[event]
	delete(e.Listeners, event)
	return ok
}

// ListenerNames returns the registered events in sorted order.
func (e *Element) ListenerNames() []string {
	return slices.Sorted(maps.Keys(e.Listeners))
}

// Text is a text node.
type Text struct {
	Value string
}

// Kind returns KindText.
func (t *Text) Kind() Kind { return KindText }

func (t *Text) clone() Type {
	return &Text{Value: t.Value}
}

// Placeholder is an empty node reserving a position in the tree.
type Placeholder struct{}

// Kind returns KindPlaceholder.
func (Placeholder) Kind() Kind { return KindPlaceholder }

func (p Placeholder) clone() Type { return p }

// AsElement returns the element payload of t, if it is one.
func AsElement(t Type) (*Element, bool) {
	e, ok := t.(*Element)
	return e, ok && e != nil
}

// AsText returns the text payload of t, if it is one.
func AsText(t Type) (*Text, bool) {
	x, ok := t.(*Text)
	return x, ok && x != nil
}

// CloneType deep-copies a payload.
func CloneType(t Type) Type {
	if t == nil {
		return nil
	}
	return t.clone()
}
