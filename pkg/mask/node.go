// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mask

import "strings"

// NodeMask is the set of node facets touched by an edit or watched by a pass.
type NodeMask struct {
	Attributes AttributeMask
	Tag        bool
	Namespace  bool
	Text       bool
	Listeners  bool
}

// NodeMaskNone watches nothing.
var NodeMaskNone = NodeMask{}

// NodeMaskAll covers every facet.
var NodeMaskAll = NodeMask{
	Attributes: All,
	Tag:        true,
	Namespace:  true,
	Text:       true,
	Listeners:  true,
}

// WithAttributes returns a copy of m with attrs as its attribute mask.
func (m NodeMask) WithAttributes(attrs AttributeMask) NodeMask {
	m.Attributes = attrs
	return m
}

// WithTag returns a copy of m with the tag facet set.
func (m NodeMask) WithTag() NodeMask {
	m.Tag = true
	return m
}

// WithNamespace returns a copy of m with the namespace facet set.
func (m NodeMask) WithNamespace() NodeMask {
	m.Namespace = true
	return m
}

// WithText returns a copy of m with the text facet set.
func (m NodeMask) WithText() NodeMask {
	m.Text = true
	return m
}

// WithListeners returns a copy of m with the listener facet set.
func (m NodeMask) WithListeners() NodeMask {
	m.Listeners = true
	return m
}

// IsEmpty reports whether no facet is set.
func (m NodeMask) IsEmpty() bool {
	return !m.Tag && !m.Namespace && !m.Text && !m.Listeners && m.Attributes.IsEmpty()
}

// Overlaps reports whether some facet is set in both masks.
func (m NodeMask) Overlaps(other NodeMask) bool {
	return (m.Tag && other.Tag) ||
		(m.Namespace && other.Namespace) ||
		(m.Text && other.Text) ||
		(m.Listeners && other.Listeners) ||
		m.Attributes.Overlaps(other.Attributes)
}

// Union returns the pointwise union of both masks.
func (m NodeMask) Union(other NodeMask) NodeMask {
	return NodeMask{
		Attributes: m.Attributes.Union(other.Attributes),
		Tag:        m.Tag || other.Tag,
		Namespace:  m.Namespace || other.Namespace,
		Text:       m.Text || other.Text,
		Listeners:  m.Listeners || other.Listeners,
	}
}

// Equal reports whether both masks cover the same facets.
func (m NodeMask) Equal(other NodeMask) bool {
	return m.Tag == other.Tag &&
		m.Namespace == other.Namespace &&
		m.Text == other.Text &&
		m.Listeners == other.Listeners &&
		m.Attributes.Equal(other.Attributes)
}

// String renders the mask as "tag|ns|text|listeners attrs".
func (m NodeMask) String() string {
	var flags []string
	if m.Tag {
		flags = append(flags, "tag")
	}
	if m.Namespace {
		flags = append(flags, "ns")
	}
	if m.Text {
		flags = append(flags, "text")
	}
	if m.Listeners {
		flags = append(flags, "listeners")
	}
	return strings.Join(flags, "|") + " " + m.Attributes.String()
}
