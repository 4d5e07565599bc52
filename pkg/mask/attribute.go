// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mask describes which facets of a node changed, or which facets a
// state pass watches.
//
// An AttributeMask is one of three shapes:
//
//	| Kind    | Meaning                                   |
//	|---------|-------------------------------------------|
//	| All     | every attribute                           |
//	| Static  | a fixed, sorted list declared by a pass   |
//	| Dynamic | a sorted list grown while edits are seen  |
//
// Both list shapes are kept sorted, so Overlaps is a single linear merge
// and Union is a sorted merge.
package mask

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnsorted is returned when static mask names are not strictly increasing.
var ErrUnsorted = errors.New("attribute names must be strictly increasing")

// Kind identifies the shape of an AttributeMask.
type Kind uint8

const (
	// KindStatic is a fixed sorted list. The zero AttributeMask is an empty
	// static list.
	KindStatic Kind = iota
	// KindDynamic is a sorted list built up from observed edits.
	KindDynamic
	// KindAll matches every attribute.
	KindAll
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	case KindAll:
		return "all"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// AttributeMask is a set of attribute names.
//
// The zero value is the empty mask.
type AttributeMask struct {
	kind  Kind
	names []string
}

// None is the empty attribute mask.
var None = AttributeMask{}

// All matches every attribute.
var All = AttributeMask{kind: KindAll}

// NewStatic builds a static mask from strictly increasing names.
//
// Description:
//
//	Static masks are declared once when a pass is registered. Names must
//	already be sorted without duplicates; an unsorted list is a
//	registration bug and is reported, not repaired.
//
// Inputs:
//
//	names - Attribute names in strictly increasing order.
//
// Outputs:
//
//	AttributeMask - The mask.
//	error - ErrUnsorted if names are not strictly increasing.
func NewStatic(names ...string) (AttributeMask, error) {
	if i := unsortedAt(names); i >= 0 {
		return AttributeMask{}, fmt.Errorf("%w: %q before %q", ErrUnsorted, names[i-1], names[i])
	}
	return AttributeMask{kind: KindStatic, names: slices.Clone(names)}, nil
}

// MustStatic is NewStatic that panics on unsorted input.
func MustStatic(names ...string) AttributeMask {
	m, err := NewStatic(names...)
	if err != nil {
		panic(err)
	}
	return m
}

// Single builds a one-entry dynamic mask.
func Single(name string) AttributeMask {
	return AttributeMask{kind: KindDynamic, names: []string{name}}
}

// Dynamic builds a dynamic mask from names in any order.
func Dynamic(names ...string) AttributeMask {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return AttributeMask{kind: KindDynamic, names: slices.Compact(sorted)}
}

// unsortedAt returns the first index that breaks strict ordering, or -1.
func unsortedAt(names []string) int {
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			return i
		}
	}
	return -1
}

// Kind returns the shape of the mask.
func (m AttributeMask) Kind() Kind {
	return m.kind
}

// Names returns a copy of the listed names. It is nil for All.
func (m AttributeMask) Names() []string {
	if m.kind == KindAll {
		return nil
	}
	return slices.Clone(m.names)
}

// IsEmpty reports whether the mask matches no attribute.
func (m AttributeMask) IsEmpty() bool {
	return m.kind != KindAll && len(m.names) == 0
}

// Contains reports whether the mask matches name.
func (m AttributeMask) Contains(name string) bool {
	if m.kind == KindAll {
		return true
	}
	_, found := slices.BinarySearch(m.names, name)
	return found
}

// Union returns the smallest mask covering both m and other.
//
// Description:
//
//	Any operand of kind All yields All. Two list masks always merge into
//	a Dynamic mask, even when both are Static.
func (m AttributeMask) Union(other AttributeMask) AttributeMask {
	if m.kind == KindAll || other.kind == KindAll {
		return All
	}
	merged := make([]string, 0, len(m.names)+len(other.names))
	a, b := m.names, other.names
	for len(a) > 0 && len(b) > 0 {
		switch strings.Compare(a[0], b[0]) {
		case -1:
			merged = append(merged, a[0])
			a = a[1:]
		case 1:
			merged = append(merged, b[0])
			b = b[1:]
		default:
			merged = append(merged, a[0])
			a, b = a[1:], b[1:]
		}
	}
	merged = append(merged, a...)
	merged = append(merged, b...)
	return AttributeMask{kind: KindDynamic, names: merged}
}

// Overlaps reports whether some attribute is matched by both masks.
//
// Description:
//
//	All overlaps any non-empty mask. Two list masks are compared with a
//	linear merge over their sorted names; nothing is allocated.
func (m AttributeMask) Overlaps(other AttributeMask) bool {
	switch {
	case m.kind == KindAll && other.kind == KindAll:
		return true
	case m.kind == KindAll:
		return len(other.names) > 0
	case other.kind == KindAll:
		return len(m.names) > 0
	}
	i, j := 0, 0
	for i < len(m.names) && j < len(other.names) {
		switch strings.Compare(m.names[i], other.names[j]) {
		case -1:
			i++
		case 1:
			j++
		default:
			return true
		}
	}
	return false
}

// Equal reports whether both masks match the same attributes. The
// distinction between Static and Dynamic is ignored.
func (m AttributeMask) Equal(other AttributeMask) bool {
	if (m.kind == KindAll) != (other.kind == KindAll) {
		return false
	}
	return m.kind == KindAll || slices.Equal(m.names, other.names)
}

// String renders the mask for logs.
func (m AttributeMask) String() string {
	if m.kind == KindAll {
		return "*"
	}
	return "[" + strings.Join(m.names, ",") + "]"
}
