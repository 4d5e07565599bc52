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

import "strconv"

// AttributeName identifies an attribute by name and optional namespace.
type AttributeName struct {
	Name      string
	Namespace string
}

// String renders "namespace:name", or just the name when unqualified.
func (a AttributeName) String() string {
	if a.Namespace == "" {
		return a.Name
	}
	return a.Namespace + ":" + a.Name
}

// ValueKind enumerates the shapes an attribute value can take.
type ValueKind uint8

const (
	// ValueNone marks the absence of a value. Setting it removes the attribute.
	ValueNone ValueKind = iota
	ValueText
	ValueFloat
	ValueInt
	ValueBool
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueText:
		return "text"
	case ValueFloat:
		return "float"
	case ValueInt:
		return "int"
	case ValueBool:
		return "bool"
	default:
		return "unknown"
	}
}

// AttributeValue is a tagged attribute value.
//
// The zero value has kind ValueNone.
type AttributeValue struct {
	kind ValueKind
	text string
	num  float64
	i    int64
	b    bool
}

// TextValue builds a text value.
func TextValue(s string) AttributeValue { return AttributeValue{kind: ValueText, text: s} }

// FloatValue builds a float value.
func FloatValue(f float64) AttributeValue { return AttributeValue{kind: ValueFloat, num: f} }

// IntValue builds an integer value.
func IntValue(i int64) AttributeValue { return AttributeValue{kind: ValueInt, i: i} }

// BoolValue builds a boolean value.
func BoolValue(b bool) AttributeValue { return AttributeValue{kind: ValueBool, b: b} }

// NoValue is the removal marker.
func NoValue() AttributeValue { return AttributeValue{} }

// Kind returns the value shape.
func (v AttributeValue) Kind() ValueKind { return v.kind }

// IsNone reports whether v is the removal marker.
func (v AttributeValue) IsNone() bool { return v.kind == ValueNone }

// Text returns the string payload of a text value.
func (v AttributeValue) Text() (string, bool) { return v.text, v.kind == ValueText }

// Float returns the payload of a float value.
func (v AttributeValue) Float() (float64, bool) { return v.num, v.kind == ValueFloat }

// Int returns the payload of an integer value.
func (v AttributeValue) Int() (int64, bool) { return v.i, v.kind == ValueInt }

// Bool returns the payload of a boolean value.
func (v AttributeValue) Bool() (bool, bool) { return v.b, v.kind == ValueBool }

// String renders the value the way it would appear in markup.
func (v AttributeValue) String() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}
