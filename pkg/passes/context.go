// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package passes

import "reflect"

// Context carries externally supplied values into reducers, keyed by type.
//
// The nil *Context is valid and empty.
type Context struct {
	values map[reflect.Type]any
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{values: make(map[reflect.Type]any)}
}

// Provide stores v as the value of type T, replacing any previous one.
func Provide[T any](c *Context, v T) {
	if c.values == nil {
		c.values = make(map[reflect.Type]any)
	}
	c.values[reflect.TypeFor[T]()] = v
}

// FromContext returns the value of type T, if one was provided.
func FromContext[T any](c *Context) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.values[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}
