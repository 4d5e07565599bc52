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

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the passes package.
var (
	// ErrEmptyID is returned when a pass has no identity.
	ErrEmptyID = errors.New("pass id must not be empty")

	// ErrNilReduce is returned when a pass has no reduce function.
	ErrNilReduce = errors.New("pass reduce function must not be nil")

	// ErrDuplicatePass is returned when two passes share an id.
	ErrDuplicatePass = errors.New("pass with this id already exists")

	// ErrUnknownDependency is returned when a pass reads a pass that was never added.
	ErrUnknownDependency = errors.New("dependency is not a registered pass")

	// ErrInvalidDependency is returned when a dependency relation does not
	// match the pass kind, or a pass reads its own state on the same node.
	ErrInvalidDependency = errors.New("invalid dependency for pass kind")

	// ErrCycleDetected is returned when pass dependencies form a cycle.
	ErrCycleDetected = errors.New("cycle detected in pass dependencies")
)

// PassError wraps an error with the pass that caused it.
type PassError struct {
	PassID ID
	Err    error
}

// Error returns the error message.
func (e *PassError) Error() string {
	return fmt.Sprintf("pass %q: %v", e.PassID, e.Err)
}

// Unwrap returns the underlying error.
func (e *PassError) Unwrap() error {
	return e.Err
}

// CycleError provides details about a detected dependency cycle.
type CycleError struct {
	Path []ID
}

// Error returns the cycle description.
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return "pass dependency cycle: " + strings.Join(parts, " -> ")
}

// Unwrap returns ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}
