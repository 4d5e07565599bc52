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
	"errors"
	"fmt"
)

// Sentinel errors for mutation application.
var (
	// ErrUnknownElement is returned when an edit addresses an element id that
	// is unbound or whose node was removed.
	ErrUnknownElement = errors.New("unknown element id")

	// ErrUnknownTemplate is returned when LoadTemplate names an unregistered
	// template or a root index it does not have.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrStackUnderflow is returned when an edit pops more nodes than were pushed.
	ErrStackUnderflow = errors.New("operand stack underflow")

	// ErrInvalidPath is returned when a child-index path leaves the tree.
	ErrInvalidPath = errors.New("child path does not resolve")

	// ErrElementIDRange is returned when an edit binds an element id above
	// node.MaxElementID.
	ErrElementIDRange = errors.New("element id out of range")
)

// MutationError reports the edit that aborted a batch.
type MutationError struct {
	// Index is the position of the edit in the batch.
	Index int
	// Op is the edit name.
	Op  string
	Err error
}

// Error returns the error message.
func (e *MutationError) Error() string {
	return fmt.Sprintf("edit %d (%s): %v", e.Index, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}
