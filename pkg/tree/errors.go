// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tree provides the arena-backed node store used by the retained DOM.
//
// Nodes live in a slice of slots addressed by NodeID. A NodeID carries the
// slot index and the generation the slot had when the node was created, so
// an identity that outlives its node never resolves to a later node that
// happens to reuse the same slot.
//
// # Structural Changes
//
// Every structural edit records which parents had their child list changed
// and which nodes had their parent linkage changed. The incremental state
// engine drains these sets once per batch via TakeChanges.
//
// # Thread Safety
//
// Tree is NOT safe for concurrent use. It is owned by the goroutine that
// applies mutations and resolves state.
package tree

import "errors"

// Sentinel errors for tree operations.
var (
	// ErrNodeNotFound is returned when an identity does not refer to a live node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrIsRoot is returned when an edit would move or remove the root.
	ErrIsRoot = errors.New("operation not permitted on the root node")

	// ErrCycle is returned when an edit would make a node its own ancestor.
	ErrCycle = errors.New("edit would create a cycle")

	// ErrNoParent is returned when a sibling-relative edit targets a node
	// that is not attached to a parent.
	ErrNoParent = errors.New("anchor node has no parent")
)
