// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mutation defines the edit log consumed by the retained DOM.
//
// A Batch is an ordered list of template definitions followed by an ordered
// list of edits. Edits address nodes through external element ids or through
// child-index paths below the top of an operand stack; ops that create or
// load nodes push onto that stack, and ops that attach nodes pop from it.
//
// Batches normally arrive in memory from a diffing engine. DecodeYAML reads
// a recorded batch from disk for replay and tests.
package mutation

import "errors"

var (
	// ErrInvalidBatch is returned when an encoded batch fails validation.
	ErrInvalidBatch = errors.New("invalid mutation batch")

	// ErrUnknownValue is returned when an attribute value has an unsupported YAML type.
	ErrUnknownValue = errors.New("unsupported attribute value")
)
