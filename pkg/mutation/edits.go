// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mutation

import "github.com/AleutianAI/realdom/pkg/node"

// Op names, as they appear in encoded batches.
const (
	OpAppendChildren      = "append_children"
	OpAssignID            = "assign_id"
	OpCreatePlaceholder   = "create_placeholder"
	OpCreateTextNode      = "create_text_node"
	OpHydrateText         = "hydrate_text"
	OpLoadTemplate        = "load_template"
	OpReplaceWith         = "replace_with"
	OpReplacePlaceholder  = "replace_placeholder"
	OpInsertAfter         = "insert_after"
	OpInsertBefore        = "insert_before"
	OpSetAttribute        = "set_attribute"
	OpSetText             = "set_text"
	OpNewEventListener    = "new_event_listener"
	OpRemoveEventListener = "remove_event_listener"
	OpRemove              = "remove"
	OpPushRoot            = "push_root"
)

// Edit is one operation of a mutation log.
//
// The implementations are the types in this file.
type Edit interface {
	Op() string
	isEdit()
}

// Path is a sequence of child indices walked from the top of the operand stack.
type Path []uint8

// AppendChildren pops M nodes and appends them, in push order, under ID.
type AppendChildren struct {
	ID node.ElementID
	M  int
}

// AssignID binds ID to the node at Path below the top of the stack.
type AssignID struct {
	Path Path
	ID   node.ElementID
}

// CreatePlaceholder creates a placeholder bound to ID and pushes it.
type CreatePlaceholder struct {
	ID node.ElementID
}

// CreateTextNode creates a text node bound to ID and pushes it.
type CreateTextNode struct {
	Value string
	ID    node.ElementID
}

// HydrateText binds ID to the node at Path and sets its text to Value.
type HydrateText struct {
	Path  Path
	Value string
	ID    node.ElementID
}

// LoadTemplate deep-clones root Index of template Name, binds ID and pushes it.
type LoadTemplate struct {
	Name  string
	Index int
	ID    node.ElementID
}

// ReplaceWith pops M nodes, inserts them before ID and removes ID.
type ReplaceWith struct {
	ID node.ElementID
	M  int
}

// ReplacePlaceholder pops M nodes, inserts them before the node at Path and
// removes that node.
type ReplacePlaceholder struct {
	Path Path
	M    int
}

// InsertAfter pops M nodes and places them after ID, keeping push order.
type InsertAfter struct {
	ID node.ElementID
	M  int
}

// InsertBefore pops M nodes and places them before ID, keeping push order.
type InsertBefore struct {
	ID node.ElementID
	M  int
}

// SetAttribute sets or, when Value is none, removes one attribute.
type SetAttribute struct {
	Name      string
	Namespace string
	Value     node.AttributeValue
	ID        node.ElementID
}

// SetText replaces the text of ID.
type SetText struct {
	Value string
	ID    node.ElementID
}

// NewEventListener registers Name on ID.
type NewEventListener struct {
	Name string
	ID   node.ElementID
}

// RemoveEventListener unregisters Name from ID.
type RemoveEventListener struct {
	Name string
	ID   node.ElementID
}

// Remove deletes ID and its subtree.
type Remove struct {
	ID node.ElementID
}

// PushRoot pushes the node bound to ID onto the stack.
type PushRoot struct {
	ID node.ElementID
}

func (AppendChildren) Op() string      { return OpAppendChildren }
func (AssignID) Op() string            { return OpAssignID }
func (CreatePlaceholder) Op() string   { return OpCreatePlaceholder }
func (CreateTextNode) Op() string      { return OpCreateTextNode }
func (HydrateText) Op() string         { return OpHydrateText }
func (LoadTemplate) Op() string        { return OpLoadTemplate }
func (ReplaceWith) Op() string         { return OpReplaceWith }
func (ReplacePlaceholder) Op() string  { return OpReplacePlaceholder }
func (InsertAfter) Op() string         { return OpInsertAfter }
func (InsertBefore) Op() string        { return OpInsertBefore }
func (SetAttribute) Op() string        { return OpSetAttribute }
func (SetText) Op() string             { return OpSetText }
func (NewEventListener) Op() string    { return OpNewEventListener }
func (RemoveEventListener) Op() string { return OpRemoveEventListener }
func (Remove) Op() string              { return OpRemove }
func (PushRoot) Op() string            { return OpPushRoot }

func (AppendChildren) isEdit()      {}
func (AssignID) isEdit()            {}
func (CreatePlaceholder) isEdit()   {}
func (CreateTextNode) isEdit()      {}
func (HydrateText) isEdit()         {}
func (LoadTemplate) isEdit()        {}
func (ReplaceWith) isEdit()         {}
func (ReplacePlaceholder) isEdit()  {}
func (InsertAfter) isEdit()         {}
func (InsertBefore) isEdit()        {}
func (SetAttribute) isEdit()        {}
func (SetText) isEdit()             {}
func (NewEventListener) isEdit()    {}
func (RemoveEventListener) isEdit() {}
func (Remove) isEdit()              {}
func (PushRoot) isEdit()            {}
