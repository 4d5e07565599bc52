// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package passes is the incremental state engine of the retained DOM.
//
// A pass is a per-node computation that declares which node facets it
// watches and which other passes it reads. Reads are scoped by relation:
// a pass may read other passes on the same node, on the parent (parent
// kind), or on every child (child kind). The declarations form a DAG that
// is validated once by Builder.Build.
//
// # Resolution
//
// Each batch seeds a DirtySet from change masks, structural changes and
// created nodes. Set.Resolve then drains passes in topological order.
// Parent-kind passes are processed by ascending height, child-kind passes
// by descending height, so a value read across the tree is always final
// before its reader runs. When a reducer reports a change, every dependant
// is scheduled on the node where it reads that value: the same node, the
// children, or the parent.
//
// # Thread Safety
//
// A Set is immutable after Build and may be shared. Resolve mutates the
// node states of its Host and must not run concurrently with other writers
// of that Host.
package passes

import (
	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// ID identifies a pass and the state slot it writes.
type ID string

// Kind fixes the direction in which a pass reads across the tree.
type Kind uint8

const (
	// KindNode reads only the node itself.
	KindNode Kind = iota
	// KindParent reads the parent and is resolved root first.
	KindParent
	// KindChild reads the children and is resolved leaves first.
	KindChild
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindParent:
		return "parent"
	case KindChild:
		return "child"
	default:
		return "unknown"
	}
}

// Relation is where a dependency is read relative to the node being computed.
type Relation uint8

const (
	RelNode Relation = iota
	RelParent
	RelChild
)

// ReduceFunc computes the new state of a node and reports whether it changed.
// The state is committed only when changed is true.
type ReduceFunc func(in Input) (state any, changed bool)

// Pass is a registered per-node state computation.
//
// Description:
//
//	Mask selects the facets that re-run the pass when they change and also
//	limits what the reducer can see through Input.Node. NodeDeps are read
//	on the same node. ParentDeps are read on the parent and are only valid
//	for KindParent; ChildDeps are read on each child and are only valid for
//	KindChild. A parent or child pass may list its own ID to read its own
//	value on the neighbouring node.
type Pass struct {
	ID         ID
	Kind       Kind
	Mask       mask.NodeMask
	NodeDeps   []ID
	ParentDeps []ID
	ChildDeps  []ID
	Reduce     ReduceFunc
}

// Input is everything a reducer may read.
type Input struct {
	// Node is the node restricted to the pass mask.
	Node node.View

	// Self is the previously committed state of this pass on the node.
	Self    any
	HasSelf bool

	// Deps holds NodeDeps read on the same node. Missing states are absent.
	Deps map[ID]any

	// Parent holds ParentDeps read on the parent. Nil at the root.
	Parent map[ID]any

	// Children holds ChildDeps read on each child, in child order.
	Children []map[ID]any

	Context *Context
}

// Host is the tree a Set resolves against.
type Host interface {
	Height(id tree.NodeID) (int, bool)
	Parent(id tree.NodeID) (tree.NodeID, bool)
	Children(id tree.NodeID) ([]tree.NodeID, bool)
	Get(id tree.NodeID) (*node.Node, bool)
}

// Typed adapts a reducer producing T.
func Typed[T any](fn func(in Input) (T, bool)) ReduceFunc {
	return func(in Input) (any, bool) {
		return fn(in)
	}
}

// Compare adapts a reducer producing a comparable T. It reports a change
// when there was no prior state or the new value differs from it.
func Compare[T comparable](fn func(in Input) T) ReduceFunc {
	return func(in Input) (any, bool) {
		next := fn(in)
		prev, ok := Self[T](in)
		return next, !ok || prev != next
	}
}

// Self returns the prior state of the pass being computed.
func Self[T any](in Input) (T, bool) {
	v, ok := in.Self.(T)
	return v, ok && in.HasSelf
}

// Dep returns the state of a same-node dependency.
func Dep[T any](in Input, id ID) (T, bool) {
	v, ok := in.Deps[id].(T)
	return v, ok
}

// ParentState returns the state of a dependency on the parent.
func ParentState[T any](in Input, id ID) (T, bool) {
	v, ok := in.Parent[id].(T)
	return v, ok
}

// ChildStates returns the states of a dependency on every child that has one.
func ChildStates[T any](in Input, id ID) []T {
	out := make([]T, 0, len(in.Children))
	for _, c := range in.Children {
		if v, ok := c[id].(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// StateOf returns the committed state of pass id on n.
func StateOf[T any](n *node.Node, id ID) (T, bool) {
	var zero T
	if n == nil {
		return zero, false
	}
	raw, ok := n.State(string(id))
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}
