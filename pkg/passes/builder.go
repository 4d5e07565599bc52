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
	"log/slog"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// dependant is a pass that reads another pass through a relation.
type dependant struct {
	pass int
	rel  Relation
}

type compiled struct {
	Pass
	dependants []dependant
}

// Builder collects passes and validates them into a Set.
//
// Description:
//
//	Add records problems instead of failing immediately, so every
//	registration error is reported together by Build.
//
// Example:
//
//	set, err := passes.NewBuilder().
//	    Add(focusPass).
//	    Add(stylePass).
//	    Build()
type Builder struct {
	passes []Pass
	index  map[ID]int
	errs   *multierror.Error
	logger *slog.Logger
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[ID]int)}
}

// WithLogger sets the logger used by the resulting Set.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Add registers a pass.
//
// Inputs:
//
//	p - The pass. Its ID must be unique and Reduce must be non-nil.
//
// Outputs:
//
//	*Builder - The builder for chaining.
func (b *Builder) Add(p Pass) *Builder {
	if p.ID == "" {
		b.errs = multierror.Append(b.errs, ErrEmptyID)
		return b
	}
	if p.Reduce == nil {
		b.errs = multierror.Append(b.errs, &PassError{PassID: p.ID, Err: ErrNilReduce})
	}
	if _, exists := b.index[p.ID]; exists {
		b.errs = multierror.Append(b.errs, &PassError{PassID: p.ID, Err: ErrDuplicatePass})
		return b
	}
	if err := checkRelations(p); err != nil {
		b.errs = multierror.Append(b.errs, &PassError{PassID: p.ID, Err: err})
	}

	p.NodeDeps = slices.Clone(p.NodeDeps)
	p.ParentDeps = slices.Clone(p.ParentDeps)
	p.ChildDeps = slices.Clone(p.ChildDeps)
	b.index[p.ID] = len(b.passes)
	b.passes = append(b.passes, p)
	return b
}

func checkRelations(p Pass) error {
	switch {
	case slices.Contains(p.NodeDeps, p.ID):
		return ErrInvalidDependency
	case p.Kind == KindNode && (len(p.ParentDeps) > 0 || len(p.ChildDeps) > 0):
		return ErrInvalidDependency
	case p.Kind == KindParent && len(p.ChildDeps) > 0:
		return ErrInvalidDependency
	case p.Kind == KindChild && len(p.ParentDeps) > 0:
		return ErrInvalidDependency
	case p.Kind > KindChild:
		return ErrInvalidDependency
	}
	return nil
}

// Build validates the registered passes and returns the resolved Set.
//
// Description:
//
//	Checks that every dependency names a registered pass and that the
//	dependency graph, ignoring a pass reading itself on a neighbouring
//	node, has no cycle. Precomputes each pass's dependants and a
//	topological order that breaks ties by registration order.
//
// Outputs:
//
//	*Set - The validated set.
//	error - All registration problems, aggregated. A cycle is reported as
//	        a *CycleError.
func (b *Builder) Build() (*Set, error) {
	errs := b.errs
	for _, p := range b.passes {
		for _, dep := range allDeps(p) {
			if _, ok := b.index[dep]; !ok {
				errs = multierror.Append(errs, &PassError{PassID: p.ID, Err: ErrUnknownDependency})
				break
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	if err := b.detectCycles(); err != nil {
		return nil, err
	}

	set := &Set{
		passes: make([]compiled, len(b.passes)),
		index:  b.index,
		logger: b.logger,
	}
	if set.logger == nil {
		set.logger = slog.Default()
	}
	for i, p := range b.passes {
		set.passes[i].Pass = p
	}
	for i, p := range b.passes {
		add := func(deps []ID, rel Relation) {
			for _, dep := range deps {
				src := &set.passes[b.index[dep]]
				d := dependant{pass: i, rel: rel}
				if !slices.Contains(src.dependants, d) {
					src.dependants = append(src.dependants, d)
				}
			}
		}
		add(p.NodeDeps, RelNode)
		add(p.ParentDeps, RelParent)
		add(p.ChildDeps, RelChild)
	}
	set.order = b.topoOrder()
	return set, nil
}

func allDeps(p Pass) []ID {
	return slices.Concat(p.NodeDeps, p.ParentDeps, p.ChildDeps)
}

// upstream returns the passes p must run after.
func upstream(p Pass) []ID {
	var out []ID
	for _, dep := range allDeps(p) {
		if dep != p.ID && !slices.Contains(out, dep) {
			out = append(out, dep)
		}
	}
	return out
}

// detectCycles uses DFS to detect cycles in the dependency graph.
func (b *Builder) detectCycles() error {
	visited := make(map[ID]bool)
	onStack := make(map[ID]bool)
	var path []ID

	var dfs func(id ID) error
	dfs = func(id ID) error {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range upstream(b.passes[b.index[id]]) {
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			} else if onStack[dep] {
				start := slices.Index(path, dep)
				cycle := append(slices.Clone(path[start:]), dep)
				return &CycleError{Path: cycle}
			}
		}

		path = path[:len(path)-1]
		onStack[id] = false
		return nil
	}

	for _, p := range b.passes {
		if !visited[p.ID] {
			if err := dfs(p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoOrder returns pass indices with every pass after its dependencies.
func (b *Builder) topoOrder() []int {
	indegree := make([]int, len(b.passes))
	downstream := make([][]int, len(b.passes))
	for i, p := range b.passes {
		for _, dep := range upstream(p) {
			j := b.index[dep]
			downstream[j] = append(downstream[j], i)
			indegree[i]++
		}
	}

	order := make([]int, 0, len(b.passes))
	done := make([]bool, len(b.passes))
	for len(order) < len(b.passes) {
		for i := range b.passes {
			if done[i] || indegree[i] > 0 {
				continue
			}
			done[i] = true
			order = append(order, i)
			for _, k := range downstream[i] {
				indegree[k]--
			}
			break
		}
	}
	return order
}
