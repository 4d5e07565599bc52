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
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// Set is a validated, ordered collection of passes.
type Set struct {
	passes []compiled
	order  []int
	index  map[ID]int
	logger *slog.Logger
}

// Stats summarizes one resolve.
type Stats struct {
	Runs       int
	Changes    int
	StaleSkips int
}

// Order returns pass ids in resolution order.
func (s *Set) Order() []ID {
	out := make([]ID, len(s.order))
	for i, idx := range s.order {
		out[i] = s.passes[idx].ID
	}
	return out
}

// Lookup returns the registration of a pass.
func (s *Set) Lookup(id ID) (Pass, bool) {
	i, ok := s.index[id]
	if !ok {
		return Pass{}, false
	}
	return s.passes[i].Pass, true
}

// Len returns the number of passes.
func (s *Set) Len() int {
	return len(s.passes)
}

// Resolve recomputes every dirty (pass, node) entry until none remain.
//
// Description:
//
//	Passes are drained one at a time in topological order. Each pass pops
//	its entries by height in the direction fixed by its kind. An entry whose
//	node is gone is skipped. When the reducer reports a change the new state
//	is committed and each dependant is scheduled where it reads the value:
//	on the same node, on each child, or on the parent. Dependants always
//	come later in the order, or are the pass itself reading a neighbour,
//	so a single sweep reaches a fixed point.
//
// Inputs:
//
//	ctx - Context for tracing. Resolution is not cancellable.
//	host - The tree whose node states are updated.
//	dirty - The seeded dirty set. It is drained by the call.
//	pctx - External values for reducers. May be nil.
//
// Outputs:
//
//	tree.NodeSet - Nodes where at least one pass committed a new state.
//	Stats - Counters for the resolve.
func (s *Set) Resolve(ctx context.Context, host Host, dirty *DirtySet, pctx *Context) (tree.NodeSet, Stats) {
	start := time.Now()
	ctx, span := startResolveSpan(ctx, dirty.Len())
	defer span.End()

	changed := make(tree.NodeSet)
	var total Stats

	for _, pi := range s.order {
		p := &s.passes[pi]
		q := dirty.queues[pi]
		var st Stats

		for q.Len() > 0 {
			e := q.pop()
			h, ok := host.Height(e.id)
			n, live := host.Get(e.id)
			if !ok || !live || n == nil {
				st.StaleSkips++
				continue
			}

			state, didChange := p.Reduce(s.input(host, p, e.id, n, pctx))
			st.Runs++
			if !didChange {
				continue
			}
			n.SetState(string(p.ID), state)
			st.Changes++
			changed.Add(e.id)
			s.schedule(host, dirty, p, e.id, h)
		}

		recordPassMetrics(ctx, p.ID, st.Runs, st.Changes, st.StaleSkips)
		total.Runs += st.Runs
		total.Changes += st.Changes
		total.StaleSkips += st.StaleSkips
	}

	span.SetAttributes(
		attribute.Int("passes.runs", total.Runs),
		attribute.Int("passes.changes", total.Changes),
		attribute.Int("passes.stale_skips", total.StaleSkips),
	)
	duration := time.Since(start)
	recordResolveDuration(ctx, duration)
	s.logger.Debug("passes resolved",
		slog.Int("runs", total.Runs),
		slog.Int("changes", total.Changes),
		slog.Int("stale_skips", total.StaleSkips),
		slog.Int("changed_nodes", len(changed)),
		slog.Duration("duration", duration),
	)
	return changed, total
}

// schedule queues the dependants of p after its state changed on id.
func (s *Set) schedule(host Host, dirty *DirtySet, p *compiled, id tree.NodeID, height int) {
	for _, d := range p.dependants {
		q := dirty.queues[d.pass]
		switch d.rel {
		case RelNode:
			q.insert(id, height)
		case RelParent:
			children, _ := host.Children(id)
			for _, c := range children {
				q.insert(c, height+1)
			}
		case RelChild:
			if parent, ok := host.Parent(id); ok {
				q.insert(parent, height-1)
			}
		}
	}
}

func (s *Set) input(host Host, p *compiled, id tree.NodeID, n *node.Node, pctx *Context) Input {
	in := Input{
		Node:    node.NewView(id, n, p.Mask),
		Context: pctx,
	}
	in.Self, in.HasSelf = n.State(string(p.ID))
	if len(p.NodeDeps) > 0 {
		in.Deps = collect(n, p.NodeDeps)
	}

	switch p.Kind {
	case KindParent:
		if parentID, ok := host.Parent(id); ok {
			if parent, ok := host.Get(parentID); ok && parent != nil {
				in.Parent = collect(parent, p.ParentDeps)
			}
		}
	case KindChild:
		children, _ := host.Children(id)
		in.Children = make([]map[ID]any, 0, len(children))
		for _, c := range children {
			child, ok := host.Get(c)
			if !ok || child == nil {
				continue
			}
			in.Children = append(in.Children, collect(child, p.ChildDeps))
		}
	}
	return in
}

func collect(n *node.Node, ids []ID) map[ID]any {
	out := make(map[ID]any, len(ids))
	for _, id := range ids {
		if v, ok := n.State(string(id)); ok {
			out[id] = v
		}
	}
	return out
}
