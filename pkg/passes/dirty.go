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
	"container/heap"

	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/tree"
)

type dirtyEntry struct {
	id     tree.NodeID
	height int
}

// dirtyQueue pops entries by height, ascending unless descending is set.
// Equal heights pop in identity order.
type dirtyQueue struct {
	entries    []dirtyEntry
	queued     tree.NodeSet
	descending bool
}

func (q *dirtyQueue) Len() int { return len(q.entries) }

func (q *dirtyQueue) Less(i, j int) bool {
	a, b := q.entries[i], q.entries[j]
	if a.height != b.height {
		if q.descending {
			return a.height > b.height
		}
		return a.height < b.height
	}
	return a.id.Compare(b.id) < 0
}

func (q *dirtyQueue) Swap(i, j int) { q.entries[i], q.entries[j] = q.entries[j], q.entries[i] }

func (q *dirtyQueue) Push(x any) { q.entries = append(q.entries, x.(dirtyEntry)) }

func (q *dirtyQueue) Pop() any {
	n := len(q.entries)
	e := q.entries[n-1]
	q.entries = q.entries[:n-1]
	return e
}

func (q *dirtyQueue) insert(id tree.NodeID, height int) bool {
	if q.queued.Contains(id) {
		return false
	}
	q.queued.Add(id)
	heap.Push(q, dirtyEntry{id: id, height: height})
	return true
}

func (q *dirtyQueue) pop() dirtyEntry {
	e := heap.Pop(q).(dirtyEntry)
	delete(q.queued, e.id)
	return e
}

// DirtySet holds, per pass, the nodes awaiting recomputation.
//
// Thread Safety: NOT safe for concurrent use.
type DirtySet struct {
	set    *Set
	queues []*dirtyQueue
}

// NewDirtySet creates an empty dirty set for the passes of s.
func (s *Set) NewDirtySet() *DirtySet {
	d := &DirtySet{set: s, queues: make([]*dirtyQueue, len(s.passes))}
	for i, p := range s.passes {
		d.queues[i] = &dirtyQueue{
			queued:     make(tree.NodeSet),
			descending: p.Kind == KindChild,
		}
	}
	return d
}

// Insert schedules pass on node id at the given height. It returns false if
// the pass is unknown or the entry is already queued.
func (d *DirtySet) Insert(pass ID, id tree.NodeID, height int) bool {
	i, ok := d.set.index[pass]
	if !ok {
		return false
	}
	return d.queues[i].insert(id, height)
}

// Contains reports whether pass is queued for node id.
func (d *DirtySet) Contains(pass ID, id tree.NodeID) bool {
	i, ok := d.set.index[pass]
	return ok && d.queues[i].queued.Contains(id)
}

// Len returns the number of queued entries across all passes.
func (d *DirtySet) Len() int {
	n := 0
	for _, q := range d.queues {
		n += q.Len()
	}
	return n
}

// Changes is what one or more mutation batches did to the tree.
type Changes struct {
	// Masks holds the union of facets touched per node.
	Masks map[tree.NodeID]mask.NodeMask
	// ChildChanged holds nodes whose child list changed.
	ChildChanged tree.NodeSet
	// ParentChanged holds nodes whose parent linkage changed.
	ParentChanged tree.NodeSet
	// Created holds nodes created in the batch.
	Created tree.NodeSet
}

// Seed builds the dirty set for a batch.
//
// Description:
//
//	A node is scheduled for a pass when its change mask overlaps the pass
//	mask, when its child list changed and the pass is child kind, when its
//	parent changed and the pass is parent kind, or unconditionally when
//	the node was created. Nodes that no longer exist are skipped.
//
// Inputs:
//
//	host - The tree, used for liveness and heights.
//	changes - The accumulated changes.
//
// Outputs:
//
//	*DirtySet - The seeded dirty set.
func (s *Set) Seed(host Host, changes Changes) *DirtySet {
	d := s.NewDirtySet()
	for id, m := range changes.Masks {
		h, ok := host.Height(id)
		if !ok {
			continue
		}
		for i, p := range s.passes {
			if m.Overlaps(p.Mask) {
				d.queues[i].insert(id, h)
			}
		}
	}
	seedKind := func(nodes tree.NodeSet, kind Kind) {
		for id := range nodes {
			h, ok := host.Height(id)
			if !ok {
				continue
			}
			for i, p := range s.passes {
				if p.Kind == kind {
					d.queues[i].insert(id, h)
				}
			}
		}
	}
	seedKind(changes.ChildChanged, KindChild)
	seedKind(changes.ParentChanged, KindParent)
	for id := range changes.Created {
		h, ok := host.Height(id)
		if !ok {
			continue
		}
		for _, q := range d.queues {
			q.insert(id, h)
		}
	}
	return d
}
