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
	"context"
	"log/slog"

	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/passes"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// UpdateState resolves passes for everything changed since the last call.
//
// Description:
//
//	Drains the accumulated change masks, the structural changes recorded
//	by the tree and the set of created nodes, seeds the pass engine with
//	them and resolves it. Entries for nodes removed in the meantime are
//	dropped. Must be called after every batch (or run of batches) before
//	its edits are considered settled.
//
// Inputs:
//
//	ctx - Context for tracing.
//	pctx - External values made available to reducers. May be nil.
//
// Outputs:
//
//	tree.NodeSet - Nodes where at least one pass committed a new state.
//	map[tree.NodeID]mask.NodeMask - The change masks observed since the
//	    last call.
func (d *RealDOM) UpdateState(ctx context.Context, pctx *passes.Context) (tree.NodeSet, map[tree.NodeID]mask.NodeMask) {
	masks := d.masks
	created := d.created
	childChanged, parentChanged := d.tree.TakeChanges()
	d.masks = make(map[tree.NodeID]mask.NodeMask)
	d.created = make(tree.NodeSet)

	if d.passes == nil {
		return make(tree.NodeSet), masks
	}

	ctx, span := tracer.Start(ctx, "realdom.UpdateState")
	defer span.End()

	dirty := d.passes.Seed(d, passes.Changes{
		Masks:         masks,
		ChildChanged:  childChanged,
		ParentChanged: parentChanged,
		Created:       created,
	})
	changed, stats := d.passes.Resolve(ctx, d, dirty, pctx)
	d.logger.DebugContext(ctx, "state updated",
		slog.Int("masked_nodes", len(masks)),
		slog.Int("created_nodes", len(created)),
		slog.Int("changed_nodes", len(changed)),
		slog.Int("stale_skips", stats.StaleSkips),
	)
	return changed, masks
}
