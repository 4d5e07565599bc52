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
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/mutation"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// ApplyMutations applies one batch to the tree.
//
// Description:
//
//	Templates are registered first, then edits run in log order. Every
//	facet an edit touches is unioned into the node's change mask, and
//	created nodes are remembered, until the next UpdateState. A template
//	registered again under the same name replaces the previous one.
//
//	The producer and the DOM must stay in lockstep, so the first edit that
//	addresses something that does not exist aborts the batch. Edits before
//	it stay applied. An aborted batch empties the operand stack and removes
//	the nodes on it that were never attached, so the next batch starts
//	from the root.
//
// Inputs:
//
//	ctx - Context for tracing. Application is not cancellable.
//	batch - Templates and edits to apply.
//
// Outputs:
//
//	error - nil on success, otherwise a *MutationError wrapping one of
//	        ErrUnknownElement, ErrUnknownTemplate, ErrStackUnderflow,
//	        ErrInvalidPath, or a tree error.
func (d *RealDOM) ApplyMutations(ctx context.Context, batch mutation.Batch) error {
	batchID := uuid.NewString()[:12]
	ctx, span := tracer.Start(ctx, "realdom.ApplyMutations",
		trace.WithAttributes(
			attribute.String("realdom.batch_id", batchID),
			attribute.Int("realdom.templates", len(batch.Templates)),
			attribute.Int("realdom.edits", len(batch.Edits)),
		),
	)
	defer span.End()
	start := time.Now()

	for _, tmpl := range batch.Templates {
		d.registerTemplate(tmpl)
	}

	for i, e := range batch.Edits {
		if err := d.apply(e); err != nil {
			merr := &MutationError{Index: i, Op: e.Op(), Err: err}
			d.unwindStack()
			span.RecordError(merr)
			span.SetStatus(codes.Error, merr.Error())
			d.logger.WarnContext(ctx, "mutation batch aborted",
				slog.String("batch_id", batchID),
				slog.Int("edit", i),
				slog.String("op", e.Op()),
				slog.String("error", err.Error()),
			)
			return merr
		}
	}

	span.SetStatus(codes.Ok, "")
	d.logger.DebugContext(ctx, "mutation batch applied",
		slog.String("batch_id", batchID),
		slog.Int("templates", len(batch.Templates)),
		slog.Int("edits", len(batch.Edits)),
		slog.Int("stack_depth", len(d.stack)-1),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (d *RealDOM) apply(e mutation.Edit) error {
	switch e := e.(type) {
	case mutation.AppendChildren:
		parent, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		children, err := d.pop(e.M)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := d.tree.AddChild(parent, c); err != nil {
				return err
			}
		}

	case mutation.AssignID:
		id, err := d.loadChild(e.Path)
		if err != nil {
			return err
		}
		return d.bindElement(id, e.ID)

	case mutation.CreatePlaceholder:
		if err := checkElementID(e.ID); err != nil {
			return err
		}
		id := d.createNode(node.New(node.Placeholder{}))
		_ = d.bindElement(id, e.ID)
		d.stack = append(d.stack, id)

	case mutation.CreateTextNode:
		if err := checkElementID(e.ID); err != nil {
			return err
		}
		id := d.createNode(node.New(&node.Text{Value: e.Value}))
		_ = d.bindElement(id, e.ID)
		d.stack = append(d.stack, id)

	case mutation.HydrateText:
		id, err := d.loadChild(e.Path)
		if err != nil {
			return err
		}
		if err := d.bindElement(id, e.ID); err != nil {
			return err
		}
		m, _ := d.Mutate(id)
		if _, ok := m.Node().Text(); ok {
			m.SetText(e.Value)
		} else {
			m.SetType(&node.Text{Value: e.Value})
		}
		m.Commit()

	case mutation.LoadTemplate:
		roots, ok := d.templates[e.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTemplate, e.Name)
		}
		if e.Index < 0 || e.Index >= len(roots) {
			return fmt.Errorf("%w: %q has no root %d", ErrUnknownTemplate, e.Name, e.Index)
		}
		if err := checkElementID(e.ID); err != nil {
			return err
		}
		id := d.cloneSubtree(roots[e.Index])
		_ = d.bindElement(id, e.ID)
		d.stack = append(d.stack, id)

	case mutation.ReplaceWith:
		anchor, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		nodes, err := d.pop(e.M)
		if err != nil {
			return err
		}
		return d.replace(anchor, nodes)

	case mutation.ReplacePlaceholder:
		nodes, err := d.pop(e.M)
		if err != nil {
			return err
		}
		anchor, err := d.loadChild(e.Path)
		if err != nil {
			return err
		}
		return d.replace(anchor, nodes)

	case mutation.InsertAfter:
		anchor, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		nodes, err := d.pop(e.M)
		if err != nil {
			return err
		}
		for _, n := range slices.Backward(nodes) {
			if err := d.tree.InsertAfter(anchor, n); err != nil {
				return err
			}
		}

	case mutation.InsertBefore:
		anchor, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		nodes, err := d.pop(e.M)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if err := d.tree.InsertBefore(anchor, n); err != nil {
				return err
			}
		}

	case mutation.SetAttribute:
		id, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		n, _ := d.tree.Get(id)
		el, ok := n.Element()
		if !ok {
			return nil
		}
		key := node.AttributeName{Name: e.Name, Namespace: e.Namespace}
		if e.Value.IsNone() {
			el.RemoveAttribute(key)
		} else {
			el.SetAttribute(key, e.Value)
		}
		d.markDirty(id, mask.NodeMask{}.WithAttributes(mask.Single(e.Name)))

	case mutation.SetText:
		id, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		n, _ := d.tree.Get(id)
		if txt, ok := n.Text(); ok {
			txt.Value = e.Value
			d.markDirty(id, mask.NodeMask{}.WithText())
		}

	case mutation.NewEventListener:
		id, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		n, _ := d.tree.Get(id)
		if el, ok := n.Element(); ok {
			el.AddListener(e.Name)
			d.markDirty(id, mask.NodeMask{}.WithListeners())
			d.listen(id, e.Name)
		}

	case mutation.RemoveEventListener:
		id, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		n, _ := d.tree.Get(id)
		if el, ok := n.Element(); ok {
			el.RemoveListener(e.Name)
			d.markDirty(id, mask.NodeMask{}.WithListeners())
		}
		d.unlisten(id, e.Name)

	case mutation.Remove:
		id, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		return d.removeSubtree(id)

	case mutation.PushRoot:
		id, err := d.resolve(e.ID)
		if err != nil {
			return err
		}
		d.stack = append(d.stack, id)

	default:
		return fmt.Errorf("unsupported edit %T", e)
	}
	return nil
}

// resolve maps an element id to a live node.
func (d *RealDOM) resolve(eid node.ElementID) (tree.NodeID, error) {
	id, ok := d.ElementToNodeID(eid)
	if !ok {
		return tree.NodeID{}, fmt.Errorf("%w: %s", ErrUnknownElement, eid)
	}
	return id, nil
}

// unwindStack drops every entry above the root sentinel. Entries without a
// parent are removed with their subtrees.
func (d *RealDOM) unwindStack() {
	pending := d.stack[1:]
	d.stack = d.stack[:1]
	for _, id := range pending {
		if !d.tree.Contains(id) {
			continue
		}
		if _, ok := d.tree.Parent(id); ok {
			continue
		}
		_ = d.removeSubtree(id)
	}
}

// pop removes the top m stack entries and returns them in push order.
func (d *RealDOM) pop(m int) ([]tree.NodeID, error) {
	avail := len(d.stack) - 1
	if m < 0 || m > avail {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrStackUnderflow, m, avail)
	}
	out := slices.Clone(d.stack[len(d.stack)-m:])
	d.stack = d.stack[:len(d.stack)-m]
	return out, nil
}

// loadChild walks path from the top of the stack.
func (d *RealDOM) loadChild(path mutation.Path) (tree.NodeID, error) {
	cur := d.stack[len(d.stack)-1]
	for depth, i := range path {
		next, ok := d.tree.ChildAt(cur, int(i))
		if !ok {
			return tree.NodeID{}, fmt.Errorf("%w: index %d at depth %d", ErrInvalidPath, i, depth)
		}
		cur = next
	}
	return cur, nil
}

// replace inserts nodes before anchor, in order, then removes anchor.
func (d *RealDOM) replace(anchor tree.NodeID, nodes []tree.NodeID) error {
	if anchor == d.tree.Root() {
		return tree.ErrIsRoot
	}
	for _, n := range nodes {
		if err := d.tree.InsertBefore(anchor, n); err != nil {
			return err
		}
	}
	return d.removeSubtree(anchor)
}
