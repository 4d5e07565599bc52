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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/realdom/pkg/mask"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// testTree builds root -> a -> (b, c) and returns the ids.
func testTree(t *testing.T) (*tree.Tree[*node.Node], map[string]tree.NodeID) {
	t.Helper()
	tr := tree.New(node.New(node.NewElement("Root", "Root")))
	ids := map[string]tree.NodeID{"root": tr.Root()}
	for _, name := range []string{"a", "b", "c"} {
		el := node.NewElement("div", "")
		el.SetAttribute(node.AttributeName{Name: "size"}, node.TextValue(name))
		ids[name] = tr.CreateNode(node.New(el))
	}
	require.NoError(t, tr.AddChild(ids["root"], ids["a"]))
	require.NoError(t, tr.AddChild(ids["a"], ids["b"]))
	require.NoError(t, tr.AddChild(ids["a"], ids["c"]))
	return tr, ids
}

func allCreated(tr *tree.Tree[*node.Node]) Changes {
	created := make(tree.NodeSet)
	tr.Walk(func(id tree.NodeID, _ *node.Node) bool {
		created.Add(id)
		return true
	})
	return Changes{Created: created}
}

func mustState[T any](t *testing.T, tr *tree.Tree[*node.Node], id tree.NodeID, pass ID) T {
	t.Helper()
	n, ok := tr.Get(id)
	require.True(t, ok)
	v, ok := StateOf[T](n, pass)
	require.True(t, ok, "no %s state on %s", pass, id)
	return v
}

func sizePass() Pass {
	return Pass{
		ID:   "size",
		Kind: KindNode,
		Mask: mask.NodeMask{}.WithAttributes(mask.MustStatic("size")),
		Reduce: Compare(func(in Input) string {
			v, _ := in.Node.Attribute("size")
			return v.String()
		}),
	}
}

func TestResolve_ParentDependencyPropagatesInSameCall(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().
		Add(sizePass()).
		Add(Pass{
			ID:         "inherited",
			Kind:       KindParent,
			ParentDeps: []ID{"size"},
			Reduce: Compare(func(in Input) string {
				s, _ := ParentState[string](in, "size")
				return s
			}),
		}).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	set.Resolve(ctx, tr, set.Seed(tr, allCreated(tr)), nil)
	assert.Equal(t, "a", mustState[string](t, tr, ids["b"], "inherited"))

	// Change the parent's watched attribute only.
	a, _ := tr.Get(ids["a"])
	el, _ := a.Element()
	el.SetAttribute(node.AttributeName{Name: "size"}, node.TextValue("big"))

	changes := Changes{Masks: map[tree.NodeID]mask.NodeMask{
		ids["a"]: mask.NodeMask{}.WithAttributes(mask.Single("size")),
	}}
	changed, stats := set.Resolve(ctx, tr, set.Seed(tr, changes), nil)

	assert.Equal(t, "big", mustState[string](t, tr, ids["b"], "inherited"))
	assert.Equal(t, "big", mustState[string](t, tr, ids["c"], "inherited"))
	assert.True(t, changed.Contains(ids["a"]))
	assert.True(t, changed.Contains(ids["b"]))
	assert.True(t, changed.Contains(ids["c"]))
	assert.Equal(t, 3, stats.Runs, "size on a, inherited on b and c")
	assert.Equal(t, 3, stats.Changes)
}

func TestResolve_UnwatchedFacetDoesNotRun(t *testing.T) {
	tr, ids := testTree(t)
	runs := 0
	set, err := NewBuilder().
		Add(Pass{
			ID:   "count",
			Mask: mask.NodeMask{}.WithAttributes(mask.MustStatic("size")),
			Reduce: func(Input) (any, bool) {
				runs++
				return runs, true
			},
		}).
		Build()
	require.NoError(t, err)

	changes := Changes{Masks: map[tree.NodeID]mask.NodeMask{
		ids["b"]: mask.NodeMask{}.WithText().WithAttributes(mask.Single("class")),
	}}
	_, stats := set.Resolve(context.Background(), tr, set.Seed(tr, changes), nil)

	assert.Equal(t, 0, runs)
	assert.Equal(t, Stats{}, stats)
}

func TestResolve_ParentSelfDependencyIsRootFirst(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().
		Add(Pass{
			ID:         "depth",
			Kind:       KindParent,
			ParentDeps: []ID{"depth"},
			Reduce: Compare(func(in Input) int {
				d, ok := ParentState[int](in, "depth")
				if !ok {
					return 0
				}
				return d + 1
			}),
		}).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	set.Resolve(ctx, tr, set.Seed(tr, allCreated(tr)), nil)
	assert.Equal(t, 0, mustState[int](t, tr, ids["root"], "depth"))
	assert.Equal(t, 1, mustState[int](t, tr, ids["a"], "depth"))
	assert.Equal(t, 2, mustState[int](t, tr, ids["c"], "depth"))

	// Reparent a under a new deeper node; the new node and its parent
	// linkage are the only seeds, the rest follows through the self edge.
	wrap := tr.CreateNode(node.New(node.NewElement("section", "")))
	require.NoError(t, tr.AddChild(ids["root"], wrap))
	require.NoError(t, tr.Move(ids["a"], wrap))
	child, parent := tr.TakeChanges()
	set.Resolve(ctx, tr, set.Seed(tr, Changes{
		ChildChanged:  child,
		ParentChanged: parent,
		Created:       tree.NodeSet{wrap: {}},
	}), nil)

	assert.Equal(t, 1, mustState[int](t, tr, wrap, "depth"))
	assert.Equal(t, 2, mustState[int](t, tr, ids["a"], "depth"))
	assert.Equal(t, 3, mustState[int](t, tr, ids["b"], "depth"))
	assert.Equal(t, 3, mustState[int](t, tr, ids["c"], "depth"))
}

func TestResolve_ChildSelfDependencyIsLeavesFirst(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().
		Add(Pass{
			ID:        "subtree",
			Kind:      KindChild,
			ChildDeps: []ID{"subtree"},
			Reduce: Compare(func(in Input) int {
				total := 1
				for _, n := range ChildStates[int](in, "subtree") {
					total += n
				}
				return total
			}),
		}).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	_, stats := set.Resolve(ctx, tr, set.Seed(tr, allCreated(tr)), nil)
	assert.Equal(t, 4, mustState[int](t, tr, ids["root"], "subtree"))
	assert.Equal(t, 3, mustState[int](t, tr, ids["a"], "subtree"))
	assert.Equal(t, 4, stats.Runs, "descending order computes each node once")

	_, err = tr.Remove(ids["c"])
	require.NoError(t, err)
	child, parent := tr.TakeChanges()
	set.Resolve(ctx, tr, set.Seed(tr, Changes{ChildChanged: child, ParentChanged: parent}), nil)

	assert.Equal(t, 2, mustState[int](t, tr, ids["a"], "subtree"))
	assert.Equal(t, 3, mustState[int](t, tr, ids["root"], "subtree"))
}

func TestResolve_NodeDependencyOnSameNode(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().
		Add(Pass{
			ID:       "label",
			NodeDeps: []ID{"size"},
			Reduce: Compare(func(in Input) string {
				s, _ := Dep[string](in, "size")
				return "size=" + s
			}),
		}).
		Add(sizePass()).
		Build()
	require.NoError(t, err)

	set.Resolve(context.Background(), tr, set.Seed(tr, allCreated(tr)), nil)
	assert.Equal(t, "size=b", mustState[string](t, tr, ids["b"], "label"))
}

func TestResolve_StaleEntriesAreSkipped(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().Add(sizePass()).Build()
	require.NoError(t, err)

	dirty := set.NewDirtySet()
	require.True(t, dirty.Insert("size", ids["c"], 2))
	assert.False(t, dirty.Insert("size", ids["c"], 2), "duplicate entries are ignored")
	assert.False(t, dirty.Insert("ghost", ids["c"], 2))
	assert.True(t, dirty.Contains("size", ids["c"]))

	_, err = tr.Remove(ids["c"])
	require.NoError(t, err)

	changed, stats := set.Resolve(context.Background(), tr, dirty, nil)
	assert.Empty(t, changed)
	assert.Equal(t, 1, stats.StaleSkips)
	assert.Equal(t, 0, stats.Runs)
	assert.Equal(t, 0, dirty.Len())
}

func TestResolve_SeedSkipsRemovedNodes(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().Add(sizePass()).Build()
	require.NoError(t, err)

	_, err = tr.Remove(ids["b"])
	require.NoError(t, err)
	dirty := set.Seed(tr, Changes{
		Created: tree.NodeSet{ids["b"]: {}, ids["c"]: {}},
	})
	assert.Equal(t, 1, dirty.Len())
}

type scale int

func TestResolve_Context(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().
		Add(Pass{
			ID: "scaled",
			Reduce: Compare(func(in Input) string {
				f, ok := FromContext[scale](in.Context)
				if !ok {
					return "none"
				}
				return strconv.Itoa(int(f))
			}),
		}).
		Build()
	require.NoError(t, err)

	pctx := NewContext()
	Provide(pctx, scale(3))
	set.Resolve(context.Background(), tr, set.Seed(tr, allCreated(tr)), pctx)
	assert.Equal(t, "3", mustState[string](t, tr, ids["a"], "scaled"))

	_, ok := FromContext[string](pctx)
	assert.False(t, ok)
	_, ok = FromContext[scale](nil)
	assert.False(t, ok)
}

func TestResolve_UnchangedStateIsNotCommitted(t *testing.T) {
	tr, ids := testTree(t)
	set, err := NewBuilder().Add(Pass{ID: "never", Reduce: noop}).Build()
	require.NoError(t, err)

	changed, stats := set.Resolve(context.Background(), tr, set.Seed(tr, allCreated(tr)), nil)
	assert.Empty(t, changed)
	assert.Equal(t, 4, stats.Runs)

	n, _ := tr.Get(ids["a"])
	_, ok := StateOf[any](n, "never")
	assert.False(t, ok)
}
