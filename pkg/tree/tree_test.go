// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(t *testing.T, tr *Tree[string], ids []NodeID) []string {
	t.Helper()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		v, ok := tr.Get(id)
		require.True(t, ok, "node %s should be live", id)
		out = append(out, v)
	}
	return out
}

func preorder(tr *Tree[string]) []string {
	var out []string
	tr.Walk(func(_ NodeID, v string) bool {
		out = append(out, v)
		return true
	})
	return out
}

func TestTree_New(t *testing.T) {
	tr := New("root")

	if tr.Size() != 1 {
		t.Errorf("Size() = %d, want 1", tr.Size())
	}
	h, ok := tr.Height(tr.Root())
	require.True(t, ok)
	assert.Equal(t, 0, h)
	_, hasParent := tr.Parent(tr.Root())
	assert.False(t, hasParent)
	assert.False(t, NodeID{}.Generation() > 0)
	assert.False(t, tr.Contains(NodeID{}))
}

func TestTree_AddChild_Order(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")
	c := tr.CreateNode("c")

	require.NoError(t, tr.AddChild(tr.Root(), a))
	require.NoError(t, tr.AddChild(tr.Root(), b))
	require.NoError(t, tr.AddChild(tr.Root(), c))

	kids, ok := tr.Children(tr.Root())
	require.True(t, ok)
	if diff := cmp.Diff([]string{"a", "b", "c"}, values(t, tr, kids)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_Heights(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")
	c := tr.CreateNode("c")
	require.NoError(t, tr.AddChild(tr.Root(), a))
	require.NoError(t, tr.AddChild(a, b))
	require.NoError(t, tr.AddChild(b, c))

	for id, want := range map[NodeID]int{tr.Root(): 0, a: 1, b: 2, c: 3} {
		got, ok := tr.Height(id)
		require.True(t, ok)
		if got != want {
			t.Errorf("Height(%s) = %d, want %d", id, got, want)
		}
	}

	// Moving b under the root shifts its whole subtree up one level.
	require.NoError(t, tr.Move(b, tr.Root()))
	hb, _ := tr.Height(b)
	hc, _ := tr.Height(c)
	assert.Equal(t, 1, hb)
	assert.Equal(t, 2, hc)
}

func TestTree_DetachedSubtreeHeights(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")
	require.NoError(t, tr.AddChild(a, b))

	hb, ok := tr.Height(b)
	require.True(t, ok)
	assert.Equal(t, 1, hb)
	assert.False(t, tr.IsAttached(b))

	require.NoError(t, tr.AddChild(tr.Root(), a))
	hb, _ = tr.Height(b)
	assert.Equal(t, 2, hb)
	assert.True(t, tr.IsAttached(b))
}

func TestTree_InsertBeforeAfter(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	c := tr.CreateNode("c")
	require.NoError(t, tr.AddChild(tr.Root(), a))
	require.NoError(t, tr.AddChild(tr.Root(), c))

	b := tr.CreateNode("b")
	require.NoError(t, tr.InsertAfter(a, b))
	z := tr.CreateNode("z")
	require.NoError(t, tr.InsertBefore(a, z))
	d := tr.CreateNode("d")
	require.NoError(t, tr.InsertAfter(c, d))

	assert.Equal(t, []string{"root", "z", "a", "b", "c", "d"}, preorder(tr))

	// Reordering among existing siblings.
	require.NoError(t, tr.InsertBefore(z, d))
	assert.Equal(t, []string{"root", "d", "z", "a", "b", "c"}, preorder(tr))
}

func TestTree_InsertRelativeToDetached(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")

	err := tr.InsertBefore(a, b)
	assert.True(t, errors.Is(err, ErrNoParent), "got %v", err)
}

func TestTree_Replace(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")
	c := tr.CreateNode("c")
	require.NoError(t, tr.AddChild(tr.Root(), a))
	require.NoError(t, tr.AddChild(tr.Root(), b))
	require.NoError(t, tr.AddChild(tr.Root(), c))
	bChild := tr.CreateNode("b1")
	require.NoError(t, tr.AddChild(b, bChild))

	x := tr.CreateNode("x")
	y := tr.CreateNode("y")
	require.NoError(t, tr.AddChild(x, y))

	removed, err := tr.Replace(b, x)
	require.NoError(t, err)

	assert.ElementsMatch(t, []NodeID{b, bChild}, removed)
	assert.Equal(t, []string{"root", "a", "x", "y", "c"}, preorder(tr))
	assert.False(t, tr.Contains(b))
	assert.False(t, tr.Contains(bChild))
	hy, _ := tr.Height(y)
	assert.Equal(t, 2, hy)
}

func TestTree_RemoveSubtree(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")
	c := tr.CreateNode("c")
	require.NoError(t, tr.AddChild(tr.Root(), a))
	require.NoError(t, tr.AddChild(a, b))
	require.NoError(t, tr.AddChild(a, c))

	removed, err := tr.Remove(a)
	require.NoError(t, err)

	assert.Equal(t, []NodeID{a, b, c}, removed)
	assert.Equal(t, 1, tr.Size())
	for _, id := range removed {
		_, ok := tr.Height(id)
		assert.False(t, ok, "removed node %s should not resolve", id)
	}
	assert.Equal(t, 0, tr.ChildCount(tr.Root()))
}

func TestTree_RemoveRoot(t *testing.T) {
	tr := New("root")
	_, err := tr.Remove(tr.Root())
	assert.ErrorIs(t, err, ErrIsRoot)
}

func TestTree_GenerationReuse(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	require.NoError(t, tr.AddChild(tr.Root(), a))
	_, err := tr.Remove(a)
	require.NoError(t, err)

	b := tr.CreateNode("b")
	assert.Equal(t, a.Index(), b.Index(), "slot should be reused")
	assert.Greater(t, b.Generation(), a.Generation())

	_, ok := tr.Get(a)
	assert.False(t, ok, "stale identity must not alias the new node")
	v, ok := tr.Get(b)
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.ErrorIs(t, tr.Set(a, "zombie"), ErrNodeNotFound)
}

func TestTree_Cycle(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")
	require.NoError(t, tr.AddChild(tr.Root(), a))
	require.NoError(t, tr.AddChild(a, b))

	assert.ErrorIs(t, tr.AddChild(b, a), ErrCycle)
	assert.ErrorIs(t, tr.AddChild(a, a), ErrCycle)
	assert.ErrorIs(t, tr.AddChild(a, tr.Root()), ErrIsRoot)

	// A rejected edit leaves the tree untouched.
	assert.Equal(t, []string{"root", "a", "b"}, preorder(tr))
}

func TestTree_TakeChanges(t *testing.T) {
	tr := New("root")
	a := tr.CreateNode("a")
	b := tr.CreateNode("b")
	require.NoError(t, tr.AddChild(tr.Root(), a))
	require.NoError(t, tr.AddChild(tr.Root(), b))

	child, parent := tr.TakeChanges()
	assert.True(t, child.Contains(tr.Root()))
	assert.True(t, parent.Contains(a))
	assert.True(t, parent.Contains(b))

	child, parent = tr.TakeChanges()
	assert.Empty(t, child)
	assert.Empty(t, parent)

	// Moving b under a touches both parents.
	require.NoError(t, tr.Move(b, a))
	child, parent = tr.TakeChanges()
	assert.Equal(t, []NodeID{tr.Root(), a}, child.Sorted())
	assert.Equal(t, []NodeID{b}, parent.Sorted())
}

func TestTree_WalkStops(t *testing.T) {
	tr := New("root")
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, tr.AddChild(tr.Root(), tr.CreateNode(name)))
	}

	var seen []string
	tr.Walk(func(_ NodeID, v string) bool {
		seen = append(seen, v)
		return v != "a"
	})
	assert.Equal(t, []string{"root", "a"}, seen)
}
