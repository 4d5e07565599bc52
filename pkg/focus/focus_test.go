// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package focus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/realdom/pkg/mutation"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/passes"
	"github.com/AleutianAI/realdom/pkg/realdom"
	"github.com/AleutianAI/realdom/pkg/tree"
)

var buttonTemplate = mutation.Template{
	Name:  "button",
	Roots: []mutation.TemplateNode{mutation.TemplateElement{Tag: "button"}},
}

func newDOM(t *testing.T) *realdom.RealDOM {
	t.Helper()
	set, err := passes.NewBuilder().Add(Pass()).Build()
	require.NoError(t, err)
	return realdom.New(set)
}

func apply(t *testing.T, d *realdom.RealDOM, edits ...mutation.Edit) {
	t.Helper()
	require.NoError(t, d.ApplyMutations(context.Background(), mutation.Batch{
		Templates: []mutation.Template{buttonTemplate},
		Edits:     edits,
	}))
	d.UpdateState(context.Background(), nil)
}

// buttons appends one button per tab index under the root. An empty
// index leaves the attribute unset. Element ids start at 1.
func buttons(t *testing.T, d *realdom.RealDOM, tabIndexes ...string) []tree.NodeID {
	t.Helper()
	var edits []mutation.Edit
	for i, ti := range tabIndexes {
		eid := node.ElementID(i + 1)
		edits = append(edits, mutation.LoadTemplate{Name: "button", ID: eid})
		if ti != "" {
			edits = append(edits, mutation.SetAttribute{Name: TabIndexAttr, Value: node.TextValue(ti), ID: eid})
		}
	}
	edits = append(edits, mutation.AppendChildren{ID: 0, M: len(tabIndexes)})
	apply(t, d, edits...)

	ids := make([]tree.NodeID, len(tabIndexes))
	for i := range tabIndexes {
		id, ok := d.ElementToNodeID(node.ElementID(i + 1))
		require.True(t, ok)
		ids[i] = id
	}
	return ids
}

func walk(t *testing.T, nav *Navigator, d *realdom.RealDOM, forward bool, steps int) []tree.NodeID {
	t.Helper()
	out := make([]tree.NodeID, 0, steps)
	for range steps {
		require.True(t, nav.Advance(d, forward))
		id, ok := nav.Focused()
		require.True(t, ok)
		out = append(out, id)
	}
	return out
}

func TestLevel_Order(t *testing.T) {
	ordered := []Level{Unfocusable, Ordered(1), Ordered(2), Ordered(40), Focusable}
	for i := range ordered {
		for j := range ordered {
			assert.Equal(t, i < j, ordered[i].Less(ordered[j]), "%s < %s", ordered[i], ordered[j])
		}
	}
	assert.Equal(t, Focusable, Ordered(0))
	assert.False(t, Unfocusable.IsFocusable())
	assert.True(t, Ordered(3).IsFocusable())
	rank, ok := Ordered(3).Rank()
	assert.True(t, ok)
	assert.Equal(t, uint16(3), rank)
	_, ok = Focusable.Rank()
	assert.False(t, ok)
}

func TestPass_Reduce(t *testing.T) {
	tests := []struct {
		name      string
		attrs     map[string]node.AttributeValue
		listeners []string
		want      Focus
	}{
		{"nothing", nil, nil, Focus{Level: Unfocusable, PassFocus: true}},
		{"negative", map[string]node.AttributeValue{TabIndexAttr: node.TextValue("-1")}, nil, Focus{Level: Unfocusable, PassFocus: true}},
		{"garbage", map[string]node.AttributeValue{TabIndexAttr: node.TextValue("first")}, nil, Focus{Level: Unfocusable, PassFocus: true}},
		{"zero", map[string]node.AttributeValue{TabIndexAttr: node.TextValue("0")}, nil, Focus{Level: Focusable, PassFocus: true}},
		{"ranked", map[string]node.AttributeValue{TabIndexAttr: node.TextValue("3")}, nil, Focus{Level: Ordered(3), PassFocus: true}},
		{"int value", map[string]node.AttributeValue{TabIndexAttr: node.IntValue(2)}, nil, Focus{Level: Ordered(2), PassFocus: true}},
		{"huge", map[string]node.AttributeValue{TabIndexAttr: node.IntValue(1 << 20)}, nil, Focus{Level: Ordered(65535), PassFocus: true}},
		{"key listener", nil, []string{"keydown"}, Focus{Level: Focusable, PassFocus: true}},
		{"click listener", nil, []string{"click"}, Focus{Level: Unfocusable, PassFocus: true}},
		{"tabindex wins over listener", map[string]node.AttributeValue{TabIndexAttr: node.TextValue("-1")}, []string{"keyup"}, Focus{Level: Unfocusable, PassFocus: true}},
		{"prevent default", map[string]node.AttributeValue{PreventDefaultAttr: node.TextValue(" true ")}, nil, Focus{Level: Unfocusable, PassFocus: false}},
		{"prevent default bool", map[string]node.AttributeValue{PreventDefaultAttr: node.BoolValue(true)}, nil, Focus{Level: Unfocusable, PassFocus: false}},
		{"prevent default false", map[string]node.AttributeValue{PreventDefaultAttr: node.TextValue("false")}, nil, Focus{Level: Unfocusable, PassFocus: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := node.NewElement("div", "")
			for k, v := range tt.attrs {
				el.SetAttribute(node.AttributeName{Name: k}, v)
			}
			for _, l := range tt.listeners {
				el.AddListener(l)
			}
			view := node.NewView(tree.NodeID{}, node.New(el), Pass().Mask)
			assert.Equal(t, tt.want, reduce(passes.Input{Node: view}))
		})
	}
}

func TestNavigator_ForwardTabOrder(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "1", "2", "0", "0")
	nav := NewNavigator(nil)

	got := walk(t, nav, d, true, 5)
	assert.Equal(t, []tree.NodeID{ids[0], ids[1], ids[2], ids[3], ids[0]}, got)
}

func TestNavigator_RanksBeatDocumentOrder(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "0", "3", "", "1", "3")
	nav := NewNavigator(nil)

	got := walk(t, nav, d, true, 5)
	assert.Equal(t, []tree.NodeID{ids[3], ids[1], ids[4], ids[0], ids[3]}, got)
}

func TestNavigator_Backward(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "1", "2", "0", "0")
	nav := NewNavigator(nil)

	got := walk(t, nav, d, false, 5)
	assert.Equal(t, []tree.NodeID{ids[3], ids[2], ids[1], ids[0], ids[3]}, got)
}

func TestNavigator_DirectionChange(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "1", "2", "0", "0")
	nav := NewNavigator(nil)

	walk(t, nav, d, true, 3)
	assert.Equal(t, []tree.NodeID{ids[1], ids[0]}, walk(t, nav, d, false, 2))
	assert.Equal(t, []tree.NodeID{ids[1]}, walk(t, nav, d, true, 1))
}

func TestNavigator_PassFocusBlocks(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "0", "0")
	apply(t, d, mutation.SetAttribute{Name: PreventDefaultAttr, Value: node.TextValue("true"), ID: 1})
	nav := NewNavigator(nil)

	require.True(t, nav.Advance(d, true))
	assert.False(t, nav.Advance(d, true))
	assert.False(t, nav.Advance(d, false))
	focused, _ := nav.Focused()
	assert.Equal(t, ids[0], focused)
	assert.True(t, nav.IsFocused(ids[0]))
}

func TestNavigator_SingleFocusable(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "", "0", "-1")
	nav := NewNavigator(nil)

	require.True(t, nav.Advance(d, true))
	assert.False(t, nav.Advance(d, true), "nowhere else to go")
	assert.False(t, nav.Advance(d, false))
	focused, _ := nav.Focused()
	assert.Equal(t, ids[1], focused)
	assert.Equal(t, Focusable, nav.Level())
}

func TestNavigator_NothingFocusable(t *testing.T) {
	d := newDOM(t)
	buttons(t, d, "", "-1")
	nav := NewNavigator(nil)

	assert.False(t, nav.Advance(d, true))
	assert.False(t, nav.Advance(d, false))
	_, ok := nav.Focused()
	assert.False(t, ok)
	assert.Equal(t, Unfocusable, nav.Level())
}

func TestNavigator_KeyListenerMakesFocusable(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "", "")
	apply(t, d, mutation.NewEventListener{Name: "keydown", ID: 2})
	nav := NewNavigator(nil)

	require.True(t, nav.Advance(d, true))
	focused, _ := nav.Focused()
	assert.Equal(t, ids[1], focused)
}

func TestNavigator_SetFocus(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "1", "2", "0", "0")
	nav := NewNavigator(nil)

	require.NoError(t, nav.SetFocus(d, ids[2]))
	assert.Equal(t, Focusable, nav.Level())
	assert.True(t, nav.IsFocused(ids[2]))
	assert.False(t, nav.IsFocused(ids[0]))

	assert.Equal(t, []tree.NodeID{ids[3], ids[0]}, walk(t, nav, d, true, 2))

	err := nav.SetFocus(d, tree.NodeID{})
	assert.ErrorIs(t, err, ErrNotAttached)
	focused, _ := nav.Focused()
	assert.Equal(t, ids[0], focused, "failed SetFocus keeps focus")

	nav.Blur()
	_, ok := nav.Focused()
	assert.False(t, ok)
}

func TestNavigator_SurvivesRemovalOfFocused(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "0", "0", "0")
	nav := NewNavigator(nil)
	require.NoError(t, nav.SetFocus(d, ids[1]))

	apply(t, d, mutation.Remove{ID: 2})

	require.True(t, nav.Advance(d, true))
	focused, _ := nav.Focused()
	assert.Equal(t, ids[2], focused, "focus continues from the removed node's slot")
}

func TestNavigator_SeesNewNodes(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "0", "0")
	nav := NewNavigator(nil)
	require.NoError(t, nav.SetFocus(d, ids[0]))

	apply(t, d,
		mutation.LoadTemplate{Name: "button", ID: 10},
		mutation.SetAttribute{Name: TabIndexAttr, Value: node.TextValue("0"), ID: 10},
		mutation.InsertAfter{ID: 1, M: 1},
	)
	inserted, ok := d.ElementToNodeID(10)
	require.True(t, ok)

	assert.Equal(t, []tree.NodeID{inserted, ids[1]}, walk(t, nav, d, true, 2))
}

func TestNavigator_LevelChangeOfFocused(t *testing.T) {
	d := newDOM(t)
	ids := buttons(t, d, "0", "0")
	nav := NewNavigator(nil)
	require.True(t, nav.Advance(d, true))

	// The focused node becomes unfocusable; traversal still terminates and
	// finds the other node.
	apply(t, d, mutation.SetAttribute{Name: TabIndexAttr, Value: node.TextValue("-1"), ID: 1})
	require.True(t, nav.Advance(d, true))
	focused, _ := nav.Focused()
	assert.Equal(t, ids[1], focused)
	assert.False(t, nav.Advance(d, true))
}
