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
	"maps"
	"slices"

	"github.com/AleutianAI/realdom/pkg/mutation"
	"github.com/AleutianAI/realdom/pkg/node"
	"github.com/AleutianAI/realdom/pkg/tree"
)

// registerTemplate builds detached source subtrees for every root of tmpl.
func (d *RealDOM) registerTemplate(tmpl mutation.Template) {
	if old, ok := d.templates[tmpl.Name]; ok {
		for _, id := range old {
			// Sources are never bound or attached, so removal cannot fail.
			_ = d.removeSubtree(id)
		}
	}
	roots := make([]tree.NodeID, 0, len(tmpl.Roots))
	for _, r := range tmpl.Roots {
		roots = append(roots, d.buildTemplateNode(r))
	}
	d.templates[tmpl.Name] = roots
}

func (d *RealDOM) buildTemplateNode(tn mutation.TemplateNode) tree.NodeID {
	switch tn := tn.(type) {
	case mutation.TemplateElement:
		el := node.NewElement(tn.Tag, tn.Namespace)
		for _, a := range tn.Attrs {
			if a.Dynamic {
				continue
			}
			el.SetAttribute(node.AttributeName{Name: a.Name, Namespace: a.Namespace}, node.TextValue(a.Value))
		}
		id := d.createNode(node.New(el))
		for _, c := range tn.Children {
			// Both nodes are fresh and detached.
			_ = d.tree.AddChild(id, d.buildTemplateNode(c))
		}
		return id
	case mutation.TemplateText:
		return d.createNode(node.New(&node.Text{Value: tn.Text}))
	case mutation.TemplateDynamicText:
		return d.createNode(node.New(&node.Text{}))
	default:
		return d.createNode(node.New(node.Placeholder{}))
	}
}

// cloneSubtree deep-copies the subtree at src into fresh detached nodes.
func (d *RealDOM) cloneSubtree(src tree.NodeID) tree.NodeID {
	n, _ := d.tree.Get(src)
	id := d.createNode(n.Clone())
	children, _ := d.tree.Children(src)
	for _, c := range children {
		_ = d.tree.AddChild(id, d.cloneSubtree(c))
	}
	return id
}

// Templates returns the names of registered templates in sorted order.
func (d *RealDOM) Templates() []string {
	return slices.Sorted(maps.Keys(d.templates))
}
