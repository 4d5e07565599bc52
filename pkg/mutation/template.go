// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mutation

// Template is a named subtree pattern. Each root can be instantiated with
// LoadTemplate.
type Template struct {
	Name  string
	Roots []TemplateNode
}

// TemplateNode is one node of a template description.
type TemplateNode interface {
	isTemplateNode()
}

// TemplateElement is an element with static attributes and children.
type TemplateElement struct {
	Tag       string
	Namespace string
	Attrs     []TemplateAttribute
	Children  []TemplateNode
}

// TemplateAttribute is an attribute of a TemplateElement. Dynamic attributes
// are filled in later by SetAttribute and carry no value here.
type TemplateAttribute struct {
	Name      string
	Namespace string
	Value     string
	Dynamic   bool
}

// TemplateText is a fixed text node.
type TemplateText struct {
	Text string
}

// TemplateDynamic reserves a slot that is replaced after instantiation.
type TemplateDynamic struct {
	Index int
}

// TemplateDynamicText is a text node whose content is hydrated later.
type TemplateDynamicText struct {
	Index int
}

func (TemplateElement) isTemplateNode()     {}
func (TemplateText) isTemplateNode()        {}
func (TemplateDynamic) isTemplateNode()     {}
func (TemplateDynamicText) isTemplateNode() {}

// Batch is one unit of work from the producer. Templates are registered
// before any edit is applied.
type Batch struct {
	Templates []Template
	Edits     []Edit
}
