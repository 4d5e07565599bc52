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

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/realdom/pkg/node"
)

// batchValidate checks decoded batches. Initialized in init() with the
// per-op struct rules.
var batchValidate *validator.Validate

func init() {
	batchValidate = validator.New()
	batchValidate.RegisterStructValidation(validateEdit, rawEdit{})
	batchValidate.RegisterStructValidation(validateTemplateNode, rawTemplateNode{})
}

type rawBatch struct {
	Templates []rawTemplate `yaml:"templates" validate:"dive"`
	Edits     []rawEdit     `yaml:"edits" validate:"dive"`
}

type rawTemplate struct {
	Name  string            `yaml:"name" validate:"required"`
	Roots []rawTemplateNode `yaml:"roots" validate:"required,min=1,dive"`
}

type rawTemplateNode struct {
	Element     *rawElement `yaml:"element"`
	Text        *string     `yaml:"text"`
	Dynamic     *int        `yaml:"dynamic" validate:"omitempty,gte=0"`
	DynamicText *int        `yaml:"dynamic_text" validate:"omitempty,gte=0"`
}

type rawElement struct {
	Tag       string            `yaml:"tag" validate:"required"`
	Namespace string            `yaml:"namespace"`
	Attrs     []rawAttribute    `yaml:"attrs" validate:"dive"`
	Children  []rawTemplateNode `yaml:"children" validate:"dive"`
}

type rawAttribute struct {
	Name      string `yaml:"name" validate:"required"`
	Namespace string `yaml:"namespace"`
	Value     string `yaml:"value"`
	Dynamic   bool   `yaml:"dynamic"`
}

type rawEdit struct {
	Op        string   `yaml:"op" validate:"required,oneof=append_children assign_id create_placeholder create_text_node hydrate_text load_template replace_with replace_placeholder insert_after insert_before set_attribute set_text new_event_listener remove_event_listener remove push_root"`
	ID        *uint64  `yaml:"id"`
	M         int      `yaml:"m" validate:"gte=0"`
	Path      []int    `yaml:"path" validate:"dive,gte=0,lte=255"`
	Text      string   `yaml:"text"`
	Name      string   `yaml:"name"`
	Namespace string   `yaml:"namespace"`
	Index     int      `yaml:"index" validate:"gte=0"`
	Value     rawValue `yaml:"value"`
}

// rawValue decodes an attribute value from its YAML scalar type.
type rawValue struct {
	v node.AttributeValue
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *rawValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrUnknownValue, n.Line)
	}
	switch n.ShortTag() {
	case "!!null":
		r.v = node.NoValue()
	case "!!str":
		r.v = node.TextValue(n.Value)
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrUnknownValue, n.Line, err)
		}
		r.v = node.BoolValue(b)
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrUnknownValue, n.Line, err)
		}
		r.v = node.IntValue(i)
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrUnknownValue, n.Line, err)
		}
		r.v = node.FloatValue(f)
	default:
		return fmt.Errorf("%w: line %d: tag %s", ErrUnknownValue, n.Line, n.ShortTag())
	}
	return nil
}

var (
	opsWithID = map[string]bool{
		OpAppendChildren: true, OpAssignID: true, OpCreatePlaceholder: true,
		OpCreateTextNode: true, OpHydrateText: true, OpLoadTemplate: true,
		OpReplaceWith: true, OpInsertAfter: true, OpInsertBefore: true,
		OpSetAttribute: true, OpSetText: true, OpNewEventListener: true,
		OpRemoveEventListener: true, OpRemove: true, OpPushRoot: true,
	}
	opsThatPop = map[string]bool{
		OpAppendChildren: true, OpReplaceWith: true, OpReplacePlaceholder: true,
		OpInsertAfter: true, OpInsertBefore: true,
	}
	opsWithName = map[string]bool{
		OpLoadTemplate: true, OpSetAttribute: true,
		OpNewEventListener: true, OpRemoveEventListener: true,
	}
)

// validateEdit enforces the fields each op needs.
func validateEdit(sl validator.StructLevel) {
	e := sl.Current().Interface().(rawEdit)
	if opsWithID[e.Op] && e.ID == nil {
		sl.ReportError(e.ID, "id", "ID", "required_for_op", e.Op)
	}
	if e.ID != nil && *e.ID > uint64(node.MaxElementID) {
		sl.ReportError(e.ID, "id", "ID", "lte", strconv.FormatUint(uint64(node.MaxElementID), 10))
	}
	if opsThatPop[e.Op] && e.M < 1 {
		sl.ReportError(e.M, "m", "M", "min", "1")
	}
	if opsWithName[e.Op] && e.Name == "" {
		sl.ReportError(e.Name, "name", "Name", "required_for_op", e.Op)
	}
}

// validateTemplateNode requires exactly one variant to be set.
func validateTemplateNode(sl validator.StructLevel) {
	n := sl.Current().Interface().(rawTemplateNode)
	set := 0
	for _, ok := range []bool{n.Element != nil, n.Text != nil, n.Dynamic != nil, n.DynamicText != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		sl.ReportError(n, "node", "TemplateNode", "one_variant", strconv.Itoa(set))
	}
}

// DecodeYAML reads and validates a batch encoded as YAML.
//
// Description:
//
//	Unknown fields are rejected. Attribute values keep their YAML scalar
//	type: a quoted or plain string becomes text, integers, floats and
//	booleans keep their kind, and null or an absent value means removal.
//
// Inputs:
//
//	r - The YAML document.
//
// Outputs:
//
//	Batch - The decoded batch.
//	error - Non-nil if the document is malformed or fails validation; a
//	        validation failure wraps ErrInvalidBatch.
func DecodeYAML(r io.Reader) (Batch, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw rawBatch
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Batch{}, fmt.Errorf("decoding mutation batch: %w", err)
	}
	if err := batchValidate.Struct(&raw); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return raw.batch(), nil
}

// LoadFile decodes a YAML batch from path.
func LoadFile(path string) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("opening mutation batch: %w", err)
	}
	defer f.Close()
	return DecodeYAML(f)
}

func (r rawBatch) batch() Batch {
	b := Batch{
		Templates: make([]Template, 0, len(r.Templates)),
		Edits:     make([]Edit, 0, len(r.Edits)),
	}
	for _, t := range r.Templates {
		tmpl := Template{Name: t.Name}
		for _, root := range t.Roots {
			tmpl.Roots = append(tmpl.Roots, root.node())
		}
		b.Templates = append(b.Templates, tmpl)
	}
	for _, e := range r.Edits {
		b.Edits = append(b.Edits, e.edit())
	}
	return b
}

func (n rawTemplateNode) node() TemplateNode {
	switch {
	case n.Element != nil:
		el := TemplateElement{Tag: n.Element.Tag, Namespace: n.Element.Namespace}
		for _, a := range n.Element.Attrs {
			el.Attrs = append(el.Attrs, TemplateAttribute(a))
		}
		for _, c := range n.Element.Children {
			el.Children = append(el.Children, c.node())
		}
		return el
	case n.Text != nil:
		return TemplateText{Text: *n.Text}
	case n.Dynamic != nil:
		return TemplateDynamic{Index: *n.Dynamic}
	default:
		return TemplateDynamicText{Index: *n.DynamicText}
	}
}

func (e rawEdit) edit() Edit {
	var id node.ElementID
	if e.ID != nil {
		id = node.ElementID(*e.ID)
	}
	path := make(Path, len(e.Path))
	for i, p := range e.Path {
		path[i] = uint8(p)
	}
	switch e.Op {
	case OpAppendChildren:
		return AppendChildren{ID: id, M: e.M}
	case OpAssignID:
		return AssignID{Path: path, ID: id}
	case OpCreatePlaceholder:
		return CreatePlaceholder{ID: id}
	case OpCreateTextNode:
		return CreateTextNode{Value: e.Text, ID: id}
	case OpHydrateText:
		return HydrateText{Path: path, Value: e.Text, ID: id}
	case OpLoadTemplate:
		return LoadTemplate{Name: e.Name, Index: e.Index, ID: id}
	case OpReplaceWith:
		return ReplaceWith{ID: id, M: e.M}
	case OpReplacePlaceholder:
		return ReplacePlaceholder{Path: path, M: e.M}
	case OpInsertAfter:
		return InsertAfter{ID: id, M: e.M}
	case OpInsertBefore:
		return InsertBefore{ID: id, M: e.M}
	case OpSetAttribute:
		return SetAttribute{Name: e.Name, Namespace: e.Namespace, Value: e.Value.v, ID: id}
	case OpSetText:
		return SetText{Value: e.Text, ID: id}
	case OpNewEventListener:
		return NewEventListener{Name: e.Name, ID: id}
	case OpRemoveEventListener:
		return RemoveEventListener{Name: e.Name, ID: id}
	case OpRemove:
		return Remove{ID: id}
	default:
		return PushRoot{ID: id}
	}
}
