package compiler

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/exp/slices"
)

// Meta carries the position a schema is compiled at.
type Meta struct {
	Required bool
	PropName string
	Parent   *CodeMeta
}

type field struct {
	Name     string
	Code     string
	Required bool
}

type objectShape struct {
	Fields      []field
	Partial     bool
	Catchall    string
	Passthrough bool
}

// backend emits the target text for each schema shape. The walker owns the
// traversal so that both targets agree on structure.
type backend interface {
	reference(w *walker, m *CodeMeta) (string, error)
	unknown() string
	primitive(typ string, s *openapi3.Schema) string
	enum(values []any) string
	array(item string) string
	// record receives "" for a value schema that accepts anything.
	record(value string) string
	object(shape objectShape) string
	union(op string, branches []string) string
	discriminatedUnion(op, prop string, branches []string) string
	intersection(branches []string) string
	multiType(variants []string) string
	refine(code, typ string, s *openapi3.Schema) string
	present(code string, s *openapi3.SchemaRef, required bool) string
}

type walker struct {
	s    *Session
	b    backend
	opts Options
}

func newWalker(s *Session, b backend) *walker {
	w := &walker{s: s, b: b}
	if s != nil {
		w.opts = s.Options
	}
	return w
}

// field compiles schema at a property or parameter position, presence included.
func (w *walker) field(schema *openapi3.SchemaRef, m *CodeMeta) (string, error) {
	code, err := w.walk(schema, m)
	if err != nil {
		return "", err
	}
	return w.b.present(code, schema, m.Required), nil
}

func (w *walker) child(schema *openapi3.SchemaRef, parent *CodeMeta, required bool) *CodeMeta {
	m := newCodeMeta(schema, parent)
	m.Required = required
	return m
}

// walk compiles schema without its presence modifiers.
func (w *walker) walk(schema *openapi3.SchemaRef, m *CodeMeta) (string, error) {
	if schema == nil || (schema.Ref == "" && schema.Value == nil) {
		return w.b.unknown(), nil
	}
	if schema.Ref != "" {
		return w.b.reference(w, m)
	}
	s := schema.Value

	if types := s.Type.Slice(); len(types) > 1 {
		variants := make([]string, 0, len(types))
		for _, t := range types {
			code, err := w.walk(withType(s, t), w.child(withType(s, t), m, true))
			if err != nil {
				return "", err
			}
			variants = append(variants, code)
		}
		return w.b.multiType(variants), nil
	}

	switch {
	case len(s.OneOf) > 0:
		return w.union("oneOf", s, s.OneOf, m)
	case len(s.AnyOf) > 0:
		return w.union("anyOf", s, s.AnyOf, m)
	case len(s.AllOf) > 0:
		return w.intersection(s, m)
	}

	typ := schemaType(s)
	if len(s.Enum) > 0 && typ != openapi3.TypeObject && typ != openapi3.TypeArray {
		return w.b.enum(s.Enum), nil
	}

	switch {
	case isPrimitive(typ):
		return w.b.refine(w.b.primitive(typ, s), typ, s), nil
	case typ == openapi3.TypeArray || (typ == "" && s.Items != nil):
		item, err := w.field(s.Items, w.child(s.Items, m, true))
		if err != nil {
			return "", err
		}
		return w.b.refine(w.b.array(item), openapi3.TypeArray, s), nil
	case typ == openapi3.TypeObject || len(s.Properties) > 0 || hasAdditional(s):
		return w.object(s, m)
	case typ == "":
		return w.b.unknown(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedSchemaType, typ)
}

func (w *walker) union(op string, s *openapi3.Schema, branches openapi3.SchemaRefs, m *CodeMeta) (string, error) {
	codes, err := w.branches(branches, m)
	if err != nil {
		return "", err
	}
	if len(codes) == 1 {
		return codes[0], nil
	}
	if s.Discriminator != nil && s.Discriminator.PropertyName != "" && w.taggedBranches(s.Discriminator.PropertyName, branches) {
		return w.b.discriminatedUnion(op, s.Discriminator.PropertyName, codes), nil
	}
	return w.b.union(op, codes), nil
}

func (w *walker) intersection(s *openapi3.Schema, m *CodeMeta) (string, error) {
	branches := append(openapi3.SchemaRefs(nil), s.AllOf...)
	if len(s.Properties) > 0 {
		own := *s
		own.AllOf = nil
		if len(own.Type.Slice()) == 0 {
			own.Type = &openapi3.Types{openapi3.TypeObject}
		}
		branches = append(branches, &openapi3.SchemaRef{Value: &own})
	}
	codes, err := w.branches(branches, m)
	if err != nil {
		return "", err
	}
	if len(codes) == 1 {
		return codes[0], nil
	}
	return w.b.intersection(codes), nil
}

func (w *walker) branches(refs openapi3.SchemaRefs, m *CodeMeta) ([]string, error) {
	codes := make([]string, 0, len(refs))
	for _, ref := range refs {
		code, err := w.field(ref, w.child(ref, m, true))
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// taggedBranches reports whether every branch is an object requiring prop
// with a single literal value.
func (w *walker) taggedBranches(prop string, branches openapi3.SchemaRefs) bool {
	for _, ref := range branches {
		s := w.deref(ref)
		if s == nil || len(s.Properties) == 0 {
			return false
		}
		if !slices.Contains(s.Required, prop) {
			return false
		}
		tag := w.deref(s.Properties[prop])
		if tag == nil || len(tag.Enum) != 1 {
			return false
		}
	}
	return true
}

func (w *walker) deref(ref *openapi3.SchemaRef) *openapi3.Schema {
	if ref == nil {
		return nil
	}
	if ref.Ref == "" {
		return ref.Value
	}
	if w.s == nil || w.s.Resolver == nil {
		return nil
	}
	target, err := w.s.Resolver.Dereference(ref.Ref)
	if err != nil {
		return nil
	}
	return target.Value
}

func (w *walker) object(s *openapi3.Schema, m *CodeMeta) (string, error) {
	ap := s.AdditionalProperties
	if len(s.Properties) == 0 && hasAdditional(s) {
		if ap.Schema == nil || isEmptySchema(ap.Schema) {
			return w.b.record(""), nil
		}
		value, err := w.field(ap.Schema, w.child(ap.Schema, m, true))
		if err != nil {
			return "", err
		}
		return w.b.record(value), nil
	}

	hasRequired := len(s.Required) > 0
	shape := objectShape{
		Partial:     !w.opts.WithImplicitRequiredProps && !hasRequired,
		Passthrough: ap.Has == nil || *ap.Has,
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		prop := s.Properties[name]
		required := shape.Partial || slices.Contains(s.Required, name) ||
			(!hasRequired && w.opts.WithImplicitRequiredProps)
		c := w.child(prop, m, required)
		c.PropName = name
		code, err := w.field(prop, c)
		if err != nil {
			return "", err
		}
		shape.Fields = append(shape.Fields, field{Name: name, Code: code, Required: required})
	}

	if ap.Schema != nil && !isEmptySchema(ap.Schema) {
		value, err := w.field(ap.Schema, w.child(ap.Schema, m, true))
		if err != nil {
			return "", err
		}
		shape.Catchall = value
	}
	return w.b.object(shape), nil
}

func schemaType(s *openapi3.Schema) string {
	if types := s.Type.Slice(); len(types) == 1 {
		return types[0]
	}
	return ""
}
