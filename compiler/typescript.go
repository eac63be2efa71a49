package compiler

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type tsBackend struct {
	opts Options
}

// CompileType compiles schema into a TypeScript type. With a name it returns
// a `type Name = ...;` declaration, otherwise the anonymous type body.
func CompileType(s *Session, schema *openapi3.SchemaRef, name string) (string, error) {
	b := &tsBackend{}
	if s != nil {
		b.opts = s.Options
		if name != "" && s.Resolver != nil && s.Resolver.IsSchemaName(name) {
			s.typeVisited[name] = true
		}
	}
	w := newWalker(s, b)

	m := newCodeMeta(schema, nil)
	m.Required = true
	body, err := w.field(schema, m)
	if err != nil {
		return "", err
	}
	m.Assign(body)
	if name == "" {
		return body, nil
	}
	if s != nil {
		s.TypeByName[name] = body
	}
	return "type " + name + " = " + body + ";", nil
}

func (t *tsBackend) reference(w *walker, m *CodeMeta) (string, error) {
	s := w.s
	if s == nil || s.Resolver == nil {
		return "", ErrMissingContext
	}
	m.Name = s.Resolver.Resolve(m.Ref).NormalizedName
	if s.typeVisited[m.Name] {
		return m.Name, nil
	}
	s.typeVisited[m.Name] = true

	schema, err := s.Resolver.Dereference(m.Ref)
	if err != nil {
		return "", &SchemaNotFoundError{Ref: m.Ref}
	}
	target := newCodeMeta(schema, nil)
	target.Name = m.Name
	target.Required = true
	body, err := w.field(schema, target)
	if err != nil {
		return "", err
	}
	s.TypeByName[m.Name] = body
	return m.Name, nil
}

func (t *tsBackend) unknown() string {
	return "unknown"
}

func (t *tsBackend) primitive(typ string, s *openapi3.Schema) string {
	switch typ {
	case openapi3.TypeString:
		if s.Format == "binary" {
			return "File"
		}
		return "string"
	case openapi3.TypeNumber, openapi3.TypeInteger:
		return "number"
	case openapi3.TypeBoolean:
		return "boolean"
	case openapi3.TypeNull:
		return "null"
	}
	return t.unknown()
}

func (t *tsBackend) enum(values []any) string {
	items := make([]string, 0, len(values))
	for _, v := range values {
		items = append(items, literal(v))
	}
	return strings.Join(items, " | ")
}

func (t *tsBackend) array(item string) string {
	if t.opts.AllReadonly {
		return "ReadonlyArray<" + item + ">"
	}
	return "Array<" + item + ">"
}

func (t *tsBackend) record(value string) string {
	if value == "" {
		value = "any"
	}
	return "Record<string, " + value + ">"
}

func (t *tsBackend) object(shape objectShape) string {
	var b strings.Builder
	b.WriteString("{")
	for i, f := range shape.Fields {
		if i > 0 {
			b.WriteString(";")
		}
		b.WriteString(" ")
		b.WriteString(propertyKey(f.Name))
		if !f.Required {
			b.WriteString("?")
		}
		b.WriteString(": ")
		b.WriteString(f.Code)
	}
	if len(shape.Fields) > 0 {
		b.WriteString(" ")
	}
	b.WriteString("}")
	code := b.String()
	if shape.Partial && len(shape.Fields) > 0 {
		code = "Partial<" + code + ">"
	}
	if shape.Catchall != "" {
		code += " & " + t.record(shape.Catchall)
	}
	if t.opts.AllReadonly {
		code = "Readonly<" + code + ">"
	}
	return code
}

func (t *tsBackend) union(op string, branches []string) string {
	code := strings.Join(branches, " | ")
	if op == "anyOf" {
		code += " | Array<" + code + ">"
	}
	return code
}

func (t *tsBackend) discriminatedUnion(op, _ string, branches []string) string {
	return t.union(op, branches)
}

func (t *tsBackend) intersection(branches []string) string {
	parts := make([]string, 0, len(branches))
	for _, b := range branches {
		if strings.Contains(b, " | ") {
			b = "(" + b + ")"
		}
		parts = append(parts, b)
	}
	return strings.Join(parts, " & ")
}

func (t *tsBackend) multiType(variants []string) string {
	return strings.Join(variants, " | ")
}

func (t *tsBackend) refine(code, _ string, _ *openapi3.Schema) string {
	return code
}

// present only adds nullability; optionality lives on the property key.
func (t *tsBackend) present(code string, schema *openapi3.SchemaRef, _ bool) string {
	if schema == nil || schema.Ref != "" || schema.Value == nil || !schema.Value.Nullable {
		return code
	}
	return code + " | null"
}
