package compiler

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// VoidSchema is the expression of a response without a usable body.
const VoidSchema = "z.void()"

type zodBackend struct {
	opts Options
}

// CompileZod compiles schema into a Zod expression. A $ref compiles to the
// target's name and registers the target's expression in the session.
func CompileZod(s *Session, schema *openapi3.SchemaRef, meta Meta) (*CodeMeta, error) {
	b := &zodBackend{}
	if s != nil {
		b.opts = s.Options
	}
	w := newWalker(s, b)

	m := newCodeMeta(schema, meta.Parent)
	m.Required = meta.Required
	m.PropName = meta.PropName

	code, err := w.walk(schema, m)
	if err != nil {
		return nil, err
	}
	if schema == nil || schema.Ref == "" {
		code = b.present(code, schema, meta.Required)
	}
	return m.Assign(code), nil
}

func (z *zodBackend) reference(w *walker, m *CodeMeta) (string, error) {
	s := w.s
	if s == nil || s.Resolver == nil {
		return "", ErrMissingContext
	}
	info := s.Resolver.Resolve(m.Ref)
	m.Name = info.NormalizedName
	if target, ok := s.metaByName[m.Name]; ok {
		target.ReferencedBy = append(target.ReferencedBy, m)
		return m.Name, nil
	}

	schema, err := s.Resolver.Dereference(m.Ref)
	if err != nil {
		return "", &SchemaNotFoundError{Ref: m.Ref}
	}
	target := newCodeMeta(schema, nil)
	target.Name = m.Name
	target.Required = true
	target.ReferencedBy = append(target.ReferencedBy, m)
	s.metaByName[m.Name] = target

	code, err := w.walk(schema, target)
	if err != nil {
		return "", err
	}
	code = z.present(code, schema, true)
	target.Assign(code)
	s.registerSchema(m.Name, code)
	return m.Name, nil
}

func (z *zodBackend) unknown() string {
	return "z.unknown()"
}

func (z *zodBackend) primitive(typ string, s *openapi3.Schema) string {
	switch typ {
	case openapi3.TypeString:
		if s.Format == "binary" {
			return "z.instanceof(File)"
		}
		return "z.string()"
	case openapi3.TypeNumber:
		return "z.number()"
	case openapi3.TypeInteger:
		return "z.number().int()"
	case openapi3.TypeBoolean:
		return "z.boolean()"
	case openapi3.TypeNull:
		return "z.null()"
	}
	return z.unknown()
}

func (z *zodBackend) enum(values []any) string {
	if len(values) == 1 {
		return "z.literal(" + literal(values[0]) + ")"
	}
	items := make([]string, 0, len(values))
	if allStrings(values) {
		for _, v := range values {
			items = append(items, literal(v))
		}
		return "z.enum([" + strings.Join(items, ", ") + "])"
	}
	for _, v := range values {
		items = append(items, "z.literal("+literal(v)+")")
	}
	return "z.union([" + strings.Join(items, ", ") + "])"
}

func (z *zodBackend) array(item string) string {
	return z.readonly("z.array(" + item + ")")
}

func (z *zodBackend) record(value string) string {
	if value == "" {
		value = "z.any()"
	}
	return "z.record(" + value + ")"
}

func (z *zodBackend) object(shape objectShape) string {
	var b strings.Builder
	b.WriteString("z.object({")
	for i, f := range shape.Fields {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(" ")
		b.WriteString(propertyKey(f.Name))
		b.WriteString(": ")
		b.WriteString(f.Code)
	}
	if len(shape.Fields) > 0 {
		b.WriteString(" ")
	}
	b.WriteString("})")
	if shape.Partial {
		b.WriteString(".partial()")
	}
	switch {
	case shape.Catchall != "":
		b.WriteString(".catchall(" + shape.Catchall + ")")
	case shape.Passthrough:
		b.WriteString(".passthrough()")
	}
	return z.readonly(b.String())
}

func (z *zodBackend) union(_ string, branches []string) string {
	return "z.union([" + strings.Join(branches, ", ") + "])"
}

func (z *zodBackend) discriminatedUnion(_, prop string, branches []string) string {
	return "z.discriminatedUnion(" + literal(prop) + ", [" + strings.Join(branches, ", ") + "])"
}

func (z *zodBackend) intersection(branches []string) string {
	code := branches[0]
	for _, b := range branches[1:] {
		code += ".and(" + b + ")"
	}
	return code
}

func (z *zodBackend) multiType(variants []string) string {
	return z.union("", variants)
}

func (z *zodBackend) refine(code, typ string, s *openapi3.Schema) string {
	if len(s.Enum) > 0 {
		return code
	}
	var b strings.Builder
	b.WriteString(code)
	switch typ {
	case openapi3.TypeString:
		if s.Format == "binary" {
			break
		}
		switch {
		case s.MaxLength != nil && s.MinLength == *s.MaxLength && s.MinLength > 0:
			fmt.Fprintf(&b, ".length(%d)", s.MinLength)
		default:
			if s.MinLength > 0 {
				fmt.Fprintf(&b, ".min(%d)", s.MinLength)
			}
			if s.MaxLength != nil {
				fmt.Fprintf(&b, ".max(%d)", *s.MaxLength)
			}
		}
		if s.Pattern != "" {
			b.WriteString(".regex(" + regexLiteral(s.Pattern) + ")")
		}
		switch s.Format {
		case "email":
			b.WriteString(".email()")
		case "hostname", "uri":
			b.WriteString(".url()")
		case "uuid":
			b.WriteString(".uuid()")
		case "date-time":
			b.WriteString(".datetime({ offset: true })")
		}
	case openapi3.TypeNumber, openapi3.TypeInteger:
		if s.Min != nil {
			if s.ExclusiveMin {
				b.WriteString(".gt(" + formatNumber(*s.Min) + ")")
			} else {
				b.WriteString(".gte(" + formatNumber(*s.Min) + ")")
			}
		}
		if s.Max != nil {
			if s.ExclusiveMax {
				b.WriteString(".lt(" + formatNumber(*s.Max) + ")")
			} else {
				b.WriteString(".lte(" + formatNumber(*s.Max) + ")")
			}
		}
		if s.MultipleOf != nil {
			b.WriteString(".multipleOf(" + formatNumber(*s.MultipleOf) + ")")
		}
	case openapi3.TypeArray:
		if s.MinItems > 0 {
			fmt.Fprintf(&b, ".min(%d)", s.MinItems)
		}
		if s.MaxItems != nil {
			fmt.Fprintf(&b, ".max(%d)", *s.MaxItems)
		}
	}
	return b.String()
}

// present appends nullability, optionality and the default value. A bare
// reference only ever becomes optional.
func (z *zodBackend) present(code string, schema *openapi3.SchemaRef, required bool) string {
	if schema != nil && schema.Ref != "" {
		if !required {
			return code + ".optional()"
		}
		return code
	}
	var s *openapi3.Schema
	if schema != nil {
		s = schema.Value
	}
	nullable := s != nil && s.Nullable
	switch {
	case nullable && !required:
		code += ".nullish()"
	case nullable:
		code += ".nullable()"
	case !required:
		code += ".optional()"
	}
	if z.opts.WithDefaultValues && s != nil && s.Default != nil {
		code += ".default(" + literal(s.Default) + ")"
	}
	return code
}

func (z *zodBackend) readonly(code string) string {
	if z.opts.AllReadonly {
		return code + ".readonly()"
	}
	return code
}

// propertyKey quotes keys that are not valid identifiers.
func propertyKey(name string) string {
	if isIdentifier(name) {
		return name
	}
	return literal(name)
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
