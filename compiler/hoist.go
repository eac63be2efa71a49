package compiler

import (
	"fmt"

	"github.com/coze-dev/openapi-zod-gen/resolver"
	"github.com/getkin/kin-openapi/openapi3"
)

// Hoist decides whether the expression of m is used inline or through a
// variable. It returns the text to use at the call site.
func Hoist(s *Session, m *CodeMeta, fallback string) string {
	threshold := s.Options.ComplexityThreshold
	code := m.String()

	if m.Ref != "" {
		target, ok := s.CodeByName[m.Name]
		if !ok || s.isCircular(m.Ref) {
			return m.Name
		}
		if threshold == -1 {
			return target
		}
		if meta := s.metaByName[m.Name]; meta != nil && meta.Complexity() < threshold {
			return target
		}
		return m.Name
	}

	if threshold == -1 || fallback == "" {
		return code
	}
	if m.Complexity() < threshold {
		return code
	}
	if name, ok := s.NameByCode[code]; ok {
		return name
	}

	base := resolver.NormalizeName(fallback)
	name := base
	for n := 2; s.nameTaken(name); n++ {
		if existing, ok := s.CodeByName[name]; ok && existing == code {
			return name
		}
		name = fmt.Sprintf("%s__%d", base, n)
	}
	s.registerVar(name, code, m)
	return name
}

// Expr is a compiled expression ready to be placed at a call site.
type Expr struct {
	Code string
	Meta *CodeMeta
	// Var is set when Code names a hoisted variable or a schema.
	Var string
}

// Expression compiles schema at a parameter, body or response position and
// applies the hoisting decision under the fallback name.
func Expression(s *Session, schema *openapi3.SchemaRef, required bool, fallback string) (Expr, error) {
	m, err := CompileZod(s, schema, Meta{Required: required})
	if err != nil {
		return Expr{}, err
	}
	code := Hoist(s, m, fallback)
	e := Expr{Code: code, Meta: m}
	if _, ok := s.CodeByName[code]; ok {
		e.Var = code
	}
	if m.Ref != "" && !required {
		e.Code += ".optional()"
	}
	return e, nil
}
