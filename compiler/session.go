// Package compiler turns OpenAPI schema nodes into Zod validator
// expressions and TypeScript types.
package compiler

import (
	"github.com/coze-dev/openapi-zod-gen/resolver"
)

// DefaultComplexityThreshold is the score from which an inline expression is
// hoisted into a variable.
const DefaultComplexityThreshold = 4

// Options tune both backends.
type Options struct {
	// ComplexityThreshold decides hoisting. -1 inlines everything.
	ComplexityThreshold       int
	WithImplicitRequiredProps bool
	WithDefaultValues         bool
	AllReadonly               bool
}

// Session is the state of one conversion run. It is not safe for
// concurrent use and must not outlive the run it was created for.
type Session struct {
	Resolver *resolver.Resolver
	Options  Options

	// Circular reports whether a ref reaches itself. Nil means no ref does.
	Circular func(ref string) bool

	// CodeByName maps a schema or hoisted variable name to its expression.
	CodeByName map[string]string
	// NameByCode maps a hoisted expression back to its variable name.
	NameByCode map[string]string
	// TypeByName maps a schema name to the body of its static type.
	TypeByName map[string]string

	metaByName  map[string]*CodeMeta
	schemaNames []string
	varNames    []string
	varRefs     map[string][]string
	typeVisited map[string]bool
}

// NewSession creates the state for a run over the resolver's document.
func NewSession(res *resolver.Resolver, opts Options) *Session {
	return &Session{
		Resolver:    res,
		Options:     opts,
		CodeByName:  make(map[string]string),
		NameByCode:  make(map[string]string),
		TypeByName:  make(map[string]string),
		metaByName:  make(map[string]*CodeMeta),
		varRefs:     make(map[string][]string),
		typeVisited: make(map[string]bool),
	}
}

// SchemaNames returns compiled component schema names in registration order.
func (s *Session) SchemaNames() []string {
	return append([]string(nil), s.schemaNames...)
}

// VarNames returns hoisted variable names in allocation order.
func (s *Session) VarNames() []string {
	return append([]string(nil), s.varNames...)
}

// VarRefs returns the schema names a hoisted variable's expression uses.
func (s *Session) VarRefs(name string) []string {
	return s.varRefs[name]
}

// Meta returns the root CodeMeta a schema name was compiled into.
func (s *Session) Meta(name string) *CodeMeta {
	return s.metaByName[name]
}

// IsVar reports whether name is a hoisted variable rather than a schema.
func (s *Session) IsVar(name string) bool {
	_, ok := s.varRefs[name]
	return ok
}

func (s *Session) isCircular(ref string) bool {
	return s.Circular != nil && s.Circular(ref)
}

func (s *Session) nameTaken(name string) bool {
	if _, ok := s.CodeByName[name]; ok {
		return true
	}
	if _, ok := s.metaByName[name]; ok {
		return true
	}
	return s.Resolver != nil && s.Resolver.IsSchemaName(name)
}

func (s *Session) registerSchema(name, code string) {
	if _, ok := s.CodeByName[name]; !ok {
		s.schemaNames = append(s.schemaNames, name)
	}
	s.CodeByName[name] = code
}

func (s *Session) registerVar(name, code string, m *CodeMeta) {
	s.CodeByName[name] = code
	s.NameByCode[code] = name
	s.varNames = append(s.varNames, name)
	refs := m.RefNames()
	if refs == nil {
		refs = []string{}
	}
	s.varRefs[name] = refs
}
