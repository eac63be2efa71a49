package compiler

import (
	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/exp/slices"
)

// CodeMeta wraps one compiled schema fragment.
type CodeMeta struct {
	Schema   *openapi3.SchemaRef
	Ref      string // raw $ref when Schema is a reference
	Name     string // normalized name of Ref
	Required bool
	PropName string

	// Parent is informational, used to propagate complexity.
	Parent       *CodeMeta
	Children     []*CodeMeta
	ReferencedBy []*CodeMeta

	code string
}

func newCodeMeta(schema *openapi3.SchemaRef, parent *CodeMeta) *CodeMeta {
	m := &CodeMeta{Schema: schema, Parent: parent}
	if schema != nil {
		m.Ref = schema.Ref
	}
	if parent != nil {
		parent.Children = append(parent.Children, m)
	}
	return m
}

// Assign sets the compiled expression.
func (m *CodeMeta) Assign(code string) *CodeMeta {
	m.code = code
	return m
}

// String returns the schema name for references and the compiled expression otherwise.
func (m *CodeMeta) String() string {
	if m.Ref != "" {
		return m.Name
	}
	return m.code
}

// Complexity scores the wrapped schema.
func (m *CodeMeta) Complexity() int {
	return Complexity(m.Schema)
}

// RefNames returns the sorted schema names referenced anywhere below m.
func (m *CodeMeta) RefNames() []string {
	seen := make(map[string]bool)
	var names []string
	var collect func(*CodeMeta)
	collect = func(n *CodeMeta) {
		if n.Ref != "" && n.Name != "" && !seen[n.Name] {
			seen[n.Name] = true
			names = append(names, n.Name)
		}
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(m)
	slices.Sort(names)
	return names
}
