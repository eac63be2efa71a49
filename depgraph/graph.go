// Package depgraph records which component schemas reference which, both
// directly and transitively, and orders them for emission.
package depgraph

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/exp/slices"
)

// Set is a set of schema refs.
type Set map[string]struct{}

// Add inserts ref and reports whether it was new.
func (s Set) Add(ref string) bool {
	if _, ok := s[ref]; ok {
		return false
	}
	s[ref] = struct{}{}
	return true
}

// Has reports membership.
func (s Set) Has(ref string) bool {
	_, ok := s[ref]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for ref := range s {
		out = append(out, ref)
	}
	slices.Sort(out)
	return out
}

// DerefFunc returns the schema a ref points to.
type DerefFunc func(ref string) (*openapi3.SchemaRef, error)

// Graph holds the direct and deep (transitive) dependency maps, keyed by ref.
type Graph struct {
	Roots  []string
	Direct map[string]Set
	Deep   map[string]Set
}

// IsCircular reports whether ref reaches itself.
func (g *Graph) IsCircular(ref string) bool {
	return g.Deep[ref].Has(ref)
}

// Build walks every root and records the refs each named schema uses.
func Build(roots []string, deref DerefFunc) (*Graph, error) {
	b := &builder{
		deref:   deref,
		direct:  make(map[string]Set),
		visited: make(Set),
	}

	for _, root := range roots {
		if !b.visited.Add(root) {
			continue
		}
		schema, err := deref(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		if err := b.visit(schema, root); err != nil {
			return nil, err
		}
	}

	return &Graph{
		Roots:  slices.Clone(roots),
		Direct: b.direct,
		Deep:   deepen(b.direct),
	}, nil
}

type builder struct {
	deref   DerefFunc
	direct  map[string]Set
	visited Set
}

func (b *builder) visit(schema *openapi3.SchemaRef, fromRef string) error {
	if schema == nil {
		return nil
	}

	if schema.Ref != "" {
		if b.direct[fromRef] == nil {
			b.direct[fromRef] = make(Set)
		}
		b.direct[fromRef].Add(schema.Ref)

		if !b.visited.Add(schema.Ref) {
			return nil
		}
		target, err := b.deref(schema.Ref)
		if err != nil {
			return err
		}
		return b.visit(target, schema.Ref)
	}

	s := schema.Value
	if s == nil {
		return nil
	}

	for _, group := range []openapi3.SchemaRefs{s.AllOf, s.OneOf, s.AnyOf} {
		for _, sub := range group {
			if err := b.visit(sub, fromRef); err != nil {
				return err
			}
		}
	}
	if err := b.visit(s.Items, fromRef); err != nil {
		return err
	}
	for _, name := range sortedKeys(s.Properties) {
		if err := b.visit(s.Properties[name], fromRef); err != nil {
			return err
		}
	}
	return b.visit(s.AdditionalProperties.Schema, fromRef)
}

// deepen computes the transitive closure of direct. The visited-pair set
// guarantees termination on cycles.
func deepen(direct map[string]Set) map[string]Set {
	deep := make(map[string]Set)
	visitedPairs := make(Set)

	var set func(fromRef, ref string)
	set = func(fromRef, ref string) {
		if deep[fromRef] == nil {
			deep[fromRef] = make(Set)
		}
		deep[fromRef].Add(ref)

		if !visitedPairs.Add(fromRef + "__" + ref) {
			return
		}
		for _, transitive := range direct[ref].Sorted() {
			set(fromRef, transitive)
		}
	}

	for _, ref := range sortedKeys(direct) {
		for _, dep := range direct[ref].Sorted() {
			set(ref, dep)
		}
	}
	return deep
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
