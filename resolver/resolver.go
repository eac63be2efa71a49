// Package resolver resolves component schema references of an OpenAPI
// document and assigns every schema a stable, identifier-safe name.
package resolver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ComponentsPrefix is the only container refs are resolved against.
const ComponentsPrefix = "#/components/schemas/"

// ErrSchemaNotFound is returned when a ref does not point into components.schemas.
var ErrSchemaNotFound = errors.New("schema not found")

// RefInfo describes one resolved reference.
type RefInfo struct {
	Ref            string // raw pointer, e.g. "#/components/schemas/Pet"
	Name           string // declared name, e.g. "Pet"
	NormalizedName string // identifier-safe, collision-free name
}

// Resolver resolves refs for a single document. It memoizes every
// resolution and must not be shared across documents or runs.
type Resolver struct {
	doc         *openapi3.T
	infoByRef   map[string]*RefInfo
	refByName   map[string]string // normalized name -> ref
	orderedRefs []string
}

// New creates a Resolver and reserves a normalized name for every component
// schema, in name order, so that name assignment does not depend on the
// order in which refs are first encountered.
func New(doc *openapi3.T) *Resolver {
	r := &Resolver{
		doc:       doc,
		infoByRef: make(map[string]*RefInfo),
		refByName: make(map[string]string),
	}

	if doc != nil && doc.Components != nil {
		names := make([]string, 0, len(doc.Components.Schemas))
		for name := range doc.Components.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref := ComponentsPrefix + name
			r.Resolve(ref)
			r.orderedRefs = append(r.orderedRefs, ref)
		}
	}
	return r
}

// SchemaRefs returns the refs of every declared component schema, sorted by name.
func (r *Resolver) SchemaRefs() []string {
	out := make([]string, len(r.orderedRefs))
	copy(out, r.orderedRefs)
	return out
}

// Resolve returns the memoized RefInfo for ref.
func (r *Resolver) Resolve(ref string) RefInfo {
	if info, ok := r.infoByRef[ref]; ok {
		return *info
	}

	name := RefName(ref)
	base := NormalizeName(name)
	normalized := base
	for i := 2; ; i++ {
		owner, taken := r.refByName[normalized]
		if !taken || owner == ref {
			break
		}
		normalized = fmt.Sprintf("%s__%d", base, i)
	}

	info := &RefInfo{Ref: ref, Name: name, NormalizedName: normalized}
	r.infoByRef[ref] = info
	r.refByName[normalized] = ref
	return *info
}

// RefOf returns the ref a normalized name was assigned to.
func (r *Resolver) RefOf(normalizedName string) (string, bool) {
	ref, ok := r.refByName[normalizedName]
	return ref, ok
}

// IsSchemaName reports whether name is reserved by a resolved schema.
func (r *Resolver) IsSchemaName(name string) bool {
	_, ok := r.refByName[name]
	return ok
}

// Dereference returns the schema a ref points to. Aliases (a component
// schema that is itself a ref) are followed.
func (r *Resolver) Dereference(ref string) (*openapi3.SchemaRef, error) {
	seen := make(map[string]bool)
	for {
		if seen[ref] {
			return nil, fmt.Errorf("%w: %s (alias cycle)", ErrSchemaNotFound, ref)
		}
		seen[ref] = true

		name, ok := strings.CutPrefix(ref, ComponentsPrefix)
		if !ok || r.doc == nil || r.doc.Components == nil {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, ref)
		}
		schema, ok := r.doc.Components.Schemas[name]
		if !ok || schema == nil {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, ref)
		}
		if schema.Ref != "" && schema.Ref != ref {
			ref = schema.Ref
			continue
		}
		if schema.Value == nil {
			return nil, fmt.Errorf("%w: %s has no value", ErrSchemaNotFound, ref)
		}
		return &openapi3.SchemaRef{Value: schema.Value}, nil
	}
}

// RefName extracts the leaf name of a ref.
func RefName(ref string) string {
	if name, ok := strings.CutPrefix(ref, ComponentsPrefix); ok {
		return name
	}
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}
