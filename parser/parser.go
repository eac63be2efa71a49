// Package parser turns an OpenAPI document into the template context a
// renderer needs: ordered Zod schemas, TypeScript types for recursive
// schemas, and grouped endpoint definitions.
package parser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/coze-dev/openapi-zod-gen/compiler"
	"github.com/coze-dev/openapi-zod-gen/depgraph"
	"github.com/coze-dev/openapi-zod-gen/resolver"
	"github.com/getkin/kin-openapi/openapi3"
)

// NamedSchema is one emitted declaration.
type NamedSchema struct {
	Name string `json:"name"`
	Code string `json:"code"`
	// Circular schemas are wrapped in z.lazy and carry a static type.
	Circular bool `json:"circular,omitempty"`
}

// TemplateOptions are the options echoed to the renderer.
type TemplateOptions struct {
	BaseURL       string        `json:"baseUrl"`
	APIClientName string        `json:"apiClientName"`
	WithAlias     bool          `json:"withAlias"`
	GroupStrategy GroupStrategy `json:"groupStrategy"`
}

// TemplateContext is everything a renderer needs.
type TemplateContext struct {
	// Schemas are ordered so that every declaration follows its dependencies.
	Schemas      []NamedSchema     `json:"schemas"`
	SchemaByName map[string]string `json:"-"`
	// Types maps a schema name to its `type X = ...;` declaration.
	Types              map[string]string `json:"types"`
	TypeNames          []string          `json:"-"`
	CircularTypeByName map[string]bool   `json:"circularTypeByName"`
	EmittedType        map[string]bool   `json:"emittedType"`

	Endpoints         []Endpoint        `json:"endpoints"`
	EndpointsGroups   map[string]*Group `json:"endpointsGroups"`
	GroupNames        []string          `json:"-"`
	CommonSchemaNames []string          `json:"commonSchemaNames,omitempty"`

	Options     TemplateOptions `json:"options"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}

// Parser assembles template contexts with a fixed set of options.
type Parser struct {
	opts Options
}

// NewParser creates a Parser.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// ParseOpenAPI loads an OpenAPI document from YAML or JSON and assembles it.
func (p *Parser) ParseOpenAPI(content []byte) (*TemplateContext, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	return Assemble(doc, p.opts)
}

// Assemble compiles a whole document.
func Assemble(doc *openapi3.T, opts Options) (*TemplateContext, error) {
	opts = opts.withDefaults()
	if !opts.GroupStrategy.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroupStrategy, opts.GroupStrategy)
	}
	log := opts.Logger

	res := resolver.New(doc)
	session := compiler.NewSession(res, opts.compilerOptions())

	g, err := depgraph.Build(res.SchemaRefs(), func(ref string) (*openapi3.SchemaRef, error) {
		schema, err := res.Dereference(ref)
		if errors.Is(err, resolver.ErrSchemaNotFound) {
			return nil, &compiler.SchemaNotFoundError{Ref: ref}
		}
		return schema, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	session.Circular = g.IsCircular

	endpoints, diag, err := ExtractEndpoints(doc, session, opts)
	if err != nil {
		return nil, err
	}

	if opts.ShouldExportAllSchemas {
		for _, ref := range res.SchemaRefs() {
			if _, err := compiler.CompileZod(session, openapi3.NewSchemaRef(ref, nil), compiler.Meta{Required: true}); err != nil {
				return nil, fmt.Errorf("failed to convert schema %s: %w", ref, err)
			}
		}
	}

	ctx := &TemplateContext{
		SchemaByName:       make(map[string]string),
		Types:              make(map[string]string),
		CircularTypeByName: make(map[string]bool),
		EmittedType:        make(map[string]bool),
		Endpoints:          endpoints,
		EndpointsGroups:    make(map[string]*Group),
		Options: TemplateOptions{
			BaseURL:       opts.BaseURL,
			APIClientName: opts.APIClientName,
			WithAlias:     opts.WithAlias,
			GroupStrategy: opts.GroupStrategy,
		},
		Diagnostics: diag,
	}

	a := &assembler{ctx: ctx, session: session, res: res, graph: g, opts: opts, log: log}
	if err := a.schemas(); err != nil {
		return nil, err
	}
	if err := a.types(); err != nil {
		return nil, err
	}
	a.groups()

	log.Debug("template context assembled",
		"schemas", len(ctx.Schemas),
		"types", len(ctx.Types),
		"endpoints", len(ctx.Endpoints),
		"groups", len(ctx.EndpointsGroups))
	return ctx, nil
}

type assembler struct {
	ctx     *TemplateContext
	session *compiler.Session
	res     *resolver.Resolver
	graph   *depgraph.Graph
	opts    Options
	log     *slog.Logger

	// order maps every emitted name to its position in ctx.Schemas.
	order map[string]int
}

func (a *assembler) refOf(name string) string {
	ref, _ := a.res.RefOf(name)
	return ref
}

// schemas orders compiled schemas topologically, then hoisted variables in
// allocation order, and wraps circular schemas in z.lazy.
func (a *assembler) schemas() error {
	sorted, err := depgraph.Sort(a.graph)
	if err != nil {
		return fmt.Errorf("failed to sort schemas: %w", err)
	}

	a.order = make(map[string]int)
	emit := func(name string, circular bool) {
		code := a.session.CodeByName[name]
		if circular {
			code = "z.lazy(() => " + code + ")"
			a.ctx.CircularTypeByName[name] = true
		}
		a.order[name] = len(a.ctx.Schemas)
		a.ctx.Schemas = append(a.ctx.Schemas, NamedSchema{Name: name, Code: code, Circular: circular})
		a.ctx.SchemaByName[name] = code
	}

	compiled := make(map[string]bool)
	for _, name := range a.session.SchemaNames() {
		compiled[name] = true
	}
	for _, ref := range sorted {
		name := a.res.Resolve(ref).NormalizedName
		if !compiled[name] {
			continue
		}
		emit(name, a.graph.IsCircular(ref))
		delete(compiled, name)
	}
	// Schemas outside components.schemas never reach the graph.
	for _, name := range a.session.SchemaNames() {
		if compiled[name] {
			emit(name, false)
		}
	}
	for _, name := range a.session.VarNames() {
		emit(name, false)
	}
	return nil
}

// types emits a standalone TypeScript type for every circular schema and
// each of its non-circular deep dependencies.
func (a *assembler) types() error {
	var names []string
	for _, s := range a.ctx.Schemas {
		if a.session.IsVar(s.Name) {
			continue
		}
		if s.Circular || a.opts.ShouldExportAllTypes {
			names = append(names, s.Name)
		}
	}

	for _, name := range names {
		ref := a.refOf(name)
		if err := a.emitType(name, ref); err != nil {
			return err
		}
		if !a.ctx.CircularTypeByName[name] {
			continue
		}
		for _, dep := range a.graph.Deep[ref].Sorted() {
			if a.graph.IsCircular(dep) {
				continue
			}
			if err := a.emitType(a.res.Resolve(dep).NormalizedName, dep); err != nil {
				return err
			}
		}
	}

	for _, s := range a.ctx.Schemas {
		if a.ctx.EmittedType[s.Name] {
			a.ctx.TypeNames = append(a.ctx.TypeNames, s.Name)
		}
	}
	return nil
}

func (a *assembler) emitType(name, ref string) error {
	if a.ctx.EmittedType[name] || ref == "" {
		return nil
	}
	schema, err := a.res.Dereference(ref)
	if err != nil {
		return &compiler.SchemaNotFoundError{Ref: ref}
	}
	decl, err := compiler.CompileType(a.session, schema, name)
	if err != nil {
		return fmt.Errorf("failed to convert type %s: %w", name, err)
	}
	a.ctx.Types[name] = decl
	a.ctx.EmittedType[name] = true
	return nil
}
