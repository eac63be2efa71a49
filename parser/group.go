package parser

import (
	"github.com/coze-dev/openapi-zod-gen/resolver"
	"golang.org/x/exp/slices"
)

// DefaultGroup holds endpoints without a tag.
const DefaultGroup = "Default"

// Group is a set of endpoints rendered together, with the schemas and types
// they need.
type Group struct {
	Name      string        `json:"name"`
	Endpoints []Endpoint    `json:"endpoints"`
	Schemas   []NamedSchema `json:"schemas"`
	Types     []string      `json:"types"`
	// Imports are names provided by the common file.
	Imports []string `json:"imports,omitempty"`
}

func (a *assembler) groupName(ep Endpoint) string {
	switch a.opts.GroupStrategy {
	case GroupTag, GroupTagFile:
		if len(ep.Tags) == 0 || ep.Tags[0] == "" {
			return DefaultGroup
		}
		return resolver.NormalizeName(ep.Tags[0])
	case GroupMethod, GroupMethodFile:
		return ep.Method
	}
	return ""
}

// dependencies returns every emitted name ep needs, including transitive
// schema dependencies and the schemas hoisted variables use.
func (a *assembler) dependencies(ep Endpoint) []string {
	seen := make(map[string]bool)
	var add func(name string)
	add = func(name string) {
		if seen[name] {
			return
		}
		if _, ok := a.order[name]; !ok {
			return
		}
		seen[name] = true
		if a.session.IsVar(name) {
			for _, ref := range a.session.VarRefs(name) {
				add(ref)
			}
			return
		}
		if ref := a.refOf(name); ref != "" {
			for _, dep := range a.graph.Deep[ref].Sorted() {
				add(a.res.Resolve(dep).NormalizedName)
			}
		}
	}
	for _, name := range ep.Dependencies {
		add(name)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.SortFunc(names, func(x, y string) int { return a.order[x] - a.order[y] })
	return names
}

func (a *assembler) groups() {
	if a.opts.GroupStrategy == GroupNone {
		return
	}

	usage := make(map[string]map[string]bool)
	for _, ep := range a.ctx.Endpoints {
		name := a.groupName(ep)
		g, ok := a.ctx.EndpointsGroups[name]
		if !ok {
			g = &Group{Name: name}
			a.ctx.EndpointsGroups[name] = g
			a.ctx.GroupNames = append(a.ctx.GroupNames, name)
		}
		g.Endpoints = append(g.Endpoints, ep)
		for _, dep := range a.dependencies(ep) {
			if usage[dep] == nil {
				usage[dep] = make(map[string]bool)
			}
			usage[dep][name] = true
		}
	}
	slices.Sort(a.ctx.GroupNames)

	common := make(map[string]bool)
	if a.opts.GroupStrategy.IsFile() {
		for name, groups := range usage {
			if len(groups) > 1 {
				common[name] = true
			}
		}
		for _, s := range a.ctx.Schemas {
			if common[s.Name] {
				a.ctx.CommonSchemaNames = append(a.ctx.CommonSchemaNames, s.Name)
			}
		}
	}

	for _, s := range a.ctx.Schemas {
		for _, groupName := range a.ctx.GroupNames {
			if !usage[s.Name][groupName] {
				continue
			}
			g := a.ctx.EndpointsGroups[groupName]
			if common[s.Name] {
				g.Imports = append(g.Imports, s.Name)
			} else {
				g.Schemas = append(g.Schemas, s)
			}
			if a.ctx.EmittedType[s.Name] && !common[s.Name] {
				g.Types = append(g.Types, s.Name)
			}
		}
	}

	a.log.Debug("endpoints grouped",
		"strategy", a.opts.GroupStrategy,
		"groups", a.ctx.GroupNames,
		"common", a.ctx.CommonSchemaNames)
}
