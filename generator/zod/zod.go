package zod

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/coze-dev/openapi-zod-gen/consts"
	"github.com/coze-dev/openapi-zod-gen/parser"
	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

//go:embed templates/client.tmpl
var templateFS embed.FS

//go:embed config.yaml
var configFS embed.FS

// Config holds the rendering defaults.
type Config struct {
	FileExtension string   `yaml:"file_extension"`
	DefaultFile   string   `yaml:"default_file"`
	ClientSuffix  string   `yaml:"client_suffix"`
	Imports       []string `yaml:"imports"`
}

// Generator renders a template context into TypeScript files.
type Generator struct {
	config Config
	tmpl   *template.Template
}

type groupData struct {
	EndpointsVar string
	ClientName   string
	FactoryName  string
	Endpoints    []parser.Endpoint
}

type fileData struct {
	Imports       []string
	CommonImports []string
	CommonFile    string
	Types         []string
	Schemas       []parser.NamedSchema
	// ExportEach exports every schema on its own instead of a `schemas` object.
	ExportEach bool
	Groups     []groupData
	BaseURL    string
}

func (g *Generator) loadConfig() error {
	configData, err := configFS.ReadFile("config.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := yaml.Unmarshal(configData, &g.config); err != nil {
		return fmt.Errorf("failed to parse config.yaml: %w", err)
	}

	return nil
}

func (g *Generator) loadTemplate() error {
	content, err := templateFS.ReadFile("templates/client.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	g.tmpl, err = template.New("client").Funcs(template.FuncMap{
		"join":   strings.Join,
		"quote":  quote,
		"status": status,
	}).Parse(string(content))
	if err != nil {
		return fmt.Errorf("parse template failed: %w", err)
	}
	return nil
}

// Generate renders tc. Files are keyed by name including the extension.
func (g *Generator) Generate(ctx context.Context, tc *parser.TemplateContext) (map[string]string, error) {
	if err := g.loadConfig(); err != nil {
		return nil, err
	}
	if err := g.loadTemplate(); err != nil {
		return nil, err
	}

	files := make(map[string]string)
	render := func(name string, data fileData) error {
		var buf bytes.Buffer
		if err := g.tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("execute template failed for %s: %w", name, err)
		}
		files[name+g.config.FileExtension] = buf.String()
		return nil
	}

	strategy := tc.Options.GroupStrategy
	switch {
	case strategy.IsFile():
		if len(tc.CommonSchemaNames) > 0 {
			common := fileData{
				Imports:    []string{g.zodImport()},
				ExportEach: true,
				Types:      g.types(tc, tc.CommonSchemaNames),
				Schemas:    g.schemas(tc, tc.CommonSchemaNames),
			}
			if err := render(consts.CommonFile, common); err != nil {
				return nil, err
			}
		}
		for _, name := range tc.GroupNames {
			group := tc.EndpointsGroups[name]
			data := fileData{
				Imports:       g.config.Imports,
				CommonImports: group.Imports,
				CommonFile:    consts.CommonFile,
				Types:         g.types(tc, group.Types),
				Schemas:       group.Schemas,
				Groups:        []groupData{g.group(name, group.Endpoints, tc.Options.APIClientName, false)},
				BaseURL:       tc.Options.BaseURL,
			}
			if err := render(name, data); err != nil {
				return nil, err
			}
		}
	default:
		data := fileData{
			Imports: g.config.Imports,
			Types:   g.types(tc, tc.TypeNames),
			Schemas: tc.Schemas,
			BaseURL: tc.Options.BaseURL,
		}
		if len(tc.GroupNames) == 0 {
			data.Groups = []groupData{g.group("", tc.Endpoints, tc.Options.APIClientName, true)}
		}
		for _, name := range tc.GroupNames {
			data.Groups = append(data.Groups, g.group(name, tc.EndpointsGroups[name].Endpoints, tc.Options.APIClientName, false))
		}
		if err := render(g.config.DefaultFile, data); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (g *Generator) zodImport() string {
	for _, imp := range g.config.Imports {
		if strings.Contains(imp, `"zod"`) {
			return imp
		}
	}
	return `import { z } from "zod";`
}

func (g *Generator) group(name string, endpoints []parser.Endpoint, clientName string, single bool) groupData {
	if single {
		return groupData{
			EndpointsVar: "endpoints",
			ClientName:   clientName,
			FactoryName:  "createApiClient",
			Endpoints:    endpoints,
		}
	}
	base := strcase.ToLowerCamel(name)
	return groupData{
		EndpointsVar: base + "Endpoints",
		ClientName:   base + g.config.ClientSuffix,
		FactoryName:  "create" + strcase.ToCamel(name) + "Client",
		Endpoints:    endpoints,
	}
}

func (g *Generator) types(tc *parser.TemplateContext, names []string) []string {
	var out []string
	for _, name := range names {
		if decl, ok := tc.Types[name]; ok {
			out = append(out, decl)
		}
	}
	return out
}

func (g *Generator) schemas(tc *parser.TemplateContext, names []string) []parser.NamedSchema {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []parser.NamedSchema
	for _, s := range tc.Schemas {
		if wanted[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

func quote(v any) string {
	b, err := json.Marshal(fmt.Sprint(v))
	if err != nil {
		return `""`
	}
	return string(b)
}

// status renders numeric statuses as numbers and other tokens as strings.
func status(s string) string {
	if _, err := strconv.Atoi(s); err == nil {
		return s
	}
	return quote(s)
}
