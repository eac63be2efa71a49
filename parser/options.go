package parser

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/coze-dev/openapi-zod-gen/compiler"
	"github.com/coze-dev/openapi-zod-gen/predicate"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// GroupStrategy decides how endpoints are split into groups and files.
type GroupStrategy string

const (
	GroupNone       GroupStrategy = "none"
	GroupTag        GroupStrategy = "tag"
	GroupMethod     GroupStrategy = "method"
	GroupTagFile    GroupStrategy = "tag-file"
	GroupMethodFile GroupStrategy = "method-file"
)

// IsFile reports whether every group is rendered into its own file.
func (g GroupStrategy) IsFile() bool {
	return g == GroupTagFile || g == GroupMethodFile
}

func (g GroupStrategy) valid() bool {
	switch g {
	case GroupNone, GroupTag, GroupMethod, GroupTagFile, GroupMethodFile:
		return true
	}
	return false
}

// DefaultStatusBehavior decides what happens to a `default` response.
type DefaultStatusBehavior string

const (
	SpecCompliant DefaultStatusBehavior = "spec-compliant"
	AutoCorrect   DefaultStatusBehavior = "auto-correct"
)

// AliasFunc computes an endpoint alias.
type AliasFunc func(path, method string, op *openapi3.Operation) string

// Options configure a conversion run.
type Options struct {
	BaseURL       string    `yaml:"baseUrl"`
	WithAlias     bool      `yaml:"withAlias"`
	AliasFunc     AliasFunc `yaml:"-"`
	APIClientName string    `yaml:"apiClientName"`

	IsMainResponseStatus predicate.Predicate `yaml:"isMainResponseStatus"`
	IsErrorStatus        predicate.Predicate `yaml:"isErrorStatus"`
	IsMediaTypeAllowed   predicate.Predicate `yaml:"isMediaTypeAllowed"`

	UseMainResponseDescriptionAsEndpointDefinitionFallback bool `yaml:"useMainResponseDescriptionAsEndpointDefinitionFallback"`

	ShouldExportAllSchemas    bool                  `yaml:"shouldExportAllSchemas"`
	ShouldExportAllTypes      bool                  `yaml:"shouldExportAllTypes"`
	WithImplicitRequiredProps bool                  `yaml:"withImplicitRequiredProps"`
	WithDeprecatedEndpoints   bool                  `yaml:"withDeprecatedEndpoints"`
	GroupStrategy             GroupStrategy         `yaml:"groupStrategy"`
	ComplexityThreshold       int                   `yaml:"complexityThreshold"`
	DefaultStatusBehavior     DefaultStatusBehavior `yaml:"defaultStatusBehavior"`
	AllReadonly               bool                  `yaml:"allReadonly"`
	// WithDefaultValues is on in DefaultOptions and off in a zero Options.
	WithDefaultValues         bool                  `yaml:"withDefaultValues"`

	// Evaluator runs expression predicates. Nil means goja.
	Evaluator predicate.Evaluator `yaml:"-"`
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultOptions returns the options of a run without configuration.
func DefaultOptions() Options {
	return Options{
		APIClientName:         "api",
		IsMainResponseStatus:  predicate.Expr(predicate.MainResponseStatus),
		IsErrorStatus:         predicate.Expr(predicate.ErrorStatus),
		IsMediaTypeAllowed:    predicate.Expr(predicate.MediaTypeAllowed),
		GroupStrategy:         GroupNone,
		ComplexityThreshold:   compiler.DefaultComplexityThreshold,
		DefaultStatusBehavior: SpecCompliant,
		WithDefaultValues:     true,
	}
}

// LoadOptions reads YAML options from path on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read options file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse options file %s: %w", path, err)
	}
	return opts, nil
}

// withDefaults fills zero values so that a partially built Options behaves
// like DefaultOptions. A zero ComplexityThreshold means the default one; use
// -1 to inline everything. Booleans are taken as given, so a zero Options
// runs without default values.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.APIClientName == "" {
		o.APIClientName = def.APIClientName
	}
	if o.IsMainResponseStatus.IsZero() {
		o.IsMainResponseStatus = def.IsMainResponseStatus
	}
	if o.IsErrorStatus.IsZero() {
		o.IsErrorStatus = def.IsErrorStatus
	}
	if o.IsMediaTypeAllowed.IsZero() {
		o.IsMediaTypeAllowed = def.IsMediaTypeAllowed
	}
	if o.ComplexityThreshold == 0 {
		o.ComplexityThreshold = def.ComplexityThreshold
	}
	if o.GroupStrategy == "" {
		o.GroupStrategy = def.GroupStrategy
	}
	if o.DefaultStatusBehavior == "" {
		o.DefaultStatusBehavior = def.DefaultStatusBehavior
	}
	if o.Evaluator == nil {
		o.Evaluator = predicate.NewJSEvaluator()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o Options) compilerOptions() compiler.Options {
	return compiler.Options{
		ComplexityThreshold:       o.ComplexityThreshold,
		WithImplicitRequiredProps: o.WithImplicitRequiredProps,
		WithDefaultValues:         o.WithDefaultValues,
		AllReadonly:               o.AllReadonly,
	}
}
