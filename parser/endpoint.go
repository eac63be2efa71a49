package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coze-dev/openapi-zod-gen/compiler"
	"github.com/coze-dev/openapi-zod-gen/predicate"
	"github.com/coze-dev/openapi-zod-gen/util"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/iancoleman/strcase"
	"golang.org/x/exp/slices"
)

// ParamType is where a parameter is sent.
type ParamType string

const (
	ParamBody   ParamType = "Body"
	ParamPath   ParamType = "Path"
	ParamQuery  ParamType = "Query"
	ParamHeader ParamType = "Header"
)

// RequestFormat is the encoding of a request body.
type RequestFormat string

const (
	FormatJSON     RequestFormat = "json"
	FormatBinary   RequestFormat = "binary"
	FormatFormURL  RequestFormat = "form-url"
	FormatFormData RequestFormat = "form-data"
	FormatText     RequestFormat = "text"
)

// DefaultStatus is the status token of the catch-all response.
const DefaultStatus = "default"

// Parameter is one input of an endpoint.
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Schema      string    `json:"schema"`
}

// EndpointError is a non-main response of an endpoint.
type EndpointError struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema"`
}

// Endpoint is the definition of one operation.
type Endpoint struct {
	Method              string          `json:"method"`
	Path                string          `json:"path"`
	Alias               string          `json:"alias,omitempty"`
	Description         string          `json:"description,omitempty"`
	RequestFormat       RequestFormat   `json:"requestFormat"`
	Parameters          []Parameter     `json:"parameters"`
	Response            string          `json:"response,omitempty"`
	ResponseDescription string          `json:"responseDescription,omitempty"`
	Errors              []EndpointError `json:"errors,omitempty"`

	// OperationName is the alias whether or not aliases are emitted.
	OperationName string   `json:"-"`
	Tags          []string `json:"-"`
	// Dependencies are the schema and variable names the endpoint uses directly.
	Dependencies []string `json:"-"`
}

// Diagnostics are advisories collected during a run.
type Diagnostics struct {
	IgnoredFallbackResponse []string `json:"ignoredFallbackResponse,omitempty"`
	IgnoredGenericError     []string `json:"ignoredGenericError,omitempty"`
}

// methodOrder is the order operations of one path are visited in.
var methodOrder = []string{
	http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete,
	http.MethodOptions, http.MethodHead, http.MethodPatch, http.MethodTrace,
}

// allowedContentTypes are the body and parameter media types that can be compiled.
var allowedContentTypes = []string{
	"application/*json",
	"application/octet-stream",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"*/*",
	"text/*",
}

var (
	pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)
	nonAlnumRe  = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// isAllowedContentType matches mediaType against allowedContentTypes,
// ignoring parameters such as charset.
func isAllowedContentType(mediaType string) bool {
	mt := strings.TrimSpace(strings.SplitN(mediaType, ";", 2)[0])
	for _, pattern := range allowedContentTypes {
		if pattern == "*/*" {
			if mt == pattern {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, mt); ok {
			return true
		}
	}
	return false
}

func requestFormat(mediaType string) RequestFormat {
	switch {
	case strings.HasPrefix(mediaType, "application/octet-stream"):
		return FormatBinary
	case strings.HasPrefix(mediaType, "application/x-www-form-urlencoded"):
		return FormatFormURL
	case strings.HasPrefix(mediaType, "multipart/form-data"):
		return FormatFormData
	case strings.HasPrefix(mediaType, "text/"):
		return FormatText
	}
	return FormatJSON
}

// PathToIdentifier turns an endpoint path into a PascalCase identifier.
func PathToIdentifier(p string) string {
	return strcase.ToCamel(nonAlnumRe.ReplaceAllString(p, "_"))
}

// ToColonPath rewrites `{id}` path templates into `:id`.
func ToColonPath(p string) string {
	return pathParamRe.ReplaceAllString(p, ":$1")
}

func sortedMediaTypes(content openapi3.Content) []string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedStatuses orders numeric statuses ascending, then other tokens, then default.
func sortedStatuses(responses *openapi3.Responses) []string {
	if responses == nil {
		return nil
	}
	keys := make([]string, 0, responses.Len())
	for k := range responses.Map() {
		keys = append(keys, k)
	}
	rank := func(k string) (int, int) {
		if k == DefaultStatus {
			return 2, 0
		}
		if n, err := strconv.Atoi(k); err == nil {
			return 0, n
		}
		return 1, 0
	}
	slices.SortFunc(keys, func(a, b string) int {
		ga, na := rank(a)
		gb, nb := rank(b)
		if ga != gb {
			return ga - gb
		}
		if na != nb {
			return na - nb
		}
		return strings.Compare(a, b)
	})
	return keys
}

type extractor struct {
	doc     *openapi3.T
	session *compiler.Session
	opts    Options
	log     *slog.Logger
	diag    Diagnostics
}

// ExtractEndpoints compiles every operation of doc into an Endpoint.
func ExtractEndpoints(doc *openapi3.T, session *compiler.Session, opts Options) ([]Endpoint, Diagnostics, error) {
	opts = opts.withDefaults()
	e := &extractor{doc: doc, session: session, opts: opts, log: opts.Logger}

	var endpoints []Endpoint
	if doc == nil || doc.Paths == nil {
		return endpoints, e.diag, nil
	}

	paths := make([]string, 0, doc.Paths.Len())
	for p := range doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := doc.Paths.Value(p)
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			if op.Deprecated && !opts.WithDeprecatedEndpoints {
				e.log.Debug("skipping deprecated operation", "method", method, "path", p)
				continue
			}
			ep, err := e.endpoint(p, strings.ToLower(method), item, op)
			if err != nil {
				return nil, e.diag, fmt.Errorf("failed to convert operation %s %s: %w", method, p, err)
			}
			endpoints = append(endpoints, *ep)
		}
	}

	if len(e.diag.IgnoredFallbackResponse) > 0 {
		e.log.Warn("ignoredFallbackResponse: default responses dropped because a main response exists",
			"operations", e.diag.IgnoredFallbackResponse)
	}
	if len(e.diag.IgnoredGenericError) > 0 {
		e.log.Warn("ignoredGenericError: default responses dropped, operations have no main response",
			"operations", e.diag.IgnoredGenericError)
	}
	return endpoints, e.diag, nil
}

func (e *extractor) operationName(p, method string, op *openapi3.Operation) string {
	if e.opts.AliasFunc != nil {
		if alias := e.opts.AliasFunc(p, method, op); alias != "" {
			return alias
		}
	}
	return util.Choose(op.OperationID != "", op.OperationID, method+PathToIdentifier(p))
}

func (e *extractor) endpoint(p, method string, item *openapi3.PathItem, op *openapi3.Operation) (*Endpoint, error) {
	name := e.operationName(p, method, op)
	ep := &Endpoint{
		Method:        method,
		Path:          ToColonPath(p),
		Description:   op.Description,
		RequestFormat: FormatJSON,
		Parameters:    []Parameter{},
		OperationName: name,
		Tags:          op.Tags,
	}
	if e.opts.WithAlias {
		ep.Alias = name
	}
	deps := make(map[string]bool)

	if err := e.requestBody(ep, op, name, deps); err != nil {
		return nil, err
	}
	if err := e.parameters(ep, item, op, deps); err != nil {
		return nil, err
	}
	if err := e.responses(ep, op, name, deps); err != nil {
		return nil, err
	}

	if ep.Description == "" && e.opts.UseMainResponseDescriptionAsEndpointDefinitionFallback {
		ep.Description = ep.ResponseDescription
	}
	for d := range deps {
		ep.Dependencies = append(ep.Dependencies, d)
	}
	sort.Strings(ep.Dependencies)
	return ep, nil
}

func (e *extractor) compile(schema *openapi3.SchemaRef, required bool, fallback string, deps map[string]bool) (string, error) {
	expr, err := compiler.Expression(e.session, schema, required, fallback)
	if err != nil {
		return "", err
	}
	for _, name := range expr.Meta.RefNames() {
		deps[name] = true
	}
	if expr.Var != "" {
		deps[expr.Var] = true
	}
	return expr.Code, nil
}

func (e *extractor) requestBody(ep *Endpoint, op *openapi3.Operation, name string, deps map[string]bool) error {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	body := op.RequestBody.Value
	for _, mediaType := range sortedMediaTypes(body.Content) {
		if !isAllowedContentType(mediaType) {
			continue
		}
		mt := body.Content[mediaType]
		if mt == nil || mt.Schema == nil {
			return nil
		}
		code, err := e.compile(mt.Schema, true, name+"_Body", deps)
		if err != nil {
			return fmt.Errorf("failed to convert request body: %w", err)
		}
		ep.RequestFormat = requestFormat(mediaType)
		ep.Parameters = append(ep.Parameters, Parameter{
			Name:        "body",
			Type:        ParamBody,
			Description: body.Description,
			Schema:      code,
		})
		return nil
	}
	return nil
}

// mergedParameters returns the path level parameters overridden by the
// operation's own, keyed by location and name.
func mergedParameters(item *openapi3.PathItem, op *openapi3.Operation) []*openapi3.Parameter {
	var out []*openapi3.Parameter
	index := make(map[string]int)
	add := func(params openapi3.Parameters) {
		for _, ref := range params {
			if ref == nil || ref.Value == nil {
				continue
			}
			key := ref.Value.In + ":" + ref.Value.Name
			if i, ok := index[key]; ok {
				out[i] = ref.Value
				continue
			}
			index[key] = len(out)
			out = append(out, ref.Value)
		}
	}
	add(item.Parameters)
	add(op.Parameters)
	return out
}

func (e *extractor) parameters(ep *Endpoint, item *openapi3.PathItem, op *openapi3.Operation, deps map[string]bool) error {
	for _, param := range mergedParameters(item, op) {
		var typ ParamType
		switch param.In {
		case openapi3.ParameterInPath:
			typ = ParamPath
		case openapi3.ParameterInQuery:
			typ = ParamQuery
		case openapi3.ParameterInHeader:
			typ = ParamHeader
		default:
			continue
		}

		schema, err := parameterSchema(param)
		if err != nil {
			return err
		}
		required := param.Required || param.In == openapi3.ParameterInPath
		code, err := e.compile(schema, required, param.Name, deps)
		if err != nil {
			return fmt.Errorf("failed to convert parameter %s: %w", param.Name, err)
		}
		ep.Parameters = append(ep.Parameters, Parameter{
			Name:        param.Name,
			Type:        typ,
			Description: param.Description,
			Schema:      code,
		})
	}
	return nil
}

// parameterSchema returns the schema of a parameter, looking into its content
// map when no schema is given directly.
func parameterSchema(param *openapi3.Parameter) (*openapi3.SchemaRef, error) {
	if param.Schema != nil || len(param.Content) == 0 {
		return param.Schema, nil
	}
	mediaTypes := sortedMediaTypes(param.Content)
	for _, mediaType := range mediaTypes {
		if !isAllowedContentType(mediaType) {
			continue
		}
		mt := param.Content[mediaType]
		if mt == nil {
			continue
		}
		if mt.Schema != nil {
			return mt.Schema, nil
		}
		return misplacedSchema(mt)
	}
	return nil, &UnsupportedMediaTypeError{Param: param.Name, MediaTypes: mediaTypes}
}

// misplacedSchema recovers a schema written directly on the media type
// object instead of under its `schema` key.
func misplacedSchema(mt *openapi3.MediaType) (*openapi3.SchemaRef, error) {
	if len(mt.Extensions) == 0 {
		return nil, nil
	}
	if ref, ok := mt.Extensions["$ref"].(string); ok && ref != "" {
		return openapi3.NewSchemaRef(ref, nil), nil
	}
	raw, err := json.Marshal(mt.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to read media type schema: %w", err)
	}
	var s openapi3.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to read media type schema: %w", err)
	}
	return openapi3.NewSchemaRef("", &s), nil
}

func (e *extractor) responseSchema(resp *openapi3.Response) (*openapi3.SchemaRef, error) {
	for _, mediaType := range sortedMediaTypes(resp.Content) {
		ok, err := e.opts.IsMediaTypeAllowed.Eval(e.opts.Evaluator, predicate.Env{predicate.VarMediaType: mediaType})
		if err != nil {
			return nil, fmt.Errorf("isMediaTypeAllowed: %w", err)
		}
		if ok && resp.Content[mediaType] != nil {
			return resp.Content[mediaType].Schema, nil
		}
	}
	return nil, nil
}

func (e *extractor) compileResponse(resp *openapi3.Response, fallback string, deps map[string]bool) (string, error) {
	schema, err := e.responseSchema(resp)
	if err != nil {
		return "", err
	}
	if schema == nil {
		return compiler.VoidSchema, nil
	}
	return e.compile(schema, true, fallback, deps)
}

func (e *extractor) responses(ep *Endpoint, op *openapi3.Operation, name string, deps map[string]bool) error {
	hasMain := false
	for _, status := range sortedStatuses(op.Responses) {
		ref := op.Responses.Value(status)
		if ref == nil || ref.Value == nil {
			continue
		}
		resp := ref.Value
		description := ""
		if resp.Description != nil {
			description = *resp.Description
		}

		if status == DefaultStatus {
			if e.opts.DefaultStatusBehavior != AutoCorrect {
				if hasMain {
					e.diag.IgnoredFallbackResponse = append(e.diag.IgnoredFallbackResponse, name)
				} else {
					e.diag.IgnoredGenericError = append(e.diag.IgnoredGenericError, name)
				}
				continue
			}
			if !hasMain {
				code, err := e.compileResponse(resp, name+"_Response", deps)
				if err != nil {
					return fmt.Errorf("failed to convert response %s: %w", status, err)
				}
				ep.Response, ep.ResponseDescription, hasMain = code, description, true
				continue
			}
			code, err := e.compileResponse(resp, name+"_Error", deps)
			if err != nil {
				return fmt.Errorf("failed to convert response %s: %w", status, err)
			}
			ep.Errors = append(ep.Errors, EndpointError{Status: status, Description: description, Schema: code})
			continue
		}

		code, err := strconv.Atoi(status)
		if err != nil {
			e.log.Debug("skipping non numeric response status", "operation", name, "status", status)
			continue
		}
		env := predicate.Env{predicate.VarStatus: code}

		if !hasMain {
			isMain, err := e.opts.IsMainResponseStatus.Eval(e.opts.Evaluator, env)
			if err != nil {
				return fmt.Errorf("isMainResponseStatus: %w", err)
			}
			if isMain {
				schema, err := e.compileResponse(resp, name+"_Response", deps)
				if err != nil {
					return fmt.Errorf("failed to convert response %s: %w", status, err)
				}
				ep.Response, ep.ResponseDescription, hasMain = schema, description, true
				continue
			}
		}

		isError, err := e.opts.IsErrorStatus.Eval(e.opts.Evaluator, env)
		if err != nil {
			return fmt.Errorf("isErrorStatus: %w", err)
		}
		if !isError {
			continue
		}
		schema, err := e.compileResponse(resp, name+"_Error", deps)
		if err != nil {
			return fmt.Errorf("failed to convert response %s: %w", status, err)
		}
		ep.Errors = append(ep.Errors, EndpointError{Status: status, Description: description, Schema: schema})
	}
	return nil
}
