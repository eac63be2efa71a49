// Package predicate holds boolean predicates that are either Go functions or
// expression strings evaluated by a pluggable Evaluator.
package predicate

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Default expressions.
const (
	MainResponseStatus = "status >= 200 && status < 300"
	ErrorStatus        = "!(status >= 200 && status < 300)"
	MediaTypeAllowed   = `mediaType === "application/json"`
)

// Variables bound while evaluating an expression.
const (
	VarStatus    = "status"
	VarMediaType = "mediaType"
)

// ErrEmpty is returned when a zero Predicate is evaluated.
var ErrEmpty = errors.New("empty predicate")

// Env binds variable names to values for one evaluation.
type Env map[string]any

// Predicate is either a Go function or an expression.
type Predicate struct {
	fn   func(Env) bool
	expr string
}

// Func wraps a Go function.
func Func(fn func(Env) bool) Predicate {
	return Predicate{fn: fn}
}

// Expr wraps an expression.
func Expr(src string) Predicate {
	return Predicate{expr: src}
}

func (p Predicate) IsZero() bool {
	return p.fn == nil && p.expr == ""
}

// Expression returns the expression text, empty for function predicates.
func (p Predicate) Expression() string {
	return p.expr
}

func (p Predicate) String() string {
	if p.fn != nil {
		return "<func>"
	}
	return p.expr
}

// Eval runs the predicate. Expressions are delegated to ev.
func (p Predicate) Eval(ev Evaluator, env Env) (bool, error) {
	switch {
	case p.fn != nil:
		return p.fn(env), nil
	case p.expr == "":
		return false, ErrEmpty
	case ev == nil:
		return false, fmt.Errorf("no evaluator for expression %q", p.expr)
	}
	return ev.Eval(p.expr, env)
}

// UnmarshalYAML reads a predicate from a plain string expression.
func (p *Predicate) UnmarshalYAML(value *yaml.Node) error {
	var src string
	if err := value.Decode(&src); err != nil {
		return fmt.Errorf("predicate must be an expression string: %w", err)
	}
	*p = Expr(src)
	return nil
}

// MarshalYAML writes expression predicates back as strings.
func (p Predicate) MarshalYAML() (any, error) {
	if p.fn != nil {
		return nil, errors.New("function predicates cannot be marshaled")
	}
	return p.expr, nil
}
