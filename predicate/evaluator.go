package predicate

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// Evaluator evaluates an expression against env.
type Evaluator interface {
	Eval(expr string, env Env) (bool, error)
}

// JSEvaluator evaluates JavaScript expressions with goja. Compiled programs
// are cached by source.
type JSEvaluator struct {
	mu       sync.Mutex
	programs map[string]*goja.Program
}

// NewJSEvaluator creates an evaluator with an empty program cache.
func NewJSEvaluator() *JSEvaluator {
	return &JSEvaluator{programs: make(map[string]*goja.Program)}
}

func (e *JSEvaluator) program(expr string) (*goja.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.programs[expr]; ok {
		return p, nil
	}
	p, err := goja.Compile("predicate", "("+expr+")", true)
	if err != nil {
		return nil, fmt.Errorf("compile predicate %q: %w", expr, err)
	}
	e.programs[expr] = p
	return p, nil
}

func (e *JSEvaluator) Eval(expr string, env Env) (bool, error) {
	p, err := e.program(expr)
	if err != nil {
		return false, err
	}
	vm := goja.New()
	for name, value := range env {
		if err := vm.Set(name, value); err != nil {
			return false, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	v, err := vm.RunProgram(p)
	if err != nil {
		return false, fmt.Errorf("evaluate predicate %q: %w", expr, err)
	}
	return v.ToBoolean(), nil
}
