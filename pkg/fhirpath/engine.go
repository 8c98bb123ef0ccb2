package fhirpath

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirpath/pkg/fhirpath/ast"
)

// Engine compiles and evaluates FHIRPath expressions. ASTs are memoized in
// the engine's cache; evaluator trees are built per call from the cached
// AST. An Engine is safe for concurrent use.
type Engine struct {
	cache *ast.Cache
	log   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache makes the engine use cache instead of a private one.
func WithCache(cache *ast.Cache) Option {
	return func(e *Engine) {
		if cache != nil {
			e.cache = cache
		}
	}
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

// DefaultEngine backs Element.Query and Element.Test.
var DefaultEngine = NewEngine()

// NewEngine returns an engine with a DefaultCacheSize cache and a no-op
// logger unless the options say otherwise.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		cache, err := ast.NewCache(ast.DefaultCacheSize)
		if err != nil {
			// Only a non-positive size fails.
			panic(err)
		}
		e.cache = cache
	}
	return e
}

// Cache returns the engine's expression cache.
func (e *Engine) Cache() *ast.Cache { return e.cache }

// CompileExpression returns the cached AST for text.
func (e *Engine) CompileExpression(text string) (*ast.Node, error) {
	return e.cache.CompileExpression(text)
}

// Compile turns text into an evaluator tree.
func (e *Engine) Compile(text string) (Evaluator, error) {
	cached := e.cache.Contains(text)
	node, err := e.cache.CompileExpression(text)
	if err != nil {
		e.log.Debug().Err(err).Str("expression", text).Msg("fhirpath parse failed")
		return nil, fmt.Errorf("compile %q: %w", text, err)
	}
	ev, err := Compile(node, nil)
	if err != nil {
		e.log.Debug().Err(err).Str("expression", text).Msg("fhirpath compile failed")
		return nil, fmt.Errorf("compile %q: %w", text, err)
	}
	e.log.Debug().Str("expression", text).Bool("cached", cached).Msg("fhirpath compiled")
	return ev, nil
}

// Evaluate compiles text and runs it against root. root may be an *Element
// or any value NewElement accepts.
func (e *Engine) Evaluate(root interface{}, text string) (*Result, error) {
	ev, err := e.Compile(text)
	if err != nil {
		return nil, err
	}
	el, ok := root.(*Element)
	if !ok {
		el = NewElement(root)
	}
	return ev.Evaluate([]*Element{el})
}

// Query evaluates text against el and returns the result items. Items that
// navigate into el are returned as *Element values. An empty el yields an
// empty slice without compiling.
func (e *Engine) Query(el *Element, text string) ([]interface{}, error) {
	if el == nil || el.IsEmpty() {
		return []interface{}{}, nil
	}
	r, err := e.Evaluate(el, text)
	if err != nil {
		return nil, err
	}
	return r.Value(false), nil
}

// Test evaluates text against el and returns the boolean reading of the
// result.
func (e *Engine) Test(el *Element, text string) (bool, error) {
	if el == nil {
		el = NewElement(nil)
	}
	r, err := e.Evaluate(el, text)
	if err != nil {
		return false, err
	}
	return r.Verdict(), nil
}
