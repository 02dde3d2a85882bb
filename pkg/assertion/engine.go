package assertion

import (
	"fmt"
	"sync"

	"digital.vasic.campaigns/pkg/logging"
)

// Engine defines the interface for assertion evaluation engines.
type Engine interface {
	// Assert reports whether actual satisfies expected.
	Assert(actual any, expected string) bool

	// Evaluate checks a single definition against the given
	// value.
	Evaluate(def Definition, value any) Result

	// EvaluateAll checks multiple definitions against a map of
	// named values. Each definition's Target is used as the key
	// into the values map.
	EvaluateAll(defs []Definition, values map[string]any) []Result

	// Register adds a custom asserter. Returns an error if an
	// asserter with the same name is already registered.
	Register(a Asserter) error
}

// EngineOption configures a DefaultEngine.
type EngineOption func(*DefaultEngine)

// WithLogger sets the logger asserters report to.
func WithLogger(logger logging.Logger) EngineOption {
	return func(e *DefaultEngine) {
		e.logger = logger
	}
}

// DefaultEngine is the standard Engine implementation. It is
// safe for concurrent use.
type DefaultEngine struct {
	mu        sync.RWMutex
	asserters []Asserter
	logger    logging.Logger
}

// NewEngine creates a DefaultEngine with the built-in
// placeholders registered.
func NewEngine(opts ...EngineOption) *DefaultEngine {
	e := &DefaultEngine{
		asserters: Placeholders(),
		logger:    logging.NullLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a custom asserter after the existing ones.
func (e *DefaultEngine) Register(a Asserter) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.asserters {
		if existing.Name() == a.Name() {
			return fmt.Errorf(
				"asserter already registered: %s", a.Name(),
			)
		}
	}
	e.asserters = append(e.asserters, a)
	return nil
}

// HasAsserter returns true if an asserter with the given name is
// registered.
func (e *DefaultEngine) HasAsserter(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, a := range e.asserters {
		if a.Name() == name {
			return true
		}
	}
	return false
}

func (e *DefaultEngine) find(expected string) Asserter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, a := range e.asserters {
		if a.CanApply(expected) {
			return a
		}
	}
	return nil
}

// Assert uses the first asserter that applies to expected and
// falls back to comparing the string form of actual.
func (e *DefaultEngine) Assert(actual any, expected string) bool {
	if a := e.find(expected); a != nil {
		return a.Assert(e.logger, actual, expected)
	}
	return stringify(actual) == expected
}

// Evaluate runs a single definition against the provided value.
func (e *DefaultEngine) Evaluate(def Definition, value any) Result {
	r := Result{
		Target:   def.Target,
		Expected: def.Expected,
		Actual:   value,
	}
	if a := e.find(def.Expected); a != nil {
		r.Asserter = a.Name()
		r.Passed = a.Assert(e.logger, value, def.Expected)
	} else {
		r.Passed = stringify(value) == def.Expected
	}

	switch {
	case r.Passed:
		r.Message = fmt.Sprintf("%s satisfies %s", def.Target, def.Expected)
	case def.Message != "":
		r.Message = def.Message
	default:
		r.Message = fmt.Sprintf(
			"%s: expected %s, got %s",
			def.Target, def.Expected, stringify(value),
		)
	}
	return r
}

// EvaluateAll runs multiple definitions against a map of named
// values. If a target is missing, its definition fails.
func (e *DefaultEngine) EvaluateAll(
	defs []Definition,
	values map[string]any,
) []Result {
	results := make([]Result, 0, len(defs))

	for _, d := range defs {
		value, exists := values[d.Target]
		if !exists {
			results = append(results, Result{
				Target:   d.Target,
				Expected: d.Expected,
				Passed:   false,
				Message: fmt.Sprintf(
					"target not found: %s", d.Target,
				),
			})
			continue
		}

		results = append(results, e.Evaluate(d, value))
	}

	return results
}
