// Package assertion compares values produced by scenario steps
// against expectations. An expectation is either a literal, which
// must equal the value's string form, or a placeholder such as
// "$isGreaterThan:10" handled by a registered Asserter.
package assertion

// Definition describes one expectation on a named value.
type Definition struct {
	// Target is the name of the value to check.
	Target string `json:"target"`

	// Expected is a literal or a placeholder expression.
	Expected string `json:"expected"`

	// Message is shown on failure.
	Message string `json:"message,omitempty"`
}

// Result captures the outcome of evaluating a single Definition.
type Result struct {
	Target   string `json:"target"`
	Expected string `json:"expected"`
	Actual   any    `json:"actual"`

	// Asserter names the placeholder that decided the outcome,
	// or is empty when plain equality was used.
	Asserter string `json:"asserter,omitempty"`

	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}
