package assertion

import "fmt"

// AllPass evaluates every definition and passes only when all of
// them pass. The message names the first failure.
func AllPass(
	engine Engine,
	defs []Definition,
	values map[string]any,
) Result {
	results := engine.EvaluateAll(defs, values)

	for _, r := range results {
		if !r.Passed {
			return Result{
				Target:  r.Target,
				Passed:  false,
				Message: fmt.Sprintf(
					"assertion on '%s' failed: %s",
					r.Target, r.Message,
				),
			}
		}
	}

	return Result{
		Passed:  true,
		Message: fmt.Sprintf("all %d assertions passed", len(results)),
	}
}

// AnyPass passes when at least one definition passes.
func AnyPass(
	engine Engine,
	defs []Definition,
	values map[string]any,
) Result {
	results := engine.EvaluateAll(defs, values)

	for _, r := range results {
		if r.Passed {
			return Result{
				Target:  r.Target,
				Passed:  true,
				Message: fmt.Sprintf("assertion on '%s' passed", r.Target),
			}
		}
	}

	return Result{
		Passed:  false,
		Message: fmt.Sprintf("none of %d assertions passed", len(results)),
	}
}
