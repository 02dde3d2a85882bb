package assertion

import "strings"

// ParsePlaceholder splits an expectation of the form
// "$name:argument" into its parts. ok is false for literals.
//
// Examples:
//
//	"$isLessThan:10" -> ("$isLessThan", "10", true)
//	"$isNull"        -> ("$isNull", "", true)
//	"plain text"     -> ("", "", false)
func ParsePlaceholder(
	expected string,
) (name, argument string, ok bool) {
	if !strings.HasPrefix(expected, "$") {
		return "", "", false
	}
	name, argument, _ = strings.Cut(expected, ":")
	return name, argument, true
}
