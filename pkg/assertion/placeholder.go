package assertion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"digital.vasic.campaigns/pkg/logging"
)

// Asserter checks a value against one kind of placeholder
// expectation.
type Asserter interface {
	// Name is the placeholder, e.g. "$isLessThan".
	Name() string

	// CanApply reports whether expected is meant for this
	// asserter.
	CanApply(expected string) bool

	// Assert reports whether actual satisfies expected. Input
	// that cannot be interpreted is logged and yields false.
	Assert(logger logging.Logger, actual any, expected string) bool
}

// AssertFunc checks actual against the placeholder argument.
type AssertFunc func(
	logger logging.Logger,
	actual any,
	argument string,
) bool

type placeholder struct {
	name        string
	hasArgument bool
	fn          AssertFunc
}

// NewPlaceholder creates an Asserter for "$name" or, when
// hasArgument is set, "$name:argument" expectations.
func NewPlaceholder(
	name string,
	hasArgument bool,
	fn AssertFunc,
) Asserter {
	return &placeholder{name: name, hasArgument: hasArgument, fn: fn}
}

func (p *placeholder) Name() string { return p.name }

func (p *placeholder) CanApply(expected string) bool {
	if p.hasArgument {
		return strings.HasPrefix(expected, p.name+":")
	}
	return strings.TrimSpace(expected) == p.name
}

func (p *placeholder) Assert(
	logger logging.Logger,
	actual any,
	expected string,
) bool {
	_, argument, _ := ParsePlaceholder(expected)
	return p.fn(logger, actual, argument)
}

// Placeholders returns the built-in asserters in lookup order.
func Placeholders() []Asserter {
	return []Asserter{
		NewPlaceholder("$isNull", false, assertIsNull),
		NewPlaceholder("$isNotNull", false, assertIsNotNull),
		NewPlaceholder("$contains", true, assertContains),
		NewPlaceholder("$isLessThan", true, compareNumbers("<",
			func(a, b float64) bool { return a < b })),
		NewPlaceholder("$isGreaterThan", true, compareNumbers(">",
			func(a, b float64) bool { return a > b })),
		NewPlaceholder("$isEqualTo", true, compareNumbers("==",
			func(a, b float64) bool { return a == b })),
		NewPlaceholder("$matches", true, assertMatches),
		NewPlaceholder("$isBeforeDate", true, compareDates("before",
			func(a, b time.Time) bool { return a.Before(b) })),
		NewPlaceholder("$isAfterDate", true, compareDates("after",
			func(a, b time.Time) bool { return a.After(b) })),
		NewPlaceholder("$isEqualDate", true, compareDates("equal to",
			func(a, b time.Time) bool { return a.Equal(b) })),
	}
}

func assertIsNull(logger logging.Logger, actual any, _ string) bool {
	logger.Info(fmt.Sprintf("Verify %s is null", stringify(actual)))
	return isNull(actual)
}

func assertIsNotNull(logger logging.Logger, actual any, _ string) bool {
	logger.Info(fmt.Sprintf("Verify %s is not null", stringify(actual)))
	return !isNull(actual)
}

func isNull(actual any) bool {
	if actual == nil {
		return true
	}
	s, ok := actual.(string)
	return ok && s == "null"
}

func assertContains(
	logger logging.Logger,
	actual any,
	argument string,
) bool {
	s := stringify(actual)
	logger.Info(fmt.Sprintf("Verify %s contains %s", s, argument))
	return strings.Contains(s, argument)
}

func assertMatches(
	logger logging.Logger,
	actual any,
	argument string,
) bool {
	re, err := regexp.Compile(argument)
	if err != nil {
		logger.Error("invalid pattern",
			logging.StringField("pattern", argument),
			logging.ErrorField(err),
		)
		return false
	}
	s := stringify(actual)
	logger.Info(fmt.Sprintf("Verify %s matches %s", s, argument))
	return re.MatchString(s)
}

func compareNumbers(
	op string,
	cmp func(a, b float64) bool,
) AssertFunc {
	return func(logger logging.Logger, actual any, argument string) bool {
		a, err := parseNumber(actual)
		if err != nil {
			logger.Error(err.Error())
			return false
		}
		b, err := parseNumber(argument)
		if err != nil {
			logger.Error(err.Error())
			return false
		}
		logger.Info(fmt.Sprintf("Verify %v %s %v", a, op, b))
		return cmp(a, b)
	}
}

// parseNumber accepts numeric types and strings with spaces or
// commas as digit grouping, e.g. "1 000" or "1,000.5".
func parseNumber(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	}
	s := strings.NewReplacer(" ", "", ",", "").Replace(stringify(v))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable number: %q", stringify(v))
	}
	return f, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func compareDates(
	op string,
	cmp func(a, b time.Time) bool,
) AssertFunc {
	return func(logger logging.Logger, actual any, argument string) bool {
		a, err := parseDate(actual)
		if err != nil {
			logger.Error(err.Error())
			return false
		}
		b, err := parseDate(argument)
		if err != nil {
			logger.Error(err.Error())
			return false
		}
		logger.Info(fmt.Sprintf("Verify %s is %s %s",
			a.Format(time.RFC3339), op, b.Format(time.RFC3339)))
		return cmp(a, b)
	}
}

// parseDate accepts a time.Time or an ISO-8601 string. Strings
// without a zone are read as UTC.
func parseDate(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(stringify(v))
	if s == "now" {
		return time.Now(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %q", s)
}

// stringify renders actual the way it is compared against
// literal expectations.
func stringify(actual any) string {
	switch v := actual.(type) {
	case nil:
		return "null"
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(actual)
}
