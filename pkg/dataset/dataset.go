// Package dataset provides the named data sets scenarios run with
// and a file-backed repository for them.
package dataset

import (
	"strings"
	"time"
	"unicode"
)

// DataSet holds the constants and data table a scenario is
// executed against.
type DataSet struct {
	// ID is derived from the name when the data set is first
	// saved.
	ID string `json:"id"`

	// Name is the human-readable name; it must be unique.
	Name string `json:"name"`

	// Description explains what the data set is for.
	Description string `json:"description,omitempty"`

	// Constants are key/value pairs available to every
	// iteration.
	Constants map[string]string `json:"constants"`

	// Datatable holds one row per iteration.
	Datatable []map[string]string `json:"datatable"`

	Tags         []string  `json:"tags,omitempty"`
	CreationDate time.Time `json:"creationDate"`
}

// IDFromName derives a data set id from its name: lower-cased,
// with every run of characters other than letters and digits
// replaced by a single underscore.
func IDFromName(name string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
			underscore = false
			continue
		}
		if !underscore && sb.Len() > 0 {
			sb.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
