package dataset

import (
	"fmt"
	"strings"
)

// ValidationError describes one problem with a data set.
type ValidationError struct {
	Field   string
	Message string
	Row     int // -1 if not applicable
}

func (e ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("datatable[%d].%s: %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors lets a list of problems be returned as an error.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "invalid dataset: " + strings.Join(msgs, "; ")
}

// Validate reports every problem found in ds. Every datatable row
// must carry the same columns as the first one.
func Validate(ds DataSet) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(ds.Name) == "" {
		errs = append(errs, ValidationError{
			Field: "name", Message: "name is required", Row: -1,
		})
	} else if ds.ID == "" && IDFromName(ds.Name) == "" {
		errs = append(errs, ValidationError{
			Field: "name", Message: "name has no letters or digits", Row: -1,
		})
	}

	for k := range ds.Constants {
		if k == "" {
			errs = append(errs, ValidationError{
				Field: "constants", Message: "empty key", Row: -1,
			})
		}
	}

	if len(ds.Datatable) == 0 {
		return errs
	}
	header := ds.Datatable[0]
	for i, row := range ds.Datatable {
		if len(row) != len(header) {
			errs = append(errs, ValidationError{
				Field:   "columns",
				Message: fmt.Sprintf("expected %d columns, got %d", len(header), len(row)),
				Row:     i,
			})
			continue
		}
		for col := range row {
			if _, ok := header[col]; !ok {
				errs = append(errs, ValidationError{
					Field: col, Message: "unknown column", Row: i,
				})
			}
		}
	}
	return errs
}
