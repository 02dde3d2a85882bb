package bank

import (
	"fmt"
	"os"
)

// ValidationError represents a validation issue found in a bank file.
type ValidationError struct {
	Field   string
	Message string
	Index   int // -1 if not applicable
}

func (e ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("campaigns[%d].%s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateFile validates a bank file structure and returns all errors found.
func ValidateFile(path string) []ValidationError {
	data, err := os.ReadFile(path)
	if err != nil {
		return []ValidationError{{Field: "file", Message: err.Error(), Index: -1}}
	}

	file, err := decodeFile(path, data)
	if err != nil {
		return []ValidationError{{Field: "syntax", Message: err.Error(), Index: -1}}
	}
	return Validate(file)
}

// Validate checks a decoded bank file.
func Validate(file BankFile) []ValidationError {
	var errors []ValidationError

	if file.Version == "" {
		errors = append(errors, ValidationError{
			Field: "version", Message: "version is required", Index: -1,
		})
	}

	titles := make(map[string]bool)
	for i, c := range file.Campaigns {
		switch {
		case c.Title == "":
			errors = append(errors, ValidationError{
				Field: "title", Message: "campaign title is required", Index: i,
			})
		case titles[c.Title]:
			errors = append(errors, ValidationError{
				Field: "title", Message: fmt.Sprintf("duplicate title: %s", c.Title), Index: i,
			})
		default:
			titles[c.Title] = true
		}

		if len(c.Scenarios) == 0 {
			errors = append(errors, ValidationError{
				Field: "scenarios", Message: "at least one scenario is required", Index: i,
			})
		}
		for j, s := range c.Scenarios {
			if s.ScenarioID == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("scenarios[%d].scenario_id", j),
					Message: "scenario id is required",
					Index:   i,
				})
			}
		}
	}

	return errors
}
