package core

import (
	"fmt"
	"strings"
)

// FieldError is a single field-level validation problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	err     error
}

// ValidationError collects every field problem found on a candidate.
type ValidationError struct {
	Fields []FieldError
}

// Add records a problem for field. cause is exposed through errors.Is.
func (e *ValidationError) Add(field, message string, cause error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message, err: cause})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.err != nil {
			errs = append(errs, f.err)
		}
	}
	return errs
}

// InvalidPeriodError is returned for a year/month outside the supported range.
type InvalidPeriodError struct {
	Year  int
	Month int
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period %d/%d: year must be between %d-%d and month between 1-12",
		e.Year, e.Month, MinPeriodYear, MaxPeriodYear)
}
