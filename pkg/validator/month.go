package validator

import (
	"errors"
	"regexp"
	"time"
)

var (
	// ErrEmptyMonth indicates the month parameter is missing
	ErrEmptyMonth = errors.New("month cannot be empty")

	// ErrInvalidMonthFormat indicates the month is not in YYYY-MM form
	ErrInvalidMonthFormat = errors.New("month must be in YYYY-MM format")

	// ErrMonthOutOfRange indicates the month component is not 01-12
	ErrMonthOutOfRange = errors.New("month component must be between 01 and 12")
)

// monthRegex matches the YYYY-MM shape before the stricter time parse
var monthRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)

// MonthValidator validates billing month identifiers
type MonthValidator struct{}

// NewMonthValidator creates a new month validator instance
func NewMonthValidator() *MonthValidator {
	return &MonthValidator{}
}

// Validate checks a billing month identifier and returns it unchanged.
// Accepts only the canonical "YYYY-MM" form, e.g. "2025-06".
func (v *MonthValidator) Validate(month string) (string, error) {
	if month == "" {
		return "", ErrEmptyMonth
	}

	if !monthRegex.MatchString(month) {
		return "", ErrInvalidMonthFormat
	}

	if _, err := time.Parse("2006-01", month); err != nil {
		return "", ErrMonthOutOfRange
	}

	return month, nil
}

// IsValid is a convenience method that returns true if the month is valid
func (v *MonthValidator) IsValid(month string) bool {
	_, err := v.Validate(month)
	return err == nil
}

// Current returns the current billing month in canonical form
func (v *MonthValidator) Current() string {
	return time.Now().UTC().Format("2006-01")
}
