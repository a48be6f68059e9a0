package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"2025550123", "2025550123", "Standard format"},
		{"202 555 0123", "2025550123", "With spaces"},
		{"202-555-0123", "2025550123", "With dashes"},
		{"202.555.0123", "2025550123", "With dots"},
		{"(202) 555-0123", "2025550123", "With parentheses"},
		{"+1 202 555 0123", "2025550123", "With country code"},
		{"12025550123", "2025550123", "With bare country code"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestPhoneValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"123", ErrInvalidLength, "Too short"},
		{"20255501234", ErrInvalidLength, "Too long"},
		{"0025550123", ErrInvalidAreaCode, "Area code starts with 0"},
		{"1125550123", ErrInvalidAreaCode, "Area code starts with 1"},
		{"2020550123", ErrInvalidAreaCode, "Exchange starts with 0"},
		{"202555012a", ErrInvalidFormat, "Contains letters"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestPhoneFormat(t *testing.T) {
	validator := NewPhoneValidator()

	formatted, err := validator.Format("2025550123")
	require.NoError(t, err)
	assert.Equal(t, "(202) 555-0123", formatted)

	_, err = validator.Format("123")
	assert.Error(t, err)
}

func TestPhoneIsValid(t *testing.T) {
	validator := NewPhoneValidator()
	assert.True(t, validator.IsValid("2025550123"))
	assert.False(t, validator.IsValid("12345"))
}
