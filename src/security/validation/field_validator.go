// src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrValidationFailed is the sentinel wrapped by every validator error.
var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxCurrencyCodeLength  = 3
	MaxPortfolioNameLength = 100
	MaxSearchTextLength    = 255
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateCurrencyCode checks for a three-letter uppercase ISO 4217 code.
func ValidateCurrencyCode(s, fieldName string) error {
	if len(s) != MaxCurrencyCodeLength {
		return fmt.Errorf("%w: %s must be a 3-letter currency code", ErrValidationFailed, fieldName)
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: %s must be a 3-letter uppercase currency code", ErrValidationFailed, fieldName)
		}
	}
	return nil
}
