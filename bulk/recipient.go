package bulk

import (
	"strings"
)

// Validation is the outcome of validating one raw recipient.
type Validation struct {
	Valid      bool
	Normalized string
	Reason     string
}

// Validator validates and normalizes raw recipient identifiers. It must
// be pure: the same input always yields the same Validation.
type Validator interface {
	ValidateRecipient(raw string) Validation
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(raw string) Validation

// ValidateRecipient calls f.
func (f ValidatorFunc) ValidateRecipient(raw string) Validation { return f(raw) }

// PhoneValidator normalizes phone numbers to "+<digits>". Spaces, dashes,
// dots and parentheses are ignored. Numbers must have 7 to 15 digits; a
// bare 10-digit number gets DefaultCountryCode.
type PhoneValidator struct {
	DefaultCountryCode string
}

// NewPhoneValidator returns a PhoneValidator defaulting to country code 1.
func NewPhoneValidator() PhoneValidator {
	return PhoneValidator{DefaultCountryCode: "1"}
}

const (
	minDigits = 7
	maxDigits = 15
)

// ValidateRecipient implements Validator.
func (v PhoneValidator) ValidateRecipient(raw string) Validation {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Validation{Reason: "empty recipient"}
	}

	plus := strings.HasPrefix(s, "+")
	if plus {
		s = s[1:]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return Validation{Reason: "invalid character " + quoteRune(r) + " in phone number"}
		}
	}
	digits := b.String()

	if !plus && len(digits) == 10 && v.DefaultCountryCode != "" {
		digits = v.DefaultCountryCode + digits
	}
	if len(digits) < minDigits || len(digits) > maxDigits {
		return Validation{Reason: "phone number must have between 7 and 15 digits"}
	}
	return Validation{Valid: true, Normalized: "+" + digits}
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}
