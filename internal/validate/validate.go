// Package validate checks request input before it reaches the stores.
//
// Each check is a Rule; First runs rules in order and reports only the first
// one that fails, as an apperror validation error carrying the field name.
// Messages follow the `"field" must ...` wording clients already display.
//
// Callers trim surrounding whitespace before validating, so lengths here are
// measured on the trimmed value, in characters rather than bytes.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sakif/blog-backend/internal/apperror"
)

// Rule is a single named check.
type Rule struct {
	Field   string
	Message string
	Check   func() bool
}

// First returns nil if every rule passes, otherwise an *apperror.AppError
// for the first failing rule.
func First(rules ...Rule) error {
	for _, r := range rules {
		if !r.Check() {
			return apperror.ValidationFailed(r.Field, r.Message)
		}
	}
	return nil
}

func Required(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%q is required", field),
		Check:   func() bool { return value != "" },
	}
}

func MinLen(field, value string, min int) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%q length must be at least %d characters long", field, min),
		Check:   func() bool { return utf8.RuneCountInString(value) >= min },
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%q length must be less than or equal to %d characters long", field, max),
		Check:   func() bool { return utf8.RuneCountInString(value) <= max },
	}
}

// Email accepts a bare address (no display name) whose domain has a dot.
func Email(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%q must be a valid email", field),
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			_, domain, ok := strings.Cut(addr.Address, "@")
			return ok && strings.Contains(domain, ".") &&
				!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
		},
	}
}

func contains(value string, pred func(rune) bool) bool {
	return strings.IndexFunc(value, pred) >= 0
}

func isSymbol(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// Password is the complexity policy for new passwords: 8 to 26 characters
// with at least one lower-case letter, upper-case letter, digit and symbol.
func Password(field, value string) []Rule {
	return []Rule{
		Required(field, value),
		MinLen(field, value, 8),
		MaxLen(field, value, 26),
		{
			Field:   field,
			Message: fmt.Sprintf("%q should contain at least 1 lower-cased letter", field),
			Check:   func() bool { return contains(value, unicode.IsLower) },
		},
		{
			Field:   field,
			Message: fmt.Sprintf("%q should contain at least 1 upper-cased letter", field),
			Check:   func() bool { return contains(value, unicode.IsUpper) },
		},
		{
			Field:   field,
			Message: fmt.Sprintf("%q should contain at least 1 number", field),
			Check:   func() bool { return contains(value, unicode.IsDigit) },
		},
		{
			Field:   field,
			Message: fmt.Sprintf("%q should contain at least 1 symbol", field),
			Check:   func() bool { return contains(value, isSymbol) },
		},
	}
}
