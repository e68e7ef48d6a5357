package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// Required validates that a string is not empty after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

// MinLen validates a minimum string length in bytes.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) >= min
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters long", min),
		},
	}
}

// ValidEmail validates an e-mail address for typical web use.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil {
				return false
			}
			// RFC 5322 allows domains without dots; web signups do not.
			local, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || local == "" {
				return false
			}
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

// ValidPhone validates a phone number in E.164-like format, tolerating
// spaces, dashes, and parentheses as typed by users.
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool {
			cleaned := strings.Map(func(r rune) rune {
				switch r {
				case ' ', '-', '(', ')':
					return -1
				}
				return r
			}, value)
			return phoneRegex.MatchString(cleaned)
		},
		Error: ValidationError{Field: field, Message: "must be a valid phone number"},
	}
}
