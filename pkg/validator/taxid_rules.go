package validator

import "strings"

// ValidTaxID validates a Brazilian tax id, accepting either a CPF (natural
// person, 11 digits) or a CNPJ (legal entity, 14 digits). Punctuation as
// typed by users ("123.456.789-09", "12.345.678/0001-95") is tolerated.
func ValidTaxID(field, value string) Rule {
	return Rule{
		Check: func() bool {
			digits := onlyDigits(value)
			switch len(digits) {
			case 11:
				return validCPF(digits)
			case 14:
				return validCNPJ(digits)
			default:
				return false
			}
		},
		Error: ValidationError{Field: field, Message: "must be a valid CPF or CNPJ"},
	}
}

// ValidCPF validates a CPF check-digit pair.
func ValidCPF(field, value string) Rule {
	return Rule{
		Check: func() bool {
			digits := onlyDigits(value)
			return len(digits) == 11 && validCPF(digits)
		},
		Error: ValidationError{Field: field, Message: "must be a valid CPF"},
	}
}

// ValidCNPJ validates a CNPJ check-digit pair.
func ValidCNPJ(field, value string) Rule {
	return Rule{
		Check: func() bool {
			digits := onlyDigits(value)
			return len(digits) == 14 && validCNPJ(digits)
		},
		Error: ValidationError{Field: field, Message: "must be a valid CNPJ"},
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func validCPF(digits string) bool {
	// Sequences like 00000000000 pass the checksum but are not issued.
	if allSame(digits) {
		return false
	}

	check := func(n int) byte {
		sum := 0
		for i := range n {
			sum += int(digits[i]-'0') * (n + 1 - i)
		}
		r := sum * 10 % 11
		if r == 10 {
			r = 0
		}
		return byte('0' + r)
	}

	return digits[9] == check(9) && digits[10] == check(10)
}

func validCNPJ(digits string) bool {
	if allSame(digits) {
		return false
	}

	check := func(weights []int) byte {
		sum := 0
		for i, w := range weights {
			sum += int(digits[i]-'0') * w
		}
		r := sum % 11
		if r < 2 {
			return '0'
		}
		return byte('0' + 11 - r)
	}

	first := check([]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	second := check([]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	return digits[12] == first && digits[13] == second
}
