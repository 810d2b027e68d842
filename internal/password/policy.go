package password

import "unicode/utf8"

const MinLength = 8

// IsStrong reports whether pw is at least MinLength characters, starts with
// an ASCII uppercase letter, and contains a letter, a digit and a character
// that is neither.
func IsStrong(pw string) bool {
	if utf8.RuneCountInString(pw) < MinLength {
		return false
	}
	if !isUpper(rune(pw[0])) {
		return false
	}

	var letter, digit, symbol bool
	for _, r := range pw {
		switch {
		case isUpper(r) || (r >= 'a' && r <= 'z'):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	return letter && digit && symbol
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}
