package domain

import (
	"strings"
	"unicode"
)

const passwordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// MinPasswordLength is the shortest password StrongPassword accepts.
const MinPasswordLength = 8

// StrongPassword reports whether p has at least MinPasswordLength characters
// and contains an upper-case letter, a lower-case letter, a digit and one of
// the accepted special characters.
func StrongPassword(p string) bool {
	if len(p) < MinPasswordLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
