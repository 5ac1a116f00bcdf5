// Package phone normalizes user-supplied phone numbers to E.164.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalidNumber is returned when a number fits neither accepted format.
var ErrInvalidNumber = errors.New(
	"invalid phone number format. Please provide a 10-digit US number or international number with country code")

// Normalize converts an arbitrary phone string to E.164, assuming US when no
// country code is given. Separators (spaces, dashes, parentheses) are ignored.
func Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)
	if digits == "" {
		return "", ErrInvalidNumber
	}

	// A leading + means the caller already supplied a country code.
	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		return "+" + digits, nil
	}

	switch {
	case len(digits) == 10:
		return "+1" + digits, nil
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	}
	return "", ErrInvalidNumber
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
