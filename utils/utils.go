// Package utils provides utility functions for the application.
package utils

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

func ToPtr[T any](v T) *T {
	return &v
}

// NormalizeEmail trims and lowercases an email address.
// Every lookup and write of an account email goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone formats a phone number as E.164 when it parses as a valid
// number (South African numbers may omit the country prefix). Anything else
// is returned trimmed but otherwise untouched, since contact numbers are
// free-form profile data.
func NormalizePhone(phone string) string {
	raw := strings.TrimSpace(phone)
	if raw == "" {
		return raw
	}
	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// IsBlank reports whether s is empty after trimming whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
