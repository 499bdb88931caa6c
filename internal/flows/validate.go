package flows

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	digitPattern = regexp.MustCompile(`\d`)
)

const (
	minNameLength     = 2
	minPasswordLength = 8
)

// ValidEmail reports whether s has the local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidOTPShape reports whether code is exactly six ASCII digits. It says
// nothing about whether the code is correct.
func ValidOTPShape(code string) bool {
	return otpPattern.MatchString(code)
}

// ValidateSignupForm applies the signup rules in order and returns the
// message of the first failing rule, or "" when all pass.
func ValidateSignupForm(form SignupForm) string {
	if utf8.RuneCountInString(strings.TrimSpace(form.Name)) < minNameLength {
		return MsgNameTooShort
	}
	if !ValidEmail(form.Email) {
		return MsgEmailRequired
	}
	return ValidateNewPassword(form.Password, form.Confirm)
}

// ValidateNewPassword checks length, confirmation equality and composition,
// in that order.
func ValidateNewPassword(password, confirm string) string {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return MsgPasswordTooShort
	}
	if password != confirm {
		return MsgPasswordMismatch
	}
	if !upperPattern.MatchString(password) || !lowerPattern.MatchString(password) || !digitPattern.MatchString(password) {
		return MsgPasswordComposition
	}
	return ""
}
