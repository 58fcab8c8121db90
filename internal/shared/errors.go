package shared

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
	ErrConfigurationGap = fmt.Errorf("library verification requested but no library configured")

	// Authentication and credential errors
	ErrValidationFailure = fmt.Errorf("credential validation failed")
	ErrAuthExpired       = fmt.Errorf("authorization expired")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// Watchlist errors
	ErrFetch  = fmt.Errorf("watchlist fetch failed")
	ErrRemove = fmt.Errorf("watchlist removal failed")

	// Login flow errors
	ErrFlowExpired = fmt.Errorf("login flow expired")
	ErrFlowUnknown = fmt.Errorf("unknown login flow")

	// Persistence errors
	ErrAccountNotFound = fmt.Errorf("account not found")
	ErrDuplicateLabel  = fmt.Errorf("account label already in use")

	// API errors
	ErrAPIRequest = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsAuthFailure reports whether an error message carries an authorization failure indicator.
func IsAuthFailure(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized")
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
