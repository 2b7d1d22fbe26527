// Package normalize holds the canonical forms of values that are stored or
// compared: emails as account keys and tokens as read from the x-auth header.
package normalize

import "strings"

// Email normalizes an email address by trimming whitespace and converting to lowercase.
// Accounts and login throttling counters are keyed by this form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Token trims surrounding whitespace from a session token header value.
// Tokens are case sensitive.
func Token(s string) string {
	return strings.TrimSpace(s)
}
