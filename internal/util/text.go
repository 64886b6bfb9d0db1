package util

import "strings"

// SanitizeDBText drops invalid UTF-8 and NUL bytes, which Postgres rejects in
// text columns. Article dumps occasionally carry both.
func SanitizeDBText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
