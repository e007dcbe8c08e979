// Package urlcheck validates original URLs before they are shortened.
package urlcheck

import (
	"net/url"
	"strings"
)

// MaxLength is the longest original URL accepted for shortening.
const MaxLength = 2048

// IsValid reports whether rawURL is acceptable as an original URL: at most
// MaxLength bytes, an http or https scheme, and a host containing at least
// one dot. Bare hostnames like "http://localhost" are rejected.
func IsValid(rawURL string) bool {
	if rawURL == "" || len(rawURL) > MaxLength {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	return strings.Contains(parsed.Host, ".")
}
