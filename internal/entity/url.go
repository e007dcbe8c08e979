// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, along with its
// associated metadata, and any relevant error definitions.
package entity

import "time"

// URL represents a shortened URL.
type URL struct {
	ShortCode   string     // ShortCode is the code used to shorten the original URL.
	OriginalURL string     // OriginalURL is the full URL that the short code resolves to.
	VisitCount  int64      // VisitCount is the number of times the short code has been resolved.
	CreatedAt   time.Time  // CreatedAt is the timestamp when the URL was created.
	ExpiresAt   *time.Time // ExpiresAt is the optional expiry timestamp; nil means the URL never expires.
}

// IsExpired reports whether the URL is expired at the given instant.
// A URL with no expiry never expires.
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && !now.Before(*u.ExpiresAt)
}

// Clone returns a deep copy of the URL, so storage implementations can hand
// out records without aliasing their internal state.
func (u *URL) Clone() *URL {
	clone := *u
	if u.ExpiresAt != nil {
		expiresAt := *u.ExpiresAt
		clone.ExpiresAt = &expiresAt
	}
	return &clone
}

// CachedURL is the projection of a URL kept in the cache. Visit counts are
// deliberately absent: they live solely in the record store.
type CachedURL struct {
	OriginalURL string
	ExpiresAt   *time.Time
}

// IsExpired reports whether the cached URL is expired at the given instant.
func (c CachedURL) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}
