// Package service implements the URL shortening business logic: code
// generation, record storage, cache maintenance, and expiry.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
	"github.com/Rohit-Yadav-47/url-shorter/internal/shortcode"
	"github.com/Rohit-Yadav-47/url-shorter/pkg/clock"
	"github.com/Rohit-Yadav-47/url-shorter/pkg/urlcheck"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

// RecordStore defines the interface for the authoritative record storage.
type RecordStore interface {
	// Put inserts a new URL record. It fails with entity.ErrDuplicateKey when
	// the short code is already taken; the existence check and the insert are
	// a single atomic step.
	Put(ctx context.Context, url *entity.URL) error

	// Get retrieves a record by its short code without side effects.
	// Returns entity.ErrURLNotFound if no record exists.
	Get(ctx context.Context, shortCode string) (*entity.URL, error)

	// Touch atomically increments the visit count of a record and returns the
	// updated record. Returns entity.ErrURLNotFound if no record exists.
	Touch(ctx context.Context, shortCode string) (*entity.URL, error)

	// Delete removes a record by its short code.
	// Returns entity.ErrURLNotFound if no record exists.
	Delete(ctx context.Context, shortCode string) error
}

// Cache sits in front of the record store on the resolve path. It holds
// projections of records, never authoritative state: losing an entry to
// eviction must never lose data. Implementations must be safe for concurrent
// use; the LRU in internal/cache satisfies this interface.
type Cache interface {
	Get(shortCode string) (entity.CachedURL, bool)
	Put(shortCode string, cached entity.CachedURL)
	Remove(shortCode string) bool
}

// URLService coordinates the short code generator, the record store, and the
// cache. The store and the cache each synchronize internally; the service
// never holds both at once, so a freshly created record may be momentarily
// absent from the cache, which only costs a cache miss.
type URLService struct {
	store      RecordStore
	cache      Cache
	gen        *shortcode.Generator
	clock      clock.Clock
	isValidURL func(string) bool
}

// Option configures a URLService.
type Option func(*URLService)

// WithClock overrides the clock used for creation and expiry timestamps.
func WithClock(clk clock.Clock) Option {
	return func(s *URLService) {
		s.clock = clk
	}
}

// WithURLValidator overrides the predicate deciding which original URLs are
// accepted for shortening.
func WithURLValidator(isValid func(string) bool) Option {
	return func(s *URLService) {
		s.isValidURL = isValid
	}
}

// NewURLService creates a new URLService. By default it validates URLs with
// urlcheck.IsValid and reads time from the system clock.
func NewURLService(store RecordStore, cache Cache, gen *shortcode.Generator, opts ...Option) *URLService {
	svc := &URLService{
		store:      store,
		cache:      cache,
		gen:        gen,
		clock:      clock.System{},
		isValidURL: urlcheck.IsValid,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// ShortenURL registers originalURL under a new short code and returns the
// created record. A non-nil customCode is validated and claimed as-is; an
// empty candidate fails validation. When customCode is nil, codes come from
// the generator, skipping over codes that were already claimed. A nil
// expiryDays means the URL never expires; zero or negative values expire it
// immediately.
func (s *URLService) ShortenURL(ctx context.Context, originalURL string, customCode *string, expiryDays *int) (*entity.URL, error) {
	const op = "service.URLService.ShortenURL"
	const maxRetries = 5

	if !s.isValidURL(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	now := s.clock.Now()
	url := &entity.URL{
		OriginalURL: originalURL,
		CreatedAt:   now,
	}
	if expiryDays != nil {
		expiresAt := clock.AddDays(now, *expiryDays)
		url.ExpiresAt = &expiresAt
	}

	if customCode != nil {
		if err := s.gen.ValidateCustom(*customCode); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		url.ShortCode = *customCode
		if err := s.store.Put(ctx, url); err != nil {
			if errors.Is(err, entity.ErrDuplicateKey) {
				return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		s.cacheURL(url)

		return url, nil
	}

	for i := 0; i < maxRetries; i++ {
		shortCode, err := s.gen.Next()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url.ShortCode = shortCode
		if err := s.store.Put(ctx, url); err != nil {
			if errors.Is(err, entity.ErrDuplicateKey) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		s.cacheURL(url)

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode returns the original URL registered under shortCode and
// counts the visit. The cache is consulted first; on a miss the record is
// loaded from the store and promoted into the cache. Expiry is checked on
// both paths before the visit is counted, so resolving an expired URL
// returns entity.ErrURLExpired and leaves the visit count untouched.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (string, error) {
	const op = "service.URLService.ResolveShortCode"

	if cached, ok := s.cache.Get(shortCode); ok {
		if cached.IsExpired(s.clock.Now()) {
			return "", fmt.Errorf("%s: %w", op, entity.ErrURLExpired)
		}

		if _, err := s.store.Touch(ctx, shortCode); err != nil {
			if errors.Is(err, entity.ErrURLNotFound) {
				// The record was deactivated after the entry was cached.
				// Drop the orphan so the cache stays a subset of the store.
				s.cache.Remove(shortCode)
				return "", fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
			}

			return "", fmt.Errorf("%s: failed to count visit: %w", op, err)
		}

		return cached.OriginalURL, nil
	}

	url, err := s.store.Get(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.IsExpired(s.clock.Now()) {
		return "", fmt.Errorf("%s: %w", op, entity.ErrURLExpired)
	}

	if _, err := s.store.Touch(ctx, shortCode); err != nil {
		return "", fmt.Errorf("%s: failed to count visit: %w", op, err)
	}

	s.cacheURL(url)

	return url.OriginalURL, nil
}

// GetURLStats returns the record stored under shortCode straight from the
// store: no cache read, no visit increment. Expired records still report
// their stats.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "service.URLService.GetURLStats"

	url, err := s.store.Get(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}

// DeactivateURL removes the record stored under shortCode. The cache entry
// is dropped first, so no resolve can keep serving a deactivated record from
// the cache.
func (s *URLService) DeactivateURL(ctx context.Context, shortCode string) error {
	const op = "service.URLService.DeactivateURL"

	s.cache.Remove(shortCode)

	if err := s.store.Delete(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	return nil
}

func (s *URLService) cacheURL(url *entity.URL) {
	s.cache.Put(url.ShortCode, entity.CachedURL{
		OriginalURL: url.OriginalURL,
		ExpiresAt:   url.ExpiresAt,
	})
}
