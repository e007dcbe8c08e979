// Package redis provides a Redis-backed record store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
)

const (
	urlKeyPrefix    = "url:"
	visitsKeyPrefix = "visits:"
)

type urlJSON struct {
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Store persists URL records in Redis. The record body lives under
// "url:{code}" and is written with SET NX, which makes Put the same
// compare-and-insert primitive the other stores provide. Visit counts live
// under "visits:{code}" and are incremented atomically with INCR.
//
// Records carry no Redis TTL even when they have an expiry: expiry is a
// read-time predicate here, and an expired record must still resolve to
// entity.ErrURLExpired rather than vanish into entity.ErrURLNotFound.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func urlKey(shortCode string) string {
	return urlKeyPrefix + shortCode
}

func visitsKey(shortCode string) string {
	return visitsKeyPrefix + shortCode
}

func (s *Store) Put(ctx context.Context, url *entity.URL) error {
	const op = "storage.redis.Store.Put"

	body, err := json.Marshal(urlJSON{
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal url record: %w", op, err)
	}

	inserted, err := s.client.SetNX(ctx, urlKey(url.ShortCode), body, 0).Result()
	if err != nil {
		return fmt.Errorf("%s: failed to set url key: %w", op, err)
	}
	if !inserted {
		return fmt.Errorf("%s: %w", op, entity.ErrDuplicateKey)
	}

	if url.VisitCount > 0 {
		if err := s.client.Set(ctx, visitsKey(url.ShortCode), url.VisitCount, 0).Err(); err != nil {
			return fmt.Errorf("%s: failed to set visits key: %w", op, err)
		}
	}

	return nil
}

func (s *Store) Get(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.redis.Store.Get"

	body, err := s.client.Get(ctx, urlKey(shortCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url key: %w", op, err)
	}

	visits, err := s.client.Get(ctx, visitsKey(shortCode)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: failed to get visits key: %w", op, err)
	}

	return toEntity(op, shortCode, body, visits)
}

func (s *Store) Touch(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.redis.Store.Touch"

	body, err := s.client.Get(ctx, urlKey(shortCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url key: %w", op, err)
	}

	visits, err := s.client.Incr(ctx, visitsKey(shortCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to increment visits key: %w", op, err)
	}

	return toEntity(op, shortCode, body, visits)
}

func (s *Store) Delete(ctx context.Context, shortCode string) error {
	const op = "storage.redis.Store.Delete"

	removed, err := s.client.Del(ctx, urlKey(shortCode)).Result()
	if err != nil {
		return fmt.Errorf("%s: failed to delete url key: %w", op, err)
	}
	if removed == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	// The visits key is always dropped with the record; a Touch racing a
	// Delete may briefly recreate it, and the next Delete clears it again.
	if err := s.client.Del(ctx, visitsKey(shortCode)).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete visits key: %w", op, err)
	}

	return nil
}

func toEntity(op, shortCode, body string, visits int64) (*entity.URL, error) {
	var rec urlJSON
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal url record: %w", op, err)
	}

	return &entity.URL{
		ShortCode:   shortCode,
		OriginalURL: rec.OriginalURL,
		VisitCount:  visits,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}
