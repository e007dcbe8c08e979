// Package shortcode generates and validates base62 short codes.
package shortcode

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/jxskiss/base62"

	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
)

// Alphabet is the 62-symbol code alphabet. Symbol order defines numeric
// significance: digits, then lowercase, then uppercase.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength is the width of generated short codes.
const DefaultLength = 7

// ErrKeyspaceExhausted is returned by Next once the sequence no longer fits
// the configured code length.
var ErrKeyspaceExhausted = errors.New("short code keyspace exhausted")

var encoding = base62.NewEncoding(Alphabet)

// Generator produces fixed-width short codes from a monotonically increasing
// sequence. Two calls to Next never return the same code. It is safe for
// concurrent use.
type Generator struct {
	length int
	maxSeq uint64
	seq    atomic.Uint64
}

// NewGenerator returns a Generator producing codes of exactly length
// characters. Shorter sequence values are left-padded with the alphabet's
// zero symbol.
func NewGenerator(length int) (*Generator, error) {
	if length < 1 {
		return nil, fmt.Errorf("shortcode: code length must be positive, got %d", length)
	}

	return &Generator{
		length: length,
		maxSeq: maxSequence(length),
	}, nil
}

// Length returns the width of generated codes.
func (g *Generator) Length() int {
	return g.length
}

// Next advances the sequence and returns its encoding. It fails with
// ErrKeyspaceExhausted once the sequence outgrows the code length; the
// sequence is never reused or wrapped.
func (g *Generator) Next() (string, error) {
	const op = "shortcode.Generator.Next"

	seq := g.seq.Add(1)
	if seq > g.maxSeq {
		return "", fmt.Errorf("%s: %w", op, ErrKeyspaceExhausted)
	}

	return g.encode(seq), nil
}

// ValidateCustom checks a caller-chosen short code: it must be non-empty, no
// longer than generated codes, and contain only alphabet characters. Matching
// entity.ErrInvalidShortCode is returned otherwise.
func (g *Generator) ValidateCustom(code string) error {
	const op = "shortcode.Generator.ValidateCustom"

	if code == "" || len(code) > g.length {
		return fmt.Errorf("%s: %w", op, entity.ErrInvalidShortCode)
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return fmt.Errorf("%s: %w", op, entity.ErrInvalidShortCode)
		}
	}

	return nil
}

func (g *Generator) encode(seq uint64) string {
	encoded := encoding.FormatUint(seq)

	pad := g.length - len(encoded)
	if pad <= 0 {
		return string(encoded)
	}

	code := make([]byte, g.length)
	for i := 0; i < pad; i++ {
		code[i] = Alphabet[0]
	}
	copy(code[pad:], encoded)

	return string(code)
}

// maxSequence returns the largest sequence value that still encodes to at
// most length characters, saturating at math.MaxUint64 for long codes.
func maxSequence(length int) uint64 {
	max := uint64(1)
	for i := 0; i < length; i++ {
		if max > math.MaxUint64/62 {
			return math.MaxUint64
		}
		max *= 62
	}

	return max - 1
}
