// Package cache provides the content-addressed result cache for translations.
// Entries are never invalidated or evicted.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Store persists translated text under a digest.
// Implementations must be safe for concurrent use within one process.
type Store interface {
	// Get returns the text stored under digest.
	// found is false when no entry exists.
	Get(ctx context.Context, digest string) (text string, found bool, err error)

	// Set creates or overwrites the entry for digest.
	Set(ctx context.Context, digest, text string) error
}

// Key returns the SHA-256 hex digest of text alone.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CompositeKey returns the digest identifying a translation of text from one
// language to another. Each field is length-prefixed so that adjacent fields
// cannot run into each other.
func CompositeKey(text, from, to string) string {
	h := sha256.New()
	for _, field := range []string{text, from, to} {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
