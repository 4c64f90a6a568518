// Package cache content-addresses compiled bytecode so repeated compiles
// of the same formula text are served from storage instead of re-run
// through the lexer/parser/compiler pipeline.
package cache

import (
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Key is a content address: blake2b-256 of the formula's source text.
type Key [32]byte

// KeyOf derives the cache key for a formula's source text.
func KeyOf(source string) Key {
	return blake2b.Sum256([]byte(source))
}

// Store persists compiled bytecode keyed by formula source text. Both
// implementations must be safe for concurrent use, since the host
// evaluates many records — and may compile many distinct formulas —
// in parallel.
type Store interface {
	Get(key Key) ([]byte, bool, error)
	Put(key Key, bytecode []byte) error
	Close() error
}

// LoggingStore wraps a Store and logs cache misses, tagging each with a
// run-id so a burst of misses from one batch (internal/batch) can be
// correlated in host logs.
type LoggingStore struct {
	Store
}

// Get logs a one-line message on a miss before delegating to the
// wrapped Store; hits are not logged to keep steady-state traffic quiet.
func (s LoggingStore) Get(key Key) ([]byte, bool, error) {
	bytecode, ok, err := s.Store.Get(key)
	if err == nil && !ok {
		log.Printf("cache miss key=%x run=%s", key, uuid.NewString())
	}
	return bytecode, ok, err
}
