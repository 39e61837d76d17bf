// Package store is a content-addressed index for compiled templates. A
// template's address is the SHA-256 of its canonical wire encoding, so
// identical programs share an address no matter where they were compiled.
// The in-memory store works on its own; Open layers SQLite persistence
// under it.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/bekzod/glimmer-vm/template"
)

// Digest is the content address of a compiled template.
type Digest [32]byte

// String returns the digest in hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// ParseDigest decodes a hex digest string.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(d) {
		return Digest{}, ErrBadDigest
	}
	copy(d[:], b)
	return d, nil
}

// HashTemplate computes the content address of a template from its
// canonical wire bytes.
func HashTemplate(t *template.Template) (Digest, []byte, error) {
	wire, err := template.EncodeTemplate(t)
	if err != nil {
		return Digest{}, nil, err
	}
	return sha256.Sum256(wire), wire, nil
}

// Store indexes compiled templates by content address.
type Store struct {
	mu        sync.RWMutex
	templates map[Digest]*template.Template
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{templates: make(map[Digest]*template.Template)}
}

// Put indexes a template and returns its digest.
func (s *Store) Put(t *template.Template) (Digest, error) {
	d, _, err := HashTemplate(t)
	if err != nil {
		return Digest{}, err
	}
	s.mu.Lock()
	s.templates[d] = t
	s.mu.Unlock()
	return d, nil
}

// Get returns the template for the given digest, or nil.
func (s *Store) Get(d Digest) *template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates[d]
}

// Has reports whether the store contains the digest.
func (s *Store) Has(d Digest) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.templates[d]
	return ok
}

// Digests returns every digest in the store.
func (s *Store) Digests() []Digest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Digest, 0, len(s.templates))
	for d := range s.templates {
		out = append(out, d)
	}
	return out
}

// Count returns the number of indexed templates.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}
