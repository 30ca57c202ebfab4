package server

import (
	"crypto/subtle"
	"strings"
	"sync"
)

// APIKeyStore is the set of accepted API keys. Authentication is disabled
// while the store is empty.
type APIKeyStore struct {
	mu      sync.RWMutex
	keys    map[string]struct{}
	version int64
}

func NewAPIKeyStore(keys []string) *APIKeyStore {
	s := &APIKeyStore{}
	s.Replace(keys, 0)
	return s
}

// Replace swaps the whole key set. Blank keys are dropped.
func (s *APIKeyStore) Replace(keys []string, version int64) {
	next := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			next[key] = struct{}{}
		}
	}

	s.mu.Lock()
	s.keys = next
	s.version = version
	s.mu.Unlock()
}

// Contains reports whether key is accepted
func (s *APIKeyStore) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := 0
	for candidate := range s.keys {
		found |= subtle.ConstantTimeCompare([]byte(candidate), []byte(key))
	}
	return found == 1
}

func (s *APIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Version is the Vault secret version the keys came from, 0 for static keys.
func (s *APIKeyStore) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
