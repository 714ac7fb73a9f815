package idempotency

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type memoryEntry struct {
	fingerprint string
	completed   bool
	response    StoredResponse
	expiresAt   time.Time
}

// MemoryStore keeps idempotency state in process memory. Expired entries are
// evicted lazily on the next claim of their key; the storefront's key volume
// (one per checkout attempt) does not warrant a sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Claim implements Store.
func (s *MemoryStore) Claim(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if ok && !now.Before(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	if !ok {
		s.entries[key] = memoryEntry{
			fingerprint: fingerprint,
			expiresAt:   now.Add(ttl),
		}
		return Claim{State: ClaimAccepted}, nil
	}

	if entry.fingerprint != fingerprint {
		return Claim{}, ErrKeyReused
	}
	if entry.completed {
		return Claim{State: ClaimReplay, Response: copyResponse(entry.response)}, nil
	}
	return Claim{State: ClaimInFlight}, nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, key string, resp StoredResponse, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	entry.completed = true
	entry.response = copyResponse(resp)
	entry.expiresAt = now.Add(ttl)
	s.entries[key] = entry
	return nil
}

// Forget implements Store.
func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func copyResponse(resp StoredResponse) StoredResponse {
	out := StoredResponse{Status: resp.Status}
	if len(resp.Header) > 0 {
		out.Header = make(http.Header, len(resp.Header))
		for name, values := range resp.Header {
			copied := make([]string, len(values))
			copy(copied, values)
			out.Header[name] = copied
		}
	}
	if len(resp.Body) > 0 {
		out.Body = append([]byte(nil), resp.Body...)
	}
	return out
}
