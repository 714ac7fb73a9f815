// Package idempotency makes storefront mutations replay-safe. A client that
// retries a cart or checkout POST with the same Idempotency-Key gets the
// stored response back instead of a second order or a doubled line.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL is how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

// ErrKeyReused is returned when an idempotency key arrives with a request
// that does not match the one the key was first used for.
var ErrKeyReused = errors.New("idempotency: key reused for a different request")

// ClaimState describes what the caller should do after claiming a key.
type ClaimState int

const (
	// ClaimAccepted means the key is new; the caller runs the handler.
	ClaimAccepted ClaimState = iota
	// ClaimReplay means a stored response exists and must be replayed.
	ClaimReplay
	// ClaimInFlight means another request holds the key right now.
	ClaimInFlight
)

// StoredResponse is the replayable part of a completed request.
type StoredResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Claim is the outcome of claiming a key.
type Claim struct {
	State    ClaimState
	Response StoredResponse
}

// Store tracks claimed keys and their completed responses. Keys are already
// session-scoped by the middleware; stores never see raw client keys.
type Store interface {
	// Claim registers the key as in flight, replays a completed response,
	// or fails with ErrKeyReused when the fingerprint differs.
	Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error)
	// Complete stores the response to replay for future claims of the key.
	Complete(ctx context.Context, key string, resp StoredResponse, now time.Time, ttl time.Duration) error
	// Forget releases the key so the client may retry.
	Forget(ctx context.Context, key string) error
}

func hashKey(sessionID, clientKey string) string {
	return digest(sessionID + "\x00" + clientKey)
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
