package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/bankcore/backend/internal/models"
)

var (
	// ErrIdempotencyConflict means the key cannot be used for this request
	// right now: another request with it is still running, or it belongs to
	// a different request.
	ErrIdempotencyConflict = errors.New("request with this idempotency key is in progress")
	ErrIdempotencyMismatch = fmt.Errorf("%w: key was used with a different request", ErrIdempotencyConflict)
)

// pendingTTL bounds how long a crashed request can block its key.
const pendingTTL = time.Minute

// StoredResponse is the record kept under a key. Status is zero while the
// request is still running.
type StoredResponse struct {
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// TransferFingerprint identifies the transfer a key was first used for.
// Amounts are compared at currency precision, so "60" and "60.00" match.
func TransferFingerprint(sender, receiver models.ID, amount decimal.Decimal) string {
	sum := sha256.Sum256([]byte(sender.String() + "|" + receiver.String() + "|" + models.FormatMoney(amount)))
	return hex.EncodeToString(sum[:])
}

// IdempotencyStore deduplicates client retries of money-moving requests.
// Keys are scoped per customer.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore returns nil when client is nil; a nil store accepts
// every request.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if client == nil {
		return nil
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(customerID models.ID, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", customerID, key)
}

// Reserve claims key for the request identified by fingerprint. It returns
// the stored response when the same request already completed,
// ErrIdempotencyMismatch when the key belongs to a different request,
// ErrIdempotencyConflict while it is pending, and (nil, nil) when the caller
// now owns the key.
func (s *IdempotencyStore) Reserve(ctx context.Context, customerID models.ID, key, fingerprint string) (*StoredResponse, error) {
	if s == nil {
		return nil, nil
	}
	redisKey := idempotencyKey(customerID, key)

	pending, err := json.Marshal(StoredResponse{Fingerprint: fingerprint})
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}
	ok, err := s.client.SetNX(ctx, redisKey, pending, pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	value, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET.
		return nil, ErrIdempotencyConflict
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if stored.Fingerprint != fingerprint {
		return nil, ErrIdempotencyMismatch
	}
	if stored.Status == 0 {
		return nil, ErrIdempotencyConflict
	}
	return &stored, nil
}

// Complete stores the response for replay. resp.Fingerprint must be the one
// the key was reserved with.
func (s *IdempotencyStore) Complete(ctx context.Context, customerID models.ID, key string, resp StoredResponse) error {
	if s == nil {
		return nil
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	return s.client.Set(ctx, idempotencyKey(customerID, key), payload, s.ttl).Err()
}

// Release frees key after a failed request so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, customerID models.ID, key string) error {
	if s == nil {
		return nil
	}
	return s.client.Del(ctx, idempotencyKey(customerID, key)).Err()
}
