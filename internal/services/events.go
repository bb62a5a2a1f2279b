package services

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/bankcore/backend/internal/models"
)

// EventPublisher announces committed ledger entries to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, entry models.Transaction) error
}

// LedgerEvent is the message pushed for every committed entry.
type LedgerEvent struct {
	TransactionID models.ID              `json:"transaction_id"`
	Kind          models.TransactionKind `json:"transaction_type"`
	FromAccountID models.ID              `json:"from_account_id"`
	ToAccountID   *models.ID             `json:"to_account_id,omitempty"`
	Amount        string                 `json:"amount"`
	Timestamp     string                 `json:"transaction_timestamp"`
}

func newLedgerEvent(entry models.Transaction) LedgerEvent {
	return LedgerEvent{
		TransactionID: entry.ID,
		Kind:          entry.Kind,
		FromAccountID: entry.FromAccountID,
		ToAccountID:   entry.ToAccountID,
		Amount:        models.FormatMoney(entry.Amount),
		Timestamp:     entry.Timestamp.Format("2006-01-02T15:04:05.000000Z07:00"),
	}
}

// RedisEventPublisher appends events to a Redis list consumed in FIFO order.
type RedisEventPublisher struct {
	client *redis.Client
	key    string
}

// NewRedisEventPublisher returns nil when client is nil so callers can pass
// the result straight to the engine.
func NewRedisEventPublisher(client *redis.Client, key string) EventPublisher {
	if client == nil {
		return nil
	}
	return &RedisEventPublisher{client: client, key: key}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, entry models.Transaction) error {
	payload, err := json.Marshal(newLedgerEvent(entry))
	if err != nil {
		return errors.Wrap(err, "encode ledger event")
	}
	if err := p.client.RPush(ctx, p.key, payload).Err(); err != nil {
		return errors.Wrapf(err, "push ledger event %s", entry.ID)
	}
	return nil
}
