package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"domainflow/internal/domain"
)

type OutboxStatus string

const (
	StatusPending   OutboxStatus = "pending"
	StatusDelivered OutboxStatus = "delivered"
	StatusFailed    OutboxStatus = "failed"
)

// OutboxEntry is one undelivered notification, persisted in the same
// transaction as the state change that produced it.
type OutboxEntry struct {
	ID            uuid.UUID
	EventType     domain.EventType
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
	DeliveredAt   *time.Time
	LastError     string
}

// NewOutboxEntry serializes the event into a pending entry due immediately.
func NewOutboxEntry(event *domain.NotificationEvent, now time.Time) (*OutboxEntry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &OutboxEntry{
		ID:            uuid.New(),
		EventType:     event.Type,
		Payload:       payload,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}, nil
}

// Event deserializes the stored payload.
func (e *OutboxEntry) Event() (*domain.NotificationEvent, error) {
	var event domain.NotificationEvent
	if err := json.Unmarshal(e.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// OutboxStore persists outbox entries. Append observes an ambient
// transaction when the context carries one.
type OutboxStore interface {
	Append(ctx context.Context, entry *OutboxEntry) error
	Due(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	Reschedule(ctx context.Context, id uuid.UUID, attempts int, nextAttempt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
}
