package notify

import (
	"context"
	"log/slog"
	"time"

	"domainflow/internal/domain"
)

// Dispatcher is the write side of the outbox. Services call Enqueue inside
// their mutation transaction and Kick after commit so the worker picks the
// entry up without waiting for the next poll tick.
type Dispatcher struct {
	store  OutboxStore
	wake   chan struct{}
	logger *slog.Logger
}

func NewDispatcher(store OutboxStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Enqueue appends the event to the outbox within the caller's transaction.
func (d *Dispatcher) Enqueue(ctx context.Context, event *domain.NotificationEvent) error {
	entry, err := NewOutboxEntry(event, time.Now().UTC())
	if err != nil {
		return err
	}
	return d.store.Append(ctx, entry)
}

// Kick nudges the worker. Non-blocking: a pending signal is enough.
func (d *Dispatcher) Kick() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wake exposes the signal channel to the worker.
func (d *Dispatcher) Wake() <-chan struct{} {
	return d.wake
}
