package notify

import (
	"context"
	"log/slog"
	"time"

	"domainflow/internal/platform/metrics"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 8
	baseBackoff        = 2 * time.Second
	maxBackoff         = 10 * time.Minute
)

// Worker drains the outbox: it wakes on the dispatcher signal or on a poll
// tick, delivers due entries through the sink, and reschedules failures
// with capped exponential backoff until the attempt budget runs out.
type Worker struct {
	store        OutboxStore
	sink         Sink
	dispatcher   *Dispatcher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
	maxAttempts  int
}

func NewWorker(store OutboxStore, sink Sink, dispatcher *Dispatcher, logger *slog.Logger, m *metrics.Metrics, pollInterval time.Duration) *Worker {
	return &Worker{
		store:        store,
		sink:         sink,
		dispatcher:   dispatcher,
		logger:       logger,
		metrics:      m,
		pollInterval: pollInterval,
		maxAttempts:  defaultMaxAttempts,
	}
}

// Run drains the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.dispatcher.Wake():
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		entries, err := w.store.Due(ctx, time.Now().UTC(), defaultBatchSize)
		if err != nil {
			w.logger.Error("outbox poll failed", "error", err)
			return
		}
		if len(entries) == 0 {
			return
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			w.deliver(ctx, entry)
		}
		if len(entries) < defaultBatchSize {
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, entry *OutboxEntry) {
	event, err := entry.Event()
	if err != nil {
		// Undecodable payloads can never succeed; park them.
		w.logger.Error("outbox entry is malformed", "entry_id", entry.ID, "error", err)
		if err := w.store.MarkFailed(ctx, entry.ID, entry.Attempts+1, err.Error()); err != nil {
			w.logger.Error("mark outbox entry failed", "entry_id", entry.ID, "error", err)
		}
		return
	}

	start := time.Now()
	sendErr := w.sink.Send(ctx, event)
	elapsed := time.Since(start).Seconds()

	if sendErr == nil {
		w.metrics.RecordDispatch("delivered", elapsed)
		if err := w.store.MarkDelivered(ctx, entry.ID, time.Now().UTC()); err != nil {
			w.logger.Error("mark outbox entry delivered", "entry_id", entry.ID, "error", err)
		}
		return
	}

	attempts := entry.Attempts + 1
	if attempts >= w.maxAttempts {
		w.metrics.RecordDispatch("failed", elapsed)
		w.logger.Error("notification dropped after retries",
			"entry_id", entry.ID, "event_type", event.Type, "attempts", attempts, "error", sendErr)
		if err := w.store.MarkFailed(ctx, entry.ID, attempts, sendErr.Error()); err != nil {
			w.logger.Error("mark outbox entry failed", "entry_id", entry.ID, "error", err)
		}
		return
	}

	w.metrics.RecordDispatch("retried", elapsed)
	next := time.Now().UTC().Add(backoff(attempts))
	w.logger.Warn("notification delivery failed, rescheduling",
		"entry_id", entry.ID, "event_type", event.Type, "attempts", attempts, "next_attempt", next, "error", sendErr)
	if err := w.store.Reschedule(ctx, entry.ID, attempts, next, sendErr.Error()); err != nil {
		w.logger.Error("reschedule outbox entry", "entry_id", entry.ID, "error", err)
	}
}

func backoff(attempts int) time.Duration {
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
