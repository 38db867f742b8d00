// Package audit mirrors workflow decisions to Kafka. The stream is a
// best-effort operational record; the postgres store stays the source of
// truth for workflow state.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"domainflow/internal/domain"
	"domainflow/internal/platform/kafka"
)

// Event is one audit record on the wire.
type Event struct {
	Action     string            `json:"action"`
	DomainID   domain.DomainID   `json:"domain_id"`
	DomainName string            `json:"domain_name"`
	ActorNo    domain.EmployeeNo `json:"actor_no"`
	ActorRole  domain.Role       `json:"actor_role"`
	Remarks    string            `json:"remarks,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

const (
	ActionSubmitted  = "domain.submitted"
	ActionApproved   = "domain.approved"
	ActionRejected   = "domain.rejected"
	ActionRenewal    = "domain.renewal_requested"
	ActionPurchased  = "domain.purchased"
	ActionDeleted    = "domain.deleted"
	ActionExpired    = "domain.expired"

	ActionTransferRequested = "domain.transfer_requested"
	ActionTransferred       = "domain.transferred"
)

// Trail publishes audit events. A nil Trail drops them, which keeps the
// service usable without Kafka.
type Trail struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewTrail(producer *kafka.Producer, logger *slog.Logger) *Trail {
	if producer == nil {
		return nil
	}
	return &Trail{producer: producer, logger: logger}
}

// Record publishes the event keyed by domain so per-domain history stays
// ordered within a partition. Called after commit; failures are logged only.
func (t *Trail) Record(ctx context.Context, event Event) {
	if t == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.logger.Error("marshal audit event", "action", event.Action, "error", err)
		return
	}
	t.producer.Produce(ctx, strconv.FormatInt(int64(event.DomainID), 10), payload)
}
