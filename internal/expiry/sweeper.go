// Package expiry runs the scheduled expiration sweep: at each configured
// threshold it selects the cohort of active domains expiring that many days
// out, commits their watermark (and deactivation, at day zero) as one batch,
// and only then notifies, fanning deliveries out concurrently.
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"domainflow/internal/audit"
	"domainflow/internal/domain"
	"domainflow/internal/notify"
	"domainflow/internal/platform/metrics"
)

// Thresholds are swept coarsest first so a domain that slipped past an
// earlier sweep still gets its finer notices, one per threshold at most.
var DefaultThresholds = []int{60, 30, 15, 0}

const maxConcurrentNotifies = 8

type Store interface {
	ListExpiring(ctx context.Context, from, to time.Time, threshold int) ([]*domain.DomainRecord, error)
	SaveDomainBatch(ctx context.Context, batch []*domain.DomainRecord) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditRecorder receives the expiration records the sweep commits. It is
// called only after the cohort batch is durably written; a domain whose
// commit failed must never reach the trail.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event)
}

type Sweeper struct {
	store      Store
	txr        TxRunner
	sink       notify.Sink
	trail      AuditRecorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	thresholds []int
	now        func() time.Time
}

func NewSweeper(store Store, txr TxRunner, sink notify.Sink, trail AuditRecorder, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		store:      store,
		txr:        txr,
		sink:       sink,
		trail:      trail,
		logger:     logger,
		metrics:    m,
		thresholds: DefaultThresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type sweepSummary struct {
	threshold int
	selected  int
	notified  int
	failed    int
}

// Sweep runs every threshold in order. A threshold whose commit fails is
// skipped whole, notifications included; its cohort stays eligible for the
// next run because the watermark never moved.
func (s *Sweeper) Sweep(ctx context.Context) {
	started := s.now()
	s.logger.Info("expiry sweep started", "thresholds", s.thresholds)

	for _, threshold := range s.thresholds {
		summary, err := s.sweepThreshold(ctx, threshold)
		if err != nil {
			s.logger.Error("expiry sweep threshold failed",
				"threshold_days", threshold, "error", err)
			continue
		}
		if summary.selected > 0 {
			s.logger.Info("expiry sweep threshold done",
				"threshold_days", summary.threshold,
				"selected", summary.selected,
				"notified", summary.notified,
				"failed", summary.failed)
		}
	}

	s.logger.Info("expiry sweep finished", "elapsed", s.now().Sub(started))
}

func (s *Sweeper) sweepThreshold(ctx context.Context, threshold int) (sweepSummary, error) {
	summary := sweepSummary{threshold: threshold}
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := day.AddDate(0, 0, threshold)
	to := from.AddDate(0, 0, 1)

	cohort, err := s.store.ListExpiring(ctx, from, to, threshold)
	if err != nil {
		s.metrics.RecordSweepFailure(strconv.Itoa(threshold), "select")
		return summary, fmt.Errorf("select cohort: %w", err)
	}
	summary.selected = len(cohort)
	s.metrics.RecordCohort(strconv.Itoa(threshold), len(cohort))
	if len(cohort) == 0 {
		return summary, nil
	}

	events := s.prepare(cohort, threshold, now)

	if err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.SaveDomainBatch(ctx, cohort)
	}); err != nil {
		s.metrics.RecordSweepFailure(strconv.Itoa(threshold), "commit")
		return summary, fmt.Errorf("commit cohort: %w", err)
	}

	if threshold == 0 && s.trail != nil {
		for _, d := range cohort {
			s.trail.Record(ctx, audit.Event{
				Action:     audit.ActionExpired,
				DomainID:   d.ID,
				DomainName: d.Name,
				ActorRole:  "SYSTEM",
			})
		}
	}

	summary.notified, summary.failed = s.dispatch(ctx, events)
	return summary, nil
}

// prepare mutates the cohort in place and builds the matching events. At the
// zero-day threshold the domain also deactivates.
func (s *Sweeper) prepare(cohort []*domain.DomainRecord, threshold int, now time.Time) []*domain.NotificationEvent {
	events := make([]*domain.NotificationEvent, 0, len(cohort))
	for _, d := range cohort {
		t := threshold
		d.LastNotifiedDays = &t

		eventType := domain.EventExpiryWarning
		remarks := fmt.Sprintf("domain %q expires in %d days", d.Name, threshold)
		if threshold == 0 {
			d.Active = false
			eventType = domain.EventDomainExpired
			remarks = fmt.Sprintf("domain %q has expired and was deactivated", d.Name)
		}

		events = append(events, &domain.NotificationEvent{
			Type:        eventType,
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{Role: "SYSTEM"},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name, Remarks: remarks},
			Recipients:  domain.RequesterRecipients(d),
		})
	}
	return events
}

// dispatch fans the cohort's notices out and waits for all of them. Failures
// are counted, not retried: the watermark already moved with the commit and
// a duplicate notice would be worse than a missed one.
func (s *Sweeper) dispatch(ctx context.Context, events []*domain.NotificationEvent) (notified, failed int) {
	results := make([]error, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentNotifies)
	for i, event := range events {
		g.Go(func() error {
			start := time.Now()
			err := s.sink.Send(gctx, event)
			if err != nil {
				s.metrics.RecordDispatch("failed", time.Since(start).Seconds())
				s.logger.Warn("expiry notice delivery failed",
					"domain_id", event.Data.DomainID, "event_type", event.Type, "error", err)
			} else {
				s.metrics.RecordDispatch("delivered", time.Since(start).Seconds())
			}
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range results {
		if err != nil {
			failed++
		} else {
			notified++
		}
	}
	return notified, failed
}
