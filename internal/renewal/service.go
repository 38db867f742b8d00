// Package renewal implements the renewal application: it re-resolves the
// stakeholder chain, snapshots the outgoing domain into a renewal record,
// overwrites the domain with the renewed details and resets verification so
// the request re-enters the approval chain from the front.
package renewal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"domainflow/internal/audit"
	"domainflow/internal/domain"
	"domainflow/internal/notify"
	"domainflow/internal/platform/metrics"
	"domainflow/internal/stakeholder"
	"domainflow/internal/store"
	dErrors "domainflow/pkg/domain-errors"
	"domainflow/pkg/platform/sentinel"
)

type Store interface {
	Domain(ctx context.Context, id domain.DomainID) (*domain.DomainRecord, error)
	SaveDomain(ctx context.Context, d *domain.DomainRecord) error
	VerificationByDomain(ctx context.Context, domainID domain.DomainID) (*domain.VerificationRecord, error)
	SaveVerification(ctx context.Context, v *domain.VerificationRecord) error
	CreateRenewal(ctx context.Context, r *domain.RenewalRecord) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Request is one renewal application.
type Request struct {
	NewName     string
	Reason      string
	Proof       []byte
	PeriodYears int
	Department  string
	Centre      string
}

type Service struct {
	store      Store
	txr        TxRunner
	resolver   stakeholder.Resolver
	dispatcher *notify.Dispatcher
	trail      *audit.Trail
	order      domain.RoleOrder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(st Store, txr TxRunner, resolver stakeholder.Resolver, dispatcher *notify.Dispatcher, trail *audit.Trail, order domain.RoleOrder, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:      st,
		txr:        txr,
		resolver:   resolver,
		dispatcher: dispatcher,
		trail:      trail,
		order:      order,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("domainflow/renewal"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Apply opens a renewal cycle for the domain. Only the requester may apply,
// and only one cycle can be open at a time. Stakeholders are re-resolved
// before the transaction so the reset chain addresses the current role
// holders, not the ones from the original application.
func (s *Service) Apply(ctx context.Context, domainID domain.DomainID, requesterNo domain.EmployeeNo, req Request) (*domain.RenewalRecord, error) {
	ctx, span := s.tracer.Start(ctx, "renewal.Apply", trace.WithAttributes(
		attribute.Int64("domain.id", int64(domainID)),
	))
	defer span.End()

	if req.Reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "renewal reason is required")
	}

	d, err := s.store.Domain(ctx, domainID)
	if err != nil {
		return nil, store.Translate(err, "domain")
	}
	if d.Registrar != requesterNo {
		return nil, dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("employee %d is not the requester for domain %q", requesterNo, d.Name))
	}
	if d.InRenewal {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("domain %q already has an open renewal cycle", d.Name))
	}

	parties, err := s.resolveChain(ctx, req.Department, req.Centre)
	if err != nil {
		return nil, err
	}

	now := s.now()
	renewal := &domain.RenewalRecord{
		DomainID:      d.ID,
		PreviousName:  d.Name,
		Reason:        req.Reason,
		ApproverNo:    parties[domain.RoleHOD],
		ApprovalProof: req.Proof,
		RequestedAt:   now,
	}

	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		verification, err := s.store.VerificationByDomain(ctx, d.ID)
		if err != nil {
			return store.Translate(err, "verification record")
		}

		if err := s.store.CreateRenewal(ctx, renewal); err != nil {
			return store.Translate(err, "renewal record")
		}

		if req.NewName != "" {
			d.Name = req.NewName
		}
		if req.PeriodYears > 0 {
			d.PeriodYears = req.PeriodYears
		}
		d.Parties = parties
		d.InRenewal = true
		if err := s.store.SaveDomain(ctx, d); err != nil {
			return store.Translate(err, "domain")
		}

		verification.Reset()
		if err := s.store.SaveVerification(ctx, verification); err != nil {
			return store.Translate(err, "verification record")
		}

		event := &domain.NotificationEvent{
			Type:        domain.EventRenewalRequested,
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{EmployeeNo: requesterNo, Role: domain.RoleDRM},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name, Remarks: req.Reason},
			Recipients:  domain.RequesterRecipients(d),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionRenewal,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    requesterNo,
		ActorRole:  domain.RoleDRM,
		Remarks:    req.Reason,
	})
	s.metrics.RecordRenewal()
	s.logger.Info("renewal cycle opened",
		"domain_id", d.ID, "domain", d.Name, "previous_name", renewal.PreviousName)
	return renewal, nil
}

// resolveChain looks up every chain role in the stakeholder directory. The
// renewal is refused outright when any role cannot be resolved: a chain with
// a hole would strand the request at the missing stage.
func (s *Service) resolveChain(ctx context.Context, department, centre string) (map[domain.Role]domain.EmployeeNo, error) {
	parties := make(map[domain.Role]domain.EmployeeNo, len(s.order))
	for _, role := range s.order {
		rec, err := s.resolver.ResolveRole(ctx, role, department, centre)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound,
					fmt.Sprintf("no %s could be resolved for department %q", role, department))
			}
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "stakeholder resolution failed")
		}
		parties[role] = rec.EmployeeNo
	}
	return parties, nil
}
