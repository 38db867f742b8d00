// Package workflow implements the approval chain: ordered role-by-role
// verification of a domain request, and rejection, which parks the request
// until a renewal resets the chain.
package workflow

import (
	"context"
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
	"domainflow/internal/store"
	dErrors "domainflow/pkg/domain-errors"
)

// Store is the persistence the engines need. Mutating calls made inside
// RunInTx join the ambient transaction.
type Store interface {
	Domain(ctx context.Context, id domain.DomainID) (*domain.DomainRecord, error)
	VerificationByDomain(ctx context.Context, domainID domain.DomainID) (*domain.VerificationRecord, error)
	SaveVerification(ctx context.Context, v *domain.VerificationRecord) error
	LatestRenewal(ctx context.Context, domainID domain.DomainID) (*domain.RenewalRecord, error)
	SaveRenewal(ctx context.Context, r *domain.RenewalRecord) error
	OpenVerifications(ctx context.Context) ([]*domain.VerificationRecord, error)
}

// TxRunner executes fn atomically.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store      Store
	txr        TxRunner
	dispatcher *notify.Dispatcher
	trail      *audit.Trail
	order      domain.RoleOrder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(store Store, txr TxRunner, dispatcher *notify.Dispatcher, trail *audit.Trail, order domain.RoleOrder, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:      store,
		txr:        txr,
		dispatcher: dispatcher,
		trail:      trail,
		order:      order,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("domainflow/workflow"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Approve records role's verification of the domain request. The stage
// transition, the renewal sign-off stamp (when the HOD verifies a renewal)
// and the notification outbox entry commit as one unit.
func (s *Service) Approve(ctx context.Context, domainID domain.DomainID, actorNo domain.EmployeeNo, role domain.Role, remarks string) (*domain.VerificationRecord, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Approve", trace.WithAttributes(
		attribute.Int64("domain.id", int64(domainID)),
		attribute.String("role", role.String()),
	))
	defer span.End()

	idx := s.order.Index(role)
	if idx < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role "+role.String()+" is not part of the approval chain")
	}

	var (
		verification *domain.VerificationRecord
		event        *domain.NotificationEvent
		d            *domain.DomainRecord
	)
	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, verification, err = s.load(ctx, domainID)
		if err != nil {
			return err
		}
		if err := s.authorize(d, role, actorNo); err != nil {
			return err
		}

		now := s.now()
		if err := verification.Approve(idx, now, remarks); err != nil {
			return err
		}
		if role == domain.RoleHOD && d.InRenewal {
			if err := s.stampRenewal(ctx, d, actorNo, now); err != nil {
				return err
			}
		}
		if err := s.store.SaveVerification(ctx, verification); err != nil {
			return store.Translate(err, "verification")
		}

		event = &domain.NotificationEvent{
			Type:        domain.ApprovalEventType(role, d.InRenewal),
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{EmployeeNo: actorNo, Role: role},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name, Remarks: remarks},
			Recipients:  domain.ApprovalRecipients(d, s.order, role),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		s.metrics.RecordApproval(role.String(), "error")
		return nil, err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionApproved,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    actorNo,
		ActorRole:  role,
		Remarks:    remarks,
	})
	s.metrics.RecordApproval(role.String(), "ok")
	s.logger.Info("domain request verified",
		"domain_id", d.ID, "domain", d.Name, "role", role,
		"fully_verified", verification.FullyVerified, "in_renewal", d.InRenewal)
	return verification, nil
}

// Reject records role sending the request back. Only non-first chain roles
// may reject, and only while their own stage is still undecided.
func (s *Service) Reject(ctx context.Context, domainID domain.DomainID, actorNo domain.EmployeeNo, role domain.Role, remarks string) (*domain.VerificationRecord, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Reject", trace.WithAttributes(
		attribute.Int64("domain.id", int64(domainID)),
		attribute.String("role", role.String()),
	))
	defer span.End()

	idx := s.order.Index(role)
	if idx < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role "+role.String()+" is not part of the approval chain")
	}

	var (
		verification *domain.VerificationRecord
		d            *domain.DomainRecord
	)
	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, verification, err = s.load(ctx, domainID)
		if err != nil {
			return err
		}
		if err := s.authorize(d, role, actorNo); err != nil {
			return err
		}

		now := s.now()
		if err := verification.Reject(idx, now, remarks); err != nil {
			return err
		}
		if err := s.store.SaveVerification(ctx, verification); err != nil {
			return store.Translate(err, "verification")
		}

		event := &domain.NotificationEvent{
			Type:        domain.EventVerificationRejected,
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{EmployeeNo: actorNo, Role: role},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name, Remarks: remarks},
			Recipients:  domain.RequesterRecipients(d),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		s.metrics.RecordRejection(role.String(), "error")
		return nil, err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionRejected,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    actorNo,
		ActorRole:  role,
		Remarks:    remarks,
	})
	s.metrics.RecordRejection(role.String(), "ok")
	s.logger.Info("domain request sent back",
		"domain_id", d.ID, "domain", d.Name, "role", role, "remarks", remarks)
	return verification, nil
}

// PendingItem is one domain whose chain currently awaits the queried role.
type PendingItem struct {
	Domain       *domain.DomainRecord
	Verification *domain.VerificationRecord
}

// Pending lists the open domain requests waiting on role's decision. Fully
// verified and sent-back records await nobody and are excluded.
func (s *Service) Pending(ctx context.Context, role domain.Role) ([]PendingItem, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Pending", trace.WithAttributes(
		attribute.String("role", role.String()),
	))
	defer span.End()

	if s.order.Index(role) < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role "+role.String()+" is not part of the approval chain")
	}

	open, err := s.store.OpenVerifications(ctx)
	if err != nil {
		return nil, store.Translate(err, "verification records")
	}

	var items []PendingItem
	for _, v := range open {
		awaiting, ok := v.AwaitingRole()
		if !ok || awaiting != role {
			continue
		}
		d, err := s.store.Domain(ctx, v.DomainID)
		if err != nil {
			return nil, store.Translate(err, "domain")
		}
		items = append(items, PendingItem{Domain: d, Verification: v})
	}
	return items, nil
}

func (s *Service) load(ctx context.Context, domainID domain.DomainID) (*domain.DomainRecord, *domain.VerificationRecord, error) {
	d, err := s.store.Domain(ctx, domainID)
	if err != nil {
		return nil, nil, store.Translate(err, "domain")
	}
	v, err := s.store.VerificationByDomain(ctx, domainID)
	if err != nil {
		return nil, nil, store.Translate(err, "verification record")
	}
	return d, v, nil
}

func (s *Service) authorize(d *domain.DomainRecord, role domain.Role, actorNo domain.EmployeeNo) error {
	registered := d.Party(role)
	if registered == 0 {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("domain %q has no %s assigned", d.Name, role))
	}
	if registered != actorNo {
		return dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("employee %d is not the %s for domain %q", actorNo, role, d.Name))
	}
	return nil
}

// stampRenewal marks the open renewal cycle as signed off by the HOD.
func (s *Service) stampRenewal(ctx context.Context, d *domain.DomainRecord, actorNo domain.EmployeeNo, now time.Time) error {
	renewal, err := s.store.LatestRenewal(ctx, d.ID)
	if err != nil {
		return store.Translate(err, "renewal record")
	}
	if renewal.ApprovedAt != nil {
		return nil
	}
	renewal.ApprovedAt = &now
	renewal.ApproverNo = actorNo
	if err := s.store.SaveRenewal(ctx, renewal); err != nil {
		return store.Translate(err, "renewal record")
	}
	return nil
}

