// Package transfer implements the DRM-to-DRM handover: the current requester
// opens a transfer naming the receiving DRM, the HOD signs it off, and the
// sign-off reassigns the domain's requester in the same transaction.
package transfer

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
	CreateTransfer(ctx context.Context, t *domain.TransferRecord) error
	Transfer(ctx context.Context, id int64) (*domain.TransferRecord, error)
	OpenTransfer(ctx context.Context, domainID domain.DomainID) (*domain.TransferRecord, error)
	SaveTransfer(ctx context.Context, t *domain.TransferRecord) error
	ListTransfers(ctx context.Context, empNo domain.EmployeeNo, role domain.Role) ([]*domain.TransferRecord, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Request is one transfer application.
type Request struct {
	ToNo       domain.EmployeeNo
	Reason     string
	Proof      []byte
	Department string
	Centre     string
}

type Service struct {
	store      Store
	txr        TxRunner
	resolver   stakeholder.Resolver
	dispatcher *notify.Dispatcher
	trail      *audit.Trail
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(st Store, txr TxRunner, resolver stakeholder.Resolver, dispatcher *notify.Dispatcher, trail *audit.Trail, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:      st,
		txr:        txr,
		resolver:   resolver,
		dispatcher: dispatcher,
		trail:      trail,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("domainflow/transfer"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Open files a transfer of the domain from its current requester to the
// receiving DRM. Only the requester may open one, the receiver must be a
// different DRM, and a domain can carry at most one open transfer.
func (s *Service) Open(ctx context.Context, domainID domain.DomainID, requesterNo domain.EmployeeNo, req Request) (*domain.TransferRecord, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.Open", trace.WithAttributes(
		attribute.Int64("domain.id", int64(domainID)),
	))
	defer span.End()

	if req.Reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "transfer reason is required")
	}
	if req.ToNo <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "receiving DRM is required")
	}
	if req.ToNo == requesterNo {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cannot transfer a domain to the same DRM")
	}

	d, err := s.store.Domain(ctx, domainID)
	if err != nil {
		return nil, store.Translate(err, "domain")
	}
	if d.Registrar != requesterNo {
		return nil, dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("employee %d is not the requester for domain %q", requesterNo, d.Name))
	}
	if !d.Active {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("domain %q is not active", d.Name))
	}

	if open, err := s.store.OpenTransfer(ctx, domainID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("transfer %d for domain %q is already in process", open.ID, d.Name))
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, store.Translate(err, "transfer record")
	}

	approver, err := s.resolveApprover(ctx, req.Department, req.Centre)
	if err != nil {
		return nil, err
	}

	now := s.now()
	transfer := &domain.TransferRecord{
		DomainID:   d.ID,
		FromNo:     requesterNo,
		ToNo:       req.ToNo,
		ApproverNo: approver,
		Reason:     req.Reason,
		Proof:      req.Proof,
		CreatedAt:  now,
	}

	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateTransfer(ctx, transfer); err != nil {
			return store.Translate(err, "transfer record")
		}

		event := &domain.NotificationEvent{
			Type:        domain.EventTransferRequested,
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{EmployeeNo: requesterNo, Role: domain.RoleDRM},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name, Remarks: req.Reason},
			Recipients:  transferRecipients(d, transfer),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionTransferRequested,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    requesterNo,
		ActorRole:  domain.RoleDRM,
		Remarks:    req.Reason,
	})
	s.metrics.RecordTransfer("requested")
	s.logger.Info("transfer opened",
		"transfer_id", transfer.ID, "domain_id", d.ID, "from", transfer.FromNo, "to", transfer.ToNo)
	return transfer, nil
}

// Approve is the HOD sign-off. It closes the transfer and reassigns the
// domain's requester to the receiving DRM atomically.
func (s *Service) Approve(ctx context.Context, transferID int64, approverNo domain.EmployeeNo) (*domain.TransferRecord, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.Approve", trace.WithAttributes(
		attribute.Int64("transfer.id", transferID),
	))
	defer span.End()

	transfer, err := s.store.Transfer(ctx, transferID)
	if err != nil {
		return nil, store.Translate(err, "transfer record")
	}
	if transfer.Approved {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("transfer %d has already been approved", transferID))
	}
	if transfer.ApproverNo != approverNo {
		return nil, dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("employee %d is not the approver for transfer %d", approverNo, transferID))
	}

	var d *domain.DomainRecord
	now := s.now()
	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		d, err = s.store.Domain(ctx, transfer.DomainID)
		if err != nil {
			return store.Translate(err, "domain")
		}

		d.Registrar = transfer.ToNo
		if err := s.store.SaveDomain(ctx, d); err != nil {
			return store.Translate(err, "domain")
		}

		transfer.Approved = true
		transfer.ApprovedAt = &now
		if err := s.store.SaveTransfer(ctx, transfer); err != nil {
			return store.Translate(err, "transfer record")
		}

		event := &domain.NotificationEvent{
			Type:        domain.EventTransferApproved,
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{EmployeeNo: approverNo, Role: domain.RoleHOD},
			Data: domain.EventData{
				DomainID:   d.ID,
				DomainName: d.Name,
				Remarks:    fmt.Sprintf("domain %q transferred to DRM %d", d.Name, transfer.ToNo),
			},
			Recipients: transferRecipients(d, transfer),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionTransferred,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    approverNo,
		ActorRole:  domain.RoleHOD,
	})
	s.metrics.RecordTransfer("approved")
	s.logger.Info("transfer approved",
		"transfer_id", transfer.ID, "domain_id", d.ID, "new_requester", transfer.ToNo)
	return transfer, nil
}

// Get returns one transfer to a party involved in it.
func (s *Service) Get(ctx context.Context, transferID int64, empNo domain.EmployeeNo) (*domain.TransferRecord, error) {
	transfer, err := s.store.Transfer(ctx, transferID)
	if err != nil {
		return nil, store.Translate(err, "transfer record")
	}
	if empNo != transfer.FromNo && empNo != transfer.ToNo && empNo != transfer.ApproverNo {
		return nil, dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("employee %d is not a party to transfer %d", empNo, transferID))
	}
	return transfer, nil
}

// List returns the caller's transfers. An HOD sees the ones still awaiting
// their sign-off; everyone else sees the ones they initiated.
func (s *Service) List(ctx context.Context, empNo domain.EmployeeNo, role domain.Role) ([]*domain.TransferRecord, error) {
	transfers, err := s.store.ListTransfers(ctx, empNo, role)
	if err != nil {
		return nil, store.Translate(err, "transfer records")
	}
	if role != domain.RoleHOD {
		return transfers, nil
	}
	open := make([]*domain.TransferRecord, 0, len(transfers))
	for _, t := range transfers {
		if t.Open() {
			open = append(open, t)
		}
	}
	return open, nil
}

// resolveApprover looks up the HOD who must sign the transfer off. The
// transfer is refused when no HOD resolves: it would sit unapprovable.
func (s *Service) resolveApprover(ctx context.Context, department, centre string) (domain.EmployeeNo, error) {
	rec, err := s.resolver.ResolveRole(ctx, domain.RoleHOD, department, centre)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound,
				fmt.Sprintf("no HOD could be resolved for department %q", department))
		}
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "stakeholder resolution failed")
	}
	return rec.EmployeeNo, nil
}

// transferRecipients addresses both DRMs and the signing HOD.
func transferRecipients(d *domain.DomainRecord, t *domain.TransferRecord) domain.Recipients {
	var r domain.Recipients
	r.Add(domain.RoleDRM, t.ToNo)
	r.Add(domain.RoleARM, d.Party(domain.RoleARM))
	r.Add(domain.RoleHOD, t.ApproverNo)
	return r
}
