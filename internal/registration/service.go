// Package registration covers the domain record lifecycle outside the
// approval chain itself: submitting an application, registering the
// purchase of a fully verified domain, soft deletion and lookups.
package registration

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
	CreateDomain(ctx context.Context, d *domain.DomainRecord) error
	Domain(ctx context.Context, id domain.DomainID) (*domain.DomainRecord, error)
	SaveDomain(ctx context.Context, d *domain.DomainRecord) error
	ListByRegistrar(ctx context.Context, registrar domain.EmployeeNo) ([]*domain.DomainRecord, error)
	CreateVerification(ctx context.Context, v *domain.VerificationRecord) error
	VerificationByDomain(ctx context.Context, domainID domain.DomainID) (*domain.VerificationRecord, error)
	CreatePurchase(ctx context.Context, p *domain.PurchaseRecord) error
	ListPurchases(ctx context.Context, domainID domain.DomainID) ([]*domain.PurchaseRecord, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Application is one new domain request.
type Application struct {
	Name           string
	Description    string
	ServiceType    domain.ServiceType
	PeriodYears    int
	Department     string
	Centre         string
	GIGWCompliance domain.ComplianceStatus
	MoUStatus      domain.ComplianceStatus
	VAPTCompliant  bool
	VAPTProof      []byte
	ServerHardened bool
}

// Purchase is the webmaster's report that a verified domain was bought.
type Purchase struct {
	PeriodYears int
	Proof       []byte
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
		tracer:     otel.Tracer("domainflow/registration"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit files a new domain application: the stakeholder chain is resolved,
// the record and its blank verification are created together and the
// requester side is notified.
func (s *Service) Submit(ctx context.Context, requesterNo domain.EmployeeNo, app Application) (*domain.DomainRecord, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Submit", trace.WithAttributes(
		attribute.String("domain.name", app.Name),
	))
	defer span.End()

	if app.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "domain name is required")
	}
	if app.PeriodYears <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registration period must be at least one year")
	}

	parties, err := s.resolveChain(ctx, app.Department, app.Centre)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.DomainRecord{
		Name:           app.Name,
		Description:    app.Description,
		ServiceType:    app.ServiceType,
		Registrar:      requesterNo,
		Parties:        parties,
		AppliedAt:      now,
		PeriodYears:    app.PeriodYears,
		GIGWCompliance: app.GIGWCompliance,
		MoUStatus:      app.MoUStatus,
		VAPTCompliant:  app.VAPTCompliant,
		VAPTProof:      app.VAPTProof,
		ServerHardened: app.ServerHardened,
	}

	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateDomain(ctx, d); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict,
					fmt.Sprintf("domain %q already has an open application", d.Name))
			}
			return store.Translate(err, "domain")
		}
		if err := s.store.CreateVerification(ctx, domain.NewVerificationRecord(d.ID, s.order)); err != nil {
			return store.Translate(err, "verification record")
		}

		event := &domain.NotificationEvent{
			Type:        domain.EventApplicationSubmitted,
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{EmployeeNo: requesterNo, Role: domain.RoleDRM},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name, Remarks: app.Description},
			Recipients:  domain.RequesterRecipients(d),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionSubmitted,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    requesterNo,
		ActorRole:  domain.RoleDRM,
	})
	s.metrics.RecordApplication()
	s.logger.Info("domain application submitted", "domain_id", d.ID, "domain", d.Name)
	return d, nil
}

// RegisterPurchase activates a fully verified domain. The expiry clock
// starts (or restarts) here, the watermark clears so a renewed domain earns
// a fresh round of expiry notices, and any open renewal cycle closes.
func (s *Service) RegisterPurchase(ctx context.Context, domainID domain.DomainID, webmasterNo domain.EmployeeNo, p Purchase) (*domain.DomainRecord, error) {
	ctx, span := s.tracer.Start(ctx, "registration.RegisterPurchase", trace.WithAttributes(
		attribute.Int64("domain.id", int64(domainID)),
	))
	defer span.End()

	var d *domain.DomainRecord
	now := s.now()

	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.store.Domain(ctx, domainID)
		if err != nil {
			return store.Translate(err, "domain")
		}
		if d.Party(domain.RoleWebmaster) != webmasterNo {
			return dErrors.New(dErrors.CodeUnauthorized,
				fmt.Sprintf("employee %d is not the webmaster for domain %q", webmasterNo, d.Name))
		}

		verification, err := s.store.VerificationByDomain(ctx, domainID)
		if err != nil {
			return store.Translate(err, "verification record")
		}
		if !verification.FullyVerified {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("domain %q is not fully verified yet", d.Name))
		}

		purchaseType := domain.PurchaseNew
		if d.InRenewal {
			purchaseType = domain.PurchaseRenewal
		}
		record := &domain.PurchaseRecord{
			DomainID:    d.ID,
			WebmasterNo: webmasterNo,
			Type:        purchaseType,
			PurchasedAt: now,
			Proof:       p.Proof,
		}
		if err := s.store.CreatePurchase(ctx, record); err != nil {
			return store.Translate(err, "purchase record")
		}

		years := d.PeriodYears
		if p.PeriodYears > 0 {
			years = p.PeriodYears
			d.PeriodYears = years
		}
		expires := now.AddDate(years, 0, 0)
		d.ExpiresAt = &expires
		if purchaseType == domain.PurchaseRenewal {
			d.LastRenewedAt = &now
		} else {
			d.ActivatedAt = &now
		}
		d.LastNotifiedDays = nil
		d.Active = true
		d.InRenewal = false
		if err := s.store.SaveDomain(ctx, d); err != nil {
			return store.Translate(err, "domain")
		}

		event := &domain.NotificationEvent{
			Type:        domain.EventDomainActivated,
			Timestamp:   now,
			TriggeredBy: domain.TriggeredBy{EmployeeNo: webmasterNo, Role: domain.RoleWebmaster},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name},
			Recipients:  domain.RequesterRecipients(d),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionPurchased,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    webmasterNo,
		ActorRole:  domain.RoleWebmaster,
	})
	s.metrics.RecordPurchase()
	s.logger.Info("domain purchase registered",
		"domain_id", d.ID, "domain", d.Name, "expires_at", d.ExpiresAt)
	return d, nil
}

// Delete soft-deletes the domain. Only the requester may delete; the record
// stays around for audit but drops out of every lookup and sweep.
func (s *Service) Delete(ctx context.Context, domainID domain.DomainID, requesterNo domain.EmployeeNo) error {
	ctx, span := s.tracer.Start(ctx, "registration.Delete", trace.WithAttributes(
		attribute.Int64("domain.id", int64(domainID)),
	))
	defer span.End()

	var d *domain.DomainRecord
	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.store.Domain(ctx, domainID)
		if err != nil {
			return store.Translate(err, "domain")
		}
		if d.Registrar != requesterNo {
			return dErrors.New(dErrors.CodeUnauthorized,
				fmt.Sprintf("employee %d is not the requester for domain %q", requesterNo, d.Name))
		}

		d.Deleted = true
		d.Active = false
		if err := s.store.SaveDomain(ctx, d); err != nil {
			return store.Translate(err, "domain")
		}

		event := &domain.NotificationEvent{
			Type:        domain.EventDomainDeleted,
			Timestamp:   s.now(),
			TriggeredBy: domain.TriggeredBy{EmployeeNo: requesterNo, Role: domain.RoleDRM},
			Data:        domain.EventData{DomainID: d.ID, DomainName: d.Name},
			Recipients:  domain.RequesterRecipients(d),
		}
		return s.dispatcher.Enqueue(ctx, event)
	})
	if err != nil {
		return err
	}

	s.dispatcher.Kick()
	s.trail.Record(ctx, audit.Event{
		Action:     audit.ActionDeleted,
		DomainID:   d.ID,
		DomainName: d.Name,
		ActorNo:    requesterNo,
		ActorRole:  domain.RoleDRM,
	})
	s.logger.Info("domain deleted", "domain_id", d.ID, "domain", d.Name)
	return nil
}

// Get returns the domain and its verification state.
func (s *Service) Get(ctx context.Context, domainID domain.DomainID) (*domain.DomainRecord, *domain.VerificationRecord, error) {
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

// ListMine returns the requester's domains.
func (s *Service) ListMine(ctx context.Context, requesterNo domain.EmployeeNo) ([]*domain.DomainRecord, error) {
	out, err := s.store.ListByRegistrar(ctx, requesterNo)
	if err != nil {
		return nil, store.Translate(err, "domains")
	}
	return out, nil
}

// Purchases returns the purchase history of one domain.
func (s *Service) Purchases(ctx context.Context, domainID domain.DomainID) ([]*domain.PurchaseRecord, error) {
	if _, err := s.store.Domain(ctx, domainID); err != nil {
		return nil, store.Translate(err, "domain")
	}
	out, err := s.store.ListPurchases(ctx, domainID)
	if err != nil {
		return nil, store.Translate(err, "purchase records")
	}
	return out, nil
}

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
