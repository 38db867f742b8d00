//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainflow/internal/domain"
	"domainflow/internal/notify"
	"domainflow/internal/store/postgres"
	"domainflow/pkg/platform/sentinel"
	"domainflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), postgres.Schema)
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx,
		"notification_outbox", "purchase_records", "renewal_records",
		"transfer_records", "verification_records", "domains")
	s.Require().NoError(err)
}

func newTestDomain(name string) *domain.DomainRecord {
	return &domain.DomainRecord{
		Name:        name,
		Description: "integration fixture",
		ServiceType: domain.ServiceTypeWebsite,
		Registrar:   100,
		Parties: map[domain.Role]domain.EmployeeNo{
			domain.RoleARM: 101,
			domain.RoleHOD: 102,
		},
		AppliedAt:      time.Now().UTC().Truncate(time.Microsecond),
		PeriodYears:    1,
		GIGWCompliance: domain.CompliancePending,
		MoUStatus:      domain.CompliancePending,
	}
}

func (s *PostgresStoreSuite) TestCreateDomain() {
	ctx := context.Background()

	s.Run("assigns an id and round-trips all fields", func() {
		d := newTestDomain("portal.example.org")
		s.Require().NoError(s.store.CreateDomain(ctx, d))
		s.Require().NotZero(d.ID)

		got, err := s.store.Domain(ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(d.Name, got.Name)
		s.Equal(d.ServiceType, got.ServiceType)
		s.Equal(d.Registrar, got.Registrar)
		s.Equal(d.Parties, got.Parties)
		s.WithinDuration(d.AppliedAt, got.AppliedAt, time.Millisecond)
		s.Nil(got.ExpiresAt)
		s.Nil(got.LastNotifiedDays)
	})

	s.Run("second live application for the same name conflicts", func() {
		err := s.store.CreateDomain(ctx, newTestDomain("portal.example.org"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("a soft-deleted domain frees its name", func() {
		first, err := s.store.DomainByName(ctx, "portal.example.org")
		s.Require().NoError(err)
		first.Deleted = true
		s.Require().NoError(s.store.SaveDomain(ctx, first))

		s.Require().NoError(s.store.CreateDomain(ctx, newTestDomain("portal.example.org")))
	})
}

func (s *PostgresStoreSuite) TestVerificationOptimisticLock() {
	ctx := context.Background()
	d := newTestDomain("lock.example.org")
	s.Require().NoError(s.store.CreateDomain(ctx, d))

	v := domain.NewVerificationRecord(d.ID, domain.DefaultRoleOrder())
	s.Require().NoError(s.store.CreateVerification(ctx, v))

	s.Run("save at the current version succeeds and bumps it", func() {
		loaded, err := s.store.VerificationByDomain(ctx, d.ID)
		s.Require().NoError(err)
		before := loaded.Version

		s.Require().NoError(loaded.Approve(0, time.Now().UTC(), "forwarded"))
		s.Require().NoError(s.store.SaveVerification(ctx, loaded))
		s.Equal(before+1, loaded.Version)
	})

	s.Run("save at a stale version is refused", func() {
		stale := domain.NewVerificationRecord(d.ID, domain.DefaultRoleOrder())
		stale.Version = 0
		err := s.store.SaveVerification(ctx, stale)
		s.Require().ErrorIs(err, sentinel.ErrStaleVersion)

		// The concurrent writer's stages survive.
		got, err := s.store.VerificationByDomain(ctx, d.ID)
		s.Require().NoError(err)
		s.True(got.Stages[0].Verified())
	})

	s.Run("save for an unknown domain reports not found", func() {
		ghost := domain.NewVerificationRecord(999999, domain.DefaultRoleOrder())
		err := s.store.SaveVerification(ctx, ghost)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestListExpiring() {
	ctx := context.Background()
	day := time.Now().UTC().Truncate(24 * time.Hour)

	expiring := func(name string, inDays int, watermark *int, active bool) *domain.DomainRecord {
		d := newTestDomain(name)
		s.Require().NoError(s.store.CreateDomain(ctx, d))
		exp := day.Add(time.Duration(inDays) * 24 * time.Hour)
		d.ExpiresAt = &exp
		d.LastNotifiedDays = watermark
		d.Active = active
		s.Require().NoError(s.store.SaveDomain(ctx, d))
		return d
	}

	sixty := 60
	fifteen := 15
	inWindow := expiring("due.example.org", 30, nil, true)
	notified := expiring("warned.example.org", 30, &sixty, true)
	alreadyAtFiner := expiring("done.example.org", 30, &fifteen, true)
	expiring("inactive.example.org", 30, nil, false)
	expiring("later.example.org", 31, nil, true)

	from := day.Add(30 * 24 * time.Hour)
	got, err := s.store.ListExpiring(ctx, from, from.Add(24*time.Hour), 30)
	s.Require().NoError(err)

	var names []string
	for _, d := range got {
		names = append(names, d.Name)
	}
	s.Equal([]string{inWindow.Name, notified.Name}, names)
	s.NotContains(names, alreadyAtFiner.Name)
}

func (s *PostgresStoreSuite) TestOutbox() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	newEntry := func(offset time.Duration) *notify.OutboxEntry {
		event := &domain.NotificationEvent{
			Type:      domain.EventApplicationSubmitted,
			Timestamp: now,
			Data:      domain.EventData{DomainID: 1, DomainName: "outbox.example.org"},
		}
		entry, err := notify.NewOutboxEntry(event, now.Add(offset))
		s.Require().NoError(err)
		s.Require().NoError(s.store.Append(ctx, entry))
		return entry
	}

	overdue := newEntry(-time.Minute)
	dueNow := newEntry(0)
	future := newEntry(time.Hour)

	s.Run("due returns pending entries in attempt order, not future ones", func() {
		got, err := s.store.Due(ctx, now, 10)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(overdue.ID, got[0].ID)
		s.Equal(dueNow.ID, got[1].ID)
	})

	s.Run("rescheduled entries leave the due set until their next attempt", func() {
		s.Require().NoError(s.store.Reschedule(ctx, dueNow.ID, 1, now.Add(10*time.Minute), "dial tcp: connection refused"))

		got, err := s.store.Due(ctx, now, 10)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(overdue.ID, got[0].ID)

		got, err = s.store.Due(ctx, now.Add(11*time.Minute), 10)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(1, got[1].Attempts)
		s.Equal("dial tcp: connection refused", got[1].LastError)
	})

	s.Run("delivered and failed entries never come back", func() {
		s.Require().NoError(s.store.MarkDelivered(ctx, overdue.ID, now))
		s.Require().NoError(s.store.MarkFailed(ctx, dueNow.ID, 8, "gave up"))

		got, err := s.store.Due(ctx, now.Add(24*time.Hour), 10)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(future.ID, got[0].ID)
	})
}

func (s *PostgresStoreSuite) TestRunInTxRollsBackEverything() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		d := newTestDomain("rollback.example.org")
		if err := s.store.CreateDomain(ctx, d); err != nil {
			return err
		}
		event := &domain.NotificationEvent{Type: domain.EventApplicationSubmitted, Timestamp: time.Now().UTC()}
		entry, err := notify.NewOutboxEntry(event, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := s.store.Append(ctx, entry); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.DomainByName(ctx, "rollback.example.org")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	due, err := s.store.Due(ctx, time.Now().UTC().Add(time.Hour), 10)
	s.Require().NoError(err)
	s.Empty(due)
}

func (s *PostgresStoreSuite) TestTransfers() {
	ctx := context.Background()
	d := newTestDomain("handover.example.org")
	s.Require().NoError(s.store.CreateDomain(ctx, d))

	t := &domain.TransferRecord{
		DomainID:   d.ID,
		FromNo:     100,
		ToNo:       110,
		ApproverNo: 202,
		Reason:     "group handover",
		CreatedAt:  time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateTransfer(ctx, t))

	s.Run("the open transfer is found by domain", func() {
		got, err := s.store.OpenTransfer(ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(t.ID, got.ID)
		s.True(got.Open())
	})

	s.Run("a second open transfer for the same domain conflicts", func() {
		dup := &domain.TransferRecord{
			DomainID: d.ID, FromNo: 100, ToNo: 120, ApproverNo: 202,
			Reason: "again", CreatedAt: time.Now().UTC(),
		}
		s.Require().ErrorIs(s.store.CreateTransfer(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("role-scoped listings", func() {
		byHod, err := s.store.ListTransfers(ctx, 202, domain.RoleHOD)
		s.Require().NoError(err)
		s.Require().Len(byHod, 1)

		byDrm, err := s.store.ListTransfers(ctx, 100, domain.RoleDRM)
		s.Require().NoError(err)
		s.Require().Len(byDrm, 1)

		none, err := s.store.ListTransfers(ctx, 110, domain.RoleDRM)
		s.Require().NoError(err)
		s.Empty(none)
	})

	s.Run("approval closes the transfer and frees the domain", func() {
		now := time.Now().UTC()
		t.Approved = true
		t.ApprovedAt = &now
		s.Require().NoError(s.store.SaveTransfer(ctx, t))

		_, err := s.store.OpenTransfer(ctx, d.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		got, err := s.store.Transfer(ctx, t.ID)
		s.Require().NoError(err)
		s.False(got.Open())
		s.NotNil(got.ApprovedAt)
	})
}

func (s *PostgresStoreSuite) TestRenewalsAndPurchases() {
	ctx := context.Background()
	d := newTestDomain("renew.example.org")
	s.Require().NoError(s.store.CreateDomain(ctx, d))

	s.Run("latest renewal is the most recent one", func() {
		first := &domain.RenewalRecord{DomainID: d.ID, PreviousName: d.Name, Reason: "expiring", ApproverNo: 102, RequestedAt: time.Now().UTC()}
		s.Require().NoError(s.store.CreateRenewal(ctx, first))
		second := &domain.RenewalRecord{DomainID: d.ID, PreviousName: d.Name, Reason: "rebrand", ApproverNo: 102, RequestedAt: time.Now().UTC()}
		s.Require().NoError(s.store.CreateRenewal(ctx, second))

		got, err := s.store.LatestRenewal(ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(second.ID, got.ID)
		s.Equal("rebrand", got.Reason)
	})

	s.Run("no renewal on record reports not found", func() {
		other := newTestDomain("quiet.example.org")
		s.Require().NoError(s.store.CreateDomain(ctx, other))
		_, err := s.store.LatestRenewal(ctx, other.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("purchases list in order", func() {
		p := &domain.PurchaseRecord{DomainID: d.ID, WebmasterNo: 105, Type: domain.PurchaseNew, PurchasedAt: time.Now().UTC()}
		s.Require().NoError(s.store.CreatePurchase(ctx, p))

		got, err := s.store.ListPurchases(ctx, d.ID)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(domain.PurchaseNew, got[0].Type)
		s.Equal(domain.EmployeeNo(105), got[0].WebmasterNo)
	})
}
