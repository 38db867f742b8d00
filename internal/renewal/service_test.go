package renewal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainflow/internal/domain"
	"domainflow/internal/notify"
	"domainflow/internal/platform/logger"
	"domainflow/internal/stakeholder"
	"domainflow/internal/store/memory"
	dErrors "domainflow/pkg/domain-errors"
	"domainflow/pkg/platform/sentinel"
)

// directoryStub resolves every chain role from a fixed table and can be told
// to lose a role, mimicking the degraded-directory fallback.
type directoryStub struct {
	byRole  map[domain.Role]domain.EmployeeNo
	missing domain.Role
}

func (d *directoryStub) ResolveRole(_ context.Context, role domain.Role, _, _ string) (*stakeholder.Record, error) {
	if role == d.missing {
		return nil, sentinel.ErrNotFound
	}
	no, ok := d.byRole[role]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &stakeholder.Record{EmployeeNo: no, Role: role}, nil
}

type RenewalServiceSuite struct {
	suite.Suite
	store     *memory.Store
	directory *directoryStub
	service   *Service
	order     domain.RoleOrder
	domainID  domain.DomainID
}

func TestRenewalServiceSuite(t *testing.T) {
	suite.Run(t, new(RenewalServiceSuite))
}

const requesterNo domain.EmployeeNo = 100

func (s *RenewalServiceSuite) SetupTest() {
	s.store = memory.New()
	s.order = domain.DefaultRoleOrder()
	s.directory = &directoryStub{byRole: map[domain.Role]domain.EmployeeNo{
		domain.RoleARM:       201,
		domain.RoleHOD:       202,
		domain.RoleED:        203,
		domain.RoleNetops:    204,
		domain.RoleWebmaster: 205,
		domain.RoleHodHPC:    206,
	}}
	log := logger.Discard()
	dispatcher := notify.NewDispatcher(s.store, log)
	s.service = NewService(s.store, s.store, s.directory, dispatcher, nil, s.order, log, nil)

	ctx := context.Background()
	d := &domain.DomainRecord{
		Name:      "legacy.example.org",
		Registrar: requesterNo,
		Parties: map[domain.Role]domain.EmployeeNo{
			domain.RoleARM: 101, domain.RoleHOD: 102, domain.RoleED: 103,
			domain.RoleNetops: 104, domain.RoleWebmaster: 105, domain.RoleHodHPC: 106,
		},
		AppliedAt:   time.Now().UTC(),
		PeriodYears: 1,
		Active:      true,
	}
	s.Require().NoError(s.store.CreateDomain(ctx, d))
	v := domain.NewVerificationRecord(d.ID, s.order)
	for i := range s.order {
		s.Require().NoError(v.Approve(i, time.Now().UTC(), ""))
	}
	s.Require().NoError(s.store.CreateVerification(ctx, v))
	s.domainID = d.ID
}

func (s *RenewalServiceSuite) request() Request {
	return Request{
		NewName:    "renewed.example.org",
		Reason:     "hosting moves to the new cluster",
		Department: "HPC",
		Centre:     "HQ",
	}
}

func (s *RenewalServiceSuite) TestApply() {
	ctx := context.Background()

	s.Run("unknown domain", func() {
		_, err := s.service.Apply(ctx, 999, requesterNo, s.request())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("only the requester may apply", func() {
		_, err := s.service.Apply(ctx, s.domainID, 555, s.request())
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing reason", func() {
		req := s.request()
		req.Reason = ""
		_, err := s.service.Apply(ctx, s.domainID, requesterNo, req)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("unresolvable stakeholder refuses the renewal untouched", func() {
		s.directory.missing = domain.RoleED
		_, err := s.service.Apply(ctx, s.domainID, requesterNo, s.request())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
		s.directory.missing = ""

		d, loadErr := s.store.Domain(ctx, s.domainID)
		s.Require().NoError(loadErr)
		s.False(d.InRenewal)
		s.Equal("legacy.example.org", d.Name)
	})

	s.Run("renewal snapshots, overwrites and resets atomically", func() {
		record, err := s.service.Apply(ctx, s.domainID, requesterNo, s.request())
		s.Require().NoError(err)
		s.Equal("legacy.example.org", record.PreviousName)
		s.Nil(record.ApprovedAt)
		s.Equal(domain.EmployeeNo(202), record.ApproverNo)

		d, err := s.store.Domain(ctx, s.domainID)
		s.Require().NoError(err)
		s.True(d.InRenewal)
		s.Equal("renewed.example.org", d.Name)
		s.Equal(domain.EmployeeNo(201), d.Party(domain.RoleARM))

		v, err := s.store.VerificationByDomain(ctx, s.domainID)
		s.Require().NoError(err)
		s.False(v.FullyVerified)
		for _, stage := range v.Stages {
			s.False(stage.Verified())
		}

		entries, err := s.store.Due(ctx, time.Now().UTC().Add(time.Minute), 10)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		event, err := entries[0].Event()
		s.Require().NoError(err)
		s.Equal(domain.EventRenewalRequested, event.Type)
	})

	s.Run("second renewal while one is open conflicts", func() {
		_, err := s.service.Apply(ctx, s.domainID, requesterNo, s.request())
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}
