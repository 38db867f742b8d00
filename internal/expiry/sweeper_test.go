package expiry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainflow/internal/audit"
	"domainflow/internal/domain"
	"domainflow/internal/platform/logger"
	"domainflow/internal/store/memory"
)

// recordingSink collects dispatched events and can fail selected domains.
type recordingSink struct {
	mu      sync.Mutex
	events  []*domain.NotificationEvent
	failFor map[domain.DomainID]bool
}

func (r *recordingSink) Send(_ context.Context, event *domain.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[event.Data.DomainID] {
		return errors.New("endpoint down")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) byType(t domain.EventType) []*domain.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.NotificationEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// recordingTrail captures audit events instead of publishing them.
type recordingTrail struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingTrail) Record(_ context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTrail) recorded() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

// brokenBatchStore makes every cohort commit fail.
type brokenBatchStore struct {
	*memory.Store
}

func (b *brokenBatchStore) SaveDomainBatch(context.Context, []*domain.DomainRecord) error {
	return errors.New("batch write refused")
}

type SweeperSuite struct {
	suite.Suite
	store   *memory.Store
	sink    *recordingSink
	trail   *recordingTrail
	sweeper *Sweeper
	today   time.Time
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.store = memory.New()
	s.sink = &recordingSink{failFor: map[domain.DomainID]bool{}}
	s.trail = &recordingTrail{}
	s.today = time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)
	s.sweeper = NewSweeper(s.store, s.store, s.sink, s.trail, logger.Discard(), nil)
	s.sweeper.now = func() time.Time { return s.today }
}

// seed creates an active domain expiring daysOut days from today.
func (s *SweeperSuite) seed(name string, daysOut int) domain.DomainID {
	expires := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, daysOut)
	d := &domain.DomainRecord{
		Name:        name,
		Registrar:   100,
		Parties:     map[domain.Role]domain.EmployeeNo{domain.RoleARM: 101},
		AppliedAt:   s.today.AddDate(-1, 0, 0),
		ExpiresAt:   &expires,
		PeriodYears: 1,
		Active:      true,
	}
	s.Require().NoError(s.store.CreateDomain(context.Background(), d))
	return d.ID
}

func (s *SweeperSuite) domain(id domain.DomainID) *domain.DomainRecord {
	d, err := s.store.Domain(context.Background(), id)
	s.Require().NoError(err)
	return d
}

func (s *SweeperSuite) TestThresholdSelection() {
	ctx := context.Background()
	at60 := s.seed("sixty.example.org", 60)
	at30 := s.seed("thirty.example.org", 30)
	nowhere := s.seed("faraway.example.org", 200)

	s.sweeper.Sweep(ctx)

	s.Run("each domain is notified at its own threshold", func() {
		warnings := s.sink.byType(domain.EventExpiryWarning)
		s.Require().Len(warnings, 2)
		s.Equal(60, *s.domain(at60).LastNotifiedDays)
		s.Equal(30, *s.domain(at30).LastNotifiedDays)
		s.Nil(s.domain(nowhere).LastNotifiedDays)
	})

	s.Run("a second sweep the same day is silent", func() {
		s.sweeper.Sweep(ctx)
		s.Equal(2, s.sink.count())
	})

	s.Run("the watermark only moves toward finer thresholds", func() {
		// Twenty days later the 60-day domain sits in the 30-day window
		//(40 days out it matches nothing, so jump to day 30).
		s.today = s.today.AddDate(0, 0, 30)
		s.sweeper.Sweep(ctx)

		warnings := s.sink.byType(domain.EventExpiryWarning)
		s.Require().Len(warnings, 3)
		s.Equal(30, *s.domain(at60).LastNotifiedDays)
	})
}

func (s *SweeperSuite) TestExpiryDeactivates() {
	ctx := context.Background()
	id := s.seed("gone.example.org", 0)

	s.sweeper.Sweep(ctx)

	d := s.domain(id)
	s.False(d.Active)
	s.Equal(0, *d.LastNotifiedDays)

	expired := s.sink.byType(domain.EventDomainExpired)
	s.Require().Len(expired, 1)
	s.Equal(id, expired[0].Data.DomainID)
	s.NotNil(expired[0].Recipients.DRM)

	trail := s.trail.recorded()
	s.Require().Len(trail, 1)
	s.Equal(audit.ActionExpired, trail[0].Action)
	s.Equal(id, trail[0].DomainID)

	s.Run("an inactive domain leaves the sweep", func() {
		s.sweeper.Sweep(ctx)
		s.Len(s.sink.byType(domain.EventDomainExpired), 1)
	})
}

func (s *SweeperSuite) TestCommitFailureSuppressesNotifications() {
	ctx := context.Background()
	id := s.seed("stuck.example.org", 15)

	s.sweeper.store = &brokenBatchStore{Store: s.store}
	s.sweeper.Sweep(ctx)

	s.Zero(s.sink.count())
	s.Nil(s.domain(id).LastNotifiedDays)

	s.Run("the cohort is retried once commits work again", func() {
		s.sweeper.store = s.store
		s.sweeper.Sweep(ctx)
		s.Equal(1, s.sink.count())
		s.Equal(15, *s.domain(id).LastNotifiedDays)
	})
}

func (s *SweeperSuite) TestCommitFailureProducesNoAudit() {
	ctx := context.Background()
	id := s.seed("limbo.example.org", 0)

	s.sweeper.store = &brokenBatchStore{Store: s.store}
	s.sweeper.Sweep(ctx)

	s.Run("a domain that never deactivated leaves no expiration record", func() {
		s.Empty(s.trail.recorded())
		s.True(s.domain(id).Active)
	})

	s.Run("the record appears once the deactivation commits", func() {
		s.sweeper.store = s.store
		s.sweeper.Sweep(ctx)

		trail := s.trail.recorded()
		s.Require().Len(trail, 1)
		s.Equal(audit.ActionExpired, trail[0].Action)
		s.Equal(id, trail[0].DomainID)
		s.False(s.domain(id).Active)
	})
}

func (s *SweeperSuite) TestDispatchFailuresDoNotRetry() {
	ctx := context.Background()
	ok := s.seed("fine.example.org", 30)
	bad := s.seed("flaky.example.org", 30)
	s.sink.failFor[bad] = true

	s.sweeper.Sweep(ctx)

	s.Run("delivery failure does not hold the watermark back", func() {
		s.Equal(30, *s.domain(ok).LastNotifiedDays)
		s.Equal(30, *s.domain(bad).LastNotifiedDays)
		s.Equal(1, s.sink.count())
	})

	s.Run("the failed domain is not re-notified at the same threshold", func() {
		s.sink.failFor[bad] = false
		s.sweeper.Sweep(ctx)
		s.Equal(1, s.sink.count())
	})
}
