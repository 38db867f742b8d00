// Package memory provides an in-memory store used by unit tests and local
// development. It mirrors the postgres store's behavior, including the
// optimistic version check on verification records and atomic transactions
// (implemented as snapshot and restore under a coarse lock).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"domainflow/internal/domain"
	"domainflow/internal/notify"
	"domainflow/pkg/platform/sentinel"
)

type Store struct {
	mu sync.RWMutex

	domains       map[domain.DomainID]*domain.DomainRecord
	verifications map[domain.DomainID]*domain.VerificationRecord
	renewals      map[int64]*domain.RenewalRecord
	transfers     map[int64]*domain.TransferRecord
	purchases     map[int64]*domain.PurchaseRecord
	outbox        map[uuid.UUID]*notify.OutboxEntry

	nextDomainID       int64
	nextVerificationID int64
	nextRenewalID      int64
	nextTransferID     int64
	nextPurchaseID     int64

	txMu sync.Mutex
}

func New() *Store {
	return &Store{
		domains:       make(map[domain.DomainID]*domain.DomainRecord),
		verifications: make(map[domain.DomainID]*domain.VerificationRecord),
		renewals:      make(map[int64]*domain.RenewalRecord),
		transfers:     make(map[int64]*domain.TransferRecord),
		purchases:     make(map[int64]*domain.PurchaseRecord),
		outbox:        make(map[uuid.UUID]*notify.OutboxEntry),
	}
}

// RunInTx executes fn atomically: state is snapshotted first and restored
// when fn returns an error. Transactions are serialized.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	domains       map[domain.DomainID]*domain.DomainRecord
	verifications map[domain.DomainID]*domain.VerificationRecord
	renewals      map[int64]*domain.RenewalRecord
	transfers     map[int64]*domain.TransferRecord
	purchases     map[int64]*domain.PurchaseRecord
	outbox        map[uuid.UUID]*notify.OutboxEntry
	ids           [5]int64
}

func (s *Store) snapshot() snapshotState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshotState{
		domains:       make(map[domain.DomainID]*domain.DomainRecord, len(s.domains)),
		verifications: make(map[domain.DomainID]*domain.VerificationRecord, len(s.verifications)),
		renewals:      make(map[int64]*domain.RenewalRecord, len(s.renewals)),
		transfers:     make(map[int64]*domain.TransferRecord, len(s.transfers)),
		purchases:     make(map[int64]*domain.PurchaseRecord, len(s.purchases)),
		outbox:        make(map[uuid.UUID]*notify.OutboxEntry, len(s.outbox)),
		ids:           [5]int64{s.nextDomainID, s.nextVerificationID, s.nextRenewalID, s.nextTransferID, s.nextPurchaseID},
	}
	for k, v := range s.domains {
		snap.domains[k] = cloneDomain(v)
	}
	for k, v := range s.verifications {
		snap.verifications[k] = cloneVerification(v)
	}
	for k, v := range s.renewals {
		snap.renewals[k] = cloneRenewal(v)
	}
	for k, v := range s.transfers {
		snap.transfers[k] = cloneTransfer(v)
	}
	for k, v := range s.purchases {
		snap.purchases[k] = clonePurchase(v)
	}
	for k, v := range s.outbox {
		snap.outbox[k] = cloneOutbox(v)
	}
	return snap
}

func (s *Store) restore(snap snapshotState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.domains = snap.domains
	s.verifications = snap.verifications
	s.renewals = snap.renewals
	s.transfers = snap.transfers
	s.purchases = snap.purchases
	s.outbox = snap.outbox
	s.nextDomainID = snap.ids[0]
	s.nextVerificationID = snap.ids[1]
	s.nextRenewalID = snap.ids[2]
	s.nextTransferID = snap.ids[3]
	s.nextPurchaseID = snap.ids[4]
}

// --- domains ---

func (s *Store) CreateDomain(ctx context.Context, d *domain.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.domains {
		if !existing.Deleted && existing.Name == d.Name {
			return sentinel.ErrConflict
		}
	}
	s.nextDomainID++
	d.ID = domain.DomainID(s.nextDomainID)
	s.domains[d.ID] = cloneDomain(d)
	return nil
}

func (s *Store) Domain(ctx context.Context, id domain.DomainID) (*domain.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[id]
	if !ok || d.Deleted {
		return nil, sentinel.ErrNotFound
	}
	return cloneDomain(d), nil
}

func (s *Store) DomainByName(ctx context.Context, name string) (*domain.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.domains {
		if !d.Deleted && d.Name == name {
			return cloneDomain(d), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) SaveDomain(ctx context.Context, d *domain.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.domains[d.ID] = cloneDomain(d)
	return nil
}

func (s *Store) ListByRegistrar(ctx context.Context, registrar domain.EmployeeNo) ([]*domain.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.DomainRecord
	for _, d := range s.domains {
		if !d.Deleted && d.Registrar == registrar {
			out = append(out, cloneDomain(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListExpiring selects active domains whose expiry falls inside [from, to)
// and that have not yet been notified at threshold or finer.
func (s *Store) ListExpiring(ctx context.Context, from, to time.Time, threshold int) ([]*domain.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.DomainRecord
	for _, d := range s.domains {
		if d.Deleted || !d.Active || d.ExpiresAt == nil {
			continue
		}
		if d.ExpiresAt.Before(from) || !d.ExpiresAt.Before(to) {
			continue
		}
		if d.LastNotifiedDays != nil && *d.LastNotifiedDays <= threshold {
			continue
		}
		out = append(out, cloneDomain(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveDomainBatch persists a sweep cohort as a unit.
func (s *Store) SaveDomainBatch(ctx context.Context, batch []*domain.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range batch {
		if _, ok := s.domains[d.ID]; !ok {
			return sentinel.ErrNotFound
		}
	}
	for _, d := range batch {
		s.domains[d.ID] = cloneDomain(d)
	}
	return nil
}

// --- verifications ---

func (s *Store) CreateVerification(ctx context.Context, v *domain.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.verifications[v.DomainID]; ok {
		return sentinel.ErrConflict
	}
	s.nextVerificationID++
	v.ID = s.nextVerificationID
	s.verifications[v.DomainID] = cloneVerification(v)
	return nil
}

func (s *Store) VerificationByDomain(ctx context.Context, domainID domain.DomainID) (*domain.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.verifications[domainID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneVerification(v), nil
}

// OpenVerifications lists records still moving through the chain: not fully
// verified, belonging to a live domain. Sorted by domain id.
func (s *Store) OpenVerifications(ctx context.Context) ([]*domain.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.VerificationRecord
	for domainID, v := range s.verifications {
		if v.FullyVerified {
			continue
		}
		d, ok := s.domains[domainID]
		if !ok || d.Deleted {
			continue
		}
		out = append(out, cloneVerification(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DomainID < out[j].DomainID })
	return out, nil
}

// SaveVerification persists v only when its version matches the stored one,
// then bumps the version. A mismatch means a concurrent writer won.
func (s *Store) SaveVerification(ctx context.Context, v *domain.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.verifications[v.DomainID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != v.Version {
		return sentinel.ErrStaleVersion
	}
	v.Version++
	s.verifications[v.DomainID] = cloneVerification(v)
	return nil
}

// --- renewals ---

func (s *Store) CreateRenewal(ctx context.Context, r *domain.RenewalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRenewalID++
	r.ID = s.nextRenewalID
	s.renewals[r.ID] = cloneRenewal(r)
	return nil
}

// LatestRenewal returns the most recent renewal record for the domain.
func (s *Store) LatestRenewal(ctx context.Context, domainID domain.DomainID) (*domain.RenewalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RenewalRecord
	for _, r := range s.renewals {
		if r.DomainID != domainID {
			continue
		}
		if latest == nil || r.ID > latest.ID {
			latest = r
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneRenewal(latest), nil
}

func (s *Store) SaveRenewal(ctx context.Context, r *domain.RenewalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.renewals[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.renewals[r.ID] = cloneRenewal(r)
	return nil
}

// --- transfers ---

func (s *Store) CreateTransfer(ctx context.Context, t *domain.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTransferID++
	t.ID = s.nextTransferID
	s.transfers[t.ID] = cloneTransfer(t)
	return nil
}

func (s *Store) Transfer(ctx context.Context, id int64) (*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTransfer(t), nil
}

// OpenTransfer returns the domain's transfer still awaiting sign-off, if any.
func (s *Store) OpenTransfer(ctx context.Context, domainID domain.DomainID) (*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transfers {
		if t.DomainID == domainID && t.Open() {
			return cloneTransfer(t), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) SaveTransfer(ctx context.Context, t *domain.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transfers[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.transfers[t.ID] = cloneTransfer(t)
	return nil
}

// ListTransfers returns the transfers empNo can see: an HOD sees the ones
// awaiting their sign-off, anyone else the ones they initiated.
func (s *Store) ListTransfers(ctx context.Context, empNo domain.EmployeeNo, role domain.Role) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TransferRecord, 0)
	for _, t := range s.transfers {
		if role == domain.RoleHOD && t.ApproverNo == empNo {
			out = append(out, cloneTransfer(t))
		} else if role != domain.RoleHOD && t.FromNo == empNo {
			out = append(out, cloneTransfer(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- purchases ---

func (s *Store) CreatePurchase(ctx context.Context, p *domain.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPurchaseID++
	p.ID = s.nextPurchaseID
	s.purchases[p.ID] = clonePurchase(p)
	return nil
}

func (s *Store) ListPurchases(ctx context.Context, domainID domain.DomainID) ([]*domain.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PurchaseRecord
	for _, p := range s.purchases {
		if p.DomainID == domainID {
			out = append(out, clonePurchase(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- outbox ---

func (s *Store) Append(ctx context.Context, entry *notify.OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbox[entry.ID] = cloneOutbox(entry)
	return nil
}

func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]*notify.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*notify.OutboxEntry
	for _, e := range s.outbox {
		if e.Status == notify.StatusPending && !e.NextAttemptAt.After(now) {
			out = append(out, cloneOutbox(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.outbox[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Status = notify.StatusDelivered
	e.DeliveredAt = &at
	return nil
}

func (s *Store) Reschedule(ctx context.Context, id uuid.UUID, attempts int, nextAttempt time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.outbox[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Attempts = attempts
	e.NextAttemptAt = nextAttempt
	e.LastError = lastErr
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.outbox[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Status = notify.StatusFailed
	e.Attempts = attempts
	e.LastError = lastErr
	return nil
}
