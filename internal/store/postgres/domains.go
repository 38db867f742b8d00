package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"domainflow/internal/domain"
	"domainflow/pkg/platform/sentinel"
)

const domainColumns = `
	id, name, description, service_type, registrar, parties,
	applied_at, activated_at, last_renewed_at, expires_at, last_notified_days,
	period_years, gigw_compliance, mou_status, vapt_compliant, vapt_proof,
	server_hardened, active, deleted, in_renewal`

func (s *Store) CreateDomain(ctx context.Context, d *domain.DomainRecord) error {
	parties, err := json.Marshal(d.Parties)
	if err != nil {
		return fmt.Errorf("marshal parties: %w", err)
	}
	query := `
		INSERT INTO domains (
			name, description, service_type, registrar, parties,
			applied_at, activated_at, last_renewed_at, expires_at, last_notified_days,
			period_years, gigw_compliance, mou_status, vapt_compliant, vapt_proof,
			server_hardened, active, deleted, in_renewal
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING id
	`
	err = s.execer(ctx).QueryRowContext(ctx, query,
		d.Name, d.Description, d.ServiceType, d.Registrar, parties,
		d.AppliedAt, d.ActivatedAt, d.LastRenewedAt, d.ExpiresAt, d.LastNotifiedDays,
		d.PeriodYears, d.GIGWCompliance, d.MoUStatus, d.VAPTCompliant, d.VAPTProof,
		d.ServerHardened, d.Active, d.Deleted, d.InRenewal,
	).Scan(&d.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert domain: %w", err)
	}
	return nil
}

func (s *Store) Domain(ctx context.Context, id domain.DomainID) (*domain.DomainRecord, error) {
	query := `SELECT` + domainColumns + ` FROM domains WHERE id = $1 AND NOT deleted`
	return s.scanDomain(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Store) DomainByName(ctx context.Context, name string) (*domain.DomainRecord, error) {
	query := `SELECT` + domainColumns + ` FROM domains WHERE name = $1 AND NOT deleted`
	return s.scanDomain(s.execer(ctx).QueryRowContext(ctx, query, name))
}

func (s *Store) SaveDomain(ctx context.Context, d *domain.DomainRecord) error {
	parties, err := json.Marshal(d.Parties)
	if err != nil {
		return fmt.Errorf("marshal parties: %w", err)
	}
	query := `
		UPDATE domains SET
			name = $2, description = $3, service_type = $4, registrar = $5, parties = $6,
			applied_at = $7, activated_at = $8, last_renewed_at = $9, expires_at = $10,
			last_notified_days = $11, period_years = $12, gigw_compliance = $13,
			mou_status = $14, vapt_compliant = $15, vapt_proof = $16,
			server_hardened = $17, active = $18, deleted = $19, in_renewal = $20
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		d.ID, d.Name, d.Description, d.ServiceType, d.Registrar, parties,
		d.AppliedAt, d.ActivatedAt, d.LastRenewedAt, d.ExpiresAt,
		d.LastNotifiedDays, d.PeriodYears, d.GIGWCompliance,
		d.MoUStatus, d.VAPTCompliant, d.VAPTProof,
		d.ServerHardened, d.Active, d.Deleted, d.InRenewal,
	)
	if err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListByRegistrar(ctx context.Context, registrar domain.EmployeeNo) ([]*domain.DomainRecord, error) {
	query := `SELECT` + domainColumns + ` FROM domains WHERE registrar = $1 AND NOT deleted ORDER BY id`
	rows, err := s.execer(ctx).QueryContext(ctx, query, registrar)
	if err != nil {
		return nil, fmt.Errorf("list domains by registrar: %w", err)
	}
	return s.collectDomains(rows)
}

// ListExpiring selects the cohort for one expiry threshold: active domains
// expiring inside [from, to) not yet notified at threshold or finer.
func (s *Store) ListExpiring(ctx context.Context, from, to time.Time, threshold int) ([]*domain.DomainRecord, error) {
	query := `
		SELECT` + domainColumns + `
		FROM domains
		WHERE active AND NOT deleted
		  AND expires_at >= $1 AND expires_at < $2
		  AND (last_notified_days IS NULL OR last_notified_days > $3)
		ORDER BY id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, from, to, threshold)
	if err != nil {
		return nil, fmt.Errorf("list expiring domains: %w", err)
	}
	return s.collectDomains(rows)
}

// SaveDomainBatch persists one sweep cohort. Callers run it inside RunInTx
// so a partial batch never commits.
func (s *Store) SaveDomainBatch(ctx context.Context, batch []*domain.DomainRecord) error {
	for _, d := range batch {
		if err := s.SaveDomain(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) collectDomains(rows *sql.Rows) ([]*domain.DomainRecord, error) {
	defer rows.Close()
	var out []*domain.DomainRecord
	for rows.Next() {
		d, err := s.scanDomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanDomain(row rowScanner) (*domain.DomainRecord, error) {
	var (
		d       domain.DomainRecord
		parties []byte
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &d.ServiceType, &d.Registrar, &parties,
		&d.AppliedAt, &d.ActivatedAt, &d.LastRenewedAt, &d.ExpiresAt, &d.LastNotifiedDays,
		&d.PeriodYears, &d.GIGWCompliance, &d.MoUStatus, &d.VAPTCompliant, &d.VAPTProof,
		&d.ServerHardened, &d.Active, &d.Deleted, &d.InRenewal,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan domain: %w", err)
	}
	if err := json.Unmarshal(parties, &d.Parties); err != nil {
		return nil, fmt.Errorf("unmarshal parties: %w", err)
	}
	return &d, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
