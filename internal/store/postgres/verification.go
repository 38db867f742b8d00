package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"domainflow/internal/domain"
	"domainflow/pkg/platform/sentinel"
)

func (s *Store) CreateVerification(ctx context.Context, v *domain.VerificationRecord) error {
	stages, err := json.Marshal(v.Stages)
	if err != nil {
		return fmt.Errorf("marshal stages: %w", err)
	}
	query := `
		INSERT INTO verification_records (domain_id, stages, fully_verified, version)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err = s.execer(ctx).QueryRowContext(ctx, query, v.DomainID, stages, v.FullyVerified, v.Version).Scan(&v.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification record: %w", err)
	}
	return nil
}

func (s *Store) VerificationByDomain(ctx context.Context, domainID domain.DomainID) (*domain.VerificationRecord, error) {
	query := `
		SELECT id, domain_id, stages, fully_verified, version
		FROM verification_records WHERE domain_id = $1
	`
	var (
		v      domain.VerificationRecord
		stages []byte
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, domainID).
		Scan(&v.ID, &v.DomainID, &stages, &v.FullyVerified, &v.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select verification record: %w", err)
	}
	if err := json.Unmarshal(stages, &v.Stages); err != nil {
		return nil, fmt.Errorf("unmarshal stages: %w", err)
	}
	return &v, nil
}

// OpenVerifications lists records still moving through the chain: not fully
// verified, belonging to a live domain.
func (s *Store) OpenVerifications(ctx context.Context) ([]*domain.VerificationRecord, error) {
	query := `
		SELECT v.id, v.domain_id, v.stages, v.fully_verified, v.version
		FROM verification_records v
		JOIN domains d ON d.id = v.domain_id
		WHERE NOT v.fully_verified AND NOT d.deleted
		ORDER BY v.domain_id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select open verification records: %w", err)
	}
	defer rows.Close()

	var out []*domain.VerificationRecord
	for rows.Next() {
		var (
			v      domain.VerificationRecord
			stages []byte
		)
		if err := rows.Scan(&v.ID, &v.DomainID, &stages, &v.FullyVerified, &v.Version); err != nil {
			return nil, fmt.Errorf("scan verification record: %w", err)
		}
		if err := json.Unmarshal(stages, &v.Stages); err != nil {
			return nil, fmt.Errorf("unmarshal stages: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// SaveVerification writes v guarded by its version. Zero rows affected means
// a concurrent writer bumped the version first; the caller reloads and
// re-checks its precondition.
func (s *Store) SaveVerification(ctx context.Context, v *domain.VerificationRecord) error {
	stages, err := json.Marshal(v.Stages)
	if err != nil {
		return fmt.Errorf("marshal stages: %w", err)
	}
	query := `
		UPDATE verification_records
		SET stages = $3, fully_verified = $4, version = version + 1
		WHERE domain_id = $1 AND version = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, v.DomainID, v.Version, stages, v.FullyVerified)
	if err != nil {
		return fmt.Errorf("update verification record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing record from a lost race.
		if _, lookupErr := s.VerificationByDomain(ctx, v.DomainID); errors.Is(lookupErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStaleVersion
	}
	v.Version++
	return nil
}
