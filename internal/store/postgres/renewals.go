package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"domainflow/internal/domain"
	"domainflow/pkg/platform/sentinel"
)

func (s *Store) CreateRenewal(ctx context.Context, r *domain.RenewalRecord) error {
	query := `
		INSERT INTO renewal_records (domain_id, previous_name, reason, approver_no, approval_proof, approved_at, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		r.DomainID, r.PreviousName, r.Reason, r.ApproverNo, r.ApprovalProof, r.ApprovedAt, r.RequestedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert renewal record: %w", err)
	}
	return nil
}

func (s *Store) LatestRenewal(ctx context.Context, domainID domain.DomainID) (*domain.RenewalRecord, error) {
	query := `
		SELECT id, domain_id, previous_name, reason, approver_no, approval_proof, approved_at, requested_at
		FROM renewal_records WHERE domain_id = $1
		ORDER BY id DESC LIMIT 1
	`
	var r domain.RenewalRecord
	err := s.execer(ctx).QueryRowContext(ctx, query, domainID).Scan(
		&r.ID, &r.DomainID, &r.PreviousName, &r.Reason, &r.ApproverNo, &r.ApprovalProof, &r.ApprovedAt, &r.RequestedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select renewal record: %w", err)
	}
	return &r, nil
}

func (s *Store) SaveRenewal(ctx context.Context, r *domain.RenewalRecord) error {
	query := `
		UPDATE renewal_records
		SET previous_name = $2, reason = $3, approver_no = $4, approval_proof = $5, approved_at = $6
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		r.ID, r.PreviousName, r.Reason, r.ApproverNo, r.ApprovalProof, r.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("update renewal record: %w", err)
	}
	return requireRow(res)
}
