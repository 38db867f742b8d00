package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"domainflow/internal/domain"
	"domainflow/pkg/platform/sentinel"
)

const transferColumns = "id, domain_id, from_no, to_no, approver_no, reason, proof, approved, created_at, approved_at"

func (s *Store) CreateTransfer(ctx context.Context, t *domain.TransferRecord) error {
	query := `
		INSERT INTO transfer_records (domain_id, from_no, to_no, approver_no, reason, proof, approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		t.DomainID, t.FromNo, t.ToNo, t.ApproverNo, t.Reason, t.Proof, t.Approved, t.CreatedAt,
	).Scan(&t.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

func (s *Store) Transfer(ctx context.Context, id int64) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_records WHERE id = $1`
	return s.scanTransfer(s.execer(ctx).QueryRowContext(ctx, query, id))
}

// OpenTransfer returns the domain's transfer still awaiting sign-off, if any.
func (s *Store) OpenTransfer(ctx context.Context, domainID domain.DomainID) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_records WHERE domain_id = $1 AND NOT approved`
	return s.scanTransfer(s.execer(ctx).QueryRowContext(ctx, query, domainID))
}

func (s *Store) SaveTransfer(ctx context.Context, t *domain.TransferRecord) error {
	query := `
		UPDATE transfer_records
		SET to_no = $2, approver_no = $3, reason = $4, proof = $5, approved = $6, approved_at = $7
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		t.ID, t.ToNo, t.ApproverNo, t.Reason, t.Proof, t.Approved, t.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("update transfer record: %w", err)
	}
	return requireRow(res)
}

// ListTransfers returns the transfers empNo can see: an HOD sees the ones
// awaiting their sign-off, anyone else the ones they initiated.
func (s *Store) ListTransfers(ctx context.Context, empNo domain.EmployeeNo, role domain.Role) ([]*domain.TransferRecord, error) {
	column := "from_no"
	if role == domain.RoleHOD {
		column = "approver_no"
	}
	query := `SELECT ` + transferColumns + ` FROM transfer_records WHERE ` + column + ` = $1 ORDER BY id`

	rows, err := s.execer(ctx).QueryContext(ctx, query, empNo)
	if err != nil {
		return nil, fmt.Errorf("select transfer records: %w", err)
	}
	defer rows.Close()

	var out []*domain.TransferRecord
	for rows.Next() {
		t, err := s.scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) scanTransfer(row rowScanner) (*domain.TransferRecord, error) {
	var t domain.TransferRecord
	err := row.Scan(
		&t.ID, &t.DomainID, &t.FromNo, &t.ToNo, &t.ApproverNo,
		&t.Reason, &t.Proof, &t.Approved, &t.CreatedAt, &t.ApprovedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transfer record: %w", err)
	}
	return &t, nil
}
