package postgres

import (
	"context"
	"fmt"

	"domainflow/internal/domain"
)

func (s *Store) CreatePurchase(ctx context.Context, p *domain.PurchaseRecord) error {
	query := `
		INSERT INTO purchase_records (domain_id, webmaster_no, type, purchased_at, proof)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		p.DomainID, p.WebmasterNo, p.Type, p.PurchasedAt, p.Proof,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert purchase record: %w", err)
	}
	return nil
}

func (s *Store) ListPurchases(ctx context.Context, domainID domain.DomainID) ([]*domain.PurchaseRecord, error) {
	query := `
		SELECT id, domain_id, webmaster_no, type, purchased_at, proof
		FROM purchase_records WHERE domain_id = $1 ORDER BY id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, domainID)
	if err != nil {
		return nil, fmt.Errorf("list purchase records: %w", err)
	}
	defer rows.Close()

	var out []*domain.PurchaseRecord
	for rows.Next() {
		var p domain.PurchaseRecord
		if err := rows.Scan(&p.ID, &p.DomainID, &p.WebmasterNo, &p.Type, &p.PurchasedAt, &p.Proof); err != nil {
			return nil, fmt.Errorf("scan purchase record: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
