package memory

import (
	"time"

	"domainflow/internal/domain"
	"domainflow/internal/notify"
)

// The store hands out copies so callers never share mutable state with it.

func cloneDomain(d *domain.DomainRecord) *domain.DomainRecord {
	out := *d
	out.Parties = make(map[domain.Role]domain.EmployeeNo, len(d.Parties))
	for k, v := range d.Parties {
		out.Parties[k] = v
	}
	out.ActivatedAt = cloneTime(d.ActivatedAt)
	out.LastRenewedAt = cloneTime(d.LastRenewedAt)
	out.ExpiresAt = cloneTime(d.ExpiresAt)
	out.LastNotifiedDays = cloneInt(d.LastNotifiedDays)
	out.VAPTProof = cloneBytes(d.VAPTProof)
	return &out
}

func cloneVerification(v *domain.VerificationRecord) *domain.VerificationRecord {
	out := *v
	out.Stages = make([]domain.StageState, len(v.Stages))
	for i, s := range v.Stages {
		s.VerifiedAt = cloneTime(s.VerifiedAt)
		s.SentBackAt = cloneTime(s.SentBackAt)
		out.Stages[i] = s
	}
	return &out
}

func cloneRenewal(r *domain.RenewalRecord) *domain.RenewalRecord {
	out := *r
	out.ApprovedAt = cloneTime(r.ApprovedAt)
	out.ApprovalProof = cloneBytes(r.ApprovalProof)
	return &out
}

func cloneTransfer(t *domain.TransferRecord) *domain.TransferRecord {
	out := *t
	out.Proof = cloneBytes(t.Proof)
	out.ApprovedAt = cloneTime(t.ApprovedAt)
	return &out
}

func clonePurchase(p *domain.PurchaseRecord) *domain.PurchaseRecord {
	out := *p
	out.Proof = cloneBytes(p.Proof)
	return &out
}

func cloneOutbox(e *notify.OutboxEntry) *notify.OutboxEntry {
	out := *e
	out.Payload = cloneBytes(e.Payload)
	out.DeliveredAt = cloneTime(e.DeliveredAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
