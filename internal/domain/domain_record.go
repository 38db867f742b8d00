package domain

import "time"

// DomainID identifies one domain application.
type DomainID int64

// EmployeeNo is the opaque identifier a stakeholder service resolves.
type EmployeeNo int64

// ServiceType classifies what the domain serves.
type ServiceType string

const (
	ServiceTypeWebsite     ServiceType = "WEBSITE"
	ServiceTypeAPI         ServiceType = "API"
	ServiceTypeApplication ServiceType = "APPLICATION"
)

// ComplianceStatus is a tri-state completion marker used for GIGW and MoU.
type ComplianceStatus string

const (
	ComplianceComplete   ComplianceStatus = "COMPLETE"
	ComplianceIncomplete ComplianceStatus = "INCOMPLETE"
	CompliancePending    ComplianceStatus = "PENDING"
)

// DomainRecord is the durable identity of one domain application. It is
// created at submission, mutated by renewal, purchase, deletion and the
// expiration sweep, and soft-deleted only.
type DomainRecord struct {
	ID          DomainID
	Name        string
	Description string
	ServiceType ServiceType

	// Stakeholders, one identifier per role in the chain plus the requester.
	Registrar EmployeeNo // DRM, the requester
	Parties   map[Role]EmployeeNo

	AppliedAt     time.Time
	ActivatedAt   *time.Time
	LastRenewedAt *time.Time
	ExpiresAt     *time.Time

	// LastNotifiedDays is the watermark: the finest expiry threshold (in
	// days) already notified for this domain, nil when never notified.
	LastNotifiedDays *int

	PeriodYears     int
	GIGWCompliance  ComplianceStatus
	MoUStatus       ComplianceStatus
	VAPTCompliant   bool
	VAPTProof       []byte
	ServerHardened  bool

	Active    bool
	Deleted   bool
	InRenewal bool
}

// Party returns the employee number registered for role. The requester is
// addressed through RoleDRM.
func (d *DomainRecord) Party(role Role) EmployeeNo {
	if role == RoleDRM {
		return d.Registrar
	}
	return d.Parties[role]
}

// PurchaseType distinguishes first purchase from renewal purchase.
type PurchaseType string

const (
	PurchaseNew     PurchaseType = "NEW"
	PurchaseRenewal PurchaseType = "RENEWAL"
)

// PurchaseRecord captures the webmaster's registration of a completed
// purchase; it activates the domain and closes any open renewal cycle.
type PurchaseRecord struct {
	ID          int64
	DomainID    DomainID
	WebmasterNo EmployeeNo
	Type        PurchaseType
	PurchasedAt time.Time
	Proof       []byte
}

// TransferRecord is one DRM-to-DRM handover request. At most one transfer
// may be open per domain; the HOD sign-off closes it and reassigns the
// requester.
type TransferRecord struct {
	ID         int64
	DomainID   DomainID
	FromNo     EmployeeNo // initiating DRM, the current requester
	ToNo       EmployeeNo // receiving DRM
	ApproverNo EmployeeNo // HOD who signs off
	Reason     string
	Proof      []byte
	Approved   bool
	CreatedAt  time.Time
	ApprovedAt *time.Time
}

// Open reports whether the transfer still awaits the HOD sign-off.
func (t *TransferRecord) Open() bool {
	return !t.Approved
}

// RenewalRecord exists once per renewal cycle; it holds what the domain
// looked like before the renewal overwrote it.
type RenewalRecord struct {
	ID             int64
	DomainID       DomainID
	PreviousName   string
	Reason         string
	ApproverNo     EmployeeNo // HOD who signs off the renewal
	ApprovalProof  []byte
	ApprovedAt     *time.Time // stamped when the HOD verifies the chain stage
	RequestedAt    time.Time
}
