package domain

import (
	"fmt"
	"time"

	dErrors "domainflow/pkg/domain-errors"
)

// StageState is one role's slot in the verification chain. A stage is
// verified when VerifiedAt is set and sent back when SentBackAt is set. For
// the first role in the chain "verified" means "forwarded": the ARM does not
// approve, it forwards the request into the chain.
type StageState struct {
	Role       Role
	VerifiedAt *time.Time
	SentBackAt *time.Time
	Remarks    string
}

// Verified reports whether this stage has been approved (or forwarded, for
// the first stage).
func (s StageState) Verified() bool { return s.VerifiedAt != nil }

// SentBack reports whether this stage has rejected the request.
func (s StageState) SentBack() bool { return s.SentBackAt != nil }

// VerificationRecord tracks one domain's progress through the approval
// chain. There is exactly one per DomainRecord; renewal resets it whole.
//
// Version is an optimistic concurrency token: stores refuse to persist a
// record whose version does not match the stored one, so two simultaneous
// approvals by the same role cannot both pass the precondition check.
type VerificationRecord struct {
	ID            int64
	DomainID      DomainID
	Stages        []StageState
	FullyVerified bool
	Version       int64
}

// NewVerificationRecord creates the all-false record that accompanies a
// fresh domain application.
func NewVerificationRecord(domainID DomainID, order RoleOrder) *VerificationRecord {
	stages := make([]StageState, len(order))
	for i, role := range order {
		stages[i] = StageState{Role: role}
	}
	return &VerificationRecord{DomainID: domainID, Stages: stages}
}

// StageIndex locates the stage for role, or -1 when the role is not part of
// this record's chain.
func (v *VerificationRecord) StageIndex(role Role) int {
	for i, s := range v.Stages {
		if s.Role == role {
			return i
		}
	}
	return -1
}

// Stage returns the stage for role, or nil.
func (v *VerificationRecord) Stage(role Role) *StageState {
	if i := v.StageIndex(role); i >= 0 {
		return &v.Stages[i]
	}
	return nil
}

// AwaitingRole names the role whose decision the chain is waiting on. It
// reports false when the record is fully verified or a stage sent the
// request back, since such a record awaits no role.
func (v *VerificationRecord) AwaitingRole() (Role, bool) {
	if v.FullyVerified {
		return "", false
	}
	for _, s := range v.Stages {
		if s.SentBack() {
			return "", false
		}
		if !s.Verified() {
			return s.Role, true
		}
	}
	return "", false
}

// Approve transitions the stage at idx to verified at time now.
//
// The first stage has no predecessor check. Every later stage requires its
// immediate predecessor verified and itself not yet verified. Approving the
// last stage also flips FullyVerified in the same mutation.
func (v *VerificationRecord) Approve(idx int, now time.Time, remarks string) error {
	if idx < 0 || idx >= len(v.Stages) {
		return dErrors.New(dErrors.CodeInvalidInput, "stage index outside role order")
	}
	stage := &v.Stages[idx]
	if stage.Verified() {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("%s has already verified this request", stage.Role))
	}
	if stage.SentBack() {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("%s has sent this request back; only a renewal can reopen it", stage.Role))
	}
	if idx > 0 {
		prev := v.Stages[idx-1]
		if !prev.Verified() {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("%s cannot verify unless %s has verified", stage.Role, prev.Role))
		}
	}
	at := now
	stage.VerifiedAt = &at
	stage.Remarks = remarks
	if idx == len(v.Stages)-1 {
		v.FullyVerified = true
	}
	return nil
}

// Reject transitions the stage at idx to sent back at time now.
//
// The first stage only forwards and cannot reject. A stage cannot change its
// decision after verifying, cannot reject twice, and cannot reject a request
// that its predecessor already sent back (the request never reached it).
func (v *VerificationRecord) Reject(idx int, now time.Time, remarks string) error {
	if idx < 0 || idx >= len(v.Stages) {
		return dErrors.New(dErrors.CodeInvalidInput, "stage index outside role order")
	}
	if idx == 0 {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("%s forwards requests and cannot reject them", v.Stages[0].Role))
	}
	stage := &v.Stages[idx]
	if stage.Verified() {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("%s cannot change decision after verifying", stage.Role))
	}
	if stage.SentBack() {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("%s has already sent this request back", stage.Role))
	}
	prev := v.Stages[idx-1]
	if prev.SentBack() {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("%s already rejected the request; it has not reached %s", prev.Role, stage.Role))
	}
	at := now
	stage.SentBackAt = &at
	stage.Remarks = remarks
	return nil
}

// Reset clears every stage and the aggregate flag, re-admitting the domain
// to the front of the chain. Renewal is the only caller.
func (v *VerificationRecord) Reset() {
	for i := range v.Stages {
		v.Stages[i].VerifiedAt = nil
		v.Stages[i].SentBackAt = nil
		v.Stages[i].Remarks = ""
	}
	v.FullyVerified = false
}
