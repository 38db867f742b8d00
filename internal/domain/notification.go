package domain

import "time"

// EventType labels a workflow notification for the notification service.
type EventType string

const (
	EventApplicationSubmitted EventType = "DOMAIN_APPLICATION_SUBMITTED"
	EventARMForwarded         EventType = "DOMAIN_ARM_VERIFICATION_FORWARDED"
	EventHODVerified          EventType = "DOMAIN_HOD_VERIFIED"
	EventEDApproved           EventType = "DOMAIN_ED_APPROVED"
	EventNetopsVerified       EventType = "DOMAIN_NETOPS_VERIFIED"
	EventWebmasterVerified    EventType = "DOMAIN_WEBMASTER_VERIFIED"
	EventHPCHODRecommended    EventType = "DOMAIN_HPC_HOD_RECOMMENDED"

	EventRenewalRequested        EventType = "DOMAIN_RENEWAL_REQUESTED"
	EventRenewalARMForwarded     EventType = "DOMAIN_RENEWAL_ARM_FORWARDED"
	EventRenewalHODVerified      EventType = "DOMAIN_RENEWAL_HOD_VERIFIED"
	EventRenewalEDApproved       EventType = "DOMAIN_RENEWAL_ED_APPROVED"
	EventRenewalNetopsVerified   EventType = "DOMAIN_RENEWAL_NETOPS_VERIFIED"
	EventRenewalWebmasterVerified EventType = "DOMAIN_RENEWAL_WEBMASTER_VERIFIED"
	EventRenewalHPCHODRecommended EventType = "DOMAIN_RENEWAL_HPC_HOD_RECOMMENDED"

	EventTransferRequested EventType = "DOMAIN_TRANSFER_REQUESTED"
	EventTransferApproved  EventType = "DOMAIN_TRANSFER_APPROVED"

	EventVerificationRejected EventType = "DOMAIN_VERIFICATION_REJECTED"
	EventDomainActivated      EventType = "DOMAIN_ACTIVATED"
	EventDomainDeleted        EventType = "DOMAIN_DELETED"
	EventExpiryWarning        EventType = "DOMAIN_EXPIRY_WARNING"
	EventDomainExpired        EventType = "DOMAIN_EXPIRED"
)

// TriggeredBy identifies who (or what, for scheduler events) caused an event.
type TriggeredBy struct {
	EmployeeNo EmployeeNo `json:"emp_no"`
	Role       Role       `json:"role"`
}

// EventData is the payload the notification service renders to recipients.
type EventData struct {
	DomainID   DomainID `json:"domainId"`
	DomainName string   `json:"domainName"`
	Remarks    string   `json:"remarks"`
}

// Recipients lists the stakeholders an event addresses. Every field is
// optional; the wire format keeps one slot per role.
type Recipients struct {
	DRM       *EmployeeNo `json:"drm_emp_no,omitempty"`
	ARM       *EmployeeNo `json:"arm_emp_no,omitempty"`
	HOD       *EmployeeNo `json:"hod_emp_no,omitempty"`
	ED        *EmployeeNo `json:"ed_emp_no,omitempty"`
	Netops    *EmployeeNo `json:"netops_emp_no,omitempty"`
	Webmaster *EmployeeNo `json:"webmaster_emp_no,omitempty"`
	HodHPC    *EmployeeNo `json:"hod_hpc_emp_no,omitempty"`
}

// Add assigns no to the slot for role, ignoring unknown roles.
func (r *Recipients) Add(role Role, no EmployeeNo) {
	switch role {
	case RoleDRM:
		r.DRM = &no
	case RoleARM:
		r.ARM = &no
	case RoleHOD:
		r.HOD = &no
	case RoleED:
		r.ED = &no
	case RoleNetops:
		r.Netops = &no
	case RoleWebmaster:
		r.Webmaster = &no
	case RoleHodHPC:
		r.HodHPC = &no
	}
}

// NotificationEvent is the ephemeral value handed to the dispatcher after a
// state mutation commits. It is never stored beyond its outbox row.
type NotificationEvent struct {
	Type        EventType   `json:"eventType"`
	Timestamp   time.Time   `json:"timestamp"`
	TriggeredBy TriggeredBy `json:"triggeredBy"`
	Data        EventData   `json:"data"`
	Recipients  Recipients  `json:"recipients"`
}

// approvalEvents maps each chain role to its event type for the plain and
// renewal variants of the approval flow.
var approvalEvents = map[Role][2]EventType{
	RoleARM:       {EventARMForwarded, EventRenewalARMForwarded},
	RoleHOD:       {EventHODVerified, EventRenewalHODVerified},
	RoleED:        {EventEDApproved, EventRenewalEDApproved},
	RoleNetops:    {EventNetopsVerified, EventRenewalNetopsVerified},
	RoleWebmaster: {EventWebmasterVerified, EventRenewalWebmasterVerified},
	RoleHodHPC:    {EventHPCHODRecommended, EventRenewalHPCHODRecommended},
}

// ApprovalEventType resolves the event emitted when role approves a domain,
// accounting for whether the domain is in a renewal cycle.
func ApprovalEventType(role Role, isRenewal bool) EventType {
	pair, ok := approvalEvents[role]
	if !ok {
		return ""
	}
	if isRenewal {
		return pair[1]
	}
	return pair[0]
}

// ApprovalRecipients returns who is informed when role acts: the requester,
// the forwarder, the acting role and the next role in the chain.
func ApprovalRecipients(d *DomainRecord, order RoleOrder, role Role) Recipients {
	var r Recipients
	r.Add(RoleDRM, d.Registrar)
	r.Add(RoleARM, d.Party(RoleARM))
	r.Add(role, d.Party(role))
	if i := order.Index(role); i >= 0 && i+1 < len(order) {
		next := order[i+1]
		r.Add(next, d.Party(next))
	}
	return r
}

// RequesterRecipients addresses the requester side only: the DRM and ARM.
// Rejections, renewals and expiry notices go here.
func RequesterRecipients(d *DomainRecord) Recipients {
	var r Recipients
	r.Add(RoleDRM, d.Registrar)
	r.Add(RoleARM, d.Party(RoleARM))
	return r
}
