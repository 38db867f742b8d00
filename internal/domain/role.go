package domain

import (
	dErrors "domainflow/pkg/domain-errors"
)

// Role identifies a participant in the domain-name workflow. DRM is the
// requester; the remaining roles form the approval chain.
type Role string

const (
	RoleDRM       Role = "DRM"
	RoleARM       Role = "ARM"
	RoleHOD       Role = "HOD"
	RoleED        Role = "ED"
	RoleNetops    Role = "NETOPS"
	RoleWebmaster Role = "WEBMASTER"
	RoleHodHPC    Role = "HODHPC"
)

var validRoles = map[Role]bool{
	RoleDRM:       true,
	RoleARM:       true,
	RoleHOD:       true,
	RoleED:        true,
	RoleNetops:    true,
	RoleWebmaster: true,
	RoleHodHPC:    true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// RoleOrder is the ordered approval chain a domain request passes through.
// It is configuration data: construct it once and hand it to the engines.
type RoleOrder []Role

// DefaultRoleOrder mirrors the organizational chain: the ARM forwards the
// request, then HOD, ED, NETOPS and WEBMASTER verify in turn, and the HOD of
// HPC recommends last.
func DefaultRoleOrder() RoleOrder {
	return RoleOrder{RoleARM, RoleHOD, RoleED, RoleNetops, RoleWebmaster, RoleHodHPC}
}

// Index returns the position of role in the chain, or -1 when the role is not
// part of it.
func (o RoleOrder) Index(role Role) int {
	for i, r := range o {
		if r == role {
			return i
		}
	}
	return -1
}

// First reports whether role opens the chain.
func (o RoleOrder) First(role Role) bool {
	return len(o) > 0 && o[0] == role
}

// Last reports whether role closes the chain.
func (o RoleOrder) Last(role Role) bool {
	return len(o) > 0 && o[len(o)-1] == role
}
