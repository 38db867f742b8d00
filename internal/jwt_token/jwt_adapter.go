package jwttoken

import "domainflow/internal/platform/middleware"

// ValidatorAdapter bridges JWTService to the middleware's validator
// interface without leaking jwt library types upward.
type ValidatorAdapter struct {
	svc *JWTService
}

func NewValidatorAdapter(svc *JWTService) *ValidatorAdapter {
	return &ValidatorAdapter{svc: svc}
}

func (a *ValidatorAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		EmployeeNo: claims.EmployeeNo,
		Role:       claims.Role,
	}, nil
}
