package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domainflow/internal/domain"
	"domainflow/internal/platform/middleware"
	"domainflow/internal/renewal"
	dErrors "domainflow/pkg/domain-errors"
	"domainflow/pkg/platform/httputil"
)

// RenewalService is what the renewal endpoint needs.
type RenewalService interface {
	Apply(ctx context.Context, domainID domain.DomainID, requesterNo domain.EmployeeNo, req renewal.Request) (*domain.RenewalRecord, error)
}

type RenewalHandler struct {
	renewal      RenewalService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func NewRenewalHandler(renewal RenewalService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *RenewalHandler {
	return &RenewalHandler{renewal: renewal, logger: logger, jwtValidator: jwtValidator}
}

func (h *RenewalHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.ContentTypeJSON)
		r.Post("/domains/{domainID}/renew", h.handleRenew)
	})
}

type renewalRequest struct {
	NewName     string `json:"new_name,omitempty"`
	Reason      string `json:"reason"`
	Proof       string `json:"proof,omitempty"` // base64
	PeriodYears int    `json:"period_years,omitempty"`
	Department  string `json:"department"`
	Centre      string `json:"centre"`
}

type renewalResponse struct {
	ID           int64           `json:"id"`
	DomainID     domain.DomainID `json:"domain_id"`
	PreviousName string          `json:"previous_name"`
	Reason       string          `json:"reason"`
	RequestedAt  time.Time       `json:"requested_at"`
}

func (h *RenewalHandler) handleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domainID, err := domainIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req renewalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	proof, err := decodeProof(req.Proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.renewal.Apply(ctx, domainID,
		domain.EmployeeNo(middleware.GetEmployeeNo(ctx)),
		renewal.Request{
			NewName:     req.NewName,
			Reason:      req.Reason,
			Proof:       proof,
			PeriodYears: req.PeriodYears,
			Department:  req.Department,
			Centre:      req.Centre,
		})
	if err != nil {
		h.logger.WarnContext(ctx, "renewal application refused",
			"request_id", middleware.GetRequestID(ctx), "domain_id", domainID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, renewalResponse{
		ID:           record.ID,
		DomainID:     record.DomainID,
		PreviousName: record.PreviousName,
		Reason:       record.Reason,
		RequestedAt:  record.RequestedAt,
	})
}
