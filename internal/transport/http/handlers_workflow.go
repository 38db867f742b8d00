package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"domainflow/internal/domain"
	"domainflow/internal/platform/middleware"
	"domainflow/internal/workflow"
	dErrors "domainflow/pkg/domain-errors"
	"domainflow/pkg/platform/httputil"
)

// WorkflowService is what the approval endpoints need from the engine.
type WorkflowService interface {
	Approve(ctx context.Context, domainID domain.DomainID, actorNo domain.EmployeeNo, role domain.Role, remarks string) (*domain.VerificationRecord, error)
	Reject(ctx context.Context, domainID domain.DomainID, actorNo domain.EmployeeNo, role domain.Role, remarks string) (*domain.VerificationRecord, error)
	Pending(ctx context.Context, role domain.Role) ([]workflow.PendingItem, error)
}

// WorkflowHandler serves the approve and reject endpoints.
type WorkflowHandler struct {
	workflow     WorkflowService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func NewWorkflowHandler(workflow WorkflowService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow, logger: logger, jwtValidator: jwtValidator}
}

func (h *WorkflowHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.ContentTypeJSON)
		r.Post("/domains/{domainID}/approve", h.handleApprove)
		r.Post("/domains/{domainID}/reject", h.handleReject)
		r.Get("/domains/pending", h.handlePending)
	})
}

type decisionRequest struct {
	Remarks string `json:"remarks"`
}

type stageResponse struct {
	Role       domain.Role `json:"role"`
	Verified   bool        `json:"verified"`
	SentBack   bool        `json:"sent_back"`
	VerifiedAt *time.Time  `json:"verified_at,omitempty"`
	SentBackAt *time.Time  `json:"sent_back_at,omitempty"`
	Remarks    string      `json:"remarks,omitempty"`
}

type verificationResponse struct {
	DomainID      domain.DomainID `json:"domain_id"`
	Stages        []stageResponse `json:"stages"`
	FullyVerified bool            `json:"fully_verified"`
}

func toVerificationResponse(v *domain.VerificationRecord) verificationResponse {
	out := verificationResponse{DomainID: v.DomainID, FullyVerified: v.FullyVerified}
	for _, s := range v.Stages {
		out.Stages = append(out.Stages, stageResponse{
			Role:       s.Role,
			Verified:   s.Verified(),
			SentBack:   s.SentBack(),
			VerifiedAt: s.VerifiedAt,
			SentBackAt: s.SentBackAt,
			Remarks:    s.Remarks,
		})
	}
	return out
}

func (h *WorkflowHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.workflow.Approve)
}

func (h *WorkflowHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.workflow.Reject)
}

func (h *WorkflowHandler) handleDecision(w http.ResponseWriter, r *http.Request,
	act func(ctx context.Context, domainID domain.DomainID, actorNo domain.EmployeeNo, role domain.Role, remarks string) (*domain.VerificationRecord, error)) {
	ctx := r.Context()

	domainID, err := domainIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := domain.ParseRole(middleware.GetRole(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	actorNo := domain.EmployeeNo(middleware.GetEmployeeNo(ctx))
	verification, err := act(ctx, domainID, actorNo, role, req.Remarks)
	if err != nil {
		h.logger.WarnContext(ctx, "workflow decision refused",
			"request_id", middleware.GetRequestID(ctx),
			"domain_id", domainID, "role", role, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toVerificationResponse(verification))
}

type pendingResponse struct {
	DomainID    domain.DomainID    `json:"domain_id"`
	DomainName  string             `json:"domain_name"`
	ServiceType domain.ServiceType `json:"service_type"`
	Registrar   domain.EmployeeNo  `json:"registrar"`
	AppliedAt   time.Time          `json:"applied_at"`
	InRenewal   bool               `json:"in_renewal"`
}

// handlePending lists the requests waiting on the caller's role.
func (h *WorkflowHandler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role, err := domain.ParseRole(middleware.GetRole(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items, err := h.workflow.Pending(ctx, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]pendingResponse, 0, len(items))
	for _, item := range items {
		out = append(out, pendingResponse{
			DomainID:    item.Domain.ID,
			DomainName:  item.Domain.Name,
			ServiceType: item.Domain.ServiceType,
			Registrar:   item.Domain.Registrar,
			AppliedAt:   item.Domain.AppliedAt,
			InRenewal:   item.Domain.InRenewal,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func domainIDParam(r *http.Request) (domain.DomainID, error) {
	raw := chi.URLParam(r, "domainID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid domain id")
	}
	return domain.DomainID(id), nil
}
