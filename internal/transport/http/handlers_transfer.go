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
	"domainflow/internal/transfer"
	dErrors "domainflow/pkg/domain-errors"
	"domainflow/pkg/platform/httputil"
)

// TransferService is what the handover endpoints need.
type TransferService interface {
	Open(ctx context.Context, domainID domain.DomainID, requesterNo domain.EmployeeNo, req transfer.Request) (*domain.TransferRecord, error)
	Approve(ctx context.Context, transferID int64, approverNo domain.EmployeeNo) (*domain.TransferRecord, error)
	Get(ctx context.Context, transferID int64, empNo domain.EmployeeNo) (*domain.TransferRecord, error)
	List(ctx context.Context, empNo domain.EmployeeNo, role domain.Role) ([]*domain.TransferRecord, error)
}

type TransferHandler struct {
	transfers    TransferService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func NewTransferHandler(transfers TransferService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *TransferHandler {
	return &TransferHandler{transfers: transfers, logger: logger, jwtValidator: jwtValidator}
}

func (h *TransferHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.ContentTypeJSON)
		r.Post("/domains/{domainID}/transfer", h.handleOpen)
		r.Post("/transfers/{transferID}/approve", h.handleApprove)
		r.Get("/transfers/{transferID}", h.handleGet)
		r.Get("/transfers", h.handleList)
	})
}

type transferRequest struct {
	ToNo       int64  `json:"to_emp_no"`
	Reason     string `json:"reason"`
	Proof      string `json:"proof,omitempty"` // base64
	Department string `json:"department"`
	Centre     string `json:"centre"`
}

type transferResponse struct {
	ID         int64             `json:"id"`
	DomainID   domain.DomainID   `json:"domain_id"`
	FromNo     domain.EmployeeNo `json:"from_emp_no"`
	ToNo       domain.EmployeeNo `json:"to_emp_no"`
	ApproverNo domain.EmployeeNo `json:"approver_emp_no"`
	Reason     string            `json:"reason"`
	Approved   bool              `json:"approved"`
	CreatedAt  time.Time         `json:"created_at"`
	ApprovedAt *time.Time        `json:"approved_at,omitempty"`
}

func toTransferResponse(t *domain.TransferRecord) transferResponse {
	return transferResponse{
		ID:         t.ID,
		DomainID:   t.DomainID,
		FromNo:     t.FromNo,
		ToNo:       t.ToNo,
		ApproverNo: t.ApproverNo,
		Reason:     t.Reason,
		Approved:   t.Approved,
		CreatedAt:  t.CreatedAt,
		ApprovedAt: t.ApprovedAt,
	}
}

func (h *TransferHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domainID, err := domainIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	proof, err := decodeProof(req.Proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.transfers.Open(ctx, domainID,
		domain.EmployeeNo(middleware.GetEmployeeNo(ctx)),
		transfer.Request{
			ToNo:       domain.EmployeeNo(req.ToNo),
			Reason:     req.Reason,
			Proof:      proof,
			Department: req.Department,
			Centre:     req.Centre,
		})
	if err != nil {
		h.logger.WarnContext(ctx, "transfer application refused",
			"request_id", middleware.GetRequestID(ctx), "domain_id", domainID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toTransferResponse(record))
}

func (h *TransferHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	transferID, err := transferIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.transfers.Approve(ctx, transferID,
		domain.EmployeeNo(middleware.GetEmployeeNo(ctx)))
	if err != nil {
		h.logger.WarnContext(ctx, "transfer sign-off refused",
			"request_id", middleware.GetRequestID(ctx), "transfer_id", transferID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTransferResponse(record))
}

func (h *TransferHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	transferID, err := transferIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.transfers.Get(ctx, transferID,
		domain.EmployeeNo(middleware.GetEmployeeNo(ctx)))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTransferResponse(record))
}

func (h *TransferHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role, err := domain.ParseRole(middleware.GetRole(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.transfers.List(ctx,
		domain.EmployeeNo(middleware.GetEmployeeNo(ctx)), role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]transferResponse, 0, len(records))
	for _, t := range records {
		out = append(out, toTransferResponse(t))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func transferIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "transferID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid transfer id")
	}
	return id, nil
}
