package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domainflow/internal/domain"
	"domainflow/internal/platform/middleware"
	"domainflow/internal/registration"
	dErrors "domainflow/pkg/domain-errors"
	"domainflow/pkg/platform/httputil"
)

// RegistrationService is what the registration endpoints need.
type RegistrationService interface {
	Submit(ctx context.Context, requesterNo domain.EmployeeNo, app registration.Application) (*domain.DomainRecord, error)
	RegisterPurchase(ctx context.Context, domainID domain.DomainID, webmasterNo domain.EmployeeNo, p registration.Purchase) (*domain.DomainRecord, error)
	Delete(ctx context.Context, domainID domain.DomainID, requesterNo domain.EmployeeNo) error
	Get(ctx context.Context, domainID domain.DomainID) (*domain.DomainRecord, *domain.VerificationRecord, error)
	ListMine(ctx context.Context, requesterNo domain.EmployeeNo) ([]*domain.DomainRecord, error)
	Purchases(ctx context.Context, domainID domain.DomainID) ([]*domain.PurchaseRecord, error)
}

type RegistrationHandler struct {
	registration RegistrationService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func NewRegistrationHandler(registration RegistrationService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, logger: logger, jwtValidator: jwtValidator}
}

func (h *RegistrationHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/domains", h.handleListMine)
		r.Get("/domains/{domainID}", h.handleGet)
		r.Get("/domains/{domainID}/purchases", h.handlePurchaseHistory)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Post("/domains", h.handleSubmit)
			r.Post("/domains/{domainID}/purchase", h.handlePurchase)
		})
		r.Delete("/domains/{domainID}", h.handleDelete)
	})
}

type applicationRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ServiceType    string `json:"service_type"`
	PeriodYears    int    `json:"period_years"`
	Department     string `json:"department"`
	Centre         string `json:"centre"`
	GIGWCompliance string `json:"gigw_compliance"`
	MoUStatus      string `json:"mou_status"`
	VAPTCompliant  bool   `json:"vapt_compliant"`
	VAPTProof      string `json:"vapt_proof,omitempty"` // base64
	ServerHardened bool   `json:"server_hardened"`
}

type domainResponse struct {
	ID               domain.DomainID    `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	ServiceType      domain.ServiceType `json:"service_type"`
	AppliedAt        time.Time          `json:"applied_at"`
	ActivatedAt      *time.Time         `json:"activated_at,omitempty"`
	LastRenewedAt    *time.Time         `json:"last_renewed_at,omitempty"`
	ExpiresAt        *time.Time         `json:"expires_at,omitempty"`
	PeriodYears      int                `json:"period_years"`
	Active           bool               `json:"active"`
	InRenewal        bool               `json:"in_renewal"`
}

func toDomainResponse(d *domain.DomainRecord) domainResponse {
	return domainResponse{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		ServiceType:   d.ServiceType,
		AppliedAt:     d.AppliedAt,
		ActivatedAt:   d.ActivatedAt,
		LastRenewedAt: d.LastRenewedAt,
		ExpiresAt:     d.ExpiresAt,
		PeriodYears:   d.PeriodYears,
		Active:        d.Active,
		InRenewal:     d.InRenewal,
	}
}

func (h *RegistrationHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	proof, err := decodeProof(req.VAPTProof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.registration.Submit(ctx, domain.EmployeeNo(middleware.GetEmployeeNo(ctx)), registration.Application{
		Name:           req.Name,
		Description:    req.Description,
		ServiceType:    domain.ServiceType(req.ServiceType),
		PeriodYears:    req.PeriodYears,
		Department:     req.Department,
		Centre:         req.Centre,
		GIGWCompliance: domain.ComplianceStatus(req.GIGWCompliance),
		MoUStatus:      domain.ComplianceStatus(req.MoUStatus),
		VAPTCompliant:  req.VAPTCompliant,
		VAPTProof:      proof,
		ServerHardened: req.ServerHardened,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "domain application refused",
			"request_id", middleware.GetRequestID(ctx), "domain", req.Name, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toDomainResponse(d))
}

type purchaseRequest struct {
	PeriodYears int    `json:"period_years"`
	Proof       string `json:"proof,omitempty"` // base64
}

func (h *RegistrationHandler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domainID, err := domainIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	proof, err := decodeProof(req.Proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.registration.RegisterPurchase(ctx, domainID,
		domain.EmployeeNo(middleware.GetEmployeeNo(ctx)),
		registration.Purchase{PeriodYears: req.PeriodYears, Proof: proof})
	if err != nil {
		h.logger.WarnContext(ctx, "purchase registration refused",
			"request_id", middleware.GetRequestID(ctx), "domain_id", domainID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDomainResponse(d))
}

func (h *RegistrationHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domainID, err := domainIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.registration.Delete(ctx, domainID, domain.EmployeeNo(middleware.GetEmployeeNo(ctx))); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	domainID, err := domainIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, v, err := h.registration.Get(r.Context(), domainID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Domain       domainResponse       `json:"domain"`
		Verification verificationResponse `json:"verification"`
	}{toDomainResponse(d), toVerificationResponse(v)})
}

func (h *RegistrationHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domains, err := h.registration.ListMine(ctx, domain.EmployeeNo(middleware.GetEmployeeNo(ctx)))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]domainResponse, 0, len(domains))
	for _, d := range domains {
		out = append(out, toDomainResponse(d))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type purchaseResponse struct {
	ID          int64               `json:"id"`
	Type        domain.PurchaseType `json:"type"`
	PurchasedAt time.Time           `json:"purchased_at"`
}

func (h *RegistrationHandler) handlePurchaseHistory(w http.ResponseWriter, r *http.Request) {
	domainID, err := domainIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	purchases, err := h.registration.Purchases(r.Context(), domainID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, purchaseResponse{ID: p.ID, Type: p.Type, PurchasedAt: p.PurchasedAt})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func decodeProof(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	proof, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "proof must be base64 encoded")
	}
	return proof, nil
}
