package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stogden/crease/internal/auth"
	"github.com/stogden/crease/internal/models"
	"github.com/stogden/crease/internal/services"
	pkghttp "github.com/stogden/crease/pkg/http"
)

// AdminServiceInterface defines the interface for operator account actions
type AdminServiceInterface interface {
	Unlock(ctx context.Context, actorID, accountID, ipAddress string) error
	Approve(ctx context.Context, actorID, accountID, ipAddress string) (*services.AccountResponse, error)
	Reject(ctx context.Context, actorID, accountID, ipAddress string) (*services.AccountResponse, error)
}

// AuditReader exposes the audit trail to the admin surface
type AuditReader interface {
	ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error)
}

// AdminHandler handles operator HTTP requests. All routes require the admin
// role; enforcement happens in the router.
type AdminHandler struct {
	service  AdminServiceInterface
	audit    AuditReader
	ipConfig *pkghttp.IPConfig
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminServiceInterface, audit AuditReader, ipConfig *pkghttp.IPConfig) *AdminHandler {
	return &AdminHandler{
		service:  service,
		audit:    audit,
		ipConfig: ipConfig,
	}
}

// Unlock handles POST /admin/accounts/{id}/unlock
func (h *AdminHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	actorID, accountID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.service.Unlock(r.Context(), actorID, accountID, ipAddress); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Approve handles POST /admin/accounts/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

// Reject handles POST /admin/accounts/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *AdminHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, actorID, accountID, ipAddress string) (*services.AccountResponse, error),
) {
	actorID, accountID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	account, err := fn(r.Context(), actorID, accountID, ipAddress)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Account is not awaiting approval")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, account)
}

// AuditTrail handles GET /admin/accounts/{id}/audit
// Accepts optional query param ?limit=N (1-100, default 50).
func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		pkghttp.WriteBadRequest(w, "Account ID is required")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.audit.ListByTarget(r.Context(), accountID, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve audit trail")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, entries)
}

// actorAndTarget pulls the acting admin from the token claims and the target
// account from the URL.
func (h *AdminHandler) actorAndTarget(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return "", "", false
	}

	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		pkghttp.WriteBadRequest(w, "Account ID is required")
		return "", "", false
	}

	return claims.AccountID, accountID, true
}
