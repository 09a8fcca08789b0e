package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/courier/internal/identity"
	"github.com/ignite/courier/internal/pkg/httputil"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/provider"
	"github.com/ignite/courier/internal/store"
)

// identityResponse is the wire shape of an identity check or mutation.
type identityResponse struct {
	Success  bool     `json:"success"`
	Verified bool     `json:"verified"`
	Status   string   `json:"status,omitempty"`
	Tokens   []string `json:"tokens,omitempty"`
}

// GetIdentity returns the verification status of a project's sending
// domain. A project without a domain answers success=false rather than an
// error; the dashboard renders that as "not configured".
func (h *Handlers) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid project id")
		return
	}

	status, err := h.identity.CheckStatus(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "project not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if status.Status == provider.StatusFailed && !status.Verified && len(status.Tokens) == 0 {
		httputil.OK(w, identityResponse{Success: false})
		return
	}

	httputil.OK(w, identityResponse{
		Success:  true,
		Verified: status.Verified,
		Status:   string(status.Status),
		Tokens:   status.Tokens,
	})
}

type createIdentityRequest struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// CreateIdentity attaches a sending address to a project and registers
// its domain with the provider.
func (h *Handlers) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	var req createIdentityRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ID == uuid.Nil || req.Email == "" {
		httputil.BadRequest(w, "id and email are required")
		return
	}

	status, err := h.identity.Attach(r.Context(), req.ID, req.Email, userIDFrom(r.Context()))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.NotFound(w, "project not found")
		return
	case errors.Is(err, identity.ErrDomainTaken):
		httputil.Conflict(w, "domain already in use by another project")
		return
	case errors.Is(err, identity.ErrInvalidEmail):
		httputil.BadRequest(w, "invalid sending address")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, identityResponse{
		Success:  true,
		Verified: status.Verified,
		Status:   string(status.Status),
		Tokens:   status.Tokens,
	})
}

type resetIdentityRequest struct {
	ID uuid.UUID `json:"id"`
}

// ResetIdentity detaches a project's sending identity.
func (h *Handlers) ResetIdentity(w http.ResponseWriter, r *http.Request) {
	var req resetIdentityRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ID == uuid.Nil {
		httputil.BadRequest(w, "id is required")
		return
	}

	err := h.identity.Reset(r.Context(), req.ID, userIDFrom(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "project not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]bool{"success": true})
}

// UpdateIdentities kicks off the reconcile batch and answers immediately.
// The batch runs detached; its failures are visible only in logs, which
// is acceptable for a cron-style trigger that will fire again.
func (h *Handlers) UpdateIdentities(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := h.identity.ReconcileAll(context.Background()); err != nil {
			logger.Error("identity reconcile batch failed", "error", err.Error())
		}
	}()
	httputil.OK(w, map[string]bool{"success": true})
}
