// Package handler exposes the admin override surface over HTTP. Routes are
// mounted behind the admin middleware chain; by the time a request lands
// here the session is authenticated and the role is ADMIN.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	jobmodels "stagegate/internal/job/models"
	"stagegate/internal/override/service"
	"stagegate/internal/principal/models"
	"stagegate/internal/restriction"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/platform/httputil"
	"stagegate/pkg/requestcontext"
)

// OverrideService is the subset of the override service the handler needs.
type OverrideService interface {
	ApplyTierChange(ctx context.Context, targetID id.UserID, direction service.Direction, reason string) (*models.Principal, error)
	OverrideTrustScore(ctx context.Context, targetID id.UserID, newScore int, reason string) (*models.Principal, error)
	SetFrozen(ctx context.Context, targetID id.UserID, frozen bool, reason string, expiresAt *time.Time) (*models.Principal, error)
	ApplyRestriction(ctx context.Context, targetID id.UserID, restrictionType restriction.Type, reason string, expiresAt *time.Time) (*models.Principal, error)
	RemoveRestriction(ctx context.Context, targetID id.UserID, restrictionType restriction.Type, reason string) (*models.Principal, error)
	JobAction(ctx context.Context, jobID id.JobID, action jobmodels.AdminAction, reason string) (*jobmodels.Job, error)
	BulkConfirmPayments(ctx context.Context, userIDs []id.UserID, reason string) (*service.BulkResult, error)
}

// AuditReader is the read side of the ledger for the admin surface.
type AuditReader interface {
	List(ctx context.Context, targetID string) ([]audit.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Entry, error)
}

type Handler struct {
	service OverrideService
	ledger  AuditReader
	logger  *slog.Logger
}

func New(service OverrideService, ledger AuditReader, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		ledger:  ledger,
		logger:  logger,
	}
}

// Register mounts the admin override endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users/{userID}/tier", h.HandleTierChange)
	r.Post("/users/{userID}/trust-score", h.HandleScoreOverride)
	r.Post("/users/{userID}/freeze", h.HandleFreeze)
	r.Post("/users/{userID}/restrictions", h.HandleRestriction)
	r.Get("/users/{userID}/audit", h.HandleAuditByTarget)
	r.Get("/audit", h.HandleAuditRecent)
	r.Post("/jobs/{jobID}/actions", h.HandleJobAction)
	r.Post("/payments/confirm", h.HandleBulkConfirm)
}

func userIDParam(r *http.Request) (id.UserID, error) {
	raw := chi.URLParam(r, "userID")
	userID, err := id.ParseUserID(raw)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return userID, nil
}

// HandleTierChange handles POST /users/{userID}/tier.
func (h *Handler) HandleTierChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	targetID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TierChangeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.ApplyTierChange(ctx, targetID, req.ParsedDirection(), req.Reason)
	if err != nil {
		h.logFailure(ctx, "tier change failed", requestID, targetID.String(), err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "tier changed",
		"request_id", requestID,
		"target_id", targetID.String(),
		"direction", req.Direction,
	)
	httputil.WriteJSON(w, http.StatusOK, UserEnvelope{Success: true, User: FromPrincipal(user)})
}

// HandleScoreOverride handles POST /users/{userID}/trust-score.
func (h *Handler) HandleScoreOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	targetID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScoreOverrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.OverrideTrustScore(ctx, targetID, *req.Score, req.Reason)
	if err != nil {
		h.logFailure(ctx, "trust score override failed", requestID, targetID.String(), err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "trust score overridden",
		"request_id", requestID,
		"target_id", targetID.String(),
		"score", *req.Score,
	)
	httputil.WriteJSON(w, http.StatusOK, UserEnvelope{Success: true, User: FromPrincipal(user)})
}

// HandleFreeze handles POST /users/{userID}/freeze.
func (h *Handler) HandleFreeze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	targetID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FreezeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.SetFrozen(ctx, targetID, *req.Frozen, req.Reason, req.ParsedExpiry())
	if err != nil {
		h.logFailure(ctx, "freeze change failed", requestID, targetID.String(), err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "freeze changed",
		"request_id", requestID,
		"target_id", targetID.String(),
		"frozen", *req.Frozen,
	)
	httputil.WriteJSON(w, http.StatusOK, UserEnvelope{Success: true, User: FromPrincipal(user)})
}

// HandleRestriction handles POST /users/{userID}/restrictions. APPLY and
// REMOVE share the endpoint; the body's action field selects the operation.
func (h *Handler) HandleRestriction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	targetID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RestrictionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var user *models.Principal
	if req.ParsedOp() == restriction.ActionApply {
		user, err = h.service.ApplyRestriction(ctx, targetID, req.ParsedType(), req.Reason, req.ParsedExpiry())
	} else {
		user, err = h.service.RemoveRestriction(ctx, targetID, req.ParsedType(), req.Reason)
	}
	if err != nil {
		h.logFailure(ctx, "restriction change failed", requestID, targetID.String(), err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "restriction changed",
		"request_id", requestID,
		"target_id", targetID.String(),
		"action", req.Action,
		"restriction_type", req.RestrictionType,
	)
	httputil.WriteJSON(w, http.StatusOK, UserEnvelope{Success: true, User: FromPrincipal(user)})
}

// HandleJobAction handles POST /jobs/{jobID}/actions.
func (h *Handler) HandleJobAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid job id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[JobActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	job, err := h.service.JobAction(ctx, jobID, req.ParsedAction(), req.Reason)
	if err != nil {
		h.logFailure(ctx, "job action failed", requestID, jobID.String(), err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "job action applied",
		"request_id", requestID,
		"job_id", jobID.String(),
		"action", req.Action,
	)
	httputil.WriteJSON(w, http.StatusOK, JobEnvelope{Success: true, Job: FromJob(job)})
}

// HandleBulkConfirm handles POST /payments/confirm.
func (h *Handler) HandleBulkConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BulkConfirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.BulkConfirmPayments(ctx, req.ParsedIDs(), req.Reason)
	if err != nil {
		h.logFailure(ctx, "bulk payment confirmation failed", requestID, "", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bulk payments confirmed",
		"request_id", requestID,
		"requested", len(req.ParsedIDs()),
		"confirmed", result.Confirmed,
		"failed", len(result.Failed),
	)
	httputil.WriteJSON(w, http.StatusOK, FromBulkResult(result))
}

// HandleAuditByTarget handles GET /users/{userID}/audit.
func (h *Handler) HandleAuditByTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	targetID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.ledger.List(ctx, targetID.String())
	if err != nil {
		h.logFailure(ctx, "audit list failed", requestcontext.RequestID(ctx), targetID.String(), err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit list failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditEntries(entries))
}

const defaultAuditPageSize = 50

// HandleAuditRecent handles GET /audit?limit=N.
func (h *Handler) HandleAuditRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultAuditPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	entries, err := h.ledger.ListRecent(ctx, limit)
	if err != nil {
		h.logFailure(ctx, "audit list failed", requestcontext.RequestID(ctx), "", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit list failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditEntries(entries))
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID, targetID string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestID,
		"target_id", targetID,
		"error", err,
	)
}
