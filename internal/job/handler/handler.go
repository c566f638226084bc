// Package handler serves the talent-facing job listing. This is where the
// access gate bites: a talent whose profile or payment is not in order gets
// a 403 with a machine-readable reason instead of the listing.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stagegate/internal/gate"
	"stagegate/internal/job/models"
	"stagegate/internal/platform/metrics"
	principalmodels "stagegate/internal/principal/models"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/httputil"
	"stagegate/pkg/platform/sentinel"
	"stagegate/pkg/requestcontext"
)

// JobLister provides the visible-jobs read.
type JobLister interface {
	ListVisible(ctx context.Context) ([]*models.Job, error)
}

// PrincipalReader resolves the calling principal for gating.
type PrincipalReader interface {
	FindByID(ctx context.Context, userID id.UserID) (*principalmodels.Principal, error)
}

type Handler struct {
	jobs       JobLister
	principals PrincipalReader
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(jobs JobLister, principals PrincipalReader, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		jobs:       jobs,
		principals: principals,
		logger:     logger,
		metrics:    m,
	}
}

// Register mounts the listing endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Get("/jobs", h.HandleList)
}

// GateDenialResponse is the 403 body feature clients render as an upsell or
// continue flow.
type GateDenialResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	PaymentPending bool   `json:"paymentPending"`
}

// JobListItem is one listing row.
type JobListItem struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobListResponse wraps the listing.
type JobListResponse struct {
	Jobs []JobListItem `json:"jobs"`
}

// HandleList handles GET /jobs.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	caller, err := h.principals.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown session user"))
			return
		}
		h.logger.ErrorContext(ctx, "caller lookup failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing failed"))
		return
	}

	if decision := gate.Evaluate(caller); !decision.Allowed {
		if h.metrics != nil {
			h.metrics.GateDenials.WithLabelValues(string(decision.ReasonCode)).Inc()
		}
		h.logger.InfoContext(ctx, "listing denied by access gate",
			"request_id", requestID,
			"user_id", userID.String(),
			"reason", string(decision.ReasonCode),
		)
		httputil.WriteJSON(w, http.StatusForbidden, GateDenialResponse{
			Error:          string(decision.ReasonCode),
			Message:        decision.Message,
			PaymentPending: decision.PaymentPending,
		})
		return
	}

	jobs, err := h.jobs.ListVisible(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "job listing failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing failed"))
		return
	}

	resp := JobListResponse{Jobs: make([]JobListItem, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, JobListItem{
			ID:        j.ID.String(),
			Title:     j.Title,
			Status:    string(j.Status),
			CreatedAt: j.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
