// Package handler exposes payment reference submission to authenticated
// talent sessions.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"stagegate/internal/principal/models"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/httputil"
	"stagegate/pkg/requestcontext"
)

// Service is the payment submission port.
type Service interface {
	SubmitPaymentReference(ctx context.Context, userID id.UserID, reference string) (*models.Principal, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the submission endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payments/reference", h.HandleSubmit)
}

// SubmitRequest is the body for POST /payments/reference.
type SubmitRequest struct {
	Reference string `json:"reference"`
}

func (r *SubmitRequest) Validate() error {
	r.Reference = strings.TrimSpace(r.Reference)
	if r.Reference == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reference is required")
	}
	return nil
}

// SubmitResponse confirms the pending state.
type SubmitResponse struct {
	Success        bool `json:"success"`
	PaymentPending bool `json:"paymentPending"`
}

// HandleSubmit handles POST /payments/reference.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.SubmitPaymentReference(ctx, userID, req.Reference)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeRateLimited) {
			h.logger.WarnContext(ctx, "payment submission rate limited",
				"request_id", requestID,
				"user_id", userID.String(),
			)
		} else {
			h.logger.ErrorContext(ctx, "payment submission failed",
				"request_id", requestID,
				"user_id", userID.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "payment reference submitted",
		"request_id", requestID,
		"user_id", userID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, SubmitResponse{
		Success:        true,
		PaymentPending: user.PaymentPending(),
	})
}
