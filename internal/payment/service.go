// Package payment handles talent-side payment reference submission. The
// reference is an opaque external transaction token; confirming it is the
// admin override surface's job.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stagegate/internal/platform/metrics"
	"stagegate/internal/principal/models"
	principalstore "stagegate/internal/principal/store"
	"stagegate/internal/ratelimit/bucket"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/sentinel"
	"stagegate/pkg/requestcontext"
)

const (
	// SubmissionLimit caps reference submissions per user per rolling window.
	SubmissionLimit  = 5
	SubmissionWindow = time.Hour

	maxReferenceLength = 128
)

type Service struct {
	principals principalstore.Store
	limiter    bucket.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(principals principalstore.Store, limiter bucket.Store, opts ...Option) *Service {
	s := &Service{
		principals: principals,
		limiter:    limiter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitPaymentReference records a talent's external payment reference,
// putting the account into the payment-pending state. Resubmission before
// confirmation replaces the stored reference.
//
// The rate limit is best-effort: a limiter outage lets the submission
// through rather than blocking payments.
func (s *Service) SubmitPaymentReference(ctx context.Context, userID id.UserID, reference string) (*models.Principal, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment reference is required")
	}
	if len(reference) > maxReferenceLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment reference is too long")
	}

	if err := s.checkLimit(ctx, userID); err != nil {
		return nil, err
	}

	updated, err := s.principals.Execute(ctx, userID,
		func(p *models.Principal) error {
			if !p.IsTalent() {
				return dErrors.New(dErrors.CodeForbidden, "only talent accounts submit payment references")
			}
			if p.PaymentConfirmed {
				return dErrors.New(dErrors.CodeConflict, "payment is already confirmed")
			}
			return nil
		},
		func(p *models.Principal) {
			p.PaymentReference = reference
			p.UpdatedAt = requestcontext.Now(ctx)
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
		default:
			var de *dErrors.Error
			if errors.As(err, &de) {
				return nil, err
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "submission failed")
		}
	}
	return updated, nil
}

func (s *Service) checkLimit(ctx context.Context, userID id.UserID) error {
	if s.limiter == nil {
		return nil
	}
	res, err := s.limiter.Allow(ctx, "payment:"+userID.String(), SubmissionLimit, SubmissionWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable, allowing submission",
			"user_id", userID.String(),
			"error", err.Error(),
		)
		return nil
	}
	if res.Allowed {
		return nil
	}
	if s.metrics != nil {
		s.metrics.RateLimited.Inc()
	}
	return dErrors.New(dErrors.CodeRateLimited, "too many payment submissions, try again later")
}
