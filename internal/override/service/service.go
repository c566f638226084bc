// Package service is the admin override orchestrator: the only component
// allowed to mutate trust-related principal fields and the sole writer of
// the audit ledger for them. Every operation validates input, then performs
// the mutation and the ledger append inside one transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	jobstore "stagegate/internal/job/store"
	"stagegate/internal/platform/metrics"
	"stagegate/internal/principal/models"
	principalstore "stagegate/internal/principal/store"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/email"
	"stagegate/pkg/platform/audit"
	auditpublisher "stagegate/pkg/platform/audit/publisher"
	"stagegate/pkg/platform/sentinel"
	"stagegate/pkg/platform/tx"
	"stagegate/pkg/requestcontext"
)

// Direction of a tier change.
type Direction string

const (
	DirectionPromote Direction = "promote"
	DirectionDemote  Direction = "demote"
)

// ParseDirection validates an incoming direction string.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionPromote, DirectionDemote:
		return d, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown direction %q", s)
}

type Service struct {
	principals principalstore.Store
	jobs       jobstore.Store
	auditor    *auditpublisher.Publisher
	txRunner   tx.Runner
	notifier   email.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Service)

func WithNotifier(n email.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

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

func New(
	principals principalstore.Store,
	jobs jobstore.Store,
	auditor *auditpublisher.Publisher,
	txRunner tx.Runner,
	opts ...Option,
) *Service {
	s := &Service{
		principals: principals,
		jobs:       jobs,
		auditor:    auditor,
		txRunner:   txRunner,
		logger:     slog.Default(),
		tracer:     otel.Tracer("stagegate/override"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireAdmin resolves the acting admin from the request context.
// No session at all is an authentication failure; a session with any other
// role is an authorization failure.
func (s *Service) requireAdmin(ctx context.Context) (id.UserID, error) {
	role := requestcontext.Role(ctx)
	actorID := requestcontext.UserID(ctx)
	if role == "" || actorID.IsNil() {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if role != string(models.RoleAdmin) {
		return id.UserID{}, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	return actorID, nil
}

// requireReason enforces the non-negotiable justification rule and returns
// the trimmed reason that will be persisted.
func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	return reason, nil
}

// entry assembles a ledger entry with the actor and request metadata every
// override shares.
func (s *Service) entry(ctx context.Context, actorID id.UserID, action audit.Action, targetID, targetRole string, before, after map[string]any, reason string) audit.Entry {
	metadata := map[string]any{}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		metadata["clientIp"] = ip
	}
	if device := requestcontext.DeviceSummary(ctx); device != "" {
		metadata["device"] = device
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		metadata["userAgent"] = ua
	}
	if len(metadata) == 0 {
		metadata = nil
	}
	return audit.Entry{
		ActorID:    actorID,
		ActorRole:  string(models.RoleAdmin),
		TargetID:   targetID,
		TargetRole: targetRole,
		Action:     action,
		Before:     before,
		After:      after,
		Reason:     reason,
		Metadata:   metadata,
		RequestID:  requestcontext.RequestID(ctx),
		CreatedAt:  requestcontext.Now(ctx),
	}
}

// wrapStoreErr translates store sentinels into coded domain errors.
func wrapStoreErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", what)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "operation failed")
	}
}

func (s *Service) recordSuccess(action audit.Action) {
	if s.metrics != nil {
		s.metrics.OverrideActions.WithLabelValues(string(action)).Inc()
	}
}

func (s *Service) recordFailure(err error) {
	if s.metrics != nil {
		s.metrics.OverrideFailures.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
	}
}

// notify delivers a best-effort account notice. Failures are logged and
// never propagate; the mutation has already committed.
func (s *Service) notify(ctx context.Context, p *models.Principal, subject, body string) {
	if s.notifier == nil || p.Email == "" {
		return
	}
	if err := s.notifier.Send(ctx, p.Email, subject, body); err != nil {
		s.logger.WarnContext(ctx, "account notice failed",
			"user_id", p.ID.String(),
			"subject", subject,
			"error", err.Error(),
		)
	}
}
