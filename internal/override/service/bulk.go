package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"stagegate/internal/principal/models"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/email"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/requestcontext"
)

// bulkConcurrency bounds the parallel confirmations in one bulk request.
const bulkConcurrency = 4

const defaultConfirmReason = "payment confirmed"

// BulkFailure records one user that could not be confirmed.
type BulkFailure struct {
	UserID  id.UserID `json:"userId"`
	Message string    `json:"message"`
}

// BulkResult itemizes the outcome of a bulk confirmation. The operation is
// not transactional across users: confirmed users stay confirmed even when
// others fail.
type BulkResult struct {
	Confirmed int           `json:"confirmed"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkConfirmPayments confirms payment for each listed user independently,
// writing one ledger entry per successful confirmation. Per-user failures
// are collected, never propagated.
func (s *Service) BulkConfirmPayments(ctx context.Context, userIDs []id.UserID, reason string) (*BulkResult, error) {
	ctx, span := s.tracer.Start(ctx, "override.BulkConfirmPayments")
	defer span.End()

	actorID, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "userIds is required")
	}
	if trimmed, err := requireReason(reason); err == nil {
		reason = trimmed
	} else {
		reason = defaultConfirmReason
	}

	var (
		mu     sync.Mutex
		result BulkResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			confirmed, err := s.confirmPayment(gctx, actorID, userID, reason)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, BulkFailure{
					UserID:  userID,
					Message: dErrors.MessageOf(err),
				})
				return nil
			}
			result.Confirmed++
			if s.metrics != nil {
				s.metrics.PaymentsConfirmed.Inc()
			}
			s.notifyPaymentConfirmed(gctx, confirmed)
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "bulk confirmation interrupted")
	}

	s.recordSuccess(audit.ActionOther)
	return &result, nil
}

func (s *Service) confirmPayment(ctx context.Context, actorID, targetID id.UserID, reason string) (*models.Principal, error) {
	var (
		updated *models.Principal
		before  map[string]any
	)
	err := s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.principals.Execute(txCtx, targetID,
			func(p *models.Principal) error {
				if err := p.CanConfirmPayment(); err != nil {
					if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
						return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
					}
					return err
				}
				before = map[string]any{
					"paymentConfirmed": p.PaymentConfirmed,
					"frozen":           p.Frozen,
				}
				return nil
			},
			func(p *models.Principal) {
				p.ApplyPaymentConfirmed(requestcontext.Now(txCtx))
			},
		)
		if err != nil {
			return wrapStoreErr(err, "target user")
		}

		entry := s.entry(txCtx, actorID, audit.ActionOther, targetID.String(), string(p.Role),
			before,
			map[string]any{"paymentConfirmed": p.PaymentConfirmed, "frozen": p.Frozen},
			reason)
		if entry.Metadata == nil {
			entry.Metadata = map[string]any{}
		}
		entry.Metadata["operation"] = "PAYMENT_CONFIRMED"
		entry.Metadata["bulk"] = true
		if err := s.auditor.Emit(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "audit write failed")
		}
		updated = p
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}
	return updated, nil
}

func (s *Service) notifyPaymentConfirmed(ctx context.Context, p *models.Principal) {
	first, _ := email.DeriveNameFromEmail(p.Email)
	s.notify(ctx, p, "Your payment has been confirmed",
		"Hi "+first+", your payment was confirmed and your account is fully active.")
}
