package service

import (
	"context"
	"fmt"
	"time"

	"stagegate/internal/principal/models"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/email"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/requestcontext"
)

// SetFrozen toggles the freeze gate on an account. Freezing an already
// frozen account (or unfreezing an unfrozen one) is a reported conflict.
// expiresAt is advisory review metadata recorded in the audit entry.
func (s *Service) SetFrozen(ctx context.Context, targetID id.UserID, frozen bool, reason string, expiresAt *time.Time) (*models.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "override.SetFrozen")
	defer span.End()

	actorID, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	reason, err = requireReason(reason)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	action := audit.ActionAccountUnfrozen
	if frozen {
		action = audit.ActionAccountFrozen
	}

	var (
		updated *models.Principal
		before  map[string]any
	)
	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.principals.Execute(txCtx, targetID,
			func(p *models.Principal) error {
				if err := p.CanSetFrozen(frozen); err != nil {
					if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
						return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
					}
					return err
				}
				before = map[string]any{"frozen": p.Frozen}
				return nil
			},
			func(p *models.Principal) {
				p.ApplySetFrozen(frozen, requestcontext.Now(txCtx))
			},
		)
		if err != nil {
			return wrapStoreErr(err, "target user")
		}

		entry := s.entry(txCtx, actorID, action, targetID.String(), string(p.Role),
			before, map[string]any{"frozen": p.Frozen}, reason)
		if expiresAt != nil {
			if entry.Metadata == nil {
				entry.Metadata = map[string]any{}
			}
			entry.Metadata["expiresAt"] = expiresAt.Format(time.RFC3339)
		}
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

	s.recordSuccess(action)
	s.notifyFreeze(ctx, updated, frozen)
	return updated, nil
}

func (s *Service) notifyFreeze(ctx context.Context, p *models.Principal, frozen bool) {
	first, _ := email.DeriveNameFromEmail(p.Email)
	if frozen {
		s.notify(ctx, p, "Your account has been frozen",
			fmt.Sprintf("Hi %s, your account was frozen pending review. Reply to this notice if you believe this is an error.", first))
		return
	}
	s.notify(ctx, p, "Your account is active again",
		fmt.Sprintf("Hi %s, the freeze on your account has been lifted.", first))
}
