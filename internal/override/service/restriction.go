package service

import (
	"context"
	"fmt"
	"time"

	"stagegate/internal/principal/models"
	"stagegate/internal/restriction"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/email"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/requestcontext"
)

// ApplyRestriction sets one behavioral flag with its own reason, expiry, and
// actor record. Other active flags and their metadata are untouched.
func (s *Service) ApplyRestriction(ctx context.Context, targetID id.UserID, restrictionType restriction.Type, reason string, expiresAt *time.Time) (*models.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "override.ApplyRestriction")
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
	if _, err := restriction.ParseType(string(restrictionType)); err != nil {
		s.recordFailure(err)
		return nil, err
	}

	action := restriction.AuditAction(restrictionType, restriction.ActionApply)
	updated, err := s.transitionRestriction(ctx, actorID, targetID, action, reason,
		func(p *models.Principal, now time.Time) {
			detail := restriction.Detail{
				Reason:    reason,
				ExpiresAt: expiresAt,
				ActorID:   actorID,
				AppliedAt: now,
			}
			// Reason already validated; Apply cannot fail here.
			_ = restriction.Apply(&p.Restrictions, restrictionType, detail)
			p.UpdatedAt = now
		},
	)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.recordSuccess(action)
	s.notifyRestriction(ctx, updated, restrictionType, true)
	return updated, nil
}

// RemoveRestriction clears one flag. The shared display metadata survives
// while any other flag stays active and reads as cleared only after the last
// one is removed.
func (s *Service) RemoveRestriction(ctx context.Context, targetID id.UserID, restrictionType restriction.Type, reason string) (*models.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "override.RemoveRestriction")
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
	if _, err := restriction.ParseType(string(restrictionType)); err != nil {
		s.recordFailure(err)
		return nil, err
	}

	action := restriction.AuditAction(restrictionType, restriction.ActionRemove)
	updated, err := s.transitionRestriction(ctx, actorID, targetID, action, reason,
		func(p *models.Principal, now time.Time) {
			restriction.Remove(&p.Restrictions, restrictionType)
			p.UpdatedAt = now
		},
	)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.recordSuccess(action)
	s.notifyRestriction(ctx, updated, restrictionType, false)
	return updated, nil
}

// transitionRestriction runs one restriction mutation with its audit entry
// in a single transaction.
func (s *Service) transitionRestriction(
	ctx context.Context,
	actorID, targetID id.UserID,
	action audit.Action,
	reason string,
	mutate func(p *models.Principal, now time.Time),
) (*models.Principal, error) {
	var (
		updated *models.Principal
		before  map[string]any
	)
	err := s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.principals.Execute(txCtx, targetID,
			func(p *models.Principal) error {
				before = p.Restrictions.Snapshot()
				return nil
			},
			func(p *models.Principal) {
				mutate(p, requestcontext.Now(txCtx))
			},
		)
		if err != nil {
			return wrapStoreErr(err, "target user")
		}

		entry := s.entry(txCtx, actorID, action, targetID.String(), string(p.Role),
			before, p.Restrictions.Snapshot(), reason)
		if err := s.auditor.Emit(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "audit write failed")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

var restrictionNotices = map[restriction.Type]string{
	restriction.DisableMessaging: "messaging",
	restriction.FreezePosting:    "posting",
}

// notifyRestriction tells the user about visible capability changes. Shadow
// limiting and risk flags are internal and deliberately not announced.
func (s *Service) notifyRestriction(ctx context.Context, p *models.Principal, t restriction.Type, applied bool) {
	capability, ok := restrictionNotices[t]
	if !ok {
		return
	}
	first, _ := email.DeriveNameFromEmail(p.Email)
	if applied {
		s.notify(ctx, p, fmt.Sprintf("Your %s access has been limited", capability),
			fmt.Sprintf("Hi %s, an administrator limited your %s access. Contact support for details.", first, capability))
		return
	}
	s.notify(ctx, p, fmt.Sprintf("Your %s access has been restored", capability),
		fmt.Sprintf("Hi %s, your %s access is available again.", first, capability))
}
