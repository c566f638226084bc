package service

import (
	"context"

	"stagegate/internal/principal/models"
	"stagegate/internal/trust"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/requestcontext"
)

// ApplyTierChange promotes or demotes the target by one step. Talent walks
// the discrete tier order; directors move between derived trust levels, with
// the new level mapped back to a representative score. A target already at
// the boundary is reported as a conflict, never silently accepted.
func (s *Service) ApplyTierChange(ctx context.Context, targetID id.UserID, direction Direction, reason string) (*models.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "override.ApplyTierChange")
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
	if _, err := ParseDirection(string(direction)); err != nil {
		s.recordFailure(err)
		return nil, err
	}

	var (
		updated *models.Principal
		action  audit.Action
		before  map[string]any
		after   map[string]any
	)
	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.principals.Execute(txCtx, targetID,
			func(p *models.Principal) error {
				switch p.Role {
				case models.RoleTalent:
					action = audit.ActionVerificationTierChange
					before = map[string]any{"verificationTier": string(p.VerificationTier)}
				case models.RoleDirector:
					action = audit.ActionTrustTierChange
					before = map[string]any{
						"trustLevel": string(trust.LevelForScore(p.TrustScore)),
						"trustScore": p.TrustScore,
					}
				default:
					return dErrors.New(dErrors.CodeInvalidInput, "target has no trust tier")
				}
				return s.validateTierStep(p, direction)
			},
			func(p *models.Principal) {
				s.applyTierStep(p, direction)
				p.UpdatedAt = requestcontext.Now(txCtx)
			},
		)
		if err != nil {
			return wrapStoreErr(err, "target user")
		}

		switch p.Role {
		case models.RoleTalent:
			after = map[string]any{"verificationTier": string(p.VerificationTier)}
		case models.RoleDirector:
			after = map[string]any{
				"trustLevel": string(trust.LevelForScore(p.TrustScore)),
				"trustScore": p.TrustScore,
			}
		}

		entry := s.entry(txCtx, actorID, action, targetID.String(), string(p.Role), before, after, reason)
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
	return updated, nil
}

// validateTierStep checks the walk is possible without mutating anything.
func (s *Service) validateTierStep(p *models.Principal, direction Direction) error {
	if p.Role == models.RoleTalent {
		if direction == DirectionPromote {
			_, err := trust.NextTier(p.VerificationTier)
			return err
		}
		_, err := trust.PreviousTier(p.VerificationTier)
		return err
	}

	level := trust.LevelForScore(p.TrustScore)
	if direction == DirectionPromote {
		_, err := trust.NextLevel(level)
		return err
	}
	_, err := trust.PreviousLevel(level)
	return err
}

// applyTierStep performs the walk validated by validateTierStep.
func (s *Service) applyTierStep(p *models.Principal, direction Direction) {
	if p.Role == models.RoleTalent {
		if direction == DirectionPromote {
			if next, err := trust.NextTier(p.VerificationTier); err == nil {
				p.VerificationTier = next
			}
			return
		}
		if prev, err := trust.PreviousTier(p.VerificationTier); err == nil {
			p.VerificationTier = prev
		}
		return
	}

	level := trust.LevelForScore(p.TrustScore)
	if direction == DirectionPromote {
		if next, err := trust.NextLevel(level); err == nil {
			p.TrustScore = trust.Clamp(trust.ScoreForLevel(next))
		}
		return
	}
	if prev, err := trust.PreviousLevel(level); err == nil {
		p.TrustScore = trust.Clamp(trust.ScoreForLevel(prev))
	}
}
