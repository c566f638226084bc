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

// OverrideTrustScore sets a director's trust score directly. Out-of-range
// input is rejected at the boundary rather than silently clamped; the clamp
// only runs on the already-validated value.
func (s *Service) OverrideTrustScore(ctx context.Context, targetID id.UserID, newScore int, reason string) (*models.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "override.OverrideTrustScore")
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
	if !trust.ValidScore(newScore) {
		err := dErrors.Newf(dErrors.CodeInvalidInput, "trust score must be between %d and %d", trust.MinScore, trust.MaxScore)
		s.recordFailure(err)
		return nil, err
	}

	var (
		updated *models.Principal
		before  map[string]any
	)
	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.principals.Execute(txCtx, targetID,
			func(p *models.Principal) error {
				if !p.IsDirector() {
					return dErrors.New(dErrors.CodeInvalidInput, "trust score applies to directors only")
				}
				before = map[string]any{
					"trustScore": p.TrustScore,
					"trustLevel": string(trust.LevelForScore(p.TrustScore)),
				}
				return nil
			},
			func(p *models.Principal) {
				p.TrustScore = trust.Clamp(newScore)
				p.UpdatedAt = requestcontext.Now(txCtx)
			},
		)
		if err != nil {
			return wrapStoreErr(err, "target user")
		}

		after := map[string]any{
			"trustScore": p.TrustScore,
			"trustLevel": string(trust.LevelForScore(p.TrustScore)),
		}
		entry := s.entry(txCtx, actorID, audit.ActionTrustScoreOverride, targetID.String(), string(p.Role), before, after, reason)
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

	s.recordSuccess(audit.ActionTrustScoreOverride)
	return updated, nil
}
