package service

import (
	"context"

	jobmodels "stagegate/internal/job/models"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/requestcontext"
)

var jobLedgerActions = map[jobmodels.AdminAction]audit.Action{
	jobmodels.ActionCloseEarly: audit.ActionJobClosedEarly,
	jobmodels.ActionApprove:    audit.ActionJobApproved,
	jobmodels.ActionReject:     audit.ActionJobRejected,
	jobmodels.ActionHide:       audit.ActionJobHidden,
	jobmodels.ActionUnhide:     audit.ActionJobUnhidden,
}

// JobAction applies one moderation action to a job posting and records it in
// the ledger. Every action is idempotent at the state level but still appends
// a fresh entry; repeated moderation is itself a fact worth keeping.
func (s *Service) JobAction(ctx context.Context, jobID id.JobID, action jobmodels.AdminAction, reason string) (*jobmodels.Job, error) {
	ctx, span := s.tracer.Start(ctx, "override.JobAction")
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
	if _, err := jobmodels.ParseAdminAction(string(action)); err != nil {
		s.recordFailure(err)
		return nil, err
	}

	ledgerAction := jobLedgerActions[action]
	var (
		updated *jobmodels.Job
		before  map[string]any
	)
	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		j, err := s.jobs.Execute(txCtx, jobID,
			func(j *jobmodels.Job) error {
				before = j.Snapshot()
				return nil
			},
			func(j *jobmodels.Job) {
				// Action already validated; Apply cannot fail here.
				_ = j.ApplyAdminAction(action, reason, requestcontext.Now(txCtx))
			},
		)
		if err != nil {
			return wrapStoreErr(err, "job")
		}

		entry := s.entry(txCtx, actorID, ledgerAction, jobID.String(), "job",
			before, j.Snapshot(), reason)
		if err := s.auditor.Emit(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "audit write failed")
		}
		updated = j
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.recordSuccess(ledgerAction)
	return updated, nil
}
