package consumer

import (
	"context"
	"log/slog"

	audit "stagegate/pkg/platform/audit"
)

// securitySensitive marks the actions the security feed cares about:
// anything that takes capability away from a user or rewrites their standing.
var securitySensitive = map[audit.Action]bool{
	audit.ActionTrustScoreOverride: true,
	audit.ActionAccountFrozen:      true,
	audit.ActionAccountUnfrozen:    true,
	audit.ActionRestrictionApplied: true,
	audit.ActionRestrictionRemoved: true,
	audit.ActionFlagAdded:          true,
	audit.ActionFlagRemoved:        true,
}

// SecuritySensitive reports whether an action belongs on the security feed.
func SecuritySensitive(a audit.Action) bool {
	return securitySensitive[a]
}

// Fanout dispatches one entry to each retention stream. Ops and security are
// best-effort; only a compliance archive failure withholds the commit, since
// that stream is the one with a retention obligation.
type Fanout struct {
	ops        Handler
	security   Handler
	compliance Handler
	logger     *slog.Logger
}

func NewFanout(logger *slog.Logger) *Fanout {
	return &Fanout{logger: logger}
}

func (f *Fanout) WithOps(h Handler) *Fanout        { f.ops = h; return f }
func (f *Fanout) WithSecurity(h Handler) *Fanout   { f.security = h; return f }
func (f *Fanout) WithCompliance(h Handler) *Fanout { f.compliance = h; return f }

func (f *Fanout) Handle(ctx context.Context, entry audit.Entry) error {
	if f.ops != nil {
		if err := f.ops.Handle(ctx, entry); err != nil {
			f.logger.WarnContext(ctx, "ops handler failed",
				"entry_id", entry.ID.String(),
				"error", err.Error(),
			)
		}
	}
	if f.security != nil && SecuritySensitive(entry.Action) {
		if err := f.security.Handle(ctx, entry); err != nil {
			f.logger.WarnContext(ctx, "security handler failed",
				"entry_id", entry.ID.String(),
				"error", err.Error(),
			)
		}
	}
	if f.compliance != nil {
		if err := f.compliance.Handle(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
