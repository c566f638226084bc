// Package publisher provides the fail-closed emitter used by the override
// service. Emit blocks until the ledger append succeeds; on failure the
// calling operation MUST fail, which it does naturally because Emit runs
// inside the mutation transaction.
package publisher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	audit "stagegate/pkg/platform/audit"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit normalizes and synchronously appends one ledger entry.
// The reason is trimmed before persisting so the stored reason always equals
// the trimmed input. Returns error if validation or persistence fails.
func (p *Publisher) Emit(ctx context.Context, entry audit.Entry) error {
	entry.Reason = strings.TrimSpace(entry.Reason)
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := entry.Validate(); err != nil {
		return err
	}

	if err := p.store.Append(ctx, entry); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit append failed",
				"action", string(entry.Action),
				"target_id", entry.TargetID,
				"error", err.Error(),
			)
		}
		return err
	}
	return nil
}

// List returns the ledger entries for one target. Read path for admin views.
func (p *Publisher) List(ctx context.Context, targetID string) ([]audit.Entry, error) {
	return p.store.ListByTarget(ctx, targetID)
}

// ListRecent returns the newest entries across all targets.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	return p.store.ListRecent(ctx, limit)
}
