// Package outbox ships committed audit entries from the Postgres outbox table
// to Kafka. The outbox row is the durable ledger record; Kafka delivery is a
// downstream fan-out for SIEM and compliance consumers and may lag.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "stagegate/pkg/platform/audit"
	auditpg "stagegate/pkg/platform/audit/store/postgres"
	"stagegate/pkg/platform/circuit"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Producer abstracts the Kafka client so the relay is testable with a fake.
type Producer interface {
	Produce(ctx context.Context, key string, value []byte) error
}

// Relay polls the outbox for unpublished entries and produces them in order.
type Relay struct {
	store        *auditpg.Store
	producer     Producer
	logger       *slog.Logger
	breaker      *circuit.Breaker
	batchSize    int
	pollInterval time.Duration
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		r.batchSize = n
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		r.pollInterval = d
	}
}

// WithBreaker guards the producer. While open, each drain sends a single
// probe entry instead of a full batch so a broker outage does not burn a
// batch of produce timeouts per tick.
func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) {
		r.breaker = b
	}
}

func New(store *auditpg.Store, producer Producer, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:        store,
		producer:     producer,
		logger:       logger,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; they never affect the primary mutation path.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit outbox drain failed", "error", err.Error())
			}
		}
	}
}

// Drain publishes one batch of unpublished entries. Exposed for tests and for
// a final flush on shutdown.
func (r *Relay) Drain(ctx context.Context) error {
	entries, err := r.store.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	if r.breaker != nil && r.breaker.IsOpen() {
		entries = entries[:1]
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal outbox entry %s: %w", entry.ID, err)
		}
		// Keyed by target so per-target ordering survives partitioning.
		if err := r.producer.Produce(ctx, entry.TargetID, value); err != nil {
			if r.breaker != nil {
				if _, change := r.breaker.RecordFailure(); change.Opened {
					r.logger.WarnContext(ctx, "audit producer circuit opened", "breaker", r.breaker.Name())
				}
			}
			break
		}
		if r.breaker != nil {
			if _, change := r.breaker.RecordSuccess(); change.Closed {
				r.logger.InfoContext(ctx, "audit producer circuit closed", "breaker", r.breaker.Name())
			}
		}
		published = append(published, entry.ID)
	}
	if len(published) == 0 {
		return fmt.Errorf("no outbox entries published")
	}
	return r.store.MarkPublished(ctx, published, time.Now())
}

var _ audit.Store = (*auditpg.Store)(nil)
