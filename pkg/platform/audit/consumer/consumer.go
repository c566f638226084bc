// Package consumer reads relayed ledger entries off the audit topic and fans
// them out to retention-specific handlers: operational metrics, a security
// feed, and a long-term compliance archive. It runs in the auditworker
// process, never in the API server.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "stagegate/pkg/platform/audit"
)

// Handler processes one decoded ledger entry. Returning an error withholds
// the offset commit so the batch is redelivered.
type Handler interface {
	Handle(ctx context.Context, entry audit.Entry) error
}

// Consumer is a committing group consumer over the audit topic.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

func New(seeds []string, topic, group string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer client: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is cancelled. Malformed records are logged and
// skipped; handler failures withhold the commit so the batch comes back.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.WarnContext(ctx, "audit fetch error",
				"topic", topic,
				"partition", partition,
				"error", err.Error(),
			)
		})

		var failed bool
		fetches.EachRecord(func(rec *kgo.Record) {
			if failed {
				return
			}
			var entry audit.Entry
			if err := json.Unmarshal(rec.Value, &entry); err != nil {
				c.logger.WarnContext(ctx, "skipping malformed audit record",
					"key", string(rec.Key),
					"offset", rec.Offset,
					"error", err.Error(),
				)
				return
			}
			if err := c.handler.Handle(ctx, entry); err != nil {
				failed = true
				c.logger.ErrorContext(ctx, "audit entry handling failed, batch will be redelivered",
					"entry_id", entry.ID.String(),
					"action", string(entry.Action),
					"error", err.Error(),
				)
			}
		})
		if failed {
			continue
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.WarnContext(ctx, "audit offset commit failed", "error", err.Error())
		}
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
