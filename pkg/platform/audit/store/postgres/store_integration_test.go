//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "stagegate/pkg/domain"
	audit "stagegate/pkg/platform/audit"
	"stagegate/pkg/testutil/containers"
)

func TestPostgresAuditStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	t.Cleanup(func() {
		_ = pg.DB.Close()
		_ = pg.Container.Terminate(context.Background())
	})
	pg.ApplySchema(t, Schema)

	ctx := context.Background()
	s := New(pg.DB)

	newEntry := func(target string, action audit.Action, createdAt time.Time) audit.Entry {
		return audit.Entry{
			ID:        uuid.New(),
			ActorID:   id.NewUserID(),
			ActorRole: "ADMIN",
			TargetID:  target,
			Action:    action,
			Reason:    "routine moderation",
			CreatedAt: createdAt,
		}
	}

	t.Run("append and list by target round-trips the payload", func(t *testing.T) {
		pg.TruncateAll(t, "audit_outbox")
		base := time.Now().UTC().Truncate(time.Microsecond)
		target := id.NewUserID().String()

		first := newEntry(target, audit.ActionAccountFrozen, base)
		first.Before = map[string]any{"frozen": false}
		first.After = map[string]any{"frozen": true}
		second := newEntry(target, audit.ActionAccountUnfrozen, base.Add(time.Second))
		require.NoError(t, s.Append(ctx, first))
		require.NoError(t, s.Append(ctx, second))
		require.NoError(t, s.Append(ctx, newEntry(id.NewUserID().String(), audit.ActionFlagAdded, base)))

		got, err := s.ListByTarget(ctx, target)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, audit.ActionAccountFrozen, got[0].Action)
		assert.Equal(t, first.ActorID, got[0].ActorID)
		assert.Equal(t, "routine moderation", got[0].Reason)
		assert.Equal(t, map[string]any{"frozen": true}, got[0].After)
		assert.Equal(t, second.ID, got[1].ID)
	})

	t.Run("invalid entry is rejected before insert", func(t *testing.T) {
		entry := newEntry(id.NewUserID().String(), audit.ActionAccountFrozen, time.Now())
		entry.Reason = "   "
		assert.Error(t, s.Append(ctx, entry))
	})

	t.Run("list recent is newest first with limit", func(t *testing.T) {
		pg.TruncateAll(t, "audit_outbox")
		base := time.Now().UTC().Truncate(time.Microsecond)
		for i := 0; i < 3; i++ {
			e := newEntry(id.NewUserID().String(), audit.ActionJobHidden, base.Add(time.Duration(i)*time.Second))
			require.NoError(t, s.Append(ctx, e))
		}

		got, err := s.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
	})

	t.Run("relay cursor only sees unpublished rows", func(t *testing.T) {
		pg.TruncateAll(t, "audit_outbox")
		base := time.Now().UTC().Truncate(time.Microsecond)
		first := newEntry(id.NewUserID().String(), audit.ActionFlagAdded, base)
		second := newEntry(id.NewUserID().String(), audit.ActionFlagRemoved, base.Add(time.Second))
		require.NoError(t, s.Append(ctx, first))
		require.NoError(t, s.Append(ctx, second))

		pending, err := s.ListUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)

		require.NoError(t, s.MarkPublished(ctx, []uuid.UUID{first.ID}, time.Now().UTC()))

		pending, err = s.ListUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)
	})
}
