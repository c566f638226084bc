//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagegate/internal/principal/models"
	"stagegate/internal/restriction"
	id "stagegate/pkg/domain"
	"stagegate/pkg/platform/sentinel"
	"stagegate/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	t.Cleanup(func() {
		_ = pg.DB.Close()
		_ = pg.Container.Terminate(context.Background())
	})
	pg.ApplySchema(t, Schema)

	ctx := context.Background()
	s := NewPostgres(pg.DB)

	seed := func(t *testing.T) *models.Principal {
		t.Helper()
		now := time.Now().UTC().Truncate(time.Microsecond)
		p := &models.Principal{
			ID:                id.NewUserID(),
			Email:             "talent@example.com",
			Role:              models.RoleTalent,
			VerificationTier:  models.TierBasic,
			ProfileCompletion: 70,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		require.NoError(t, s.Create(ctx, p))
		return p
	}

	t.Run("create and find round-trips all columns", func(t *testing.T) {
		pg.TruncateAll(t, "principals")
		now := time.Now().UTC().Truncate(time.Microsecond)
		p := &models.Principal{
			ID:               id.NewUserID(),
			Email:            "director@example.com",
			Role:             models.RoleDirector,
			TrustScore:       55,
			Frozen:           true,
			PaymentConfirmed: true,
			PaymentReference: "WISE-2031",
			Restrictions: restriction.State{
				MessagingDisabled: true,
				Details: map[restriction.Type]restriction.Detail{
					restriction.DisableMessaging: {
						Reason:    "spam reports",
						ActorID:   id.NewUserID(),
						AppliedAt: now,
					},
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, s.Create(ctx, p))

		got, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Email, got.Email)
		assert.Equal(t, models.RoleDirector, got.Role)
		assert.Equal(t, 55, got.TrustScore)
		assert.True(t, got.Frozen)
		assert.True(t, got.PaymentConfirmed)
		assert.Equal(t, "WISE-2031", got.PaymentReference)
		assert.True(t, got.Restrictions.MessagingDisabled)
		require.Contains(t, got.Restrictions.Details, restriction.DisableMessaging)
		assert.Equal(t, "spam reports", got.Restrictions.Details[restriction.DisableMessaging].Reason)
	})

	t.Run("missing principal maps to not found", func(t *testing.T) {
		_, err := s.FindByID(ctx, id.NewUserID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("execute persists the mutation", func(t *testing.T) {
		pg.TruncateAll(t, "principals")
		p := seed(t)

		updated, err := s.Execute(ctx, p.ID,
			func(p *models.Principal) error {
				assert.False(t, p.Frozen)
				return nil
			},
			func(p *models.Principal) {
				p.Frozen = true
				p.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
			},
		)
		require.NoError(t, err)
		assert.True(t, updated.Frozen)

		got, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.Frozen)
	})

	t.Run("validate failure rolls back without mutating", func(t *testing.T) {
		pg.TruncateAll(t, "principals")
		p := seed(t)

		wantErr := errors.New("already frozen")
		_, err := s.Execute(ctx, p.ID,
			func(*models.Principal) error { return wantErr },
			func(p *models.Principal) { p.Frozen = true },
		)
		assert.ErrorIs(t, err, wantErr)

		got, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.Frozen)
	})

	t.Run("execute on missing principal maps to not found", func(t *testing.T) {
		_, err := s.Execute(ctx, id.NewUserID(), nil, func(*models.Principal) {})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
