package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagegate/internal/principal/models"
	"stagegate/internal/restriction"
	id "stagegate/pkg/domain"
	"stagegate/pkg/platform/sentinel"
)

func seedPrincipal(t *testing.T, s *InMemory) *models.Principal {
	t.Helper()
	now := time.Now()
	p := &models.Principal{
		ID:               id.NewUserID(),
		Email:            "talent@example.com",
		Role:             models.RoleTalent,
		VerificationTier: models.TierBasic,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, s.Create(context.Background(), p))
	return p
}

func TestInMemoryCreate(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	p := seedPrincipal(t, s)

	assert.ErrorIs(t, s.Create(ctx, p), sentinel.ErrConflict)
}

func TestInMemoryFindByID(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	p := seedPrincipal(t, s)

	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Email, got.Email)

	_, err = s.FindByID(ctx, id.NewUserID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("validate sees current state, mutate persists", func(t *testing.T) {
		s := NewInMemory()
		p := seedPrincipal(t, s)

		updated, err := s.Execute(ctx, p.ID,
			func(p *models.Principal) error {
				assert.False(t, p.Frozen)
				return nil
			},
			func(p *models.Principal) {
				p.Frozen = true
			},
		)
		require.NoError(t, err)
		assert.True(t, updated.Frozen)

		got, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.Frozen)
	})

	t.Run("validate failure aborts without mutating", func(t *testing.T) {
		s := NewInMemory()
		p := seedPrincipal(t, s)

		_, err := s.Execute(ctx, p.ID,
			func(*models.Principal) error { return sentinel.ErrInvalidState },
			func(p *models.Principal) { p.Frozen = true },
		)
		require.Error(t, err)

		got, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.Frozen)
	})

	t.Run("restriction details deep-copied", func(t *testing.T) {
		s := NewInMemory()
		p := seedPrincipal(t, s)

		_, err := s.Execute(ctx, p.ID, nil, func(p *models.Principal) {
			_ = restriction.Apply(&p.Restrictions, restriction.ShadowLimit, restriction.Detail{
				Reason:    "spam",
				ActorID:   id.NewUserID(),
				AppliedAt: time.Now(),
			})
		})
		require.NoError(t, err)

		got, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		got.Restrictions.Details[restriction.ShadowLimit] = restriction.Detail{Reason: "tampered"}

		again, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "spam", again.Restrictions.Details[restriction.ShadowLimit].Reason)
	})

	t.Run("concurrent increments do not interleave", func(t *testing.T) {
		s := NewInMemory()
		p := seedPrincipal(t, s)

		const workers = 16
		var wg sync.WaitGroup
		wg.Add(workers)
		for range workers {
			go func() {
				defer wg.Done()
				_, err := s.Execute(ctx, p.ID, nil, func(p *models.Principal) {
					p.TrustScore++
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, got.TrustScore)
	})
}
