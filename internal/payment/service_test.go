package payment

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagegate/internal/principal/models"
	principalstore "stagegate/internal/principal/store"
	"stagegate/internal/ratelimit/bucket"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
)

func seedTalent(t *testing.T, store *principalstore.InMemory) *models.Principal {
	t.Helper()
	now := time.Now()
	p := &models.Principal{
		ID:               id.NewUserID(),
		Email:            "mira.chen@example.com",
		Role:             models.RoleTalent,
		VerificationTier: models.TierComplete,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func TestSubmitPaymentReference(t *testing.T) {
	t.Run("stores the trimmed reference", func(t *testing.T) {
		store := principalstore.NewInMemory()
		p := seedTalent(t, store)
		svc := New(store, nil)

		updated, err := svc.SubmitPaymentReference(context.Background(), p.ID, "  WISE-8841  ")
		require.NoError(t, err)
		assert.Equal(t, "WISE-8841", updated.PaymentReference)
		assert.False(t, updated.PaymentConfirmed)
	})

	t.Run("resubmission replaces the pending reference", func(t *testing.T) {
		store := principalstore.NewInMemory()
		p := seedTalent(t, store)
		svc := New(store, nil)

		_, err := svc.SubmitPaymentReference(context.Background(), p.ID, "WISE-8841")
		require.NoError(t, err)
		updated, err := svc.SubmitPaymentReference(context.Background(), p.ID, "REVOLUT-0042")
		require.NoError(t, err)
		assert.Equal(t, "REVOLUT-0042", updated.PaymentReference)
	})

	t.Run("empty and oversized references rejected", func(t *testing.T) {
		store := principalstore.NewInMemory()
		p := seedTalent(t, store)
		svc := New(store, nil)

		for _, ref := range []string{"", "   ", strings.Repeat("x", maxReferenceLength+1)} {
			_, err := svc.SubmitPaymentReference(context.Background(), p.ID, ref)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("non-talent caller is forbidden", func(t *testing.T) {
		store := principalstore.NewInMemory()
		now := time.Now()
		p := &models.Principal{
			ID:        id.NewUserID(),
			Email:     "marco.lehner@example.com",
			Role:      models.RoleDirector,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, store.Create(context.Background(), p))
		svc := New(store, nil)

		_, err := svc.SubmitPaymentReference(context.Background(), p.ID, "WISE-8841")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("confirmed payment cannot be resubmitted", func(t *testing.T) {
		store := principalstore.NewInMemory()
		p := seedTalent(t, store)
		_, err := store.Execute(context.Background(), p.ID,
			func(*models.Principal) error { return nil },
			func(p *models.Principal) { p.PaymentReference = "WISE-1"; p.PaymentConfirmed = true },
		)
		require.NoError(t, err)
		svc := New(store, nil)

		_, err = svc.SubmitPaymentReference(context.Background(), p.ID, "WISE-2")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		svc := New(principalstore.NewInMemory(), nil)
		_, err := svc.SubmitPaymentReference(context.Background(), id.NewUserID(), "WISE-8841")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSubmitPaymentReferenceRateLimit(t *testing.T) {
	t.Run("sixth submission in the window is rejected", func(t *testing.T) {
		store := principalstore.NewInMemory()
		p := seedTalent(t, store)
		svc := New(store, bucket.NewInMemory())

		for i := 0; i < SubmissionLimit; i++ {
			_, err := svc.SubmitPaymentReference(context.Background(), p.ID, fmt.Sprintf("WISE-%d", i))
			require.NoError(t, err, "submission %d should be within the limit", i+1)
		}

		_, err := svc.SubmitPaymentReference(context.Background(), p.ID, "WISE-overflow")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

		// The rejected attempt must not overwrite the stored reference.
		got, err := store.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("WISE-%d", SubmissionLimit-1), got.PaymentReference)
	})

	t.Run("limit is per user", func(t *testing.T) {
		store := principalstore.NewInMemory()
		a := seedTalent(t, store)
		limiter := bucket.NewInMemory()
		svc := New(store, limiter)

		for i := 0; i < SubmissionLimit; i++ {
			_, err := svc.SubmitPaymentReference(context.Background(), a.ID, "WISE-1")
			require.NoError(t, err)
		}

		now := time.Now()
		b := &models.Principal{
			ID:        id.NewUserID(),
			Email:     "other.talent@example.com",
			Role:      models.RoleTalent,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, store.Create(context.Background(), b))

		_, err := svc.SubmitPaymentReference(context.Background(), b.ID, "WISE-2")
		assert.NoError(t, err)
	})

	t.Run("limiter outage lets the submission through", func(t *testing.T) {
		store := principalstore.NewInMemory()
		p := seedTalent(t, store)
		svc := New(store, failingLimiter{})

		updated, err := svc.SubmitPaymentReference(context.Background(), p.ID, "WISE-8841")
		require.NoError(t, err)
		assert.Equal(t, "WISE-8841", updated.PaymentReference)
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (*bucket.Result, error) {
	return nil, dErrors.New(dErrors.CodeUnavailable, "redis down")
}

func (failingLimiter) Reset(context.Context, string) error { return nil }
