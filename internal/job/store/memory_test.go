package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagegate/internal/job/models"
	id "stagegate/pkg/domain"
	"stagegate/pkg/platform/sentinel"
)

func seedJob(t *testing.T, s *InMemory, approval models.ApprovalStatus, hidden bool, createdAt time.Time) *models.Job {
	t.Helper()
	j := &models.Job{
		ID:             id.NewJobID(),
		Title:          "Background extras",
		OwnerID:        id.NewUserID(),
		Status:         models.StatusOpen,
		ApprovalStatus: approval,
		Hidden:         hidden,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, s.Create(context.Background(), j))
	return j
}

func TestInMemoryListVisible(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	base := time.Now()

	older := seedJob(t, s, models.ApprovalApproved, false, base.Add(-2*time.Hour))
	newer := seedJob(t, s, models.ApprovalApproved, false, base.Add(-time.Hour))
	seedJob(t, s, models.ApprovalApproved, true, base)  // hidden
	seedJob(t, s, models.ApprovalPending, false, base)  // not approved
	seedJob(t, s, models.ApprovalRejected, false, base) // rejected

	jobs, err := s.ListVisible(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, newer.ID, jobs[0].ID, "newest first")
	assert.Equal(t, older.ID, jobs[1].ID)
}

func TestInMemoryExecute(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	j := seedJob(t, s, models.ApprovalApproved, false, time.Now())

	t.Run("validate failure leaves state untouched", func(t *testing.T) {
		_, err := s.Execute(ctx, j.ID,
			func(*models.Job) error { return errors.New("nope") },
			func(j *models.Job) { j.Hidden = true },
		)
		require.Error(t, err)

		got, err := s.FindByID(ctx, j.ID)
		require.NoError(t, err)
		assert.False(t, got.Hidden)
	})

	t.Run("mutation persists", func(t *testing.T) {
		updated, err := s.Execute(ctx, j.ID, nil, func(j *models.Job) {
			j.Hidden = true
		})
		require.NoError(t, err)
		assert.True(t, updated.Hidden)

		got, err := s.FindByID(ctx, j.ID)
		require.NoError(t, err)
		assert.True(t, got.Hidden)
	})

	t.Run("missing job is a not-found sentinel", func(t *testing.T) {
		_, err := s.Execute(ctx, id.NewJobID(), nil, func(*models.Job) {})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("returned job is a copy", func(t *testing.T) {
		got, err := s.FindByID(ctx, j.ID)
		require.NoError(t, err)
		got.Title = "mutated alias"

		again, err := s.FindByID(ctx, j.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated alias", again.Title)
	})
}
