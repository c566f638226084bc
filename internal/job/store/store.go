// Package store persists jobs for the moderation and listing surfaces.
package store

import (
	"context"

	"stagegate/internal/job/models"
	id "stagegate/pkg/domain"
)

// Store is the job persistence port. Execute follows the same atomic
// validate-then-mutate contract as the principal store.
type Store interface {
	Create(ctx context.Context, j *models.Job) error
	FindByID(ctx context.Context, jobID id.JobID) (*models.Job, error)
	ListVisible(ctx context.Context) ([]*models.Job, error)
	Execute(
		ctx context.Context,
		jobID id.JobID,
		validate func(j *models.Job) error,
		mutate func(j *models.Job),
	) (*models.Job, error)
}
