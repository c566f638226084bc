// Package store persists principals. Two implementations: in-memory for
// tests and single-process runs, Postgres for real deployments.
package store

import (
	"context"

	"stagegate/internal/principal/models"
	id "stagegate/pkg/domain"
)

// Store is the principal persistence port used by the override, gate, and
// payment services.
//
// Execute runs an atomic validate-then-mutate: the implementation holds its
// lock (mutex or SELECT ... FOR UPDATE) across both callbacks so no other
// writer can interleave between validation and mutation. It returns the
// post-mutation principal. Validation errors abort without mutating.
type Store interface {
	Create(ctx context.Context, p *models.Principal) error
	FindByID(ctx context.Context, userID id.UserID) (*models.Principal, error)
	Execute(
		ctx context.Context,
		userID id.UserID,
		validate func(p *models.Principal) error,
		mutate func(p *models.Principal),
	) (*models.Principal, error)
}
