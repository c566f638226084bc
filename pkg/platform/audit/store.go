package audit

import (
	"context"
	"errors"
)

// Validation errors returned by Entry.Validate and the publisher.
var (
	ErrUnknownAction = errors.New("audit: unknown action type")
	ErrMissingActor  = errors.New("audit: actor id is required")
	ErrMissingTarget = errors.New("audit: target id is required")
	ErrEmptyReason   = errors.New("audit: reason must be non-empty")
)

// Store is the append-only ledger interface. There are deliberately no update
// or delete operations.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByTarget(ctx context.Context, targetID string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
