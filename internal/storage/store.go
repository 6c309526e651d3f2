package storage

import "context"

// Store is the persistence API used by the scheduler and the digest.
type Store interface {
	// InsertPost stores a new row and returns its assigned id.
	InsertPost(ctx context.Context, p ScheduledPost) (int64, error)

	// GetPost loads one row by id. Returns ErrNotFound if absent.
	GetPost(ctx context.Context, id int64) (*ScheduledPost, error)

	// CountPendingInRange counts pending rows with scheduled_at in [start, end).
	CountPendingInRange(ctx context.Context, start, end int64) (int, error)

	// CountPending counts all pending rows.
	CountPending(ctx context.Context) (int, error)

	// ListPendingInRange returns pending rows with scheduled_at in [start, end),
	// ordered by scheduled_at ascending.
	ListPendingInRange(ctx context.Context, start, end int64) ([]ScheduledPost, error)

	// UpdateStatus sets the status of one row. Returns ErrNotFound when the
	// id does not exist. Setting the same status twice is a harmless overwrite.
	UpdateStatus(ctx context.Context, id int64, status Status) error

	Close() error
}
