package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned by status updates that reference an unknown post id.
var ErrNotFound = errors.New("post not found")

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Status is the lifecycle state of a scheduled post.
//
// A post is created pending, then moves to posted (published downstream) or
// failed (slot vacated; retries create a fresh row). Rows are never deleted:
// posted/failed history stays around for stats and audit.
type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// ScheduledPost is a single reserved publish slot.
//
// ScheduledAt and CreatedAt are Unix seconds. ScheduledAt is immutable once
// assigned; a retry supersedes it with a new row rather than moving this one.
type ScheduledPost struct {
	ID          int64
	VideoURL    string
	VideoTitle  string
	Platform    string
	ScheduledAt int64
	CreatedAt   int64
	Status      Status
}
