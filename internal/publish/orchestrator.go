// Package publish drives a post from slot reservation to downstream
// submission, retrying with a fresh slot when SMMBox rejects the attempt.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clipbot/internal/smmbox"
	"clipbot/internal/storage"
	"clipbot/internal/videosource"
	logx "clipbot/pkg/logx"
)

// DefaultMaxAttempts caps the reallocation loop.
const DefaultMaxAttempts = 3

// ErrAttemptsExhausted means every allocated slot was rejected downstream.
// No pending row is left behind when this is returned.
var ErrAttemptsExhausted = errors.New("publish: all attempts exhausted")

// Calendar is the slice of the scheduler the orchestrator needs.
type Calendar interface {
	AddPost(ctx context.Context, videoURL, videoTitle, platform string) (*storage.ScheduledPost, error)
	MarkAsPosted(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
}

// ClipPublisher is the downstream publish call.
type ClipPublisher interface {
	PostClip(ctx context.Context, clip smmbox.ClipPost) error
}

// Receipt reports a successful publication.
type Receipt struct {
	PostID      int64
	ScheduledAt int64
	Attempts    int
}

// Config configures the orchestrator.
type Config struct {
	// MaxAttempts caps slot reallocations; 0 means DefaultMaxAttempts.
	MaxAttempts int
}

// Orchestrator owns the attempt loop. The scheduler stays retry-free: all
// business-level retry policy lives here.
type Orchestrator struct {
	cal         Calendar
	pub         ClipPublisher
	maxAttempts int
	log         logx.Logger
}

func New(cal Calendar, pub ClipPublisher, cfg Config, log logx.Logger) (*Orchestrator, error) {
	if cal == nil {
		return nil, errors.New("publish: calendar is required")
	}
	if pub == nil {
		return nil, errors.New("publish: publisher is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	max := cfg.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	return &Orchestrator{cal: cal, pub: pub, maxAttempts: max, log: log}, nil
}

// Publish reserves a slot and submits the clip to SMMBox.
//
// A rejected attempt marks its row failed (vacating the slot) and retries
// with a freshly allocated one. Scheduler/storage errors abort immediately:
// only downstream publish rejections are retried.
func (o *Orchestrator) Publish(ctx context.Context, info *videosource.VideoInfo, title string) (*Receipt, error) {
	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		post, err := o.cal.AddPost(ctx, info.URL, title, info.Platform)
		if err != nil {
			return nil, fmt.Errorf("allocate slot: %w", err)
		}

		err = o.pub.PostClip(ctx, smmbox.ClipPost{
			VideoURL:    info.URL,
			Title:       title,
			ScheduledAt: post.ScheduledAt,
			PreviewURL:  info.Thumbnail,
		})
		if err == nil {
			if mErr := o.cal.MarkAsPosted(ctx, post.ID); mErr != nil {
				o.log.Warn("post published but status update failed",
					logx.Int64("id", post.ID), logx.Err(mErr))
			}
			return &Receipt{PostID: post.ID, ScheduledAt: post.ScheduledAt, Attempts: attempt}, nil
		}
		lastErr = err

		if mErr := o.cal.MarkAsFailed(ctx, post.ID); mErr != nil {
			o.log.Error("failed to vacate rejected slot",
				logx.Int64("id", post.ID), logx.Err(mErr))
		}
		o.log.Warn("publish attempt rejected, reallocating slot",
			logx.Int("attempt", attempt),
			logx.Int("max_attempts", o.maxAttempts),
			logx.Time("slot", time.Unix(post.ScheduledAt, 0)),
			logx.Err(err),
		)
	}

	return nil, fmt.Errorf("%w (%d attempts): %v", ErrAttemptsExhausted, o.maxAttempts, lastErr)
}
