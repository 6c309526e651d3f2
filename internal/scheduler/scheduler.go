package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"clipbot/internal/storage"
	logx "clipbot/pkg/logx"
)

// DefaultDailyLimit is used when config omits posting.daily_limit.
const DefaultDailyLimit = 7

const (
	// No new slots are allocated for the current day at or after this hour.
	dayCutoffHour = 23

	// A computed slot that already elapsed is replaced with now + this delay.
	pastSlotDelay = 300 * time.Second
)

// Config configures the scheduler.
type Config struct {
	// DailyLimit caps how many pending posts a single day may hold.
	// Zero means DefaultDailyLimit; negative values are rejected.
	DailyLimit int
}

// Stats is a point-in-time snapshot of the posting queue.
type Stats struct {
	TotalPending int
	Today        int
	Tomorrow     int
	DailyLimit   int
}

// Scheduler owns the posting calendar: it allocates publish slots,
// registers posts and tracks their lifecycle.
type Scheduler struct {
	store storage.Store
	clock Clock
	log   logx.Logger

	limit atomic.Int64

	// mu serializes AddPost so count-then-insert is atomic with respect to
	// other AddPost calls. Without it two callers could both observe count=N
	// for a day and double-book slot N.
	mu sync.Mutex
}

// New creates a Scheduler. store and clock are required.
func New(store storage.Store, cfg Config, clock Clock, log logx.Logger) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("scheduler: store is required")
	}
	if clock == nil {
		return nil, errors.New("scheduler: clock is required")
	}
	if cfg.DailyLimit < 0 {
		return nil, fmt.Errorf("scheduler: daily limit must be positive, got %d", cfg.DailyLimit)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Scheduler{store: store, clock: clock, log: log}
	limit := cfg.DailyLimit
	if limit == 0 {
		limit = DefaultDailyLimit
	}
	s.limit.Store(int64(limit))
	return s, nil
}

// DailyLimit returns the current per-day post cap.
func (s *Scheduler) DailyLimit() int { return int(s.limit.Load()) }

// SetDailyLimit applies a new per-day cap at runtime (config hot reload).
// Non-positive values are ignored.
func (s *Scheduler) SetDailyLimit(n int) {
	if n <= 0 {
		return
	}
	if old := s.limit.Swap(int64(n)); old != int64(n) {
		s.log.Info("daily limit changed", logx.Int64("old", old), logx.Int("new", n))
	}
}

// AddPost reserves the next free slot and registers a pending post in it.
//
// The returned post carries the assigned id and the resolved publish instant.
// The instant is never in the past: an elapsed slot is bumped to now+5m.
func (s *Scheduler) AddPost(ctx context.Context, videoURL, videoTitle, platform string) (*storage.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One clock read per operation keeps the past-slot bump well-defined.
	now := s.clock.Now()

	ts, day, slot, err := s.nextFreeSlot(ctx, now)
	if err != nil {
		return nil, err
	}

	p := storage.ScheduledPost{
		VideoURL:    videoURL,
		VideoTitle:  videoTitle,
		Platform:    platform,
		ScheduledAt: ts,
		CreatedAt:   now.Unix(),
		Status:      storage.StatusPending,
	}
	id, err := s.store.InsertPost(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	p.ID = id

	s.log.Info("post scheduled",
		logx.Int64("id", id),
		logx.String("platform", platform),
		logx.Time("at", time.Unix(ts, 0).In(now.Location())),
		logx.String("day", day.Format("2006-01-02")),
		logx.Int("slot", slot),
	)
	return &p, nil
}

// nextFreeSlot walks days forward until one has capacity, then returns the
// first slot of that day whose instant no pending row holds. Scanning from
// slot 0 lets a vacated mid-day slot (failed row) be reused before later
// indices, and the exact-instant probe keeps the invariant that no two
// pending rows ever share a timestamp.
//
// The walk always terminates: each new day starts with zero pending posts,
// and a day with fewer pending rows than slots always has a free instant.
func (s *Scheduler) nextFreeSlot(ctx context.Context, now time.Time) (ts int64, day time.Time, slot int, err error) {
	limit := s.DailyLimit()

	day = midnight(now)
	if now.Hour() >= dayCutoffHour {
		day = day.AddDate(0, 0, 1)
	}

	for {
		dayStart := day.Unix()
		dayEnd := day.AddDate(0, 0, 1).Unix()

		n, err := s.store.CountPendingInRange(ctx, dayStart, dayEnd)
		if err != nil {
			return 0, day, 0, fmt.Errorf("count posts for day: %w", err)
		}
		if n < limit {
			for slot := 0; slot < limit; slot++ {
				ts := slotTime(day, slot, limit).Unix()
				taken, err := s.store.CountPendingInRange(ctx, ts, ts+1)
				if err != nil {
					return 0, day, slot, fmt.Errorf("probe slot instant: %w", err)
				}
				if taken > 0 {
					continue
				}
				if ts < now.Unix() {
					ts = now.Add(pastSlotDelay).Unix()
				}
				return ts, day, slot, nil
			}
		}
		day = day.AddDate(0, 0, 1)
	}
}

// CountPostsForDay counts pending posts with a publish instant in [start, end).
func (s *Scheduler) CountPostsForDay(ctx context.Context, start, end int64) (int, error) {
	return s.store.CountPendingInRange(ctx, start, end)
}

// MarkAsPosted records that the post was accepted downstream. Terminal.
func (s *Scheduler) MarkAsPosted(ctx context.Context, id int64) error {
	if err := s.store.UpdateStatus(ctx, id, storage.StatusPosted); err != nil {
		return err
	}
	s.log.Info("post marked as posted", logx.Int64("id", id))
	return nil
}

// MarkAsFailed records a rejected publish attempt. Terminal for this row:
// the slot it held is vacated (searches count only pending rows), and a
// retry registers a fresh row instead of reusing this one.
func (s *Scheduler) MarkAsFailed(ctx context.Context, id int64) error {
	if err := s.store.UpdateStatus(ctx, id, storage.StatusFailed); err != nil {
		return err
	}
	s.log.Warn("post marked as failed", logx.Int64("id", id))
	return nil
}

// Stats reports pending counts for today, tomorrow and overall.
func (s *Scheduler) Stats(ctx context.Context) (*Stats, error) {
	now := s.clock.Now()

	todayStart := midnight(now)
	tomorrowStart := todayStart.AddDate(0, 0, 1)
	dayAfterStart := todayStart.AddDate(0, 0, 2)

	total, err := s.store.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.store.CountPendingInRange(ctx, todayStart.Unix(), tomorrowStart.Unix())
	if err != nil {
		return nil, err
	}
	tomorrow, err := s.store.CountPendingInRange(ctx, tomorrowStart.Unix(), dayAfterStart.Unix())
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalPending: total,
		Today:        today,
		Tomorrow:     tomorrow,
		DailyLimit:   s.DailyLimit(),
	}, nil
}
