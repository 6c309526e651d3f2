// Package digest sends a scheduled morning summary of the posting queue.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"clipbot/internal/scheduler"
	"clipbot/internal/storage"
	kit "clipbot/internal/transport"
	logx "clipbot/pkg/logx"
	"clipbot/pkg/tgui"
)

// DefaultSpec fires every morning at 09:00.
const DefaultSpec = "0 9 * * *"

const previewCount = 5

// Queue is the scheduler slice the digest reads.
type Queue interface {
	Stats(ctx context.Context) (*scheduler.Stats, error)
}

// PendingLister exposes the day's pending rows for the preview block.
type PendingLister interface {
	ListPendingInRange(ctx context.Context, start, end int64) ([]storage.ScheduledPost, error)
}

// Sender is the adapter slice the digest writes to.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

type Config struct {
	// Spec is a 5-field cron expression; empty means DefaultSpec.
	Spec string

	// ChatID receives the digest.
	ChatID int64

	// Location drives both the cron schedule and day boundaries.
	// Nil means time.Local.
	Location *time.Location
}

// Service runs the digest on a cron schedule.
type Service struct {
	cfg    Config
	queue  Queue
	lister PendingLister
	sender Sender
	log    logx.Logger

	c     *cron.Cron
	clock func() time.Time
}

func New(cfg Config, queue Queue, lister PendingLister, sender Sender, log logx.Logger) (*Service, error) {
	if queue == nil || lister == nil || sender == nil {
		return nil, errors.New("digest: queue, lister and sender are required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("digest: chat_id is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if strings.TrimSpace(cfg.Spec) == "" {
		cfg.Spec = DefaultSpec
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		queue:  queue,
		lister: lister,
		sender: sender,
		log:    log,
		clock:  func() time.Time { return time.Now().In(cfg.Location) },
	}, nil
}

// Start registers the cron job. Returns an error for an invalid spec.
func (s *Service) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.cfg.Location))
	_, err := c.AddFunc(s.cfg.Spec, func() {
		jctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.sendDigest(jctx); err != nil {
			s.log.Warn("digest send failed", logx.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("digest: bad cron spec %q: %w", s.cfg.Spec, err)
	}
	c.Start()
	s.c = c
	s.log.Info("digest scheduled", logx.String("spec", s.cfg.Spec), logx.Int64("chat_id", s.cfg.ChatID))
	return nil
}

// Stop halts the cron scheduler and waits for a running job to finish.
func (s *Service) Stop(ctx context.Context) error {
	if s.c == nil {
		return nil
	}
	done := s.c.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) sendDigest(ctx context.Context) error {
	now := s.clock()

	st, err := s.queue.Stats(ctx)
	if err != nil {
		return fmt.Errorf("queue stats: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	today, err := s.lister.ListPendingInRange(ctx, dayStart.Unix(), dayEnd.Unix())
	if err != nil {
		return fmt.Errorf("list today: %w", err)
	}

	_, err = s.sender.SendText(ctx, kit.ChatTarget{ChatID: s.cfg.ChatID},
		digestText(st, today, now.Location()),
		&kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}

func digestText(st *scheduler.Stats, today []storage.ScheduledPost, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌅 %s\n\n", tgui.B("Очередь постов на сегодня"))
	fmt.Fprintf(&b, "📅 Сегодня: %d/%d\n", st.Today, st.DailyLimit)
	fmt.Fprintf(&b, "📅 Завтра: %d/%d\n", st.Tomorrow, st.DailyLimit)
	fmt.Fprintf(&b, "📦 Всего в очереди: %d\n", st.TotalPending)

	if len(today) > 0 {
		b.WriteString("\n🕒 Ближайшие публикации:\n")
		n := len(today)
		if n > previewCount {
			n = previewCount
		}
		for _, p := range today[:n] {
			at := time.Unix(p.ScheduledAt, 0).In(loc)
			fmt.Fprintf(&b, "• %s — %s\n", at.Format("15:04"), tgui.Esc(p.VideoTitle))
		}
		if len(today) > previewCount {
			fmt.Fprintf(&b, "… и ещё %d\n", len(today)-previewCount)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
