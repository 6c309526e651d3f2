package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"clipbot/internal/scheduler"
	"clipbot/internal/storage"
	kit "clipbot/internal/transport"
	logx "clipbot/pkg/logx"
)

type fakeQueue struct{ st scheduler.Stats }

func (q *fakeQueue) Stats(context.Context) (*scheduler.Stats, error) {
	cp := q.st
	return &cp, nil
}

type fakeLister struct{ posts []storage.ScheduledPost }

func (l *fakeLister) ListPendingInRange(context.Context, int64, int64) ([]storage.ScheduledPost, error) {
	return l.posts, nil
}

type fakeSender struct {
	chatID int64
	text   string
	opt    *kit.SendOptions
}

func (s *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	s.chatID = to.ChatID
	s.text = text
	s.opt = opt
	return kit.MessageRef{ChatID: to.ChatID, MessageID: 1}, nil
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	q, l, s := &fakeQueue{}, &fakeLister{}, &fakeSender{}

	if _, err := New(Config{ChatID: 0}, q, l, s, logx.Nop()); err == nil {
		t.Fatalf("want error for missing chat id")
	}
	if _, err := New(Config{ChatID: 1}, nil, l, s, logx.Nop()); err == nil {
		t.Fatalf("want error for nil queue")
	}
	svc, err := New(Config{ChatID: 1}, q, l, s, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.cfg.Spec != DefaultSpec {
		t.Fatalf("spec = %q, want default %q", svc.cfg.Spec, DefaultSpec)
	}
}

func TestBadCronSpecRejected(t *testing.T) {
	t.Parallel()
	svc, err := New(Config{ChatID: 1, Spec: "not a cron spec"}, &fakeQueue{}, &fakeLister{}, &fakeSender{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.Start(context.Background()); err == nil {
		t.Fatalf("want error for invalid spec")
	}
}

func TestSendDigest(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	posts := []storage.ScheduledPost{
		{ID: 1, VideoTitle: "Первый клип", ScheduledAt: now.Add(2 * time.Hour).Unix(), Status: storage.StatusPending},
		{ID: 2, VideoTitle: "Второй клип", ScheduledAt: now.Add(4 * time.Hour).Unix(), Status: storage.StatusPending},
	}
	sender := &fakeSender{}
	svc, err := New(Config{ChatID: 77, Location: loc},
		&fakeQueue{st: scheduler.Stats{TotalPending: 5, Today: 2, Tomorrow: 3, DailyLimit: 7}},
		&fakeLister{posts: posts}, sender, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.clock = func() time.Time { return now }

	if err := svc.sendDigest(context.Background()); err != nil {
		t.Fatalf("sendDigest: %v", err)
	}
	if sender.chatID != 77 {
		t.Fatalf("chat id = %d, want 77", sender.chatID)
	}
	for _, part := range []string{"Сегодня: 2/7", "Завтра: 3/7", "Всего в очереди: 5", "11:00 — Первый клип", "13:00 — Второй клип"} {
		if !strings.Contains(sender.text, part) {
			t.Fatalf("digest missing %q:\n%s", part, sender.text)
		}
	}
	if sender.opt == nil || sender.opt.ParseMode != "HTML" {
		t.Fatalf("digest must be HTML")
	}
}

func TestDigestPreviewTruncated(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)

	var posts []storage.ScheduledPost
	for i := 0; i < 8; i++ {
		posts = append(posts, storage.ScheduledPost{
			ID:          int64(i + 1),
			VideoTitle:  "клип",
			ScheduledAt: base.Add(time.Duration(i) * time.Hour).Unix(),
		})
	}
	got := digestText(&scheduler.Stats{Today: 8, DailyLimit: 10, TotalPending: 8}, posts, loc)
	if !strings.Contains(got, "и ещё 3") {
		t.Fatalf("want truncation note:\n%s", got)
	}
}
