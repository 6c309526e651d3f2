package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"clipbot/internal/publish"
	"clipbot/internal/scheduler"
	kit "clipbot/internal/transport"
	"clipbot/internal/videosource"
	logx "clipbot/pkg/logx"
)

type sentMsg struct {
	ChatID    int64
	MessageID int
	Text      string
	Opt       *kit.SendOptions
}

type fakeAdapter struct {
	mu     sync.Mutex
	sends  []sentMsg
	edits  []sentMsg
	nextID int
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends = append(f.sends, sentMsg{ChatID: to.ChatID, MessageID: f.nextID, Text: text, Opt: opt})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: f.nextID}, nil
}

func (f *fakeAdapter) EditText(_ context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMsg{ChatID: ref.ChatID, MessageID: ref.MessageID, Text: text, Opt: opt})
	return nil
}

func (f *fakeAdapter) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeAdapter) lastEdit(t *testing.T) sentMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		t.Fatalf("no edits recorded")
	}
	return f.edits[len(f.edits)-1]
}

type fakeQueue struct{ st scheduler.Stats }

func (q *fakeQueue) Stats(context.Context) (*scheduler.Stats, error) {
	cp := q.st
	return &cp, nil
}

type fakeResolver struct {
	resolveErr error
}

func (r *fakeResolver) IsValidURL(url string) bool { return strings.Contains(url, "youtube.com") }

func (r *fakeResolver) Resolve(_ context.Context, url string) (*videosource.VideoInfo, error) {
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	return &videosource.VideoInfo{
		URL:       url,
		Title:     "Cat does a backflip",
		Platform:  "YouTube Shorts",
		Thumbnail: "https://i.ytimg.com/vi/abc/hq.jpg",
	}, nil
}

func (r *fakeResolver) Supported() []string {
	return []string{"YouTube Shorts", "TikTok", "Instagram Reels"}
}

type fakeTranslator struct{}

func (fakeTranslator) ToRussian(_ context.Context, text string) string { return "ru:" + text }

type fakePublisher struct {
	mu      sync.Mutex
	err     error
	at      int64
	titles  []string
	infoURL string
}

func (p *fakePublisher) Publish(_ context.Context, info *videosource.VideoInfo, title string) (*publish.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.titles = append(p.titles, title)
	p.infoURL = info.URL
	if p.err != nil {
		return nil, p.err
	}
	return &publish.Receipt{PostID: 1, ScheduledAt: p.at, Attempts: 1}, nil
}

func newTestRouter(t *testing.T, pub *fakePublisher, owners ...int64) (*Router, *fakeAdapter) {
	t.Helper()
	ad := &fakeAdapter{}
	r, err := New(ad, Services{
		Queue:      &fakeQueue{st: scheduler.Stats{TotalPending: 3, Today: 2, Tomorrow: 1, DailyLimit: 7}},
		Resolver:   &fakeResolver{},
		Translator: fakeTranslator{},
		Publisher:  pub,
	}, Config{OwnerUserIDs: owners, Location: time.UTC}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, ad
}

// drainJobs executes everything the router enqueued, synchronously.
func drainJobs(r *Router) {
	for {
		select {
		case job := <-r.jobs:
			job()
		default:
			return
		}
	}
}

func textUpdate(chatID, fromID int64, text string) kit.Update {
	return kit.Update{
		Kind:    kit.UpdateMessage,
		Message: &kit.Message{ID: 1, ChatID: chatID, FromID: fromID, Text: text},
	}
}

func callbackUpdate(chatID, fromID int64, messageID int, data string) kit.Update {
	return kit.Update{
		Kind:     kit.UpdateCallback,
		Callback: &kit.Callback{ID: "cb1", ChatID: chatID, FromID: fromID, MessageID: messageID, Data: data},
	}
}

func TestStartGreeting(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{})

	r.route(context.Background(), textUpdate(10, 10, "/start"))
	drainJobs(r)

	if len(ad.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(ad.sends))
	}
	for _, name := range []string{"YouTube Shorts", "TikTok", "Instagram Reels", "/stats", "/cancel"} {
		if !strings.Contains(ad.sends[0].Text, name) {
			t.Fatalf("greeting missing %q:\n%s", name, ad.sends[0].Text)
		}
	}
}

func TestStatsCommand(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{})

	r.route(context.Background(), textUpdate(10, 10, "/stats"))
	drainJobs(r)

	if len(ad.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(ad.sends))
	}
	got := ad.sends[0].Text
	for _, part := range []string{"2/7", "1/7", "Всего в очереди: 3", "7 постов в день"} {
		if !strings.Contains(got, part) {
			t.Fatalf("stats missing %q:\n%s", part, got)
		}
	}
	if ad.sends[0].Opt == nil || ad.sends[0].Opt.ParseMode != "HTML" {
		t.Fatalf("stats must be sent as HTML")
	}
}

func TestNonLinkRejected(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{})

	r.route(context.Background(), textUpdate(10, 10, "hello there"))
	drainJobs(r)

	if len(ad.sends) != 1 || !strings.Contains(ad.sends[0].Text, "отправь ссылку") {
		t.Fatalf("want not-a-link reply, got %+v", ad.sends)
	}
}

func TestUnsupportedPlatformRejected(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{})

	r.route(context.Background(), textUpdate(10, 10, "https://vimeo.com/12345"))
	drainJobs(r)

	if len(ad.sends) != 1 || !strings.Contains(ad.sends[0].Text, "Неподдерживаемая платформа") {
		t.Fatalf("want unsupported reply, got %+v", ad.sends)
	}
}

func TestURLConfirmFlow(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 3, 10, 14, 42, 0, 0, time.UTC)
	pub := &fakePublisher{at: at.Unix()}
	r, ad := newTestRouter(t, pub)
	ctx := context.Background()

	r.route(ctx, textUpdate(10, 10, "https://www.youtube.com/shorts/abc123"))
	drainJobs(r)

	// progress message, then two edits: translating, then confirmation card
	if len(ad.sends) != 1 || ad.sends[0].Text != msgFetching {
		t.Fatalf("want fetching progress, got %+v", ad.sends)
	}
	card := ad.lastEdit(t)
	for _, part := range []string{"YouTube Shorts", "Cat does a backflip", "ru:Cat does a backflip", "Название правильное?"} {
		if !strings.Contains(card.Text, part) {
			t.Fatalf("card missing %q:\n%s", part, card.Text)
		}
	}
	if card.Opt == nil || card.Opt.ReplyMarkupAdapter == nil {
		t.Fatalf("confirmation card must carry a keyboard")
	}

	r.route(ctx, callbackUpdate(10, 10, card.MessageID, "clip:confirm"))
	drainJobs(r)

	pub.mu.Lock()
	titles := append([]string(nil), pub.titles...)
	pub.mu.Unlock()
	if len(titles) != 1 || titles[0] != "ru:Cat does a backflip" {
		t.Fatalf("published titles = %v", titles)
	}

	final := ad.lastEdit(t)
	for _, part := range []string{"добавлено в отложенные", "10.03.2025 в 14:42", "Сегодня: 2/7"} {
		if !strings.Contains(final.Text, part) {
			t.Fatalf("final message missing %q:\n%s", part, final.Text)
		}
	}

	// dialog is cleared: the same text is treated as a fresh URL
	if st := r.dialogs.get(10).State; st != stateIdle {
		t.Fatalf("dialog state after publish = %d, want idle", st)
	}
}

func TestEditTitleFlow(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{at: time.Date(2025, 3, 11, 9, 17, 0, 0, time.UTC).Unix()}
	r, ad := newTestRouter(t, pub)
	ctx := context.Background()

	r.route(ctx, textUpdate(10, 10, "https://www.youtube.com/shorts/abc123"))
	drainJobs(r)
	card := ad.lastEdit(t)

	r.route(ctx, callbackUpdate(10, 10, card.MessageID, "clip:edit"))
	drainJobs(r)
	if got := ad.lastEdit(t); !strings.Contains(got.Text, "Введи новое название") {
		t.Fatalf("want title prompt, got %q", got.Text)
	}
	if st := r.dialogs.get(10).State; st != stateAwaitTitle {
		t.Fatalf("state = %d, want awaiting title", st)
	}

	// empty title re-prompts without publishing
	r.route(ctx, textUpdate(10, 10, "   "))
	drainJobs(r)
	if got := ad.sends[len(ad.sends)-1]; !strings.Contains(got.Text, "не может быть пустым") {
		t.Fatalf("want empty-title reply, got %q", got.Text)
	}

	r.route(ctx, textUpdate(10, 10, "Кот делает сальто"))
	drainJobs(r)

	pub.mu.Lock()
	titles := append([]string(nil), pub.titles...)
	pub.mu.Unlock()
	if len(titles) != 1 || titles[0] != "Кот делает сальто" {
		t.Fatalf("published titles = %v", titles)
	}
	if got := ad.lastEdit(t); !strings.Contains(got.Text, "Кот делает сальто") {
		t.Fatalf("final message missing custom title:\n%s", got.Text)
	}
}

func TestCancelCommandClearsDialog(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{})
	ctx := context.Background()

	r.route(ctx, textUpdate(10, 10, "https://www.youtube.com/shorts/abc123"))
	drainJobs(r)
	if st := r.dialogs.get(10).State; st != stateAwaitConfirm {
		t.Fatalf("state = %d, want awaiting confirm", st)
	}

	r.route(ctx, textUpdate(10, 10, "/cancel"))
	drainJobs(r)
	if st := r.dialogs.get(10).State; st != stateIdle {
		t.Fatalf("state after cancel = %d, want idle", st)
	}
	if got := ad.sends[len(ad.sends)-1]; !strings.Contains(got.Text, "Операция отменена") {
		t.Fatalf("want cancel reply, got %q", got.Text)
	}
}

func TestCancelButton(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{})
	ctx := context.Background()

	r.route(ctx, textUpdate(10, 10, "https://www.youtube.com/shorts/abc123"))
	drainJobs(r)
	card := ad.lastEdit(t)

	r.route(ctx, callbackUpdate(10, 10, card.MessageID, "clip:cancel"))
	drainJobs(r)

	if st := r.dialogs.get(10).State; st != stateIdle {
		t.Fatalf("state after cancel = %d, want idle", st)
	}
	if got := ad.lastEdit(t); !strings.Contains(got.Text, "Операция отменена") {
		t.Fatalf("want cancel edit, got %q", got.Text)
	}
}

func TestSlotsExhaustedMessage(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{err: publish.ErrAttemptsExhausted}
	r, ad := newTestRouter(t, pub)
	ctx := context.Background()

	r.route(ctx, textUpdate(10, 10, "https://www.youtube.com/shorts/abc123"))
	drainJobs(r)
	card := ad.lastEdit(t)

	r.route(ctx, callbackUpdate(10, 10, card.MessageID, "clip:confirm"))
	drainJobs(r)

	if got := ad.lastEdit(t); !strings.Contains(got.Text, "Все слоты на сегодня заняты") {
		t.Fatalf("want exhaustion message, got %q", got.Text)
	}
	if st := r.dialogs.get(10).State; st != stateIdle {
		t.Fatalf("state after exhaustion = %d, want idle", st)
	}
}

func TestOwnerAllowlist(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{}, 42)
	ctx := context.Background()

	r.route(ctx, textUpdate(10, 10, "/start"))
	drainJobs(r)
	if len(ad.sends) != 0 {
		t.Fatalf("non-owner must be ignored, got %+v", ad.sends)
	}

	r.route(ctx, textUpdate(42, 42, "/start"))
	drainJobs(r)
	if len(ad.sends) != 1 {
		t.Fatalf("owner must be served, sends = %d", len(ad.sends))
	}

	// hot reload opens the allowlist
	r.SetOwners(nil)
	r.route(ctx, textUpdate(10, 10, "/start"))
	drainJobs(r)
	if len(ad.sends) != 2 {
		t.Fatalf("after SetOwners(nil) everyone is allowed, sends = %d", len(ad.sends))
	}
}

func TestTextIgnoredWhileAwaitingConfirm(t *testing.T) {
	t.Parallel()
	r, ad := newTestRouter(t, &fakePublisher{})
	ctx := context.Background()

	r.route(ctx, textUpdate(10, 10, "https://www.youtube.com/shorts/abc123"))
	drainJobs(r)
	sendsBefore := len(ad.sends)

	r.route(ctx, textUpdate(10, 10, "random chatter"))
	drainJobs(r)
	if len(ad.sends) != sendsBefore {
		t.Fatalf("text during confirmation must be ignored, got %+v", ad.sends[sendsBefore:])
	}
}

func TestSuccessTextWithoutStats(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 3, 10, 14, 42, 0, 0, time.UTC)
	got := successText("Заголовок", "TikTok", at, nil)
	if strings.Contains(got, "Статистика") {
		t.Fatalf("nil stats must omit the stats block:\n%s", got)
	}
	if !strings.Contains(got, "10.03.2025 в 14:42") {
		t.Fatalf("missing formatted timestamp:\n%s", got)
	}
}
