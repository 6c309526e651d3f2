package bot

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"clipbot/internal/publish"
	"clipbot/internal/scheduler"
	kit "clipbot/internal/transport"
	"clipbot/internal/videosource"
	logx "clipbot/pkg/logx"
)

// Callback data layout: "<prefix>:<action>" (optionally ":<payload>").
const (
	cbPrefix  = "clip"
	cbConfirm = "confirm"
	cbEdit    = "edit"
	cbCancel  = "cancel"
)

// QueueStats is the scheduler slice the router reads.
type QueueStats interface {
	Stats(ctx context.Context) (*scheduler.Stats, error)
}

// LinkResolver validates and resolves video links.
type LinkResolver interface {
	IsValidURL(url string) bool
	Resolve(ctx context.Context, url string) (*videosource.VideoInfo, error)
	Supported() []string
}

// TitleTranslator localizes clip titles.
type TitleTranslator interface {
	ToRussian(ctx context.Context, text string) string
}

// ClipPublisher runs the slot-allocation + submission loop.
type ClipPublisher interface {
	Publish(ctx context.Context, info *videosource.VideoInfo, title string) (*publish.Receipt, error)
}

// Services bundles what handlers need.
type Services struct {
	Queue      QueueStats
	Resolver   LinkResolver
	Translator TitleTranslator
	Publisher  ClipPublisher
}

type Config struct {
	// OwnerUserIDs is the allowlist; empty means everyone may use the bot.
	OwnerUserIDs []int64

	// Location renders scheduled instants in the user's timezone.
	// Nil means time.Local.
	Location *time.Location

	// HandlerTimeout bounds a single handler run (resolve + translate or the
	// full publish loop). Zero means 2 minutes.
	HandlerTimeout time.Duration
}

// Request carries one update through the middleware chain into a handler.
type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string
	Payload string
	ReqID   string

	Adapter kit.Adapter
	Logger  logx.Logger
}

type command struct {
	name        string
	description string
	handle      HandlerFunc
}

// Router dispatches updates to command handlers and the clip dialog.
type Router struct {
	adapter kit.Adapter
	svc     Services
	log     logx.Logger
	loc     *time.Location
	timeout time.Duration

	mu     sync.RWMutex
	owners []int64

	commands map[string]command
	dialogs  *dialogs

	jobs chan func()
}

func New(adapter kit.Adapter, svc Services, cfg Config, log logx.Logger) (*Router, error) {
	if adapter == nil {
		return nil, errors.New("bot: adapter is required")
	}
	if svc.Queue == nil || svc.Resolver == nil || svc.Translator == nil || svc.Publisher == nil {
		return nil, errors.New("bot: all services are required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	timeout := cfg.HandlerTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	r := &Router{
		adapter: adapter,
		svc:     svc,
		log:     log,
		loc:     loc,
		timeout: timeout,
		owners:  append([]int64(nil), cfg.OwnerUserIDs...),
		dialogs: newDialogs(),
		jobs:    make(chan func(), 64),
	}
	r.commands = map[string]command{
		"start":  {name: "start", description: "приветствие и справка", handle: r.handleStart},
		"stats":  {name: "stats", description: "статистика очереди постов", handle: r.handleStats},
		"cancel": {name: "cancel", description: "отменить текущую операцию", handle: r.handleCancel},
	}
	return r, nil
}

// SetOwners swaps the allowlist. Safe during config hot reload.
func (r *Router) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	r.mu.Lock()
	r.owners = cp
	r.mu.Unlock()
}

func (r *Router) allowed(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.owners) == 0 {
		return true
	}
	for _, o := range r.owners {
		if o == userID {
			return true
		}
	}
	return false
}

// MenuCommands returns the command menu for adapters that support one.
func (r *Router) MenuCommands() []kit.BotCommand {
	out := []kit.BotCommand{
		{Command: "start", Description: r.commands["start"].description},
		{Command: "stats", Description: r.commands["stats"].description},
		{Command: "cancel", Description: r.commands["cancel"].description},
	}
	return out
}

// Run consumes updates until ctx is canceled or the channel closes.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	// Best-effort Telegram /menu autocomplete update.
	if up, ok := r.adapter.(kit.CommandMenuUpdater); ok {
		go func() {
			mctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(mctx, r.MenuCommands()); err != nil {
				r.log.Debug("command menu update failed", logx.Err(err))
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range r.jobs {
				job()
			}
		}()
	}
	r.log.Info("update dispatcher started", logx.Int("workers", workers))

	defer func() {
		close(r.jobs)
		wg.Wait()
		r.log.Info("update dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.route(ctx, up)
		}
	}
}

func (r *Router) route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		r.routeMessage(ctx, up)
	case kit.UpdateCallback:
		r.routeCallback(ctx, up)
	}
}

// enqueue hands the job to the worker pool; a full queue drops the update.
func (r *Router) enqueue(job func()) bool {
	select {
	case r.jobs <- job:
		return true
	default:
		return false
	}
}

func (r *Router) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	if !r.allowed(msg.FromID) {
		r.log.Debug("update from non-owner ignored", logx.Int64("from_id", msg.FromID))
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	var (
		name string
		h    HandlerFunc
		args []string
	)
	if strings.HasPrefix(text, "/") {
		parts := strings.Fields(text)
		word := strings.TrimPrefix(parts[0], "/")
		if i := strings.IndexByte(word, '@'); i >= 0 {
			word = word[:i]
		}
		if cmd, ok := r.commands[word]; ok {
			name, h, args = "/"+cmd.name, cmd.handle, parts[1:]
		}
	}
	if h == nil {
		// Not a known command: the dialog decides what the text means.
		name, h = "dialog", r.handleDialogText
	}

	rid := newReqID()
	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: msg.ChatID},
		FromID:  msg.FromID,
		Command: name,
		Args:    args,
		ReqID:   rid,
		Adapter: r.adapter,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", name),
		),
	}

	final := Chain(h, MWPanicRecover(r.log), MWRequestLog(r.log), MWTimeout(r.timeout))
	if !r.enqueue(func() { _ = final(ctx, req) }) {
		_, _ = r.adapter.SendText(ctx, req.Chat, "⏳ Слишком много запросов, попробуй чуть позже.", nil)
	}
}

func (r *Router) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	if !r.allowed(cb.FromID) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "forbidden")
		return
	}

	parts := strings.SplitN(strings.TrimSpace(cb.Data), ":", 3)
	if len(parts) < 2 || parts[0] != cbPrefix {
		return
	}
	action := parts[1]
	payload := ""
	if len(parts) == 3 {
		payload = parts[2]
	}

	var h HandlerFunc
	switch action {
	case cbConfirm:
		h = r.handleConfirm
	case cbEdit:
		h = r.handleEdit
	case cbCancel:
		h = r.handleCancelButton
	default:
		return
	}

	rid := newReqID()
	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: cb.ChatID},
		FromID:  cb.FromID,
		Command: "cb:" + cbPrefix + ":" + action,
		Payload: payload,
		ReqID:   rid,
		Adapter: r.adapter,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", cb.ChatID),
			logx.Int64("from_id", cb.FromID),
			logx.String("cmd", "cb:"+cbPrefix+":"+action),
		),
	}

	final := Chain(h, MWPanicRecover(r.log), MWRequestLog(r.log), MWTimeout(r.timeout))
	if !r.enqueue(func() {
		_ = final(ctx, req)
		// stop the "loading" spinner even if the handler forgot
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
	}) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "busy")
	}
}

var ridSeq uint64

func newReqID() string {
	n := atomic.AddUint64(&ridSeq, 1)
	return base36(time.Now().UnixNano()) + "-" + base36(int64(n))
}

func base36(v int64) string {
	const chars = "0123456789abcdefghijklmnopqrstuvwxyz"
	if v < 0 {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var out [32]byte
	i := len(out)
	for v > 0 {
		i--
		out[i] = chars[v%36]
		v /= 36
	}
	return string(out[i:])
}
