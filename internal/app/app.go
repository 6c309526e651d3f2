// Package app assembles the bot: config, logging, storage, the posting
// calendar and the Telegram surface.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"clipbot/internal/bot"
	"clipbot/internal/config"
	"clipbot/internal/digest"
	"clipbot/internal/publish"
	"clipbot/internal/scheduler"
	"clipbot/internal/smmbox"
	"clipbot/internal/storage"
	"clipbot/internal/translator"
	kit "clipbot/internal/transport"
	telegram "clipbot/internal/transport/telegram"
	"clipbot/internal/videosource"
	logx "clipbot/pkg/logx"
)

const defaultStoragePath = "./clipbot.db"

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	store  storage.Store
	sched  *scheduler.Scheduler
	router *bot.Router
	digest *digest.Service

	adapter kit.Adapter
	updates chan kit.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	bootLog := logx.NewConsole("INFO")

	cfgm := config.NewManager(cfgPath, bootLog.With(logx.String("comp", "config")))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	loc := cfg.Location()

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	storePath := strings.TrimSpace(cfg.Storage.Path)
	if storePath == "" {
		storePath = defaultStoragePath
	}
	store, err := storage.Open(storage.Config{Path: storePath, BusyTimeout: busyTimeout},
		logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(store,
		scheduler.Config{DailyLimit: cfg.Posting.DailyLimit},
		scheduler.SystemClock(loc),
		logSvc.Logger().With(logx.String("comp", "scheduler")))
	if err != nil {
		return nil, err
	}

	resolver := videosource.NewResolver(nil, logSvc.Logger().With(logx.String("comp", "videosource")))
	trans := translator.New(nil, logSvc.Logger().With(logx.String("comp", "translator")))

	smm, err := smmbox.New(smmbox.Config{
		Token:      cfg.SMMBox.Token,
		BaseURL:    cfg.SMMBox.BaseURL,
		RatePerSec: cfg.SMMBox.RatePerSec,
	}, nil, logSvc.Logger().With(logx.String("comp", "smmbox")))
	if err != nil {
		return nil, err
	}

	orch, err := publish.New(sched, smm, publish.Config{},
		logSvc.Logger().With(logx.String("comp", "publish")))
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	router, err := bot.New(ad, bot.Services{
		Queue:      sched,
		Resolver:   resolver,
		Translator: trans,
		Publisher:  orch,
	}, bot.Config{
		OwnerUserIDs: cfg.Telegram.OwnerUserIDs,
		Location:     loc,
	}, logSvc.Logger().With(logx.String("comp", "bot")))
	if err != nil {
		return nil, err
	}

	var dig *digest.Service
	if cfg.Digest.Enabled && cfg.Digest.ChatID != 0 {
		dig, err = digest.New(digest.Config{
			Spec:     cfg.Digest.Spec,
			ChatID:   cfg.Digest.ChatID,
			Location: loc,
		}, sched, store, ad, logSvc.Logger().With(logx.String("comp", "digest")))
		if err != nil {
			return nil, err
		}
	}

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		sched:   sched,
		router:  router,
		digest:  dig,
		adapter: ad,
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.router.Run(runCtx, a.updates)
	}()

	if a.digest != nil {
		if err := a.digest.Start(runCtx); err != nil {
			cancel()
			return err
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(runCtx, sub)
	}()

	a.log.Info("started",
		logx.Int("daily_limit", a.sched.DailyLimit()),
		logx.Bool("digest", a.digest != nil),
	)
	return nil
}

// reloadLoop applies the hot-reloadable knobs from republished configs:
// logging, the daily posting limit and the owner allowlist. Everything else
// needs a restart.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			if cfg == nil {
				continue
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			if cfg.Posting.DailyLimit > 0 {
				a.sched.SetDailyLimit(cfg.Posting.DailyLimit)
			}
			a.router.SetOwners(cfg.Telegram.OwnerUserIDs)
			a.log.Info("config applied",
				logx.String("log_level", cfg.Logging.Level),
				logx.Int("daily_limit", a.sched.DailyLimit()),
			)
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	if a.digest != nil {
		if err := a.digest.Stop(ctx); err != nil {
			a.log.Warn("digest stop", logx.Err(err))
		}
	}
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out", logx.Err(ctx.Err()))
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}
