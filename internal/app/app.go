// Package app wires configuration, storage, the scheduler and its surfaces
// into a running daemon.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kingwingfly/cradle-system/internal/adapter/httpapi"
	"github.com/kingwingfly/cradle-system/internal/adapter/journal"
	"github.com/kingwingfly/cradle-system/internal/adapter/notify"
	"github.com/kingwingfly/cradle-system/internal/adapter/scheduler"
	"github.com/kingwingfly/cradle-system/internal/adapter/telegram"
	"github.com/kingwingfly/cradle-system/internal/adapter/telegram/handlers"
	"github.com/kingwingfly/cradle-system/internal/adapter/telegram/middleware"
	"github.com/kingwingfly/cradle-system/internal/config"
	"github.com/kingwingfly/cradle-system/internal/platform/httpclient"
	"github.com/kingwingfly/cradle-system/internal/platform/logger"
	"github.com/kingwingfly/cradle-system/internal/platform/pg"
	"github.com/kingwingfly/cradle-system/internal/platform/sqlite"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "cradled",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the daemon and blocks until the scheduler terminates or an OS
// signal arrives. The returned error is the trigger error that aborted the
// loop, if any.
func (a *App) Run() error {
	defer func() { _ = logger.Close(a.log) }()
	a.log.Info("starting", "env", a.cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := a.openJournal(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.log.Warn("failed to close journal store", "error", err)
		}
	}()

	var recorder *journal.Recorder
	if a.cfg.Journal.Driver != "none" {
		recorder = journal.NewRecorder(store, a.log)
	}

	var webhook *notify.Webhook
	if a.cfg.WebhookURL != "" {
		client := httpclient.New(httpclient.WithLogger(a.log))
		webhook = notify.NewWebhook(a.cfg.WebhookURL, client, a.log)
	}

	var sched *scheduler.Scheduler
	sched = scheduler.New(scheduler.Config{
		Logger: a.log,
		Hooks: scheduler.Hooks{
			OnAbort: func(err error) {
				if webhook != nil {
					a.notifyAborted(webhook, sched.Elapsed(), err)
				}
			},
		},
	})
	a.registerReminders(sched, recorder, webhook)

	if a.cfg.Journal.Driver != "none" && a.cfg.Journal.Retention > 0 {
		keeper, err := journal.NewKeeper(store, a.cfg.Journal.PruneSchedule, a.cfg.Journal.Retention, a.log)
		if err != nil {
			return fmt.Errorf("journal keeper: %w", err)
		}
		keeper.Start()
		defer keeper.Stop()
	}

	if a.cfg.Telegram.Token != "" {
		if err := a.startBot(ctx, sched, store, recorder); err != nil {
			return err
		}
	}

	srv := a.startHTTP(sched, store)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("http shutdown", "error", err)
		}
	}()

	sched.Start()

	go func() {
		<-ctx.Done()
		a.log.Info("shutdown signal received")
		sched.Stop()
	}()

	runErr := sched.Join()
	if webhook != nil && runErr == nil {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		webhook.Stopped(notifyCtx, sched.Elapsed())
	}
	return runErr
}

// openJournal builds the fire journal store for the configured driver,
// applying migrations first.
func (a *App) openJournal(ctx context.Context) (journal.Store, error) {
	switch a.cfg.Journal.Driver {
	case "sqlite":
		if err := sqlite.ApplyMigrations(a.cfg.Journal.SQLitePath, "file://migrations/sqlite"); err != nil {
			return nil, fmt.Errorf("sqlite migrations: %w", err)
		}
		db, err := sqlite.NewDB(ctx, a.cfg.Journal.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return journal.NewSQLiteStore(db), nil

	case "postgres":
		if err := pg.WaitForDB(ctx, a.cfg.Journal.DatabaseURL, pg.DefaultHealthCheckOptions()); err != nil {
			return nil, err
		}
		if err := pg.ApplyMigrations(a.cfg.Journal.DatabaseURL, "file://migrations/postgres"); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := pg.NewPool(ctx, a.cfg.Journal.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		return journal.NewPGStore(pool), nil

	default:
		return journal.NoopStore{}, nil
	}
}

// registerReminders turns configured reminders into deadline triggers. A
// reminder keeps firing every tick past its threshold until a reset, so a
// neglected deadline stays loud.
func (a *App) registerReminders(sched *scheduler.Scheduler, recorder *journal.Recorder, webhook *notify.Webhook) {
	for _, rem := range a.cfg.Reminders {
		rem := rem
		name := fmt.Sprintf("reminder:%d", rem.Delay)

		action := func() error {
			a.log.Info("reminder due", "message", rem.Message, "elapsed", sched.Elapsed())
			if webhook != nil {
				notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				webhook.Fired(notifyCtx, name, sched.Elapsed())
			}
			return nil
		}
		if recorder != nil {
			action = recorder.Action(name, sched.Elapsed, action)
		}

		sched.Register(scheduler.Named(name, scheduler.Deadline(rem.Delay, action)))
	}
}

func (a *App) startBot(ctx context.Context, sched *scheduler.Scheduler, store journal.Store, recorder *journal.Recorder) error {
	rate := middleware.NewRateLimiter(time.Second)
	acl := middleware.NewACL(a.cfg.Telegram.AllowedIDs)
	h := handlers.New(sched, store, recorder, a.log)
	handler := middleware.Chain(h.Handle, rate.Middleware, acl.Middleware)

	var disp *telegram.Dispatcher
	b, err := bot.New(a.cfg.Telegram.Token,
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, upd *models.Update) {
			disp.Dispatch(ctx, upd)
		}),
		bot.WithAllowedUpdates([]string{"message", "callback_query"}),
	)
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}
	disp = telegram.NewDispatcher(b, 8, handler)

	go b.Start(ctx)
	a.log.Info("telegram bot started")
	return nil
}

func (a *App) startHTTP(sched *scheduler.Scheduler, store journal.Store) *http.Server {
	api := httpapi.New(sched, store, a.log)
	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: api.Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server", "error", err)
		}
	}()
	a.log.Info("http api listening", "addr", a.cfg.HTTP.Addr)
	return srv
}

func (a *App) notifyAborted(webhook *notify.Webhook, elapsed uint64, err error) {
	notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	webhook.Aborted(notifyCtx, elapsed, err)
}
