package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts the cron logger interface to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	attrs := make([]slog.Attr, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, _ := keysAndValues[i].(string)
		attrs = append(attrs, slog.Any(key, keysAndValues[i+1]))
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	attrs := make([]slog.Attr, 0, len(keysAndValues)/2+1)
	attrs = append(attrs, slog.Any("error", err))
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, _ := keysAndValues[i].(string)
		attrs = append(attrs, slog.Any(key, keysAndValues[i+1]))
	}
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// Keeper prunes old journal entries on a cron schedule. It runs next to the
// timer loop and never touches it.
type Keeper struct {
	cron      *cron.Cron
	store     Store
	log       *slog.Logger
	retention time.Duration
}

// NewKeeper schedules Prune(retention) on store per schedule, which accepts
// standard cron expressions and descriptors such as "@every 1h". The keeper
// is created stopped; call Start.
func NewKeeper(store Store, schedule string, retention time.Duration, log *slog.Logger) (*Keeper, error) {
	if log == nil {
		log = slog.Default()
	}

	k := &Keeper{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger: log.With("component", "cron")}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: log.With("component", "cron")})),
		),
		store:     store,
		log:       log,
		retention: retention,
	}

	if _, err := k.cron.AddFunc(schedule, k.prune); err != nil {
		return nil, err
	}
	return k, nil
}

// Start begins running prune jobs on schedule.
func (k *Keeper) Start() {
	k.log.Info("journal keeper started", "retention", k.retention)
	k.cron.Start()
}

// Stop halts scheduling and waits for a prune in flight to finish.
func (k *Keeper) Stop() {
	ctx := k.cron.Stop()
	<-ctx.Done()
	k.log.Info("journal keeper stopped")
}

func (k *Keeper) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pruned, err := k.store.Prune(ctx, k.retention)
	if err != nil {
		k.log.Error("journal prune failed", "error", err)
		return
	}
	if pruned > 0 {
		k.log.Info("journal pruned", "entries", pruned)
	}
}
