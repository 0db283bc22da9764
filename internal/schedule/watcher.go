// Package schedule refreshes stored series on a cron schedule.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/historical"
	"github.com/sabarim/intradata/internal/logger"
)

// Saver persists one download request
type Saver interface {
	Save(ctx context.Context, req historical.Request) (bool, error)
}

// Watcher re-runs a set of saves on a schedule
type Watcher struct {
	cron     *cron.Cron
	expr     string
	schedule cron.Schedule
	saver    Saver
	requests []historical.Request
	log      *logger.Logger
}

// NewWatcher parses expr, a standard cron expression or descriptor such as
// "@every 1h". A run still in progress when the next one is due causes that
// next run to be skipped, so saves to the same file never overlap.
func NewWatcher(expr string, saver Saver, log *logger.Logger, requests ...historical.Request) (*Watcher, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	w := &Watcher{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expr:     expr,
		schedule: schedule,
		saver:    saver,
		requests: requests,
		log:      log,
	}
	return w, nil
}

// Run starts the schedule and blocks until ctx is cancelled. With runNow the
// requests are saved once before the first scheduled run.
func (w *Watcher) Run(ctx context.Context, runNow bool) {
	w.cron.Schedule(w.schedule, cron.FuncJob(func() { w.RunOnce(ctx) }))

	if runNow {
		w.RunOnce(ctx)
	}

	w.cron.Start()
	w.log.Info("Watcher started", zap.String("schedule", w.expr), zap.Int("requests", len(w.requests)))

	<-ctx.Done()

	// Wait for a running save to finish
	<-w.cron.Stop().Done()
	w.log.Info("Watcher stopped")
}

// RunOnce saves every request and returns how many produced data
func (w *Watcher) RunOnce(ctx context.Context) int {
	saved := 0
	for _, req := range w.requests {
		if ctx.Err() != nil {
			break
		}
		ok, err := w.saver.Save(ctx, req)
		if err != nil {
			w.log.Error("Scheduled save failed",
				zap.String("symbol", req.Symbol),
				zap.String("interval", req.Interval),
				zap.Error(err))
			continue
		}
		if !ok {
			w.log.Warn("Scheduled save produced no data", zap.String("symbol", req.Symbol), zap.String("interval", req.Interval))
			continue
		}
		saved++
	}
	return saved
}
