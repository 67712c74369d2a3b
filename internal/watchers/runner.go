package watchers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// Runner adapts a Watcher into a managed job. It owns the poll loop:
// check cycles run serially on the watcher's interval, each bounded by a
// per-cycle timeout, and detected events are published on the bus.
type Runner struct {
	id       string
	watcher  interfaces.Watcher
	bus      interfaces.EventBus
	reporter interfaces.JobControl
	logger   arbor.ILogger
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewRunner wraps a watcher for submission to the job manager
func NewRunner(watcher interfaces.Watcher, bus interfaces.EventBus, reporter interfaces.JobControl, logger arbor.ILogger) *Runner {
	return &Runner{
		id:       uuid.New().String(),
		watcher:  watcher,
		bus:      bus,
		reporter: reporter,
		logger:   logger,
	}
}

func (r *Runner) ID() string {
	return r.id
}

func (r *Runner) Type() string {
	return "watcher:" + r.watcher.Name()
}

// Start launches the poll loop. It returns immediately; the loop reports
// progress and completion through the job manager.
func (r *Runner) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	common.SafeGo(r.logger, r.Type(), func() { r.loop(runCtx) })
	return nil
}

// Stop signals the poll loop to exit. No further check runs after Stop.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
}

func (r *Runner) loop(ctx context.Context) {
	r.reporter.MarkRunning(ctx, r.id)
	r.logger.Info().
		Str("watcher", r.watcher.Name()).
		Str("interval", r.watcher.Interval().String()).
		Msg("Watcher loop started")

	// First check runs immediately, then on the interval
	r.cycle(ctx)

	ticker := time.NewTicker(r.watcher.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.reporter.Complete(context.WithoutCancel(ctx), r.id, &models.JobResult{
				Success: true,
				Message: "watcher stopped",
			})
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

// cycle runs one check bounded by the watcher interval so a slow source
// cannot overlap the next tick
func (r *Runner) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, r.watcher.Interval())
	defer cancel()

	events, err := r.watcher.Check(cycleCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn().Err(err).Str("watcher", r.watcher.Name()).Msg("Watcher check failed")
		return
	}

	for _, event := range events {
		if err := r.bus.Publish(ctx, event.Trigger, event.Data); err != nil {
			r.logger.Warn().Err(err).
				Str("watcher", r.watcher.Name()).
				Str("trigger", string(event.Trigger)).
				Msg("Failed to publish watcher event")
		}
	}

	if len(events) > 0 {
		r.reporter.AppendOutput(ctx, r.id, fmt.Sprintf("detected %d event(s)", len(events)))
	}
}

var _ interfaces.Job = (*Runner)(nil)
