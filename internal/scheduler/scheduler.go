// Package scheduler keeps an in-memory snapshot of the configured Org
// sources and rebuilds it on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"orgcal/internal/config"
	"orgcal/internal/fullcalendar"
	appLog "orgcal/internal/log"
	"orgcal/internal/metric"
	"orgcal/internal/model"
	"orgcal/internal/source"
)

// Snapshot is the result of one rebuild. It is immutable once published.
type Snapshot struct {
	Documents []source.Document
	Options   fullcalendar.Options
	BuiltAt   time.Time
}

// Events converts the snapshot's documents for mode.
func (s *Snapshot) Events(mode fullcalendar.Mode) []model.Event {
	if s == nil {
		return []model.Event{}
	}
	return source.Events(s.Documents, mode, s.Options)
}

// Options configure a Refresher.
type Options struct {
	Loader  *source.Loader
	Sources []string

	BeforeDays int
	AfterDays  int

	// Mode selects the events written to Output.
	Mode fullcalendar.Mode
	// Output, if set, receives the JSON events after each rebuild.
	Output string

	// Now returns the window reference time. Defaults to the local clock.
	Now func() model.PointInTime
}

// Refresher rebuilds snapshots on demand and on a schedule.
type Refresher struct {
	opts Options

	mu   sync.RWMutex
	snap *Snapshot

	// serializes rebuilds
	refreshMu sync.Mutex
}

// NewRefresher creates a Refresher with no snapshot yet.
func NewRefresher(opts Options) *Refresher {
	if opts.Loader == nil {
		opts.Loader = source.NewLoader(nil)
	}
	if opts.Now == nil {
		opts.Now = func() model.PointInTime { return model.FromTime(time.Now()) }
	}
	if opts.Mode == "" {
		opts.Mode = fullcalendar.ModePlanning
	}
	return &Refresher{opts: opts}
}

// Snapshot returns the last published snapshot, or nil before the first
// successful rebuild.
func (r *Refresher) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Refresh loads every source and publishes a new snapshot. On failure the
// previous snapshot stays in place.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	begin := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	docs, err := r.opts.Loader.LoadAll(r.opts.Sources)
	if err != nil {
		metric.ObserveRefresh(begin, 0, err)
		appLog.Error("refresh failed", err, "sources", len(r.opts.Sources))
		return err
	}

	snap := &Snapshot{
		Documents: docs,
		Options: fullcalendar.Options{
			BeforeDays: r.opts.BeforeDays,
			AfterDays:  r.opts.AfterDays,
			Now:        r.opts.Now(),
		},
		BuiltAt: time.Now(),
	}
	events := snap.Events(r.opts.Mode)

	if r.opts.Output != "" {
		if err := writeOutput(r.opts.Output, events); err != nil {
			metric.ObserveRefresh(begin, 0, err)
			appLog.Error("refresh output write failed", err, "output", r.opts.Output)
			return err
		}
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	metric.ObserveRefresh(begin, len(events), nil)
	appLog.Info("refresh completed",
		"documents", len(docs),
		"events", len(events),
		"mode", r.opts.Mode,
		"elapsed", time.Since(begin).Round(time.Millisecond),
	)
	return nil
}

// Run refreshes once, then again on every tick of the cron spec until
// ctx is canceled. A failed first refresh is logged, not fatal.
func (r *Refresher) Run(ctx context.Context, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	if err := r.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Warn("initial refresh failed; serving without a snapshot until the next tick")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		_ = r.Refresh(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	appLog.Info("refresh scheduled", "cron", spec)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func writeOutput(path string, events []model.Event) error {
	data, err := fullcalendar.MarshalJSON(events)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
