// Package scheduler periodically re-runs the duplicate detector on a
// cron schedule. Grounded on CineVault's internal/scheduler.Scheduler
// (a callback invoked when work is due, start/stop lifecycle, a logged
// skip when the previous run is still in flight), generalized from a
// fixed-interval ticker to a cron expression via robfig/cron/v3 per the
// config-driven schedule spec §6 exposes.
package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OnDedupDue is invoked when the cron schedule fires and no prior run is
// still in flight.
type OnDedupDue func(ctx context.Context)

// Scheduler runs callback on a cron schedule, skipping overlapping
// invocations rather than queuing them.
type Scheduler struct {
	cron     *cron.Cron
	callback OnDedupDue
	log      *zap.Logger
	running  atomic.Bool
}

// New constructs a Scheduler for the given 5-field cron expression (e.g.
// "0 3 * * *" for daily at 03:00). An empty expression disables
// scheduling entirely; Start becomes a no-op.
func New(expr string, callback OnDedupDue, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{callback: callback, log: log}
	if expr == "" {
		return s, nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(expr, s.tick)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the cron loop. A no-op if New was given an empty
// expression.
func (s *Scheduler) Start() {
	if s.cron == nil {
		return
	}
	s.cron.Start()
	s.log.Info("scheduler: started")
}

// Stop halts the cron loop and waits for any in-flight job to finish its
// current tick.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler: stopped")
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("scheduler: skipping tick, previous dedup run still in flight")
		return
	}
	defer s.running.Store(false)

	s.log.Info("scheduler: dedup run due")
	s.callback(context.Background())
}
