package service

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler triggers a full sync pass at a fixed interval. It owns the loop;
// nothing else calls SyncAll on a timer.
type Scheduler struct {
	sync     *SyncService
	interval time.Duration

	// ticks overrides the interval ticker when set; tests drive the loop
	// through it deterministically.
	ticks <-chan time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(sync *SyncService, interval time.Duration) *Scheduler {
	return &Scheduler{sync: sync, interval: interval}
}

// Start launches the scheduling loop. The first pass runs immediately, then
// one per interval. Start must not be called twice without Stop in between.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		slog.Info("scheduler started", "interval", s.interval)
		s.runPass(ctx)

		ticks := s.ticks
		if ticks == nil {
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			ticks = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				s.runPass(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for any in-flight pass to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("scheduler stopped")
}

func (s *Scheduler) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.sync.SyncAll(ctx); err != nil {
		slog.Warn("scheduled sync pass failed", "error", err)
	}
}
