package syncer

import (
	"context"
	"errors"
	"time"
)

// Run drives automatic cycles until ctx is cancelled. An interval of zero or
// less means manual-only: no timer fires, but foreground triggers are still
// honored. The interval is re-read on every loop pass so a configuration
// reload takes effect without a restart.
//
// Run blocks; it is the daemon's main loop.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Printf("Scheduler started (interval=%s)", s.interval())

	for {
		var timer *time.Timer
		var tick <-chan time.Time
		if iv := s.interval(); iv > 0 {
			timer = time.NewTimer(iv)
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Printf("Scheduler stopped")
			return nil

		case <-tick:
			s.runScheduled(ctx, "interval")

		case <-s.foreground:
			if timer != nil {
				timer.Stop()
			}
			s.runScheduled(ctx, "foreground")
		}
	}
}

func (s *Syncer) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Interval
}

func (s *Syncer) runScheduled(ctx context.Context, trigger string) {
	err := s.SyncNow(ctx)
	switch {
	case errors.Is(err, ErrPaused):
		s.logger.Printf("Skipping %s sync: paused", trigger)
	case errors.Is(err, context.Canceled):
		s.logger.Printf("Scheduled sync (%s) cancelled", trigger)
	case err != nil:
		s.logger.Printf("Scheduled sync (%s) failed: %v", trigger, err)
	}
}
