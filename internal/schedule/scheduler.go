package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// NextRun returns the first moment after now whose wall clock in loc reads hhmm
func NextRun(now time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid rollover time %q, use HH:MM", hhmm)
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour(), at.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, at.Hour(), at.Minute(), 0, 0, loc)
	}
	return next, nil
}

// RolloverScheduler runs the processor daily at the configured time
type RolloverScheduler struct {
	processor *RolloverProcessor
	log       *zap.Logger
	now       func() time.Time
}

// NewRolloverScheduler returns a scheduler for p
func NewRolloverScheduler(p *RolloverProcessor, log *zap.Logger) *RolloverScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RolloverScheduler{processor: p, log: log, now: time.Now}
}

// Run blocks until ctx is done. It returns immediately when rollover is disabled.
func (s *RolloverScheduler) Run(ctx context.Context) error {
	settings := s.processor.Settings()
	if !settings.Enabled {
		s.log.Info("rollover scheduler disabled")
		return nil
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return fmt.Errorf("rollover timezone: %w", err)
	}

	for {
		now := s.now()
		next, err := NextRun(now, settings.Time, loc)
		if err != nil {
			return err
		}
		s.log.Info("next rollover scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		reports, err := s.processor.RunAll(ctx, s.now())
		if err != nil {
			s.log.Error("rollover run failed", zap.Error(err))
			continue
		}
		for _, r := range reports {
			if r.Error != "" {
				s.log.Error("rollover failed for construction",
					zap.Uint("construction_id", r.ConstructionID),
					zap.String("error", r.Error))
			}
		}
	}
}
