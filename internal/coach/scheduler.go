package coach

import (
	"context"
	"log/slog"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/robfig/cron"
)

// RunScheduler runs the periodic jobs until ctx is cancelled: rest timers are ticked every second and idle athlete
// contexts are purged every ten minutes.
func (s *Service) RunScheduler(ctx context.Context) error {
	c := cron.New()
	if err := c.AddFunc("@every 1s", s.TickSessions); err != nil {
		return errors.Wrap(err, "schedule rest timer ticks")
	}
	if err := c.AddFunc("@every 10m", func() { s.PurgeIdle(context.WithoutCancel(ctx)) }); err != nil {
		return errors.Wrap(err, "schedule idle athlete purge")
	}
	c.Start()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "scheduler started", slog.Int("jobs", len(c.Entries())))

	<-ctx.Done()
	c.Stop()
	s.logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelInfo, "scheduler stopped")
	return nil
}
