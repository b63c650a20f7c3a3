package session

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewSweeper schedules SweepIdle on the given cron schedule (e.g. "@every 1m").
// The caller starts and stops the returned scheduler.
func NewSweeper(r *Registry, schedule string, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(schedule, func() {
		if n := r.SweepIdle(); n > 0 {
			logger.Info("swept idle sessions", zap.Int("count", n), zap.Int("open", r.Len()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule idle sweep %q: %w", schedule, err)
	}
	return c, nil
}
