package utils

import (
	"time"

	"github.com/robfig/cron/v3"

	"prolific/logger"
	"prolific/sequencer"
)

// StartSessionSweeper drops exercise sessions older than maxAge on every
// tick of spec. Stop the returned cron on shutdown.
func StartSessionSweeper(spec string, sessions *sequencer.Registry, maxAge time.Duration, baseLog *logger.Logger) (*cron.Cron, error) {
	log := baseLog.With("component", "SessionSweeper")
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := sessions.Sweep(maxAge); n > 0 {
			log.Info("Expired exercise sessions", "count", n, "max_age", maxAge)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
