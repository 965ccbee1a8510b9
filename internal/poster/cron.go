package poster

import (
	"fmt"
	"log"

	"github.com/robfig/cron"
)

// Scheduler triggers the periodic queue drain and the daily admin log purge.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the drain and purge jobs on their cron specs.
// Specs use the six-field format with seconds, e.g. "0 0 * * * *" for the
// top of every hour.
func NewScheduler(sendSpec, purgeSpec string, drain, purge func()) (*Scheduler, error) {
	c := cron.New()
	if err := c.AddFunc(sendSpec, drain); err != nil {
		return nil, fmt.Errorf("invalid send cron spec %q: %w", sendSpec, err)
	}
	if err := c.AddFunc(purgeSpec, purge); err != nil {
		return nil, fmt.Errorf("invalid purge cron spec %q: %w", purgeSpec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[CRON] Scheduler started")
}

// Stop halts the cron runner; running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[CRON] Scheduler stopped")
}
