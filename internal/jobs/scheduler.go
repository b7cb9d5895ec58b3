package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the job runner's jobs on cron schedules (UTC, with seconds).
type Scheduler struct {
	cron *cron.Cron
	jobs *JobRunner
}

func NewScheduler(runner *JobRunner, settlementSchedule string) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Scheduler{cron: c, jobs: runner}
	if _, err := s.cron.AddFunc(settlementSchedule, runner.SettleStuckReleases); err != nil {
		return nil, fmt.Errorf("jobs.NewScheduler: settlement schedule %q: %w", settlementSchedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.jobs.log.Info("Starting cron scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.jobs.log.Info("Cron scheduler stopped")
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
