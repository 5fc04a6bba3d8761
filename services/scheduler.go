// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCompetitionScheduler runs the lifecycle sweep every minute in-process.
// The bearer-gated /check-competitions endpoint drives the same sweep from
// external cron; the conditional transition claims make the two safe to run
// together.
func (s *CompetitionService) StartCompetitionScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
			defer cancel()
			summary := s.RunSweep(ctx, time.Now())
			if summary.Activated > 0 || summary.Completed > 0 || len(summary.Errors) > 0 {
				log.Printf("[Scheduler] sweep: activated=%d completed=%d errors=%v (%dms)",
					summary.Activated, summary.Completed, summary.Errors, summary.DurationMS)
			}
		}),
	)
}
