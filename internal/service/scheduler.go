package service

import (
	"log"

	"github.com/go-co-op/gocron/v2"
)

// NewScheduler returns a scheduler that never overlaps build runs: a tick that
// fires while a build is still going is rescheduled instead.
func NewScheduler() gocron.Scheduler {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Fatal(err)
	}
	return scheduler
}

// ScheduleBuild registers task to run on the given cron expression.
func ScheduleBuild(scheduler gocron.Scheduler, cron string, task func()) (gocron.Job, error) {
	return scheduler.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(task),
	)
}
