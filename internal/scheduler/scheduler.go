package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"krishi-mitra-backend/internal/logger"
)

// Scheduler runs recurring background jobs. Every job is in singleton mode, so a
// run that overlaps the next tick is skipped rather than started twice.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()
	return &Scheduler{scheduler: s}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleCron registers job under tag with a standard five-field cron expression.
func (s *Scheduler) ScheduleCron(tag, cronExpr string, job func() error) error {
	_, err := s.scheduler.Cron(cronExpr).Tag(tag).Do(runLogged(tag, job))
	return err
}

// ScheduleInterval registers job under tag to run every interval.
func (s *Scheduler) ScheduleInterval(tag string, interval time.Duration, job func() error) error {
	_, err := s.scheduler.Every(interval).Tag(tag).WaitForSchedule().Do(runLogged(tag, job))
	return err
}

func (s *Scheduler) RemoveJob(tag string) error {
	return s.scheduler.RemoveByTag(tag)
}

// Tags lists the tags of the scheduled jobs.
func (s *Scheduler) Tags() []string {
	var tags []string
	for _, job := range s.scheduler.Jobs() {
		tags = append(tags, job.Tags()...)
	}
	return tags
}

func runLogged(tag string, job func() error) func() {
	return func() {
		start := time.Now()
		if err := job(); err != nil {
			logger.Error("Scheduled job failed", "job", tag, "error", err)
			return
		}
		logger.Info("Scheduled job finished", "job", tag, "duration", time.Since(start).String())
	}
}
