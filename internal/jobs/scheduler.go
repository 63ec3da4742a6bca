package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler kicks off the recurring reporter tasks: daily reminders at
// 18:00 UTC and monthly reports on the 1st at 18:10 UTC.
type Scheduler struct {
	cron     *cron.Cron
	reporter *Reporter
}

func NewScheduler(reporter *Reporter) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		reporter: reporter,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("0 18 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.reporter.SendDailyReminders(ctx); err != nil {
			log.Printf("daily reminder task failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc("10 18 1 * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if err := s.reporter.SendMonthlyReports(ctx); err != nil {
			log.Printf("monthly report task failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("report scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
