package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Scheduler runs the side jobs: the nightly backup and the periodic
// keep-alive ping. Jobs are single-flight; a run still in progress when
// the next trigger fires is skipped, not overlapped.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// AddBackupJob schedules the backup service
func (s *Scheduler) AddBackupJob(spec string, backup *BackupService) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := backup.Run(ctx); err != nil {
			log.Printf("Backup run failed: %v", err)
		}
	})
	return err
}

// AddKeepAliveJob schedules a database ping so the hosted instance and
// its connection pool stay warm between commands.
func (s *Scheduler) AddKeepAliveJob(spec string, db *gorm.DB) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err != nil {
			log.Printf("Keep-alive: %v", err)
			return
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Printf("Keep-alive ping failed: %v", err)
		}
	})
	return err
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}
