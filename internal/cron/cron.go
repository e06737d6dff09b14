package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
)

// Scheduler runs the periodic sweeps: due-soon reminders and
// notification cleanup.
type Scheduler struct {
	cron     *cron.Cron
	notifSvc *notification.Service
	taskRepo repository.TaskRepository
}

func NewScheduler(notifSvc *notification.Service, taskRepo repository.TaskRepository) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		notifSvc: notifSvc,
		taskRepo: taskRepo,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() {
	// Due date reminders, every day at 9 AM
	s.cron.AddFunc("0 9 * * *", func() {
		log.Println("[Cron] Running due date reminder sweep...")
		s.sweepDueSoon()
	})

	s.cron.Start()
	log.Println("[Cron] Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

// sweepDueSoon notifies assignees of unfinished tasks due within the
// next 24 hours. Each sweep is a single pass; the fan-out carries no
// idempotency key, so the schedule must not double-fire.
func (s *Scheduler) sweepDueSoon() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now()
	tasks, err := s.taskRepo.FindDueBetween(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		log.Printf("[Cron] Due soon sweep failed: %v", err)
		return
	}

	notified := 0
	for _, task := range tasks {
		notified += s.notifSvc.NotifyTaskDueSoon(ctx, task)
	}
	log.Printf("[Cron] Due soon sweep complete: tasks=%d notifications=%d", len(tasks), notified)
}
