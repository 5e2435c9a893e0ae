// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler runs the archive export every interval until ctx is done. The returned
// scheduler is already started; callers may Shutdown it earlier.
func (a *ArchiveService) StartScheduler(ctx context.Context, every time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			a.runLogged(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("ranked-archive"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule archive job: %w", err)
	}

	sched.Start()
	log.Printf("[Scheduler] archive job every %s", every)

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("[Scheduler] shutdown: %v", err)
		}
	}()
	return sched, nil
}
