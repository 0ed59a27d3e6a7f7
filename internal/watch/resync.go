package watch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// resyncScheduler triggers periodic full resyncs.
type resyncScheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

func newResyncScheduler(interval time.Duration, trigger func(), logger *slog.Logger) (*resyncScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			logger.Debug("Scheduling resync")
			trigger()
		}),
		gocron.WithName("resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create resync job: %w", err)
	}

	return &resyncScheduler{scheduler: s, logger: logger}, nil
}

func (r *resyncScheduler) Start() {
	r.logger.Info("Starting resync scheduler")
	r.scheduler.Start()
}

func (r *resyncScheduler) Stop() error {
	r.logger.Info("Stopping resync scheduler")
	return r.scheduler.Shutdown()
}
