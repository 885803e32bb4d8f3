package queue

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Driver fires dispatch ticks through Redis so that several publisher
// processes share one periodic schedule.
type Driver struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	interval  time.Duration
}

func NewDriver(redisConn asynq.RedisConnOpt, interval time.Duration, q *Queue) *Driver {
	return &Driver{
		server: asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
		}),
		scheduler: asynq.NewScheduler(redisConn, &asynq.SchedulerOpts{
			Location: time.UTC,
		}),
		mux:      NewServeMux(q),
		interval: interval,
	}
}

func (d *Driver) Start() error {
	if _, err := RegisterTick(d.scheduler, d.interval); err != nil {
		return err
	}
	if err := d.server.Start(d.mux); err != nil {
		return err
	}
	if err := d.scheduler.Start(); err != nil {
		d.server.Shutdown()
		return err
	}
	slog.Info("asynq tick driver started", "interval", d.interval)
	return nil
}

func (d *Driver) Shutdown() {
	d.scheduler.Shutdown()
	d.server.Shutdown()
	slog.Info("asynq tick driver stopped")
}
