package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	job "github.com/maheshrc27/postflow-publisher/internal/jobs"
)

func (q *Queue) HandleDispatchTickTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchTickPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode dispatch tick payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	report, err := q.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, job.ErrTickInProgress), errors.Is(err, job.ErrTickerStopped):
		slog.Info("dispatch tick skipped", "trigger", payload.Trigger, "reason", err.Error())
		return nil
	case err != nil:
		return fmt.Errorf("dispatch tick: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("dispatch tick task done",
		"trigger", payload.Trigger,
		"due", report.Due,
		"published", report.Published,
		"failed", report.Failed,
	)
	return nil
}

// NewServeMux routes dispatch tick tasks to q.
func NewServeMux(q *Queue) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeDispatchTick, q.HandleDispatchTickTask)
	return mux
}
