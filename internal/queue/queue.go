package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

func NewTickTask(payload DispatchTickPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDispatchTick, taskPayload), nil
}

// EnqueueTick asks the workers for an extra tick after delay.
func EnqueueTick(asynqClient *asynq.Client, payload DispatchTickPayload, delay time.Duration) error {
	task, err := NewTickTask(payload)
	if err != nil {
		return err
	}

	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(delay), asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	slog.Info("dispatch tick enqueued", "trigger", payload.Trigger, "delay", delay)
	return nil
}

// RegisterTick registers the periodic tick. Unique keeps at most one pending
// tick per interval when workers fall behind.
func RegisterTick(scheduler *asynq.Scheduler, interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("invalid tick interval %s", interval)
	}

	task, err := NewTickTask(DispatchTickPayload{Trigger: TriggerScheduler})
	if err != nil {
		return "", err
	}

	spec := fmt.Sprintf("@every %s", interval)
	id, err := scheduler.Register(spec, task, asynq.MaxRetry(0), asynq.Unique(interval))
	if err != nil {
		return "", fmt.Errorf("register dispatch tick %q: %w", spec, err)
	}
	return id, nil
}
