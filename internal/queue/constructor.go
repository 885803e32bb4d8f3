package queue

import (
	"context"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

// TickRunner runs one dispatch tick; *job.Ticker satisfies it.
type TickRunner interface {
	RunOnce(ctx context.Context) (models.TickReport, error)
}

type Queue struct {
	runner TickRunner
}

func NewQueue(runner TickRunner) *Queue {
	return &Queue{
		runner: runner,
	}
}

const TaskTypeDispatchTick = "dispatch:tick"

const (
	TriggerScheduler = "scheduler"
	TriggerManual    = "manual"
)

type DispatchTickPayload struct {
	Trigger string `json:"trigger"`
}
