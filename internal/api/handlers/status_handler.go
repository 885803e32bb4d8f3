package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	job "github.com/maheshrc27/postflow-publisher/internal/jobs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type ReportSource interface {
	LastReport() *models.TickReport
}

type TickTrigger interface {
	RunOnce(ctx context.Context) (models.TickReport, error)
}

type StatusHandler struct {
	reports ReportSource
	trigger TickTrigger
	enqueue func() error
	started time.Time
}

func NewStatusHandler(reports ReportSource, trigger TickTrigger) *StatusHandler {
	return &StatusHandler{reports: reports, trigger: trigger, started: time.Now()}
}

// WithEnqueue makes RunTick hand the tick to the queue workers instead of
// running it in this process.
func (h *StatusHandler) WithEnqueue(enqueue func() error) *StatusHandler {
	h.enqueue = enqueue
	return h
}

func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Status reports the last finished tick; last_tick is null before the first one.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"last_tick":      h.reports.LastReport(),
	})
}

// RunTick runs one tick and returns its report. With a queue attached the
// tick is enqueued and the response is 202 without a report.
func (h *StatusHandler) RunTick(c *fiber.Ctx) error {
	if h.enqueue != nil {
		if err := h.enqueue(); err != nil {
			slog.Error("failed to enqueue tick", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status": "enqueued",
		})
	}

	report, err := h.trigger.RunOnce(c.UserContext())
	switch {
	case errors.Is(err, job.ErrTickInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, job.ErrTickerStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(report)
}

// Register mounts the ops routes; protect guards the tick trigger. Without a
// guard the trigger is not mounted.
func (h *StatusHandler) Register(app *fiber.App, protect fiber.Handler) {
	app.Get("/healthz", h.Health)
	app.Get("/status", h.Status)
	if protect == nil {
		slog.Warn("ops token not configured, POST /ticks disabled")
		return
	}
	app.Post("/ticks", protect, h.RunTick)
}
