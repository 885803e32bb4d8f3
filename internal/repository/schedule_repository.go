package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

const SchedulesCollection = "schedules"

// ErrClaimLost is returned by Finalize and Release when the schedule is no longer held by the caller's claim.
var ErrClaimLost = errors.New("schedule claim lost")

type ScheduleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	ListStaleClaims(ctx context.Context, before time.Time) ([]*models.Schedule, error)
	Claim(ctx context.Context, id, token string, at time.Time) (bool, error)
	Finalize(ctx context.Context, id, token string, status models.ScheduleStatus, results map[string]models.Outcome, at time.Time) error
	Release(ctx context.Context, id, token string, at time.Time) error
}

type scheduleRepository struct {
	store Store
}

func NewScheduleRepository(store Store) ScheduleRepository {
	return &scheduleRepository{store: store}
}

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	rec, err := r.store.Get(ctx, SchedulesCollection, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return decodeSchedule(rec)
}

func (r *scheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	return r.list(ctx,
		Where("run_at", OpLte, now.UTC()),
		Where("status", OpEq, models.ScheduleStatusUpcoming),
	)
}

func (r *scheduleRepository) ListStaleClaims(ctx context.Context, before time.Time) ([]*models.Schedule, error) {
	return r.list(ctx,
		Where("status", OpEq, models.ScheduleStatusClaimed),
		Where("claimed_at", OpLte, before.UTC()),
	)
}

// Claim moves an upcoming schedule to claimed under token. It reports false
// when another worker got there first.
func (r *scheduleRepository) Claim(ctx context.Context, id, token string, at time.Time) (bool, error) {
	at = at.UTC()
	return r.store.UpdateIf(ctx, SchedulesCollection, id,
		[]Filter{Where("status", OpEq, models.ScheduleStatusUpcoming)},
		Record{
			"status":      models.ScheduleStatusClaimed,
			"claim_token": token,
			"claimed_at":  at,
			"modified_at": at,
		},
	)
}

// Finalize writes the terminal status and results in one update, only while
// the schedule is still claimed under token.
func (r *scheduleRepository) Finalize(ctx context.Context, id, token string, status models.ScheduleStatus, results map[string]models.Outcome, at time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finalize schedule %s: %q is not a terminal status", id, status)
	}
	if results == nil {
		results = map[string]models.Outcome{}
	}

	return r.transition(ctx, id, token, status, Record{
		"results":     results,
		"modified_at": at.UTC(),
	})
}

// Release hands a claimed schedule back to upcoming so a later tick retries
// it. Only valid before any platform was attempted.
func (r *scheduleRepository) Release(ctx context.Context, id, token string, at time.Time) error {
	return r.transition(ctx, id, token, models.ScheduleStatusUpcoming, Record{
		"claim_token": nil,
		"claimed_at":  nil,
		"modified_at": at.UTC(),
	})
}

// transition moves a schedule out of claimed, guarded by the claim token.
func (r *scheduleRepository) transition(ctx context.Context, id, token string, next models.ScheduleStatus, patch Record) error {
	if !models.ScheduleStatusClaimed.CanTransitionTo(next) {
		return fmt.Errorf("schedule %s: cannot move from %q to %q", id, models.ScheduleStatusClaimed, next)
	}
	patch["status"] = next

	ok, err := r.store.UpdateIf(ctx, SchedulesCollection, id,
		[]Filter{
			Where("status", OpEq, models.ScheduleStatusClaimed),
			Where("claim_token", OpEq, token),
		},
		patch,
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("move schedule %s to %s: %w", id, next, ErrClaimLost)
	}
	return nil
}

func (r *scheduleRepository) list(ctx context.Context, filters ...Filter) ([]*models.Schedule, error) {
	records, err := r.store.Query(ctx, SchedulesCollection, filters...)
	if err != nil {
		return nil, err
	}

	schedules := make([]*models.Schedule, 0, len(records))
	for _, rec := range records {
		s, err := decodeSchedule(rec)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

func decodeSchedule(rec Record) (*models.Schedule, error) {
	var s models.Schedule
	if err := fromRecord(rec, &s); err != nil {
		return nil, fmt.Errorf("decode schedule %v: %w", rec["id"], err)
	}
	return &s, nil
}
