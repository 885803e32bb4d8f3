package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type scheduleResult int

const (
	resultSkipped scheduleResult = iota
	resultPublished
	resultFailed
	resultErrored
)

// DispatchJob publishes due schedules. Tick claims them and hands each one to
// a background worker bounded by the schedule concurrency; Drain waits for
// those workers. A claimed schedule is finalized with its per-platform
// results once every requested platform has been attempted.
type DispatchJob struct {
	sr       repository.ScheduleRepository
	pr       repository.ProductRepository
	cs       service.CredentialService
	content  service.ContentService
	adapters *service.Registry

	publishTimeout time.Duration
	claimTTL       time.Duration

	slots    chan struct{}
	wg       sync.WaitGroup
	inFlight sync.Map
	newToken func() (string, error)
	now      func() time.Time

	mu   sync.Mutex
	last *models.TickReport
}

func NewDispatchJob(
	cfg config.Config,
	sr repository.ScheduleRepository,
	pr repository.ProductRepository,
	cs service.CredentialService,
	content service.ContentService,
	adapters *service.Registry) *DispatchJob {
	concurrency := cfg.ScheduleConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	return &DispatchJob{
		sr:             sr,
		pr:             pr,
		cs:             cs,
		content:        content,
		adapters:       adapters,
		publishTimeout: cfg.PublishTimeout,
		claimTTL:       cfg.ClaimTTL,
		slots:          make(chan struct{}, concurrency),
		newToken:       func() (string, error) { return gonanoid.New() },
		now:            time.Now,
	}
}

// Tick claims every schedule due at now and dispatches it in the background.
// It returns once the claims are written; Published, Failed and Errored in
// the tick's report grow as the dispatched schedules finish. Only a failure
// to list due schedules is returned.
func (j *DispatchJob) Tick(ctx context.Context, now time.Time) (models.TickReport, error) {
	report := &models.TickReport{StartedAt: now}

	due, err := j.sr.ListDue(ctx, now)
	if err != nil {
		return *report, fmt.Errorf("list due schedules: %w", err)
	}
	report.Due = len(due)

	if j.claimTTL > 0 {
		stale, err := j.sr.ListStaleClaims(ctx, now.Add(-j.claimTTL))
		if err != nil {
			slog.Warn("failed to list stale claims", "error", err)
		}
		for _, s := range stale {
			slog.Warn("schedule claimed but never finalized", "schedule", s.ID, "claimed_at", s.ClaimedAt)
		}
		report.Stale = len(stale)
	}

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	for _, sched := range due {
		token, result := j.claim(ctx, sched, now)
		if token == "" {
			j.record(report, func(r *models.TickReport) {
				if result == resultErrored {
					r.Errored++
				} else {
					r.Skipped++
				}
			})
			continue
		}
		j.record(report, func(r *models.TickReport) { r.Claimed++ })

		j.wg.Add(1)
		go func(sched *models.Schedule, token string) {
			defer j.wg.Done()
			defer j.inFlight.Delete(sched.ID)

			j.slots <- struct{}{}
			defer func() { <-j.slots }()

			result := j.dispatch(detached, sched, token)
			j.record(report, func(r *models.TickReport) {
				switch result {
				case resultPublished:
					r.Published++
				case resultFailed:
					r.Failed++
				default:
					r.Errored++
				}
			})
		}(sched, token)
	}

	j.mu.Lock()
	report.FinishedAt = j.now()
	snapshot := *report
	j.mu.Unlock()

	slog.Info("dispatch tick finished",
		"due", snapshot.Due,
		"claimed", snapshot.Claimed,
		"skipped", snapshot.Skipped,
		"errored", snapshot.Errored,
		"stale", snapshot.Stale,
	)
	return snapshot, nil
}

// Drain waits for every dispatched schedule to be finalized, or for ctx to be done.
func (j *DispatchJob) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for dispatched schedules: %w", ctx.Err())
	}
}

// LastReport returns the report of the most recent tick, or nil before the first one.
func (j *DispatchJob) LastReport() *models.TickReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return nil
	}
	r := *j.last
	return &r
}

func (j *DispatchJob) record(report *models.TickReport, fn func(*models.TickReport)) {
	j.mu.Lock()
	fn(report)
	j.mu.Unlock()
}

// claim marks sched in flight and claims it in the repository. It returns the
// claim token, or "" with the reason the schedule was not claimed.
func (j *DispatchJob) claim(ctx context.Context, sched *models.Schedule, now time.Time) (string, scheduleResult) {
	if !sched.IsDue(now) {
		slog.Warn("listed schedule is not due", "schedule", sched.ID, "status", sched.Status, "run_at", sched.RunAt)
		return "", resultSkipped
	}
	if _, busy := j.inFlight.LoadOrStore(sched.ID, struct{}{}); busy {
		slog.Info("schedule already in flight", "schedule", sched.ID)
		return "", resultSkipped
	}

	token, err := j.newToken()
	if err != nil {
		j.inFlight.Delete(sched.ID)
		slog.Error("failed to generate claim token", "schedule", sched.ID, "error", err)
		return "", resultErrored
	}

	ok, err := j.sr.Claim(ctx, sched.ID, token, now)
	if err != nil {
		j.inFlight.Delete(sched.ID)
		slog.Error("failed to claim schedule", "schedule", sched.ID, "error", err)
		return "", resultErrored
	}
	if !ok {
		j.inFlight.Delete(sched.ID)
		slog.Info("schedule claimed elsewhere", "schedule", sched.ID)
		return "", resultSkipped
	}
	return token, resultSkipped
}

// dispatch publishes a claimed schedule and finalizes it. ctx must already be
// detached from the tick's caller; each schedule is bounded by the publish timeout.
func (j *DispatchJob) dispatch(ctx context.Context, sched *models.Schedule, token string) scheduleResult {
	pubCtx, cancel := ctx, context.CancelFunc(func() {})
	if j.publishTimeout > 0 {
		pubCtx, cancel = context.WithTimeout(ctx, j.publishTimeout)
	}
	defer cancel()

	var results map[string]models.Outcome

	product, err := j.pr.GetByID(pubCtx, sched.ProductID)
	if err != nil {
		slog.Error("failed to load product, releasing claim", "schedule", sched.ID, "product", sched.ProductID, "error", err)
		if err := j.sr.Release(ctx, sched.ID, token, j.now()); err != nil {
			slog.Error("failed to release schedule", "schedule", sched.ID, "error", err)
		}
		return resultErrored
	}
	if product == nil {
		slog.Warn("product not found", "schedule", sched.ID, "product", sched.ProductID)
		results = map[string]models.Outcome{
			models.ResultErrorKey: models.Failure(models.ReasonProductNotFound, "product not found"),
		}
	} else {
		results = j.publishAll(pubCtx, sched, product)
	}

	status := models.ScheduleStatusFailed
	if product != nil && allSucceeded(results) {
		status = models.ScheduleStatusPublished
	}

	if err := j.sr.Finalize(ctx, sched.ID, token, status, results, j.now()); err != nil {
		slog.Error("failed to finalize schedule", "schedule", sched.ID, "status", status, "error", err)
		return resultErrored
	}
	slog.Info("schedule finalized", "schedule", sched.ID, "status", status)

	if status == models.ScheduleStatusPublished {
		return resultPublished
	}
	return resultFailed
}

// publishAll attempts every requested platform concurrently and waits for all
// of them. Results are keyed by the platform name as requested.
func (j *DispatchJob) publishAll(ctx context.Context, sched *models.Schedule, product *models.Product) map[string]models.Outcome {
	platforms := sched.RequestedPlatforms()
	results := make(map[string]models.Outcome, len(platforms))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, raw := range platforms {
		wg.Add(1)
		go func(raw string) {
			defer wg.Done()
			out := j.publishOne(ctx, sched, product, raw)

			mu.Lock()
			results[raw] = out
			mu.Unlock()
		}(raw)
	}
	wg.Wait()

	return results
}

func (j *DispatchJob) publishOne(ctx context.Context, sched *models.Schedule, product *models.Product, raw string) (out models.Outcome) {
	logger := slog.With("schedule", sched.ID, "platform", raw)

	defer func() {
		if r := recover(); r != nil {
			out = models.Failure(models.ReasonProtocolError, fmt.Sprintf("panic: %v", r))
		}
		if out.OK() {
			logger.Info("published", "variant", out.Variant, "remote_id", out.RemoteID)
		} else {
			logger.Warn("publish failed", "reason", out.Reason, "detail", out.Detail)
		}
	}()

	platform, ok := models.ParsePlatform(raw)
	if !ok {
		return models.Failure(models.ReasonUnsupportedPlatform, raw)
	}
	adapter, ok := j.adapters.Lookup(platform)
	if !ok {
		return models.Failure(models.ReasonUnsupportedPlatform, raw)
	}

	msg, err := j.content.Resolve(product, platform)
	if err != nil {
		return service.OutcomeFromError(err)
	}

	cred, err := j.cs.Resolve(ctx, sched.OwnerID, platform)
	if err != nil {
		return service.OutcomeFromError(err)
	}

	out, err = adapter.Publish(ctx, cred, msg)
	if err != nil {
		return service.OutcomeFromError(err)
	}
	return out
}

func allSucceeded(results map[string]models.Outcome) bool {
	for _, out := range results {
		if !out.OK() {
			return false
		}
	}
	return true
}
