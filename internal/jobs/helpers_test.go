package job

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/service"
)

type publishFunc func(ctx context.Context, cred *models.Credential, msg service.ComposedMessage) (models.Outcome, error)

type fakeAdapter struct {
	platform models.Platform
	calls    int32
	publish  publishFunc

	mu   sync.Mutex
	msgs []service.ComposedMessage
}

func newFakeAdapter(p models.Platform, fn publishFunc) *fakeAdapter {
	if fn == nil {
		fn = func(ctx context.Context, cred *models.Credential, msg service.ComposedMessage) (models.Outcome, error) {
			switch {
			case msg.Media.VideoURL != "":
				return models.Success(models.VariantVideo, "remote-1"), nil
			case msg.Media.ImageURL != "":
				return models.Success(models.VariantImage, "remote-1"), nil
			}
			return models.Success(models.VariantText, "remote-1"), nil
		}
	}
	return &fakeAdapter{platform: p, publish: fn}
}

func (f *fakeAdapter) Platform() models.Platform {
	return f.platform
}

func (f *fakeAdapter) Publish(ctx context.Context, cred *models.Credential, msg service.ComposedMessage) (models.Outcome, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	return f.publish(ctx, cred, msg)
}

func (f *fakeAdapter) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

type harness struct {
	t         *testing.T
	now       time.Time
	cfg       config.Config
	store     *repository.MemoryStore
	schedules repository.ScheduleRepository
	registry  *service.Registry
	creds     service.CredentialService
}

func newHarness(t *testing.T, adapters ...service.PlatformAdapter) *harness {
	t.Helper()
	store := repository.NewMemoryStore()
	cfg := config.Config{
		ScheduleConcurrency: 4,
		PublishTimeout:      5 * time.Second,
		ClaimTTL:            15 * time.Minute,
	}
	creds, err := service.NewCredentialService(cfg, repository.NewCredentialRepository(store))
	if err != nil {
		t.Fatalf("credential service: %v", err)
	}
	return &harness{
		t:         t,
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		cfg:       cfg,
		store:     store,
		schedules: repository.NewScheduleRepository(store),
		registry:  service.NewRegistry(adapters...),
		creds:     creds,
	}
}

func (h *harness) newJob() *DispatchJob {
	return h.newJobWith(h.schedules, repository.NewProductRepository(h.store))
}

func (h *harness) newJobWith(sr repository.ScheduleRepository, pr repository.ProductRepository) *DispatchJob {
	j := NewDispatchJob(h.cfg, sr, pr, h.creds, service.NewContentService(), h.registry)
	j.now = func() time.Time { return h.now }
	return j
}

// tick runs one tick, waits for the dispatched schedules and returns the
// completed report.
func (h *harness) tick(job *DispatchJob, now time.Time) models.TickReport {
	h.t.Helper()
	if _, err := job.Tick(context.Background(), now); err != nil {
		h.t.Fatalf("tick: %v", err)
	}
	h.drain(job)
	return *job.LastReport()
}

func (h *harness) drain(job *DispatchJob) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := job.Drain(ctx); err != nil {
		h.t.Fatalf("drain: %v", err)
	}
}

func (h *harness) addSchedule(id, productID string, platforms []string, runAt time.Time, status models.ScheduleStatus) {
	h.t.Helper()
	s := models.Schedule{
		ID:        id,
		OwnerID:   "owner-1",
		ProductID: productID,
		Platforms: platforms,
		RunAt:     runAt,
		Status:    status,
		CreatedAt: h.now.Add(-time.Hour),
	}
	if err := h.store.PutModel(repository.SchedulesCollection, id, s); err != nil {
		h.t.Fatalf("seed schedule: %v", err)
	}
}

func (h *harness) addProduct(id string, videoURL string, blocks map[string]models.PlatformContentBlock) {
	h.t.Helper()
	p := models.Product{ID: id, BrandID: "brand-1", MarketingContent: blocks, VideoURL: videoURL}
	if err := h.store.PutModel(repository.ProductsCollection, id, p); err != nil {
		h.t.Fatalf("seed product: %v", err)
	}
}

func (h *harness) addCredential(platform models.Platform, id string, active bool) {
	h.t.Helper()
	c := models.Credential{
		ID:                 id,
		OwnerID:            "owner-1",
		AccessToken:        "token-" + id,
		AccessTokenSecret:  "secret-" + id,
		PageID:             "page-1",
		InstagramAccountID: "ig-1",
		IsActive:           active,
		CreatedAt:          h.now.Add(-24 * time.Hour),
	}
	if err := h.store.PutModel(platform.CredentialCollection(), id, c); err != nil {
		h.t.Fatalf("seed credential: %v", err)
	}
}

func (h *harness) schedule(id string) *models.Schedule {
	h.t.Helper()
	s, err := h.schedules.GetByID(context.Background(), id)
	if err != nil || s == nil {
		h.t.Fatalf("get schedule %s: %v", id, err)
	}
	return s
}

func textBlock(text string) models.PlatformContentBlock {
	return models.PlatformContentBlock{Content: models.ContentBody{Text: text, Caption: text}}
}
