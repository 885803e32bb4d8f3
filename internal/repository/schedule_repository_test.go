package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

func seedSchedule(t *testing.T, s *MemoryStore, sched models.Schedule) {
	t.Helper()
	if err := s.PutModel(SchedulesCollection, sched.ID, sched); err != nil {
		t.Fatalf("seed schedule %s: %v", sched.ID, err)
	}
}

func TestScheduleRepository_ListDue(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	seedSchedule(t, store, models.Schedule{ID: "due", RunAt: now.Add(-time.Second), Status: models.ScheduleStatusUpcoming})
	seedSchedule(t, store, models.Schedule{ID: "exact", RunAt: now, Status: models.ScheduleStatusUpcoming})
	seedSchedule(t, store, models.Schedule{ID: "future", RunAt: now.Add(time.Second), Status: models.ScheduleStatusUpcoming})
	seedSchedule(t, store, models.Schedule{ID: "done", RunAt: now.Add(-time.Hour), Status: models.ScheduleStatusPublished})

	repo := NewScheduleRepository(store)
	due, err := repo.ListDue(context.Background(), now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 || due[0].ID != "due" || due[1].ID != "exact" {
		t.Fatalf("unexpected due schedules: %+v", due)
	}
}

func TestScheduleRepository_ClaimIsExclusive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	seedSchedule(t, store, models.Schedule{ID: "s1", RunAt: now, Status: models.ScheduleStatusUpcoming})
	repo := NewScheduleRepository(store)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.Claim(context.Background(), "s1", string(rune('a'+i)), now)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins)
	}

	got, _ := repo.GetByID(context.Background(), "s1")
	if got.Status != models.ScheduleStatusClaimed || got.ClaimToken == "" || got.ClaimedAt == nil {
		t.Fatalf("unexpected claimed schedule: %+v", got)
	}
}

func TestScheduleRepository_Finalize(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	seedSchedule(t, store, models.Schedule{ID: "s1", RunAt: now, Status: models.ScheduleStatusUpcoming})
	repo := NewScheduleRepository(store)

	if ok, err := repo.Claim(ctx, "s1", "tok", now); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}

	results := map[string]models.Outcome{"facebook": models.Success(models.VariantText, "post-1")}

	if err := repo.Finalize(ctx, "s1", "other", models.ScheduleStatusPublished, results, now); !errors.Is(err, ErrClaimLost) {
		t.Fatalf("expected ErrClaimLost for foreign token, got %v", err)
	}
	if err := repo.Finalize(ctx, "s1", "tok", models.ScheduleStatusClaimed, results, now); err == nil {
		t.Fatalf("expected error for non-terminal status")
	}
	if err := repo.Finalize(ctx, "s1", "tok", models.ScheduleStatusPublished, results, now); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := repo.Finalize(ctx, "s1", "tok", models.ScheduleStatusFailed, nil, now); !errors.Is(err, ErrClaimLost) {
		t.Fatalf("terminal schedule must not be finalized twice, got %v", err)
	}

	got, _ := repo.GetByID(ctx, "s1")
	if got.Status != models.ScheduleStatusPublished {
		t.Fatalf("expected published, got %s", got.Status)
	}
	if out := got.Results["facebook"]; !out.OK() || out.RemoteID != "post-1" {
		t.Fatalf("unexpected results: %+v", got.Results)
	}
}

func TestScheduleRepository_Release(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	seedSchedule(t, store, models.Schedule{ID: "s1", RunAt: now, Status: models.ScheduleStatusUpcoming})
	repo := NewScheduleRepository(store)

	if ok, err := repo.Claim(ctx, "s1", "tok", now); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if err := repo.Release(ctx, "s1", "other", now); !errors.Is(err, ErrClaimLost) {
		t.Fatalf("expected ErrClaimLost for foreign token, got %v", err)
	}
	if err := repo.Release(ctx, "s1", "tok", now.Add(time.Second)); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, _ := repo.GetByID(ctx, "s1")
	if got.Status != models.ScheduleStatusUpcoming || got.ClaimToken != "" || got.ClaimedAt != nil {
		t.Fatalf("expected released schedule, got %+v", got)
	}

	due, err := repo.ListDue(ctx, now)
	if err != nil || len(due) != 1 {
		t.Fatalf("released schedule should be due again: %+v err=%v", due, err)
	}

	if err := repo.Release(ctx, "s1", "tok", now); !errors.Is(err, ErrClaimLost) {
		t.Fatalf("released claim must not be released twice, got %v", err)
	}
	if ok, err := repo.Claim(ctx, "s1", "tok-2", now); err != nil || !ok {
		t.Fatalf("released schedule should be claimable: ok=%v err=%v", ok, err)
	}
}

func TestScheduleRepository_ListStaleClaims(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	seedSchedule(t, store, models.Schedule{ID: "old", RunAt: now, Status: models.ScheduleStatusUpcoming})
	seedSchedule(t, store, models.Schedule{ID: "fresh", RunAt: now, Status: models.ScheduleStatusUpcoming})
	repo := NewScheduleRepository(store)

	if _, err := repo.Claim(ctx, "old", "t1", now.Add(-time.Hour)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := repo.Claim(ctx, "fresh", "t2", now); err != nil {
		t.Fatalf("claim: %v", err)
	}

	stale, err := repo.ListStaleClaims(ctx, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("unexpected stale claims: %+v", stale)
	}
}

func TestProductRepository_GetByID(t *testing.T) {
	store := NewMemoryStore()
	err := store.Put(ProductsCollection, "p1", Record{
		"brand_id": "b1",
		"marketing_content": map[string]any{
			"twitter": map[string]any{"content": map[string]any{"text": "hi", "hashtags": "#a #b"}},
		},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	repo := NewProductRepository(store)
	p, err := repo.GetByID(context.Background(), "p1")
	if err != nil || p == nil {
		t.Fatalf("get: %v %v", p, err)
	}
	block, ok := p.Block(models.PlatformTwitter)
	if !ok || block.Content.Text != "hi" || len(block.Content.Hashtags) != 2 {
		t.Fatalf("unexpected block: %+v", block)
	}

	missing, err := repo.GetByID(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil, got %v, %v", missing, err)
	}
}

func TestCredentialRepository_ListActiveOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	coll := models.PlatformFacebook.CredentialCollection()

	creds := []models.Credential{
		{ID: "c3", OwnerID: "u1", IsActive: true, AccessToken: "newer", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "c1", OwnerID: "u1", IsActive: true, AccessToken: "older", CreatedAt: base},
		{ID: "c2", OwnerID: "u1", IsActive: false, AccessToken: "inactive", CreatedAt: base.Add(-time.Hour)},
		{ID: "c4", OwnerID: "u2", IsActive: true, AccessToken: "other", CreatedAt: base.Add(-time.Hour)},
	}
	for _, c := range creds {
		if err := store.PutModel(coll, c.ID, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	repo := NewCredentialRepository(store)
	got, err := repo.ListActive(ctx, "u1", models.PlatformFacebook)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c3" {
		t.Fatalf("unexpected credentials: %+v", got)
	}
	if got[0].Platform != models.PlatformFacebook {
		t.Fatalf("platform not set on credential: %+v", got[0])
	}
}

func TestCredentialRepository_ExpiringAndUpdateToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(10 * time.Minute)
	later := now.Add(2 * time.Hour)
	store := NewMemoryStore()
	coll := models.PlatformYoutube.CredentialCollection()

	_ = store.PutModel(coll, "y1", models.Credential{ID: "y1", OwnerID: "u1", IsActive: true, TokenExpiresAt: &soon})
	_ = store.PutModel(coll, "y2", models.Credential{ID: "y2", OwnerID: "u1", IsActive: true, TokenExpiresAt: &later})
	_ = store.PutModel(coll, "y3", models.Credential{ID: "y3", OwnerID: "u1", IsActive: true})

	repo := NewCredentialRepository(store)
	expiring, err := repo.ListExpiring(ctx, models.PlatformYoutube, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("list expiring: %v", err)
	}
	if len(expiring) != 1 || expiring[0].ID != "y1" {
		t.Fatalf("unexpected expiring credentials: %+v", expiring)
	}

	if err := repo.UpdateToken(ctx, models.PlatformYoutube, "y1", "fresh", later); err != nil {
		t.Fatalf("update token: %v", err)
	}
	expiring, _ = repo.ListExpiring(ctx, models.PlatformYoutube, now.Add(30*time.Minute))
	if len(expiring) != 0 {
		t.Fatalf("refreshed credential still expiring: %+v", expiring)
	}
}
