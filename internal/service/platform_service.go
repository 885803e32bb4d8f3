package service

import (
	"context"
	"sort"
	"sync"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

// PlatformAdapter publishes a composed message through one platform's API.
// Returned errors are converted into failure outcomes by the caller.
type PlatformAdapter interface {
	Platform() models.Platform
	Publish(ctx context.Context, cred *models.Credential, msg ComposedMessage) (models.Outcome, error)
}

// Registry maps platforms to their adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.Platform]PlatformAdapter
}

func NewRegistry(adapters ...PlatformAdapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]PlatformAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a PlatformAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Platform()] = a
}

func (r *Registry) Lookup(p models.Platform) (PlatformAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	return a, ok
}

func (r *Registry) Platforms() []models.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
