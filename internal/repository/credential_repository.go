package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type CredentialRepository interface {
	ListActive(ctx context.Context, ownerID string, platform models.Platform) ([]*models.Credential, error)
	ListExpiring(ctx context.Context, platform models.Platform, before time.Time) ([]*models.Credential, error)
	UpdateToken(ctx context.Context, platform models.Platform, id, accessToken string, expiresAt time.Time) error
}

type credentialRepository struct {
	store Store
}

func NewCredentialRepository(store Store) CredentialRepository {
	return &credentialRepository{store: store}
}

// ListActive returns the owner's active credentials for platform, oldest first.
func (r *credentialRepository) ListActive(ctx context.Context, ownerID string, platform models.Platform) ([]*models.Credential, error) {
	creds, err := r.list(ctx, platform,
		Where("owner_id", OpEq, ownerID),
		Where("is_active", OpEq, true),
	)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(creds, func(i, j int) bool {
		if !creds[i].CreatedAt.Equal(creds[j].CreatedAt) {
			return creds[i].CreatedAt.Before(creds[j].CreatedAt)
		}
		return creds[i].ID < creds[j].ID
	})
	return creds, nil
}

func (r *credentialRepository) ListExpiring(ctx context.Context, platform models.Platform, before time.Time) ([]*models.Credential, error) {
	return r.list(ctx, platform,
		Where("is_active", OpEq, true),
		Where("token_expires_at", OpLte, before.UTC()),
	)
}

func (r *credentialRepository) UpdateToken(ctx context.Context, platform models.Platform, id, accessToken string, expiresAt time.Time) error {
	return r.store.Update(ctx, platform.CredentialCollection(), id, Record{
		"access_token":     accessToken,
		"token_expires_at": expiresAt.UTC(),
		"modified_at":      time.Now().UTC(),
	})
}

func (r *credentialRepository) list(ctx context.Context, platform models.Platform, filters ...Filter) ([]*models.Credential, error) {
	records, err := r.store.Query(ctx, platform.CredentialCollection(), filters...)
	if err != nil {
		return nil, err
	}

	creds := make([]*models.Credential, 0, len(records))
	for _, rec := range records {
		var c models.Credential
		if err := fromRecord(rec, &c); err != nil {
			slog.Info(fmt.Sprintf("decode %s credential %v: %v", platform, rec["id"], err))
			continue
		}
		c.Platform = platform
		creds = append(creds, &c)
	}
	return creds, nil
}
