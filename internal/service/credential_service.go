package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
)

type CredentialService interface {
	Resolve(ctx context.Context, ownerID string, platform models.Platform) (*models.Credential, error)
	ListExpiring(ctx context.Context, platform models.Platform, before time.Time) ([]*models.Credential, error)
	StoreAccessToken(ctx context.Context, cred *models.Credential, accessToken string, expiresAt time.Time) error
}

type credentialService struct {
	cr     repository.CredentialRepository
	cipher *utils.TokenCipher
}

// NewCredentialService decrypts stored tokens with cfg.SecretKey. Without a
// key, tokens are read as stored.
func NewCredentialService(cfg config.Config, cr repository.CredentialRepository) (CredentialService, error) {
	s := &credentialService{cr: cr}
	if cfg.SecretKey != "" {
		c, err := utils.NewTokenCipher([]byte(cfg.SecretKey))
		if err != nil {
			return nil, err
		}
		s.cipher = c
	}
	return s, nil
}

// Resolve returns the owner's first active credential for platform, with
// tokens decrypted.
func (s *credentialService) Resolve(ctx context.Context, ownerID string, platform models.Platform) (*models.Credential, error) {
	creds, err := s.cr.ListActive(ctx, ownerID, platform)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	cred := creds[0]
	if len(creds) > 1 {
		slog.Debug("multiple active credentials", "owner", ownerID, "platform", platform, "selected", cred.ID)
	}
	if err := s.open(cred); err != nil {
		return nil, &ProtocolError{Platform: platform, Detail: fmt.Sprintf("credential %s: cannot decrypt token", cred.ID), Err: err}
	}
	return cred, nil
}

func (s *credentialService) ListExpiring(ctx context.Context, platform models.Platform, before time.Time) ([]*models.Credential, error) {
	creds, err := s.cr.ListExpiring(ctx, platform, before)
	if err != nil {
		return nil, err
	}

	open := make([]*models.Credential, 0, len(creds))
	for _, c := range creds {
		if err := s.open(c); err != nil {
			slog.Warn("skipping credential with unreadable token", "id", c.ID, "platform", platform, "error", err)
			continue
		}
		open = append(open, c)
	}
	return open, nil
}

func (s *credentialService) StoreAccessToken(ctx context.Context, cred *models.Credential, accessToken string, expiresAt time.Time) error {
	sealed := accessToken
	if s.cipher != nil {
		var err error
		sealed, err = s.cipher.Seal(accessToken)
		if err != nil {
			return err
		}
	}
	return s.cr.UpdateToken(ctx, cred.Platform, cred.ID, sealed, expiresAt)
}

func (s *credentialService) open(cred *models.Credential) error {
	if s.cipher == nil {
		return nil
	}
	for _, field := range []*string{&cred.AccessToken, &cred.AccessTokenSecret, &cred.RefreshToken} {
		if *field == "" {
			continue
		}
		plain, err := s.cipher.Open(*field)
		if err != nil {
			return err
		}
		*field = plain
	}
	return nil
}
