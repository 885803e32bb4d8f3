package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/service"
)

const tokenRefreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	cs  service.CredentialService
	yt  service.YoutubeService
	now func() time.Time
}

func NewTokenRefreshJob(cs service.CredentialService, yt service.YoutubeService) *TokenRefreshJob {
	return &TokenRefreshJob{
		cs:  cs,
		yt:  yt,
		now: time.Now,
	}
}

// RefreshTokens is the cron entry point.
func (c *TokenRefreshJob) RefreshTokens() {
	if _, err := c.Refresh(context.Background()); err != nil {
		slog.Info(err.Error())
	}
}

// Refresh renews YouTube credentials expiring within the next 30 minutes and
// reports how many were renewed.
func (c *TokenRefreshJob) Refresh(ctx context.Context) (int, error) {
	expiring, err := c.cs.ListExpiring(ctx, models.PlatformYoutube, c.now().Add(tokenRefreshWindow))
	if err != nil {
		return 0, err
	}

	var (
		wg        sync.WaitGroup
		refreshed int32
	)

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, cred := range expiring {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(cred *models.Credential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			token, err := c.yt.RefreshToken(ctx, cred)
			if err != nil {
				slog.Info("unable to refresh youtube token", "credential", cred.ID, "error", err)
				return
			}

			if err := c.cs.StoreAccessToken(ctx, cred, token.AccessToken, token.Expiry); err != nil {
				slog.Info("unable to store youtube token", "credential", cred.ID, "error", err)
				return
			}
			atomic.AddInt32(&refreshed, 1)
		}(cred)
	}

	wg.Wait()
	return int(refreshed), nil
}
