package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

// ContainerState is the processing state of an Instagram media container.
type ContainerState string

const (
	ContainerInProgress ContainerState = "IN_PROGRESS"
	ContainerFinished   ContainerState = "FINISHED"
	ContainerError      ContainerState = "ERROR"
	ContainerExpired    ContainerState = "EXPIRED"
	ContainerPublished  ContainerState = "PUBLISHED"
)

type instagramService struct {
	graph        graphClient
	pollInterval time.Duration
	pollAttempts int
}

func NewInstagramService(cfg config.Config, client *http.Client) PlatformAdapter {
	attempts := cfg.InstagramPollAttempts
	if attempts <= 0 {
		attempts = 20
	}
	return &instagramService{
		graph:        graphClient{platform: models.PlatformInstagram, baseURL: cfg.InstagramGraphURL, client: client},
		pollInterval: cfg.InstagramPollInterval,
		pollAttempts: attempts,
	}
}

func (s *instagramService) Platform() models.Platform {
	return models.PlatformInstagram
}

// Publish creates a media container, waits for video processing to finish
// and publishes the container.
func (s *instagramService) Publish(ctx context.Context, cred *models.Credential, msg ComposedMessage) (models.Outcome, error) {
	if cred.InstagramAccountID == "" {
		return models.Outcome{}, &ProtocolError{Platform: models.PlatformInstagram, Detail: "credential has no instagram account id"}
	}

	var (
		containerID string
		variant     models.Variant
		err         error
	)

	switch {
	case msg.Media.VideoURL != "":
		variant = models.VariantVideo
		containerID, err = s.createContainer(ctx, cred, url.Values{
			"media_type": {"REELS"},
			"video_url":  {msg.Media.VideoURL},
			"caption":    {msg.Text},
		})
	case msg.Media.ImageURL != "":
		variant = models.VariantImage
		containerID, err = s.createContainer(ctx, cred, url.Values{
			"image_url": {msg.Media.ImageURL},
			"caption":   {msg.Text},
		})
	case len(msg.Media.CarouselURLs) > 0:
		variant = models.VariantImage
		containerID, err = s.createCarousel(ctx, cred, msg)
	default:
		return models.Outcome{}, ErrNoMedia
	}
	if err != nil {
		return models.Outcome{}, err
	}

	if variant == models.VariantVideo {
		if err := s.waitForContainer(ctx, cred, containerID); err != nil {
			return models.Outcome{}, err
		}
	}

	mediaID, err := s.publishContainer(ctx, cred, containerID)
	if err != nil {
		return models.Outcome{}, err
	}
	return models.Success(variant, mediaID), nil
}

func (s *instagramService) createContainer(ctx context.Context, cred *models.Credential, form url.Values) (string, error) {
	form.Set("access_token", cred.AccessToken)

	var created transfer.GraphObject
	if err := s.graph.post(ctx, s.graph.endpoint(cred.InstagramAccountID, "media"), form, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &ProtocolError{Platform: models.PlatformInstagram, Detail: "no container id returned"}
	}
	return created.ID, nil
}

func (s *instagramService) createCarousel(ctx context.Context, cred *models.Credential, msg ComposedMessage) (string, error) {
	children := make([]string, 0, len(msg.Media.CarouselURLs))
	for _, item := range msg.Media.CarouselURLs {
		id, err := s.createContainer(ctx, cred, url.Values{
			"image_url":        {item},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return s.createContainer(ctx, cred, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {msg.Text},
	})
}

// waitForContainer polls the container until it finishes processing, fails,
// or the attempt ceiling is reached.
func (s *instagramService) waitForContainer(ctx context.Context, cred *models.Credential, containerID string) error {
	query := url.Values{
		"fields":       {"status_code,status"},
		"access_token": {cred.AccessToken},
	}

	var last ContainerState
	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		var status transfer.InstagramContainerStatus
		if err := s.graph.get(ctx, s.graph.endpoint(containerID), query, &status); err != nil {
			return err
		}

		last = ContainerState(status.StatusCode)
		slog.Debug("instagram container status", "container", containerID, "attempt", attempt, "status", last)

		switch last {
		case ContainerFinished, ContainerPublished:
			return nil
		case ContainerError, ContainerExpired:
			detail := fmt.Sprintf("container %s processing %s", containerID, last)
			if status.Status != "" {
				detail += ": " + status.Status
			}
			return &ProtocolError{Platform: models.PlatformInstagram, Detail: detail}
		}

		if attempt == s.pollAttempts {
			break
		}

		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("container %s: %w", containerID, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("container %s still %q after %d checks: %w", containerID, last, s.pollAttempts, ErrTimeout)
}

func (s *instagramService) publishContainer(ctx context.Context, cred *models.Credential, containerID string) (string, error) {
	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {cred.AccessToken},
	}

	var published transfer.GraphObject
	if err := s.graph.post(ctx, s.graph.endpoint(cred.InstagramAccountID, "media_publish"), form, &published); err != nil {
		return "", err
	}
	return published.ID, nil
}
