package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	youtubeTitleLimit = 100
	youtubeChunkSize  = 8 * 1024 * 1024
)

type YoutubeService interface {
	PlatformAdapter
	RefreshToken(ctx context.Context, cred *models.Credential) (*oauth2.Token, error)
}

type youtubeService struct {
	cfg    config.Config
	client *http.Client
	media  MediaService
	oauth  *oauth2.Config
}

func NewYoutubeService(cfg config.Config, client *http.Client, media MediaService) YoutubeService {
	if client == nil {
		client = http.DefaultClient
	}
	return &youtubeService{
		cfg:    cfg,
		client: client,
		media:  media,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{youtube.YoutubeUploadScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (s *youtubeService) Platform() models.Platform {
	return models.PlatformYoutube
}

// Publish uploads the message's video with the owner's OAuth2 token. Title
// comes from the caption, description from the call to action.
func (s *youtubeService) Publish(ctx context.Context, cred *models.Credential, msg ComposedMessage) (models.Outcome, error) {
	if msg.Media.VideoURL == "" {
		if msg.Media.ImageURL != "" || len(msg.Media.CarouselURLs) > 0 {
			return models.Outcome{}, fmt.Errorf("youtube image upload: %w", ErrUnsupportedMedia)
		}
		return models.Outcome{}, ErrNoMedia
	}

	service, err := s.newService(ctx, cred)
	if err != nil {
		return models.Outcome{}, protocolErr(models.PlatformYoutube, err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(msg),
			Description: msg.CallToAction,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	var videoID string
	err = s.media.WithTempFile(ctx, msg.Media.VideoURL, func(m *TempMedia) error {
		if m.Kind != filetype.Unknown && !m.IsVideo() {
			return fmt.Errorf("youtube upload of %q: %w", m.Kind.MIME.Value, ErrUnsupportedMedia)
		}

		resp, err := service.Videos.Insert([]string{"snippet", "status"}, video).
			Media(m.File, googleapi.ChunkSize(youtubeChunkSize)).
			Context(ctx).
			Do()
		if err != nil {
			return youtubeErr(err)
		}
		videoID = resp.Id
		return nil
	})
	if err != nil {
		return models.Outcome{}, err
	}

	slog.Info("youtube video uploaded", "video_id", videoID, "credential", cred.ID)
	return models.Success(models.VariantVideo, videoID), nil
}

// RefreshToken exchanges the credential's refresh token for a new access token.
func (s *youtubeService) RefreshToken(ctx context.Context, cred *models.Credential) (*oauth2.Token, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("credential %s has no refresh token", cred.ID)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return token, nil
}

func (s *youtubeService) newService(ctx context.Context, cred *models.Credential) (*youtube.Service, error) {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if cred.TokenExpiresAt != nil {
		token.Expiry = *cred.TokenExpiresAt
	}

	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, s.client)
	client := oauth2.NewClient(oauthCtx, s.oauth.TokenSource(oauthCtx, token))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.cfg.YoutubeEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.cfg.YoutubeEndpoint))
	}
	return youtube.NewService(ctx, opts...)
}

func videoTitle(msg ComposedMessage) string {
	title := msg.Caption
	if title == "" {
		title = msg.CallToAction
	}
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "Untitled"
	}
	if utf8.RuneCountInString(title) > youtubeTitleLimit {
		title = string([]rune(title)[:youtubeTitleLimit])
	}
	return title
}

func youtubeErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &ProtocolError{Platform: models.PlatformYoutube, StatusCode: gerr.Code, Detail: gerr.Message, Err: err}
	}
	return protocolErr(models.PlatformYoutube, err)
}
