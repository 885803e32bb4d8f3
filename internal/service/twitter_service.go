package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dghubble/oauth1"
	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

type twitterService struct {
	apiURL    string
	uploadURL string
	oauth     *oauth1.Config
	client    *http.Client
	media     MediaService
}

func NewTwitterService(cfg config.Config, client *http.Client, media MediaService) PlatformAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &twitterService{
		apiURL:    strings.TrimRight(cfg.TwitterAPIURL, "/"),
		uploadURL: strings.TrimRight(cfg.TwitterUploadURL, "/"),
		oauth:     oauth1.NewConfig(cfg.TwitterAPIKey, cfg.TwitterAPISecret),
		client:    client,
		media:     media,
	}
}

func (s *twitterService) Platform() models.Platform {
	return models.PlatformTwitter
}

// Publish uploads the image, when there is one, and creates the tweet.
func (s *twitterService) Publish(ctx context.Context, cred *models.Credential, msg ComposedMessage) (models.Outcome, error) {
	if cred.AccessToken == "" || cred.AccessTokenSecret == "" {
		return models.Outcome{}, &ProtocolError{Platform: models.PlatformTwitter, Detail: "credential is missing the token pair"}
	}

	signed := s.oauth.Client(context.WithValue(ctx, oauth1.HTTPClient, s.client), oauth1.NewToken(cred.AccessToken, cred.AccessTokenSecret))

	image := msg.Media.ImageURL
	if image == "" && len(msg.Media.CarouselURLs) > 0 {
		image = msg.Media.CarouselURLs[0]
	}

	tweet := transfer.CreateTweetRequest{Text: msg.Text}
	variant := models.VariantText

	if image != "" {
		err := s.media.WithTempFile(ctx, image, func(m *TempMedia) error {
			if !m.IsImage() {
				return fmt.Errorf("twitter upload of %q: %w", m.Kind.MIME.Value, ErrUnsupportedMedia)
			}
			mediaID, err := s.uploadMedia(ctx, signed, m)
			if err != nil {
				return err
			}
			tweet.Media = &transfer.TweetMedia{MediaIDs: []string{mediaID}}
			return nil
		})
		if err != nil {
			return models.Outcome{}, err
		}
		variant = models.VariantImage
	}

	tweetID, err := s.createTweet(ctx, signed, tweet)
	if err != nil {
		return models.Outcome{}, err
	}
	return models.Success(variant, tweetID), nil
}

func (s *twitterService) uploadMedia(ctx context.Context, client *http.Client, m *TempMedia) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	name := "media"
	if m.Kind.Extension != "" {
		name += "." + m.Kind.Extension
	}
	part, err := w.CreateFormFile("media", filepath.Base(name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, m.File); err != nil {
		return "", fmt.Errorf("error reading media file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL+"/1.1/media/upload.json", &body)
	if err != nil {
		return "", protocolErr(models.PlatformTwitter, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var uploaded transfer.TwitterMediaUpload
	if err := s.do(client, req, &uploaded); err != nil {
		return "", err
	}
	if uploaded.MediaIDString == "" {
		if uploaded.MediaID == 0 {
			return "", &ProtocolError{Platform: models.PlatformTwitter, Detail: "no media id returned"}
		}
		uploaded.MediaIDString = fmt.Sprintf("%d", uploaded.MediaID)
	}
	return uploaded.MediaIDString, nil
}

func (s *twitterService) createTweet(ctx context.Context, client *http.Client, tweet transfer.CreateTweetRequest) (string, error) {
	payload, err := json.Marshal(tweet)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", protocolErr(models.PlatformTwitter, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created transfer.CreateTweetResponse
	if err := s.do(client, req, &created); err != nil {
		return "", err
	}
	if created.Data.ID == "" {
		return "", &ProtocolError{Platform: models.PlatformTwitter, Detail: "tweet creation returned no id"}
	}
	return created.Data.ID, nil
}

func (s *twitterService) do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return protocolErr(models.PlatformTwitter, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocolErr(models.PlatformTwitter, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProtocolError{Platform: models.PlatformTwitter, StatusCode: resp.StatusCode, Detail: twitterErrorDetail(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{Platform: models.PlatformTwitter, StatusCode: resp.StatusCode, Detail: "invalid response body", Err: err}
	}
	return nil
}

func twitterErrorDetail(body []byte) string {
	var e transfer.TwitterErrorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if len(e.Errors) > 0 && e.Errors[0].Message != "" {
			return e.Errors[0].Message
		}
	}
	return strings.TrimSpace(string(body))
}
