package service

import (
	"context"
	"net/http"
	"net/url"

	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

type facebookService struct {
	graph graphClient
}

func NewFacebookService(cfg config.Config, client *http.Client) PlatformAdapter {
	return &facebookService{
		graph: graphClient{platform: models.PlatformFacebook, baseURL: cfg.FacebookGraphURL, client: client},
	}
}

func (s *facebookService) Platform() models.Platform {
	return models.PlatformFacebook
}

// Publish posts to the credential's page: a video when one is present,
// otherwise a photo, otherwise a plain feed post.
func (s *facebookService) Publish(ctx context.Context, cred *models.Credential, msg ComposedMessage) (models.Outcome, error) {
	if cred.PageID == "" {
		return models.Outcome{}, &ProtocolError{Platform: models.PlatformFacebook, Detail: "credential has no page id"}
	}

	form := url.Values{}
	form.Set("access_token", cred.AccessToken)

	var (
		edge    string
		variant models.Variant
	)

	image := msg.Media.ImageURL
	if image == "" && len(msg.Media.CarouselURLs) > 0 {
		image = msg.Media.CarouselURLs[0]
	}

	switch {
	case msg.Media.VideoURL != "":
		edge, variant = "videos", models.VariantVideo
		form.Set("file_url", msg.Media.VideoURL)
		form.Set("description", msg.Text)
	case image != "":
		edge, variant = "photos", models.VariantImage
		form.Set("url", image)
		form.Set("caption", msg.Text)
	default:
		edge, variant = "feed", models.VariantText
		form.Set("message", msg.Text)
	}

	var created transfer.GraphObject
	if err := s.graph.post(ctx, s.graph.endpoint(cred.PageID, edge), form, &created); err != nil {
		return models.Outcome{}, err
	}

	remoteID := created.PostID
	if remoteID == "" {
		remoteID = created.ID
	}
	return models.Success(variant, remoteID), nil
}
