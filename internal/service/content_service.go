package service

import (
	"strings"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type Media struct {
	ImageURL     string
	VideoURL     string
	CarouselURLs []string
}

func (m Media) Empty() bool {
	return m.ImageURL == "" && m.VideoURL == "" && len(m.CarouselURLs) == 0
}

// ComposedMessage is the final payload handed to a platform adapter.
type ComposedMessage struct {
	Text         string
	Caption      string
	CallToAction string
	Hashtags     string
	Media        Media
}

type textPart int

const (
	partCaption textPart = iota
	partText
	partCallToAction
	partHashtags
)

// compositionRules lists, per platform, the parts joined into ComposedMessage.Text.
var compositionRules = map[models.Platform][]textPart{
	models.PlatformTwitter:   {partCallToAction, partText, partHashtags},
	models.PlatformFacebook:  {partCallToAction, partText, partHashtags},
	models.PlatformInstagram: {partCaption, partCallToAction, partHashtags},
	models.PlatformYoutube:   {partCaption, partCallToAction, partHashtags},
}

// Compose builds the platform message from a content block. Empty parts are
// skipped and the rest joined by a blank line.
func Compose(platform models.Platform, block models.PlatformContentBlock) ComposedMessage {
	c := block.Content
	hashtags := strings.TrimSpace(c.Hashtags.String())

	values := map[textPart]string{
		partCaption:      strings.TrimSpace(c.Caption),
		partText:         strings.TrimSpace(c.Text),
		partCallToAction: strings.TrimSpace(c.CallToAction),
		partHashtags:     hashtags,
	}

	rule, ok := compositionRules[platform]
	if !ok {
		rule = compositionRules[models.PlatformInstagram]
	}

	parts := make([]string, 0, len(rule))
	for _, p := range rule {
		if v := values[p]; v != "" {
			parts = append(parts, v)
		}
	}

	return ComposedMessage{
		Text:         strings.Join(parts, "\n\n"),
		Caption:      values[partCaption],
		CallToAction: values[partCallToAction],
		Hashtags:     hashtags,
		Media: Media{
			ImageURL:     strings.TrimSpace(block.ImageURL),
			VideoURL:     strings.TrimSpace(block.VideoURL),
			CarouselURLs: block.CarouselURLs,
		},
	}
}

type ContentService interface {
	Resolve(product *models.Product, platform models.Platform) (ComposedMessage, error)
}

type contentService struct{}

func NewContentService() ContentService {
	return &contentService{}
}

// Resolve composes the product's content for platform. YouTube publishes the
// product-level video rather than the block's.
func (s *contentService) Resolve(product *models.Product, platform models.Platform) (ComposedMessage, error) {
	block, ok := product.Block(platform)
	if !ok {
		return ComposedMessage{}, ErrNoContent
	}

	msg := Compose(platform, block)
	if platform == models.PlatformYoutube {
		msg.Media.VideoURL = strings.TrimSpace(product.VideoURL)
	}
	return msg, nil
}
