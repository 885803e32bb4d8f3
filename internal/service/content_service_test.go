package service

import (
	"errors"
	"testing"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

func block() models.PlatformContentBlock {
	return models.PlatformContentBlock{
		Content: models.ContentBody{
			Caption:      "Caption",
			Text:         "Text",
			CallToAction: "Buy now",
			Hashtags:     models.Hashtags{"#one", "#two"},
		},
		ImageURL: "https://cdn.example.com/a.png",
	}
}

func TestCompose_PlatformRules(t *testing.T) {
	cases := map[models.Platform]string{
		models.PlatformTwitter:   "Buy now\n\nText\n\n#one #two",
		models.PlatformFacebook:  "Buy now\n\nText\n\n#one #two",
		models.PlatformInstagram: "Caption\n\nBuy now\n\n#one #two",
		models.PlatformYoutube:   "Caption\n\nBuy now\n\n#one #two",
	}

	for platform, want := range cases {
		msg := Compose(platform, block())
		if msg.Text != want {
			t.Fatalf("%s: expected %q, got %q", platform, want, msg.Text)
		}
		if msg.Media.ImageURL != "https://cdn.example.com/a.png" {
			t.Fatalf("%s: image not carried over: %+v", platform, msg.Media)
		}
	}
}

func TestCompose_SkipsEmptyParts(t *testing.T) {
	b := models.PlatformContentBlock{Content: models.ContentBody{Text: "  just text  "}}

	msg := Compose(models.PlatformTwitter, b)
	if msg.Text != "just text" {
		t.Fatalf("expected trimmed text only, got %q", msg.Text)
	}
	if !msg.Media.Empty() {
		t.Fatalf("expected no media, got %+v", msg.Media)
	}
}

func TestContentService_Resolve(t *testing.T) {
	product := &models.Product{
		ID:       "p1",
		VideoURL: "https://cdn.example.com/product.mp4",
		MarketingContent: map[string]models.PlatformContentBlock{
			"youtube": {Content: models.ContentBody{Caption: "Title"}, VideoURL: "https://cdn.example.com/block.mp4"},
			"twitter": block(),
		},
	}
	s := NewContentService()

	msg, err := s.Resolve(product, models.PlatformYoutube)
	if err != nil {
		t.Fatalf("resolve youtube: %v", err)
	}
	if msg.Media.VideoURL != "https://cdn.example.com/product.mp4" {
		t.Fatalf("youtube must use the product video, got %q", msg.Media.VideoURL)
	}

	if _, err := s.Resolve(product, models.PlatformFacebook); !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent for missing block, got %v", err)
	}

	noVideo := &models.Product{MarketingContent: map[string]models.PlatformContentBlock{"youtube": {VideoURL: "https://cdn.example.com/block.mp4"}}}
	msg, err = s.Resolve(noVideo, models.PlatformYoutube)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if msg.Media.VideoURL != "" {
		t.Fatalf("block video must be ignored for youtube, got %q", msg.Media.VideoURL)
	}
}
