package models

import (
	"encoding/json"
	"strings"
)

type Product struct {
	ID               string                          `json:"id"`
	BrandID          string                          `json:"brand_id"`
	MarketingContent map[string]PlatformContentBlock `json:"marketing_content"`
	VideoURL         string                          `json:"video_url,omitempty"`
}

type PlatformContentBlock struct {
	Content      ContentBody `json:"content"`
	ImageURL     string      `json:"image_url,omitempty"`
	VideoURL     string      `json:"video_url,omitempty"`
	CarouselURLs []string    `json:"carousel_urls,omitempty"`
}

type ContentBody struct {
	Caption      string   `json:"caption,omitempty"`
	Text         string   `json:"text,omitempty"`
	CallToAction string   `json:"call_to_action,omitempty"`
	Hashtags     Hashtags `json:"hashtags,omitempty"`
}

// Hashtags decodes from either a JSON array or a single whitespace-delimited string.
type Hashtags []string

func (h *Hashtags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*h = list
		return nil
	}

	var joined *string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	if joined == nil {
		*h = nil
		return nil
	}
	*h = strings.Fields(*joined)
	return nil
}

func (h Hashtags) String() string {
	return strings.Join(h, " ")
}

// Block returns the marketing content for the platform; a missing block reports false.
func (p *Product) Block(platform Platform) (PlatformContentBlock, bool) {
	if p == nil || p.MarketingContent == nil {
		return PlatformContentBlock{}, false
	}
	block, ok := p.MarketingContent[string(platform)]
	return block, ok
}
