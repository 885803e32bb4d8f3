package models

import "time"

// Credential is one stored platform connection of an owner. Which token fields
// are populated depends on the platform:
//   - facebook: PageID + AccessToken (page token)
//   - instagram: InstagramAccountID + AccessToken
//   - twitter: AccessToken + AccessTokenSecret (OAuth 1.0a)
//   - youtube: AccessToken + RefreshToken (OAuth2)
type Credential struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"owner_id"`
	Platform           Platform   `json:"platform,omitempty"`
	AccessToken        string     `json:"access_token"`
	AccessTokenSecret  string     `json:"access_token_secret,omitempty"`
	RefreshToken       string     `json:"refresh_token,omitempty"`
	PageID             string     `json:"page_id,omitempty"`
	InstagramAccountID string     `json:"instagram_account_id,omitempty"`
	TokenExpiresAt     *time.Time `json:"token_expires_at,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	ModifiedAt         time.Time  `json:"modified_at"`
}
