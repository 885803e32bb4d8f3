package models

import "strings"

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformYoutube   Platform = "youtube"
)

var platformAliases = map[string]Platform{
	"x": PlatformTwitter,
}

var knownPlatforms = map[Platform]struct{}{
	PlatformFacebook:  {},
	PlatformInstagram: {},
	PlatformTwitter:   {},
	PlatformYoutube:   {},
}

// ParsePlatform maps a requested platform name, including aliases such as "x",
// to a known Platform.
func ParsePlatform(raw string) (Platform, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if p, ok := platformAliases[name]; ok {
		return p, true
	}
	p := Platform(name)
	if _, ok := knownPlatforms[p]; !ok {
		return "", false
	}
	return p, true
}

// CredentialCollection is the store collection holding credentials for the platform.
func (p Platform) CredentialCollection() string {
	return string(p) + "_credentials"
}
