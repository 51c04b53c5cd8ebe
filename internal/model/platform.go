package model

// Platform classifies what a link points to.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformVideo   Platform = "video"
	PlatformArticle Platform = "article"
	PlatformCode    Platform = "code"
	PlatformShop    Platform = "shop"
	PlatformPhone   Platform = "phone" // URL holds a phone number
)

// Platforms lists every known platform in display order.
var Platforms = []Platform{
	PlatformWeb,
	PlatformVideo,
	PlatformArticle,
	PlatformCode,
	PlatformShop,
	PlatformPhone,
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// IsPhone reports whether the link's URL is a phone number.
func (p Platform) IsPhone() bool {
	return p == PlatformPhone
}
