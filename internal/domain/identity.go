package domain

// Identity is what the auth service asserts about a connection.
type Identity struct {
	UserID   string
	Username string
}

// Platform is the gaming platform a user plays on. Presentation only.
type Platform string

const (
	PlatformXbox        Platform = "xbox"
	PlatformPlayStation Platform = "playstation"
	PlatformPC          Platform = "pc"
	PlatformMobile      Platform = "mobile"
)

// DefaultPlatform is used when the profile lookup is unavailable.
const DefaultPlatform = PlatformPC

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformXbox, PlatformPlayStation, PlatformPC, PlatformMobile:
		return true
	}
	return false
}

// Profile holds presentation fields for a user.
type Profile struct {
	UserID   string
	Username string
	Platform Platform
}
