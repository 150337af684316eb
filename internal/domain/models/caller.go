package models

import "slices"

// Caller identifies who issued the current request.
// A zero UserID means the request carried no valid session credential.
type Caller struct {
	UserID     string
	Username   string
	Email      string
	IsVerified bool
	Roles      []string
	Addr       string
}

func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

func (c Caller) IsAdmin() bool {
	return slices.Contains(c.Roles, RoleAdmin)
}

// Owns reports whether the caller may act on the given user's data.
func (c Caller) Owns(userID string) bool {
	return c.Authenticated() && (c.UserID == userID || c.IsAdmin())
}

// Key identifies the caller for rate limiting.
func (c Caller) Key() string {
	switch {
	case c.Authenticated():
		return "user:" + c.UserID
	case c.Addr != "":
		return "addr:" + c.Addr
	default:
		return "anonymous"
	}
}
