package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User's model
type User struct {
	ID         string     `json:"_id" db:"id"`
	Username   string     `json:"username" db:"username"`
	Email      string     `json:"email" db:"email"`
	PassHash   []byte     `json:"-" db:"pass_hash"`
	IsVerified bool       `json:"isVerified" db:"is_verified"`
	ProfilePic string     `json:"profilePic" db:"profile_pic"`
	Roles      []Role     `json:"roles" db:"roles"`
	Bookmarks  []Bookmark `json:"bookmarks"`
	SavedBooks []Book     `json:"savedBooks"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}

// Role grants a named permission, optionally scoped to the listed resource ids.
type Role struct {
	Role          string   `json:"role"`
	AssociatedIDs []string `json:"associatedIds"`
}

// RoleNames flattens roles for session claims.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	return names
}

// ActiveBookmarks returns bookmarks that are not archived.
func (u *User) ActiveBookmarks() []Bookmark {
	active := make([]Bookmark, 0, len(u.Bookmarks))
	for _, b := range u.Bookmarks {
		if !b.Archived {
			active = append(active, b)
		}
	}
	return active
}
