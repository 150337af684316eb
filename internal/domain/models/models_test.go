package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaller(t *testing.T) {
	anon := Caller{Addr: "10.0.0.1"}
	assert.False(t, anon.Authenticated())
	assert.False(t, anon.Owns(""))
	assert.Equal(t, "addr:10.0.0.1", anon.Key())
	assert.Equal(t, "anonymous", Caller{}.Key())

	user := Caller{UserID: "u1", Roles: []string{RoleUser}, Addr: "10.0.0.1"}
	assert.True(t, user.Owns("u1"))
	assert.False(t, user.Owns("u2"))
	assert.Equal(t, "user:u1", user.Key())

	admin := Caller{UserID: "a1", Roles: []string{RoleUser, RoleAdmin}}
	assert.True(t, admin.Owns("u2"))
}

func TestSubjectPath(t *testing.T) {
	assert.Equal(t, "computer-science", SubjectPath("Computer Science"))
	assert.Equal(t, "art-history", SubjectPath("  Art   History "))
}

func TestUser_ActiveBookmarks(t *testing.T) {
	u := User{Bookmarks: []Bookmark{
		{ID: "1", Name: "a"},
		{ID: "2", Name: "b", Archived: true},
	}}

	active := u.ActiveBookmarks()
	assert.Len(t, active, 1)
	assert.Equal(t, "1", active[0].ID)
}

func TestBookmark_SameTarget(t *testing.T) {
	a := Bookmark{ID: "1", CategoryID: "c", Name: "n", Type: "t", Path: "/p"}
	b := Bookmark{ID: "2", CategoryID: "c", Name: "n", Type: "t", Path: "/p", Archived: true}
	assert.True(t, a.SameTarget(b))

	b.Path = "/q"
	assert.False(t, a.SameTarget(b))
}
