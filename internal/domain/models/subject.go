package models

import (
	"strings"
	"time"
)

type Subject struct {
	ID          string    `json:"_id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Image       string    `json:"image" db:"image"`
	BgColor     string    `json:"bgColor" db:"bg_color"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	Path        string    `json:"path" db:"path"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// SubjectPath builds the url path of a subject from its name.
func SubjectPath(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// SubjectSort orders subject listings.
type SubjectSort struct {
	Field string
	Order string
}
