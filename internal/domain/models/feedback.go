package models

import "time"

// Feedback is a beta tester's report, archived once handled
type Feedback struct {
	ID        string    `json:"_id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Category  string    `json:"category" db:"category"`
	Message   string    `json:"message" db:"message"`
	Image     string    `json:"image" db:"image"`
	Archived  bool      `json:"archived" db:"archived"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
