package models

// Bookmark points at a subject page the user saved.
type Bookmark struct {
	ID         string `json:"_id" db:"id"`
	CategoryID string `json:"categoryId" db:"category_id"`
	Name       string `json:"name" db:"name"`
	Type       string `json:"type" db:"type"`
	Path       string `json:"path" db:"path"`
	Archived   bool   `json:"archived" db:"archived"`
}

// SameTarget reports whether both bookmarks point at the same thing.
// Ids and the archived flag are ignored.
func (b Bookmark) SameTarget(other Bookmark) bool {
	return b.CategoryID == other.CategoryID &&
		b.Name == other.Name &&
		b.Type == other.Type &&
		b.Path == other.Path
}

// Book is a saved book, keyed by the external BookID.
type Book struct {
	BookID      string   `json:"bookId" db:"book_id"`
	Authors     []string `json:"authors" db:"authors"`
	Description string   `json:"description" db:"description"`
	Image       string   `json:"image" db:"image"`
	Link        string   `json:"link" db:"link"`
	Title       string   `json:"title" db:"title"`
}
