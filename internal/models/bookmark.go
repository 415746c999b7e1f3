package models

import "time"

// Bookmark records that a customer saved a professional
type Bookmark struct {
	ID             int64         `json:"bookmarkId"`
	CustomerID     string        `json:"customerId"`
	ProfessionalID int64         `json:"professionalId"`
	CreatedAt      time.Time     `json:"createdAt"`
	Professional   *Professional `json:"professional,omitempty"`
}

// CreateBookmarkRequest is the body of POST /api/v1/bookmarks
type CreateBookmarkRequest struct {
	ProfessionalID int64 `json:"professionalId"`
}
