package models

import (
	"errors"
	"strings"
	"time"
)

// Professional is a contractor or architect summary as returned by the
// marketplace API. The listing controller treats it as opaque display data.
type Professional struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId,omitempty"`
	FullName        string     `json:"fullName,omitempty"`
	CompanyName     string     `json:"companyName,omitempty"`
	Address         string     `json:"address,omitempty"`
	Pincode         string     `json:"pincode,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Profession      Profession `json:"profession"`
	Experience      int        `json:"experience,omitempty"` // years
	ProfileImage    string     `json:"profileImage,omitempty"`
	About           string     `json:"about,omitempty"`
	Rating          float64    `json:"rating"`
	ReviewCount     int        `json:"reviewCount"`
	Location        string     `json:"location"`
	Specializations []string   `json:"specializations,omitempty"`
}

// DisplayName prefers the company name and falls back to the person's name
func (p *Professional) DisplayName() string {
	if p.CompanyName != "" {
		return p.CompanyName
	}
	return p.FullName
}

// ResultPage is one page of professionals matching a FilterState
type ResultPage struct {
	Items      []Professional `json:"items"`
	TotalPages int            `json:"totalPages"`
	TotalCount int            `json:"totalCount"`
}

// EmptyResultPage is the valid zero-match page
func EmptyResultPage() *ResultPage {
	return &ResultPage{Items: []Professional{}, TotalPages: 1, TotalCount: 0}
}

// Normalize enforces totalPages >= 1, totalCount >= 0 and a non-nil item slice
func (r *ResultPage) Normalize() {
	if r.Items == nil {
		r.Items = []Professional{}
	}
	if r.TotalPages < 1 {
		r.TotalPages = 1
	}
	if r.TotalCount < 0 {
		r.TotalCount = 0
	}
}

// Review is a customer review of a professional
type Review struct {
	ID             int64     `json:"id"`
	ProfessionalID int64     `json:"professionalId"`
	UserID         int64     `json:"userId"`
	UserFullName   string    `json:"userFullName,omitempty"`
	Rating         float64   `json:"rating"`
	Content        string    `json:"content,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MaxReviewLength bounds the review text accepted from customers
const MaxReviewLength = 2000

// CreateReviewRequest is the body of a new review
type CreateReviewRequest struct {
	Rating  float64 `json:"rating"`
	Content string  `json:"content"`
}

// Validate trims the content and checks rating and length
func (r *CreateReviewRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	if r.Rating < 1 || r.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	if len([]rune(r.Content)) > MaxReviewLength {
		return errors.New("content is too long")
	}
	return nil
}

// ProjectImage is one gallery image of a portfolio project
type ProjectImage struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"projectId"`
	ImageURL  string `json:"imageUrl"`
	SortOrder int    `json:"sortOrder"`
}

// Project is a portfolio entry of a professional
type Project struct {
	ID             int64          `json:"id"`
	ProfessionalID int64          `json:"professionalId"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	PropertyType   string         `json:"propertyType"`
	Budget         string         `json:"budget,omitempty"`
	CompletionYear string         `json:"completionYear,omitempty"`
	Area           string         `json:"area,omitempty"`
	CoverImage     string         `json:"coverImage,omitempty"`
	Images         []ProjectImage `json:"images,omitempty"`
}

// Profile aggregates everything shown on a professional's profile page
type Profile struct {
	Professional *Professional `json:"professional"`
	Reviews      []Review      `json:"reviews"`
	Projects     []Project     `json:"projects"`
}
