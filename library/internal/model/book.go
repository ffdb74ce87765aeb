package model

import (
	"strings"
	"time"
)

type Book struct {
	ID            int        `json:"id" db:"id"`
	OpenLibraryID *string    `json:"openlibraryId,omitempty" db:"openlibrary_id"`
	Title         string     `json:"title" db:"title"`
	Authors       []string   `json:"authors" db:"authors"`
	ISBN          []string   `json:"isbn" db:"isbn"`
	PublishDate   string     `json:"publishDate" db:"publish_date"`
	NumberOfPages *int       `json:"numberOfPages,omitempty" db:"number_of_pages"`
	CoverURL      string     `json:"coverUrl" db:"cover_url"`
	Stock         int        `json:"stock" db:"stock"`
	Available     bool       `json:"available" db:"available"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	Categories    []Category `json:"categories,omitempty" db:"-"`
}

// BookInput is the catalog form. Authors and ISBN are comma separated.
type BookInput struct {
	OpenLibraryID string `json:"openlibraryId" form:"openlibrary_id" validate:"max=20"`
	Title         string `json:"title" form:"title" validate:"required,max=500"`
	Authors       string `json:"authors" form:"authors" validate:"required"`
	ISBN          string `json:"isbn" form:"isbn"`
	PublishDate   string `json:"publishDate" form:"publish_date" validate:"max=100"`
	NumberOfPages *int   `json:"numberOfPages" form:"number_of_pages"`
	CoverURL      string `json:"coverUrl" form:"cover_url" validate:"omitempty,url"`
	CategoryIDs   []int  `json:"categoryIds" form:"categories"`
	Stock         int    `json:"stock" form:"stock"`
	Available     *bool  `json:"available" form:"available"`
}

// SplitList turns "a, b,,c" into [a b c].
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Category struct {
	ID          int    `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	CreatedBy   int    `json:"createdBy" db:"created_by"`
}

type CategoryInput struct {
	Name        string `json:"name" form:"name" validate:"required,max=100"`
	Description string `json:"description" form:"description"`
}

type CopyStatus string

const (
	CopyAvailable   CopyStatus = "available"
	CopyBorrowed    CopyStatus = "borrowed"
	CopyMaintenance CopyStatus = "maintenance"
	CopyLost        CopyStatus = "lost"
)

func (s CopyStatus) Valid() bool {
	switch s {
	case CopyAvailable, CopyBorrowed, CopyMaintenance, CopyLost:
		return true
	}
	return false
}

// BookStock is one physical copy of a Book.
type BookStock struct {
	ID         int        `json:"id" db:"id"`
	BookID     int        `json:"bookId" db:"book_id"`
	PhysicalID string     `json:"physicalId" db:"physical_id"`
	Status     CopyStatus `json:"status" db:"status"`
	Condition  string     `json:"condition" db:"condition"`
	AddedDate  time.Time  `json:"addedDate" db:"added_date"`
}

type CopyInput struct {
	PhysicalID string `json:"physicalId" form:"physical_id" validate:"required,max=50"`
	Condition  string `json:"condition" form:"condition" validate:"max=20"`
}

type CopyStatusInput struct {
	Status CopyStatus `json:"status" form:"status" validate:"required"`
}

// ExternalBook is one hit of the external bibliographic search.
type ExternalBook struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	PublishYear int      `json:"publishYear,omitempty"`
	ISBN        []string `json:"isbn"`
	ExternalID  string   `json:"externalId"`
	CoverURL    string   `json:"coverUrl,omitempty"`
	Existing    bool     `json:"existing"`
}

type SearchResult struct {
	Query    string         `json:"query"`
	Local    []Book         `json:"local"`
	External []ExternalBook `json:"external"`
}

type BookDetail struct {
	Book            Book        `json:"book"`
	Copies          []BookStock `json:"copies"`
	RecentReviews   []Review    `json:"recentReviews"`
	ReviewCount     int         `json:"reviewCount"`
	AverageRating   float64     `json:"averageRating"`
	TotalLoans      int         `json:"totalLoans"`
	UserReview      *Review     `json:"userReview,omitempty"`
	UserHasReviewed bool        `json:"userHasReviewed"`
	IsFavorite      bool        `json:"isFavorite"`
}
