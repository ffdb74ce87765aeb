package model

import "time"

type Review struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"userId" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	BookID    int       `json:"bookId" db:"book_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type ReviewInput struct {
	Rating  int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" form:"comment" validate:"required"`
}

type FavoriteState struct {
	BookID     int  `json:"bookId"`
	IsFavorite bool `json:"isFavorite"`
}
