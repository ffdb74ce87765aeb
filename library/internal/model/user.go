package model

import (
	"time"
)

type Role string

const (
	RoleReader    Role = "reader"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

const (
	DefaultScore  = 5.0
	LowScoreBound = 2.0
)

type User struct {
	ID                int        `json:"id" db:"id"`
	Username          string     `json:"username" db:"username"`
	Email             string     `json:"email" db:"email"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	FirstName         string     `json:"firstName" db:"first_name"`
	LastName          string     `json:"lastName" db:"last_name"`
	DNI               string     `json:"dni" db:"dni"`
	Address           string     `json:"address" db:"address"`
	Phone             string     `json:"phone" db:"phone"`
	Role              Role       `json:"role" db:"role"`
	Score             float64    `json:"score" db:"score"`
	IsActiveMember    bool       `json:"isActiveMember" db:"is_active_member"`
	SuspensionEndDate *time.Time `json:"suspensionEndDate,omitempty" db:"suspension_end_date"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
}

func (u User) IsStaff() bool {
	return u.Role == RoleLibrarian || u.Role == RoleAdmin
}

// LoanLimit is the number of simultaneously active loans the user may hold.
func (u User) LoanLimit(now time.Time) int {
	if !u.IsActiveMember {
		return 0
	}
	if u.SuspensionEndDate != nil && now.Before(*u.SuspensionEndDate) {
		return 0
	}
	if u.IsStaff() {
		return 10
	}
	switch {
	case u.Score >= 4:
		return 5
	case u.Score >= 3:
		return 3
	case u.Score >= LowScoreBound:
		return 2
	default:
		return 1
	}
}

type UserProfile struct {
	ID                   int        `json:"id" db:"id"`
	UserID               int        `json:"userId" db:"user_id"`
	VirtualCardID        string     `json:"virtualCardId" db:"virtual_card_id"`
	RegistrationDate     time.Time  `json:"registrationDate" db:"registration_date"`
	// derived from the active newsletter subscriptions
	NewsletterSubscribed bool       `json:"newsletterSubscribed" db:"newsletter_subscribed"`
	BirthDate            *time.Time `json:"birthDate,omitempty" db:"birth_date"`
}

type RegisterRequest struct {
	Username   string `json:"username" form:"username" validate:"required,min=3,max=150"`
	Email      string `json:"email" form:"email" validate:"required,email"`
	Password   string `json:"password" form:"password" validate:"required,min=8"`
	FirstName  string `json:"firstName" form:"first_name" validate:"required,max=100"`
	LastName   string `json:"lastName" form:"last_name" validate:"required,max=100"`
	DNI        string `json:"dni" form:"dni" validate:"required,max=20"`
	Address    string `json:"address" form:"address" validate:"required"`
	Phone      string `json:"phone" form:"phone" validate:"required,max=20"`
	Newsletter bool   `json:"newsletter" form:"newsletter"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Registration struct {
	User    User        `json:"user"`
	Profile UserProfile `json:"profile"`
}

type ProfileView struct {
	User        User        `json:"user"`
	Profile     UserProfile `json:"profile"`
	Favorites   []Book      `json:"favorites"`
	ActiveLoans []Loan      `json:"activeLoans"`
	LoanHistory []Loan      `json:"loanHistory"`
}
