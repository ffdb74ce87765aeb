package model

import (
	"time"
)

type HomeStats struct {
	TotalBooks    int `json:"totalBooks" db:"total_books"`
	ActiveMembers int `json:"activeMembers" db:"active_members"`
	ActiveLoans   int `json:"activeLoans" db:"active_loans"`
	Categories    int `json:"categories" db:"categories"`
}

type AuthorCount struct {
	Name       string `json:"name" db:"name"`
	BooksCount int    `json:"booksCount" db:"books_count"`
}

type Home struct {
	Stats            HomeStats     `json:"stats"`
	RecommendedBooks []Book        `json:"recommendedBooks"`
	FeaturedAuthors  []AuthorCount `json:"featuredAuthors"`
}

type KPIs struct {
	ActiveLoans    int `json:"activeLoans" db:"active_loans"`
	ActiveMembers  int `json:"activeMembers" db:"active_members"`
	OverdueLoans   int `json:"overdueLoans" db:"overdue_loans"`
	AvailableBooks int `json:"availableBooks" db:"available_books"`
	LowScoreUsers  int `json:"usersWithLowScore" db:"low_score_users"`
}

type ScoreDistribution struct {
	Excellent float64 `json:"excellent"`
	Good      float64 `json:"good"`
	Fair      float64 `json:"fair"`
	Poor      float64 `json:"poor"`
}

type BookLoanCount struct {
	BookID    int    `json:"bookId" db:"book_id"`
	Title     string `json:"title" db:"title"`
	LoanCount int    `json:"loanCount" db:"loan_count"`
}

type UserRank struct {
	UserID         int     `json:"userId" db:"user_id"`
	Username       string  `json:"username" db:"username"`
	Score          float64 `json:"score" db:"score"`
	CompletedLoans int     `json:"completedLoans" db:"completed_loans"`
	ReviewCount    int     `json:"reviewCount" db:"review_count"`
}

type CategoryLoanCount struct {
	CategoryID int    `json:"categoryId" db:"category_id"`
	Name       string `json:"name" db:"name"`
	BookCount  int    `json:"bookCount" db:"book_count"`
	LoanCount  int    `json:"loanCount" db:"loan_count"`
}

type LoanEvent struct {
	ID          string    `json:"id" db:"id"`
	Timestamp   time.Time `json:"timestamp" db:"occurred_at"`
	EventType   string    `json:"eventType" db:"event_type"`
	UserID      int       `json:"userId" db:"user_id"`
	BookID      int       `json:"bookId" db:"book_id"`
	RequestID   int       `json:"requestId" db:"request_id"`
	LoanID      int       `json:"loanId" db:"loan_id"`
	ActorID     int       `json:"actorId" db:"actor_id"`
	DaysOverdue int       `json:"daysOverdue" db:"days_overdue"`
	Penalty     float64   `json:"penalty" db:"penalty"`
}

type Dashboard struct {
	KPIs              KPIs                `json:"kpis"`
	ScoreDistribution ScoreDistribution   `json:"scoreDistribution"`
	PopularBooks      []BookLoanCount     `json:"popularBooks"`
	TopUsers          []UserRank          `json:"topUsers"`
	PopularCategories []CategoryLoanCount `json:"popularCategories"`
	RecentEvents      []LoanEvent         `json:"recentEvents"`
}

// Distribution turns per-bucket user counts into percentages of total.
func Distribution(excellent, good, fair, poor int) ScoreDistribution {
	total := excellent + good + fair + poor
	if total == 0 {
		return ScoreDistribution{}
	}
	pct := func(n int) float64 { return float64(n) / float64(total) * 100 }
	return ScoreDistribution{Excellent: pct(excellent), Good: pct(good), Fair: pct(fair), Poor: pct(poor)}
}
