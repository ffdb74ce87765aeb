package model

import "time"

type Subscriber struct {
	ID             int        `json:"id" db:"id"`
	Email          string     `json:"email" db:"email"`
	UserID         *int       `json:"userId,omitempty" db:"user_id"`
	IsActive       bool       `json:"isActive" db:"is_active"`
	SubscribedAt   time.Time  `json:"subscribedAt" db:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty" db:"unsubscribed_at"`
	Token          string     `json:"-" db:"token"`
}

type SubscribeRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type Campaign struct {
	ID              int        `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Subject         string     `json:"subject" db:"subject"`
	HTMLContent     string     `json:"htmlContent" db:"html_content"`
	TextContent     string     `json:"textContent" db:"text_content"`
	ScheduledFor    *time.Time `json:"scheduledFor,omitempty" db:"scheduled_for"`
	SentAt          *time.Time `json:"sentAt,omitempty" db:"sent_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	IsSent          bool       `json:"isSent" db:"is_sent"`
	TotalRecipients int        `json:"totalRecipients" db:"total_recipients"`
	TotalSent       int        `json:"totalSent" db:"total_sent"`
}

type CampaignInput struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Subject      string     `json:"subject" validate:"required,max=200"`
	HTMLContent  string     `json:"htmlContent" validate:"required"`
	TextContent  string     `json:"textContent"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type DispatchResult struct {
	CampaignID int    `json:"campaignId"`
	Title      string `json:"title"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Test       bool   `json:"test"`
}
