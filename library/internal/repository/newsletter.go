package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

var (
	subscriberColumns = []string{"id", "email", "user_id", "is_active", "subscribed_at", "unsubscribed_at", "token"}
	campaignColumns   = []string{
		"id", "title", "subject", "html_content", "text_content", "scheduled_for", "sent_at",
		"created_at", "is_sent", "total_recipients", "total_sent",
	}
)

func (r *repository) CreateSubscriber(ctx context.Context, s model.Subscriber) (model.Subscriber, error) {
	q := `
insert into newsletter_subscribers (email, user_id, is_active, token)
values (@email, @user_id, @is_active, @token)
returning id, subscribed_at`
	args := pgx.NamedArgs{
		"email":     s.Email,
		"user_id":   s.UserID,
		"is_active": s.IsActive,
		"token":     s.Token,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&s.ID, &s.SubscribedAt); err != nil {
		return model.Subscriber{}, uniqueViolation(err, errs.ErrAlreadySubscribed)
	}
	return s, nil
}

func (r *repository) UpdateSubscriber(ctx context.Context, s model.Subscriber) error {
	n, err := exec(ctx, r.db, qb.Update(subscribersTableName).
		Set("user_id", s.UserID).
		Set("is_active", s.IsActive).
		Set("subscribed_at", s.SubscribedAt).
		Set("unsubscribed_at", s.UnsubscribedAt).
		Where(sq.Eq{"id": s.ID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) GetSubscriberByEmail(ctx context.Context, email string) (model.Subscriber, error) {
	b := qb.Select(subscriberColumns...).
		From(subscribersTableName).
		Where(sq.Expr("lower(email) = lower(?)", email))
	return selectOne[model.Subscriber](ctx, r.db, b)
}

func (r *repository) GetSubscriberByToken(ctx context.Context, token string) (model.Subscriber, error) {
	b := qb.Select(subscriberColumns...).
		From(subscribersTableName).
		Where(sq.Eq{"token": token})
	return selectOne[model.Subscriber](ctx, r.db, b)
}

func (r *repository) ListActiveSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	b := qb.Select(subscriberColumns...).
		From(subscribersTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("id")
	return selectMany[model.Subscriber](ctx, r.db, b)
}

func (r *repository) CreateCampaign(ctx context.Context, c model.Campaign) (model.Campaign, error) {
	q := `
insert into newsletter_campaigns (title, subject, html_content, text_content, scheduled_for)
values (@title, @subject, @html_content, @text_content, @scheduled_for)
returning id, created_at`
	args := pgx.NamedArgs{
		"title":         c.Title,
		"subject":       c.Subject,
		"html_content":  c.HTMLContent,
		"text_content":  c.TextContent,
		"scheduled_for": c.ScheduledFor,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&c.ID, &c.CreatedAt); err != nil {
		return model.Campaign{}, err
	}
	return c, nil
}

func (r *repository) GetCampaign(ctx context.Context, id int) (model.Campaign, error) {
	b := qb.Select(campaignColumns...).
		From(campaignsTableName).
		Where(sq.Eq{"id": id})
	return selectOne[model.Campaign](ctx, r.db, b)
}

func (r *repository) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	b := qb.Select(campaignColumns...).
		From(campaignsTableName).
		OrderBy("created_at desc", "id desc")
	return selectMany[model.Campaign](ctx, r.db, b)
}

func (r *repository) ListDueCampaigns(ctx context.Context, now time.Time) ([]model.Campaign, error) {
	b := qb.Select(campaignColumns...).
		From(campaignsTableName).
		Where(sq.Eq{"is_sent": false}).
		Where(sq.LtOrEq{"scheduled_for": now}).
		OrderBy("scheduled_for", "id")
	return selectMany[model.Campaign](ctx, r.db, b)
}

func (r *repository) ClaimCampaign(ctx context.Context, id int, sentAt time.Time) (model.Campaign, error) {
	b := qb.Update(campaignsTableName).
		Set("is_sent", true).
		Set("sent_at", sentAt).
		Where(sq.Eq{"id": id, "is_sent": false}).
		Suffix("returning " + strings.Join(campaignColumns, ", "))
	return selectOne[model.Campaign](ctx, r.db, b)
}

func (r *repository) RecordCampaignTotals(ctx context.Context, id, recipients, sent int) error {
	n, err := exec(ctx, r.db, qb.Update(campaignsTableName).
		Set("total_recipients", recipients).
		Set("total_sent", sent).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
