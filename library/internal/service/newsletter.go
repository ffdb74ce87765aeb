package service

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
	"github.com/Astemirdum/solidarity-library/pkg/mailer"
)

type NewsletterConfig struct {
	SiteURL       string `envconfig:"SITE_URL" default:"http://localhost:8080"`
	SiteName      string `envconfig:"SITE_NAME" default:"Biblioteca de la Solidaridad"`
	TestRecipient string `envconfig:"NEWSLETTER_TEST_RECIPIENT"`
	Schedule      string `envconfig:"NEWSLETTER_SCHEDULE" default:"@every 15m"`
}

const (
	welcomeSubject = "Welcome to our newsletter!"
	welcomeText    = "Welcome to the {{.SiteName}} newsletter!\nUnsubscribe: {{.UnsubscribeURL}}\n"
	welcomeHTML    = `<p>Welcome to the <strong>{{.SiteName}}</strong> newsletter!</p>` +
		`<p><a href="{{.UnsubscribeURL}}">Unsubscribe</a> &copy; {{.CurrentYear}}</p>`
)

// Personalization is the data every campaign body is rendered with.
type Personalization struct {
	RecipientEmail string
	UnsubscribeURL string
	CurrentYear    int
	SiteName       string
}

type NewsletterService struct {
	log  *zap.Logger
	repo repository.Repository
	mail Mailer
	cfg  NewsletterConfig
	now  func() time.Time
}

func NewNewsletterService(repo repository.Repository, mail Mailer, cfg NewsletterConfig, log *zap.Logger) *NewsletterService {
	return &NewsletterService{
		log:  log.Named("newsletter"),
		repo: repo,
		mail: mail,
		cfg:  cfg,
		now:  time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe creates an active subscription or reactivates an inactive one.
// The welcome mail is best effort.
func (s *NewsletterService) Subscribe(ctx context.Context, email string, userID *int) (model.Subscriber, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.Subscriber{}, errs.Validation("email is required")
	}

	sub, err := s.repo.GetSubscriberByEmail(ctx, email)
	switch {
	case err == nil && sub.IsActive:
		return model.Subscriber{}, errs.ErrAlreadySubscribed
	case err == nil:
		sub.IsActive = true
		sub.SubscribedAt = s.now()
		sub.UnsubscribedAt = nil
		if userID != nil {
			sub.UserID = userID
		}
		if err = s.repo.UpdateSubscriber(ctx, sub); err != nil {
			return model.Subscriber{}, err
		}
	case errors.Is(err, errs.ErrNotFound):
		sub, err = s.repo.CreateSubscriber(ctx, model.Subscriber{
			Email:    email,
			UserID:   userID,
			IsActive: true,
			Token:    uuid.NewString(),
		})
		if err != nil {
			return model.Subscriber{}, err
		}
	default:
		return model.Subscriber{}, err
	}

	if sent, _ := s.SendBulk(ctx, welcomeSubject, welcomeHTML, welcomeText, []model.Subscriber{sub}); sent == 0 {
		s.log.Warn("welcome mail not sent", zap.String("email", sub.Email))
	}
	return sub, nil
}

func (s *NewsletterService) Unsubscribe(ctx context.Context, token string) error {
	sub, err := s.repo.GetSubscriberByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return err
	}
	return s.deactivate(ctx, sub)
}

func (s *NewsletterService) UnsubscribeByEmail(ctx context.Context, email string) error {
	sub, err := s.repo.GetSubscriberByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !sub.IsActive {
		return errs.New(errs.ErrNotFound, "no active subscription for this email")
	}
	return s.deactivate(ctx, sub)
}

func (s *NewsletterService) deactivate(ctx context.Context, sub model.Subscriber) error {
	now := s.now()
	sub.IsActive = false
	sub.UnsubscribedAt = &now
	return s.repo.UpdateSubscriber(ctx, sub)
}

func (s *NewsletterService) CreateCampaign(ctx context.Context, actorID int, inp model.CampaignInput) (model.Campaign, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageNewsletter, nil); err != nil {
		return model.Campaign{}, err
	}
	c := model.Campaign{
		Title:        strings.TrimSpace(inp.Title),
		Subject:      strings.TrimSpace(inp.Subject),
		HTMLContent:  inp.HTMLContent,
		TextContent:  inp.TextContent,
		ScheduledFor: inp.ScheduledFor,
	}
	if c.Title == "" || c.Subject == "" || strings.TrimSpace(c.HTMLContent) == "" {
		return model.Campaign{}, errs.Validation("title, subject and html content are required")
	}
	if _, err := htmltemplate.New("html").Parse(c.HTMLContent); err != nil {
		return model.Campaign{}, errs.Validation("html content: " + err.Error())
	}
	if _, err := texttemplate.New("text").Parse(c.TextContent); err != nil {
		return model.Campaign{}, errs.Validation("text content: " + err.Error())
	}
	return s.repo.CreateCampaign(ctx, c)
}

func (s *NewsletterService) ListCampaigns(ctx context.Context, actorID int) ([]model.Campaign, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageNewsletter, nil); err != nil {
		return nil, err
	}
	return s.repo.ListCampaigns(ctx)
}

func (s *NewsletterService) unsubscribeURL(token string) string {
	base := strings.TrimRight(s.cfg.SiteURL, "/") + "/api/v1/newsletter/unsubscribe/"
	if token == "" {
		return base
	}
	return base + token
}

// SendBulk renders and sends one message per recipient. A render or send
// failure counts against that recipient only.
func (s *NewsletterService) SendBulk(ctx context.Context, subject, html, text string, recipients []model.Subscriber) (sent, failed int) {
	htmlTpl, err := htmltemplate.New("html").Parse(html)
	if err != nil {
		s.log.Error("parse html template", zap.Error(err))
		return 0, len(recipients)
	}
	textTpl, err := texttemplate.New("text").Parse(text)
	if err != nil {
		s.log.Error("parse text template", zap.Error(err))
		return 0, len(recipients)
	}

	year := s.now().Year()
	for _, r := range recipients {
		data := Personalization{
			RecipientEmail: r.Email,
			UnsubscribeURL: s.unsubscribeURL(r.Token),
			CurrentYear:    year,
			SiteName:       s.cfg.SiteName,
		}
		var htmlBody, textBody bytes.Buffer
		if err = htmlTpl.Execute(&htmlBody, data); err == nil {
			err = textTpl.Execute(&textBody, data)
		}
		if err == nil {
			err = s.mail.Send(ctx, mailer.Message{
				To:       r.Email,
				Subject:  subject,
				TextBody: textBody.String(),
				HTMLBody: htmlBody.String(),
			})
		}
		if err != nil {
			failed++
			s.log.Error("newsletter delivery", zap.String("to", r.Email), zap.Error(err))
			continue
		}
		sent++
		s.log.Debug("newsletter delivered", zap.String("to", r.Email))
	}
	return sent, failed
}

// DispatchCampaign sends one campaign regardless of its schedule. A campaign
// that was already sent is a conflict unless test is set.
func (s *NewsletterService) DispatchCampaign(ctx context.Context, campaignID int, test bool) (model.DispatchResult, error) {
	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return model.DispatchResult{}, err
	}
	res, err := s.dispatch(ctx, c, test)
	if claimLost(res, err) {
		return res, errs.ErrCampaignSent
	}
	return res, err
}

// DispatchDue sends every unsent campaign whose schedule has passed. Campaigns
// claimed by a concurrent dispatcher are skipped. A failing campaign does not
// stop the others; their errors are combined.
func (s *NewsletterService) DispatchDue(ctx context.Context, test bool) ([]model.DispatchResult, error) {
	campaigns, err := s.repo.ListDueCampaigns(ctx, s.now())
	if err != nil {
		return nil, err
	}
	var (
		results = make([]model.DispatchResult, 0, len(campaigns))
		errAll  error
	)
	for _, c := range campaigns {
		res, err := s.dispatch(ctx, c, test)
		switch {
		case claimLost(res, err):
			s.log.Info("campaign claimed elsewhere", zap.Int("campaignID", c.ID))
			continue
		case err != nil && res.CampaignID == 0:
			errAll = multierr.Append(errAll, errors.Wrapf(err, "campaign %d", c.ID))
			continue
		case err != nil:
			errAll = multierr.Append(errAll, errors.Wrapf(err, "campaign %d", c.ID))
		}
		results = append(results, res)
	}
	return results, errAll
}

func claimLost(res model.DispatchResult, err error) bool {
	return res.CampaignID == 0 && errors.Is(err, errs.ErrNotFound)
}

// dispatch sends c to the active subscribers, or only to the test address in
// test mode. Test runs never mark the campaign sent. A real run claims the
// campaign before the first mail; errs.ErrNotFound means the claim was lost
// and nothing was sent. An error with a non-zero result means the mails went
// out but the totals were not stored.
func (s *NewsletterService) dispatch(ctx context.Context, c model.Campaign, test bool) (model.DispatchResult, error) {
	var recipients []model.Subscriber
	if test {
		if s.cfg.TestRecipient == "" {
			return model.DispatchResult{}, errs.Validation("test recipient is not configured")
		}
		recipients = []model.Subscriber{{Email: s.cfg.TestRecipient}}
	} else {
		var err error
		if recipients, err = s.repo.ListActiveSubscribers(ctx); err != nil {
			return model.DispatchResult{}, err
		}
		if c, err = s.repo.ClaimCampaign(ctx, c.ID, s.now()); err != nil {
			return model.DispatchResult{}, err
		}
	}

	s.log.Info("dispatch campaign", zap.Int("campaignID", c.ID), zap.String("title", c.Title),
		zap.Int("recipients", len(recipients)), zap.Bool("test", test))
	sent, failed := s.SendBulk(ctx, c.Subject, c.HTMLContent, c.TextContent, recipients)
	res := model.DispatchResult{
		CampaignID: c.ID,
		Title:      c.Title,
		Recipients: len(recipients),
		Sent:       sent,
		Failed:     failed,
		Test:       test,
	}
	if test {
		return res, nil
	}
	if err := s.repo.RecordCampaignTotals(ctx, c.ID, len(recipients), sent); err != nil {
		s.log.Error("record campaign totals", zap.Int("campaignID", c.ID), zap.Error(err))
		return res, errors.Wrap(err, "record totals")
	}
	return res, nil
}
