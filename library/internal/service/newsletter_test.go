package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/pkg/mailer"
)

type spyMailer struct {
	mu     sync.Mutex
	sent   []mailer.Message
	failTo map[string]bool
	onSend func()
}

func (m *spyMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.onSend != nil {
		m.onSend()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newNewsletterFixture() (*fakeRepo, *spyMailer, *NewsletterService) {
	repo := newFakeRepo()
	mail := &spyMailer{failTo: map[string]bool{}}
	svc := NewNewsletterService(repo, mail, NewsletterConfig{
		SiteURL:       "https://biblioteca.example/",
		SiteName:      "Biblioteca",
		TestRecipient: "qa@biblioteca.example",
	}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return repo, mail, svc
}

func TestNewsletterService_Subscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, mail, svc := newNewsletterFixture()

	sub, err := svc.Subscribe(ctx, " Ana@Example.org", nil)
	require.NoError(t, err)
	require.Equal(t, "ana@example.org", sub.Email)
	require.True(t, sub.IsActive)
	require.NotEmpty(t, sub.Token)
	require.Len(t, mail.sent, 1)
	require.Contains(t, mail.sent[0].TextBody, "https://biblioteca.example/api/v1/newsletter/unsubscribe/"+sub.Token)

	_, err = svc.Subscribe(ctx, "ana@example.org", nil)
	require.ErrorIs(t, err, errs.ErrAlreadySubscribed)

	require.NoError(t, svc.Unsubscribe(ctx, sub.Token))
	stored, _ := repo.GetSubscriberByEmail(ctx, "ana@example.org")
	require.False(t, stored.IsActive)
	require.NotNil(t, stored.UnsubscribedAt)

	require.ErrorIs(t, svc.UnsubscribeByEmail(ctx, "ana@example.org"), errs.ErrNotFound)
	require.ErrorIs(t, svc.Unsubscribe(ctx, "no-such-token"), errs.ErrNotFound)

	mail.failTo["ana@example.org"] = true
	again, err := svc.Subscribe(ctx, "ana@example.org", nil)
	require.NoError(t, err, "welcome mail failures are not fatal")
	require.Equal(t, sub.ID, again.ID)
	require.True(t, again.IsActive)
	require.Nil(t, again.UnsubscribedAt)

	require.NoError(t, svc.UnsubscribeByEmail(ctx, "ANA@example.org"))
}

func TestNewsletterService_SendBulk(t *testing.T) {
	t.Parallel()
	_, mail, svc := newNewsletterFixture()
	mail.failTo["bad@example.org"] = true

	recipients := []model.Subscriber{
		{Email: "a@example.org", Token: "t-a"},
		{Email: "bad@example.org", Token: "t-bad"},
		{Email: "c@example.org", Token: "t-c"},
	}
	sent, failed := svc.SendBulk(context.Background(), "Novedades",
		`<p>Hola {{.RecipientEmail}}</p><a href="{{.UnsubscribeURL}}">baja</a>`,
		"{{.SiteName}} {{.CurrentYear}} {{.RecipientEmail}}",
		recipients)
	require.Equal(t, 2, sent)
	require.Equal(t, 1, failed)

	require.Len(t, mail.sent, 2)
	require.Equal(t, "Biblioteca 2025 a@example.org", mail.sent[0].TextBody)
	require.True(t, strings.Contains(mail.sent[0].HTMLBody, `href="https://biblioteca.example/api/v1/newsletter/unsubscribe/t-a"`))
	require.Equal(t, "c@example.org", mail.sent[1].To)

	sent, failed = svc.SendBulk(context.Background(), "Roto", "{{.Missing", "", recipients)
	require.Zero(t, sent)
	require.Equal(t, len(recipients), failed)

	sent, failed = svc.SendBulk(context.Background(), "Campo", "<p>{{.Nope}}</p>", "", recipients[:1])
	require.Zero(t, sent, "unknown fields fail at execution")
	require.Equal(t, 1, failed)
}

func TestNewsletterService_Dispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, mail, svc := newNewsletterFixture()
	staff := repo.addUser(model.User{Username: "lib", DNI: "1", Role: model.RoleLibrarian, IsActiveMember: true})
	reader := repo.addUser(model.User{Username: "ana", DNI: "2", Role: model.RoleReader, IsActiveMember: true})

	for _, e := range []string{"a@example.org", "b@example.org"} {
		_, err := svc.Subscribe(ctx, e, nil)
		require.NoError(t, err)
	}
	mail.sent = nil

	past := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateCampaign(ctx, reader.ID, model.CampaignInput{Title: "x", Subject: "x", HTMLContent: "x"})
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = svc.CreateCampaign(ctx, staff.ID, model.CampaignInput{Title: "x", Subject: "x", HTMLContent: "{{"})
	require.ErrorIs(t, err, errs.ErrValidation)

	due, err := svc.CreateCampaign(ctx, staff.ID, model.CampaignInput{Title: "Junio", Subject: "Novedades", HTMLContent: "<p>{{.SiteName}}</p>", ScheduledFor: &past})
	require.NoError(t, err)
	later, err := svc.CreateCampaign(ctx, staff.ID, model.CampaignInput{Title: "Julio", Subject: "Pronto", HTMLContent: "<p>x</p>", ScheduledFor: &future})
	require.NoError(t, err)

	results, err := svc.DispatchDue(ctx, true)
	require.NoError(t, err)
	require.Equal(t, []model.DispatchResult{{CampaignID: due.ID, Title: "Junio", Recipients: 1, Sent: 1, Test: true}}, results)
	require.Equal(t, "qa@biblioteca.example", mail.sent[0].To)
	stored, _ := repo.GetCampaign(ctx, due.ID)
	require.False(t, stored.IsSent, "test runs never mark the campaign sent")

	results, err = svc.DispatchDue(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []model.DispatchResult{{CampaignID: due.ID, Title: "Junio", Recipients: 2, Sent: 2}}, results)
	stored, _ = repo.GetCampaign(ctx, due.ID)
	require.True(t, stored.IsSent)
	require.Equal(t, 2, stored.TotalRecipients)
	require.Equal(t, 2, stored.TotalSent)

	results, err = svc.DispatchDue(ctx, false)
	require.NoError(t, err)
	require.Empty(t, results)

	res, err := svc.DispatchCampaign(ctx, later.ID, false)
	require.NoError(t, err, "an explicit campaign ignores its schedule")
	require.Equal(t, 2, res.Sent)

	_, err = svc.DispatchCampaign(ctx, 404, false)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

// staleDueRepo lists due campaigns as they were before any dispatcher ran.
type staleDueRepo struct {
	*fakeRepo
	due []model.Campaign
}

func (r *staleDueRepo) ListDueCampaigns(context.Context, time.Time) ([]model.Campaign, error) {
	return r.due, nil
}

type failingTotalsRepo struct {
	*fakeRepo
	failID int
}

func (r *failingTotalsRepo) RecordCampaignTotals(ctx context.Context, id, recipients, sent int) error {
	if id == r.failID {
		return errors.New("connection reset")
	}
	return r.fakeRepo.RecordCampaignTotals(ctx, id, recipients, sent)
}

func TestNewsletterService_DispatchSendsCampaignOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, mail, svc := newNewsletterFixture()
	staff := repo.addUser(model.User{Username: "lib", DNI: "1", Role: model.RoleLibrarian, IsActiveMember: true})
	_, err := svc.Subscribe(ctx, "a@example.org", nil)
	require.NoError(t, err)
	mail.sent = nil

	past := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	due, err := svc.CreateCampaign(ctx, staff.ID, model.CampaignInput{Title: "Junio", Subject: "Novedades", HTMLContent: "<p>x</p>", ScheduledFor: &past})
	require.NoError(t, err)
	snapshot, err := repo.ListDueCampaigns(ctx, svc.now())
	require.NoError(t, err)

	var (
		once       sync.Once
		concurrent []model.DispatchResult
		concErr    error
	)
	mail.onSend = func() {
		once.Do(func() { concurrent, concErr = svc.DispatchDue(ctx, false) })
	}

	results, err := svc.DispatchDue(ctx, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, concErr)
	require.Empty(t, concurrent, "a dispatcher starting mid-batch finds nothing to send")
	require.Len(t, mail.sent, 1)

	stale := NewNewsletterService(&staleDueRepo{fakeRepo: repo, due: snapshot}, mail, svc.cfg, zap.NewNop())
	results, err = stale.DispatchDue(ctx, false)
	require.NoError(t, err)
	require.Empty(t, results, "a campaign claimed by another dispatcher is skipped")

	_, err = svc.DispatchCampaign(ctx, due.ID, false)
	require.ErrorIs(t, err, errs.ErrCampaignSent)
	require.Len(t, mail.sent, 1)

	res, err := svc.DispatchCampaign(ctx, due.ID, true)
	require.NoError(t, err, "test runs may repeat a sent campaign")
	require.Equal(t, 1, res.Sent)
}

func TestNewsletterService_DispatchContinuesAfterFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	base, mail, _ := newNewsletterFixture()
	staff := base.addUser(model.User{Username: "lib", DNI: "1", Role: model.RoleLibrarian, IsActiveMember: true})

	repo := &failingTotalsRepo{fakeRepo: base}
	svc := NewNewsletterService(repo, mail, NewsletterConfig{SiteURL: "https://biblioteca.example/", SiteName: "Biblioteca"}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	_, err := svc.Subscribe(ctx, "a@example.org", nil)
	require.NoError(t, err)
	mail.sent = nil

	past := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	first, err := svc.CreateCampaign(ctx, staff.ID, model.CampaignInput{Title: "A", Subject: "A", HTMLContent: "a", ScheduledFor: &past})
	require.NoError(t, err)
	second, err := svc.CreateCampaign(ctx, staff.ID, model.CampaignInput{Title: "B", Subject: "B", HTMLContent: "b", ScheduledFor: &past})
	require.NoError(t, err)
	repo.failID = first.ID

	results, err := svc.DispatchDue(ctx, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection reset")
	require.Len(t, results, 2)
	require.Equal(t, second.ID, results[1].CampaignID)
	require.Len(t, mail.sent, 2)

	results, err = svc.DispatchDue(ctx, false)
	require.NoError(t, err)
	require.Empty(t, results, "a claimed campaign is not re-sent when its totals were lost")
	require.Len(t, mail.sent, 2)
}
