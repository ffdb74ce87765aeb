package app

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/config"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
	"github.com/Astemirdum/solidarity-library/library/internal/service"
	"github.com/Astemirdum/solidarity-library/library/migrations"
	"github.com/Astemirdum/solidarity-library/pkg/logger"
	"github.com/Astemirdum/solidarity-library/pkg/postgres"
)

// NewsletterOptions select what SendNewsletter dispatches. A zero CampaignID
// means every due campaign.
type NewsletterOptions struct {
	CampaignID int
	Test       bool
}

type campaignSender interface {
	dispatcher
	DispatchCampaign(ctx context.Context, campaignID int, test bool) (model.DispatchResult, error)
}

// SendNewsletter runs one newsletter dispatch and writes a line per campaign
// to out. Per-recipient failures only show up in the counts.
func SendNewsletter(ctx context.Context, cfg *config.Config, opts NewsletterOptions, out io.Writer) error {
	log := logger.NewLogger(cfg.Log, "newsletter")
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return errors.Wrap(err, "db init")
	}
	defer db.Close()
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return errors.Wrap(err, "repo")
	}
	svc := service.NewNewsletterService(repo, newMailer(cfg.Mail, log), cfg.Newsletter, log)

	results, err := dispatchNewsletter(ctx, svc, opts)
	if err == nil || len(results) > 0 {
		writeResults(out, results)
	}
	log.Info("newsletter run finished", zap.Int("campaigns", len(results)), zap.Error(err))
	return err
}

func dispatchNewsletter(ctx context.Context, svc campaignSender, opts NewsletterOptions) ([]model.DispatchResult, error) {
	if opts.CampaignID <= 0 {
		return svc.DispatchDue(ctx, opts.Test)
	}
	res, err := svc.DispatchCampaign(ctx, opts.CampaignID, opts.Test)
	if res.CampaignID == 0 {
		return nil, err
	}
	return []model.DispatchResult{res}, err
}

func writeResults(out io.Writer, results []model.DispatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No campaigns to send.")
		return
	}
	for _, r := range results {
		suffix := ""
		if r.Test {
			suffix = " (test)"
		}
		fmt.Fprintf(out, "Campaign %d %q: %d sent, %d failed of %d recipients%s\n",
			r.CampaignID, r.Title, r.Sent, r.Failed, r.Recipients, suffix)
	}
}
