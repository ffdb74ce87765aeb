package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/config"
	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/handler"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
	"github.com/Astemirdum/solidarity-library/library/internal/server"
	"github.com/Astemirdum/solidarity-library/library/internal/service"
	"github.com/Astemirdum/solidarity-library/library/internal/service/openlibrary"
	"github.com/Astemirdum/solidarity-library/library/migrations"
	"github.com/Astemirdum/solidarity-library/pkg/auth"
	"github.com/Astemirdum/solidarity-library/pkg/kafka"
	"github.com/Astemirdum/solidarity-library/pkg/logger"
	"github.com/Astemirdum/solidarity-library/pkg/mailer"
	"github.com/Astemirdum/solidarity-library/pkg/postgres"
)

const newsletterRunTimeout = 10 * time.Minute

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	statsSvc := service.NewStatsService(repo, log)
	var (
		events   service.EventPublisher = service.NewLocalPublisher(statsSvc, log)
		producer sarama.SyncProducer
		group    sarama.ConsumerGroup
	)
	if cfg.Kafka.Enabled() {
		if producer, err = kafka.NewProducer(cfg.Kafka); err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		events = kafka.NewPublisher(producer)
		if group, err = kafka.NewConsumer(cfg.Kafka, kafka.StatsConsumerGroup); err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		go kafka.Consume(ctx, group, handler.NewConsumer(statsSvc.RecordEvent, log), log, kafka.LoanEventsTopic)
	} else {
		log.Warn("kafka is not configured, loan events are recorded in-process")
	}

	tokens := auth.NewTokenManager(cfg.Auth)
	newsletterSvc := service.NewNewsletterService(repo, newMailer(cfg.Mail, log), cfg.Newsletter, log)
	userSvc := service.NewUserService(repo, tokens, log)
	userSvc.OnRegistered(subscribeOnRegister(newsletterSvc))

	h := handler.New(handler.Services{
		Catalog:    service.NewCatalogService(repo, openlibrary.NewClient(cfg.OpenLibrary, log), cfg.OpenLibrary.Limit, log),
		Users:      userSvc,
		Lending:    service.NewLendingService(repo, events, log),
		Ledger:     service.NewLedgerService(repo, log),
		Newsletter: newsletterSvc,
		Stats:      statsSvc,
	}, tokens, log)

	scheduler, err := newScheduler(ctx, cfg.Newsletter.Schedule, newsletterSvc, log)
	if err != nil {
		log.Fatal("newsletter schedule", zap.Error(err))
	}
	scheduler.Start()

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	<-scheduler.Stop().Done()
	if group != nil {
		if err = group.Close(); err != nil {
			log.Error("kafka consumer close", zap.Error(err))
		}
	}
	if producer != nil {
		if err = producer.Close(); err != nil {
			log.Error("kafka producer close", zap.Error(err))
		}
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}

func newMailer(cfg mailer.Config, log *zap.Logger) *mailer.SMTPSender {
	if !cfg.Enabled() {
		log.Warn("SMTP_HOST is empty, newsletter mails will be counted as failed")
	}
	return mailer.NewSMTPSender(cfg)
}

// subscribeOnRegister subscribes users that opted in on the registration form.
func subscribeOnRegister(newsletter *service.NewsletterService) service.RegisteredHook {
	return func(ctx context.Context, reg model.Registration, optIn bool) error {
		if !optIn {
			return nil
		}
		userID := reg.User.ID
		_, err := newsletter.Subscribe(ctx, reg.User.Email, &userID)
		if errors.Is(err, errs.ErrAlreadySubscribed) {
			return nil
		}
		return err
	}
}

type dispatcher interface {
	DispatchDue(ctx context.Context, test bool) ([]model.DispatchResult, error)
}

func newScheduler(ctx context.Context, spec string, newsletter dispatcher, log *zap.Logger) (*cron.Cron, error) {
	log = log.Named("scheduler")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, newsletterRunTimeout)
		defer cancel()
		results, err := newsletter.DispatchDue(runCtx, false)
		if err != nil {
			log.Error("dispatch due campaigns", zap.Error(err))
		}
		for _, r := range results {
			log.Info("campaign dispatched",
				zap.Int("campaignID", r.CampaignID),
				zap.Int("sent", r.Sent),
				zap.Int("failed", r.Failed))
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cron spec %q", spec)
	}
	log.Info("newsletter schedule", zap.String("spec", spec))
	return c, nil
}
