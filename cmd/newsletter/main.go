package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/solidarity-library/library/app"
	"github.com/Astemirdum/solidarity-library/library/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsletter",
		Short:         "Newsletter management commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSendCommand())
	return root
}

func newSendCommand() *cobra.Command {
	opts := app.NewsletterOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send due newsletter campaigns",
		Long: `Send every unsent campaign whose schedule has passed, or one campaign
regardless of its schedule with --campaign-id.

With --test the mail goes only to NEWSLETTER_TEST_RECIPIENT and the
campaign is not marked as sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load() //nolint:errcheck
			cfg := config.NewConfig(config.WithLogLevel(zapcore.InfoLevel))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.SendNewsletter(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.CampaignID, "campaign-id", 0, "send only this campaign")
	cmd.Flags().BoolVar(&opts.Test, "test", false, "send to the test recipient only")
	return cmd
}
