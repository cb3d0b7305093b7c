package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robotikz/foodsharing-watcher/internal/config"
	"github.com/robotikz/foodsharing-watcher/internal/logger"
	"github.com/robotikz/foodsharing-watcher/internal/mailer"
)

func newNotifyCmd() *cobra.Command {
	var subject, text string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test email through the configured SMTP transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			log := logger.New(cfg.Env, cfg.LogLevel)
			defer func() { _ = log.Sync() }()

			m := mailer.New(mailer.Config{
				Host: cfg.SMTPHost,
				Port: cfg.SMTPPort,
				User: cfg.SMTPUser,
				Pass: cfg.SMTPPass,
				From: cfg.NotifyFrom,
				To:   cfg.NotifyTo,
			}, log)

			if err := m.Send(cmd.Context(), subject, text); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "Test-Benachrichtigung: Foodsharing Abholungs-Beobachter", "email subject")
	cmd.Flags().StringVar(&text, "text", "Testnachricht vom fswatcher.", "email body")

	return cmd
}
