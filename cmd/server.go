package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robotikz/foodsharing-watcher/internal/config"
	"github.com/robotikz/foodsharing-watcher/internal/foodsharing"
	"github.com/robotikz/foodsharing-watcher/internal/logger"
	"github.com/robotikz/foodsharing-watcher/internal/mailer"
	"github.com/robotikz/foodsharing-watcher/internal/proxy"
	"github.com/robotikz/foodsharing-watcher/internal/web"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the proxy: /proxy with 401 re-login, /notify-email, /healthz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			log := logger.New(cfg.Env, cfg.LogLevel)
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := foodsharing.New(cfg.UpstreamBaseURL, foodsharing.Credentials{
				Email:    cfg.LoginEmail,
				Password: cfg.LoginPassword,
			}, log)
			if err != nil {
				return err
			}

			m := mailer.New(mailer.Config{
				Host: cfg.SMTPHost,
				Port: cfg.SMTPPort,
				User: cfg.SMTPUser,
				Pass: cfg.SMTPPass,
				From: cfg.NotifyFrom,
				To:   cfg.NotifyTo,
			}, log)

			srv := &web.Server{
				Aggregator: proxy.New(client, log),
				Client:     client,
				Mailer:     m,
				Log:        log,
			}
			return web.Start(ctx, cfg.ListenAddr, srv.Routes(), log)
		},
	}
}
