package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robotikz/foodsharing-watcher/internal/config"
	"github.com/robotikz/foodsharing-watcher/internal/logger"
	"github.com/robotikz/foodsharing-watcher/internal/state"
	"github.com/robotikz/foodsharing-watcher/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		storeIDsFlag string
		proxyURLFlag string
		headersFlag  string
		statePath    string
		showAll      bool
		once         bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the proxy hourly and notify on newly-free pickup slots",
		Long: `Polls the proxy once immediately and then at the top of every hour.
Newly-free slots trigger desktop notifications and a summary email.
Send SIGHUP for an immediate check; the hourly schedule is unaffected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			log := logger.New(cfg.Env, cfg.LogLevel)
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if statePath == "" {
				statePath = cfg.StateFile
			}
			st := state.Load(statePath)

			// flags win over env, env over last-used persisted values
			storeIDs := splitCSV(storeIDsFlag)
			if len(storeIDs) == 0 {
				storeIDs = cfg.StoreIDs
			}
			if len(storeIDs) == 0 {
				storeIDs = st.StoreIDs
			}
			if len(storeIDs) == 0 {
				return fmt.Errorf("no store ids configured (use --store-ids or FOODWATCH_STORE_IDS)")
			}

			headers := cfg.Headers
			if headersFlag != "" {
				headers, err = config.ParseHeaders(headersFlag)
				if err != nil {
					return fmt.Errorf("invalid --headers: %w", err)
				}
			}
			if headers == nil {
				headers = st.Headers
			}

			proxyURL := proxyURLFlag
			if proxyURL == "" {
				proxyURL = cfg.ProxyURL
			}

			client, err := watcher.NewClient(proxyURL, headers, log)
			if err != nil {
				return err
			}

			emailURL := ""
			if cfg.EmailNotify {
				emailURL = client.NotifyURL()
			}

			w := &watcher.Watcher{
				Client:    client,
				Notifier:  watcher.NewNotifier(cfg.DesktopNotify, emailURL, log),
				StoreIDs:  storeIDs,
				StatePath: statePath,
				ShowAll:   showAll,
				Log:       log,
			}
			w.SetBaseline(st.FreeKeys)

			log.Info("watching stores",
				zap.Strings("store_ids", storeIDs),
				zap.String("proxy_url", proxyURL),
				zap.Int("baseline_keys", len(st.FreeKeys)))

			if once {
				return w.Poll(ctx)
			}

			p := watcher.NewPoller(func(ctx context.Context) { _ = w.Poll(ctx) }, log)
			p.Start(ctx)

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)

			countdown := time.NewTicker(time.Second)
			defer countdown.Stop()

			for {
				select {
				case <-ctx.Done():
					fmt.Fprint(os.Stderr, "\n")
					p.Wait()
					return nil
				case <-hup:
					log.Info("manual check requested")
					p.Trigger()
				case <-countdown.C:
					fmt.Fprintf(os.Stderr, "\rNächste Prüfung in %-12s", watcher.HumanDuration(p.Remaining()))
				}
			}
		},
	}

	cmd.Flags().StringVar(&storeIDsFlag, "store-ids", "", "comma-separated store ids, e.g. 29441,29438")
	cmd.Flags().StringVar(&proxyURLFlag, "proxy-url", "", "proxy endpoint (default from FOODWATCH_PROXY_URL)")
	cmd.Flags().StringVar(&headersFlag, "headers", "", "extra request headers as a JSON object")
	cmd.Flags().StringVar(&statePath, "state", "", "state file path (default "+state.DefaultPath()+")")
	cmd.Flags().BoolVar(&showAll, "all", false, "log all slots, not only free ones")
	cmd.Flags().BoolVar(&once, "once", false, "poll once and exit")

	return cmd
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
