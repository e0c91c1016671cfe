package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seanmcgrath/stash/internal/config"
	"github.com/seanmcgrath/stash/internal/dashboard"
	"github.com/seanmcgrath/stash/internal/logging"
	"github.com/seanmcgrath/stash/internal/ui"
)

var daemonDashboard bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run sync cycles on the configured interval until interrupted.

Config file changes are picked up without a restart; recognized sync keys
apply at the next cycle. With --dashboard, a WebSocket server streams sync
events to connected clients.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, mgr := loadConfig()

		logger := logging.NewRotating(logging.RotationConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		}, "[daemon] ")

		st := openStore(cfg)
		defer st.Close()

		s := buildSyncer(cfg, st, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if daemonDashboard {
			server := dashboard.NewServer(&dashboard.Config{
				Port:   cfg.Dashboard.Port,
				Logger: logger,
			})
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error starting dashboard: %v\n", err)
				os.Exit(1)
			}
			defer server.Stop()

			handler := dashboard.NewHandler(server, st, logger)
			s.Subscribe(handler.HandleEvent)
			fmt.Printf("%s Dashboard on http://%s\n", ui.RenderAccent("📊"), server.GetAddr())
		}

		mgr.Watch(func(next *config.Config) {
			s.UpdateOptions(next.SyncOptions())
		})

		if cfg.SyncOptions().Interval > 0 {
			fmt.Printf("%s Daemon started (interval %s). Press Ctrl+C to stop.\n",
				ui.RenderPass("✓"), cfg.SyncOptions().Interval)
		} else {
			fmt.Printf("%s Daemon started (background sync off, manual triggers only). Press Ctrl+C to stop.\n",
				ui.RenderWarn("⚠"))
		}

		if err := s.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Daemon stopped\n", ui.RenderPass("✓"))
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonDashboard, "dashboard", false, "serve the live sync dashboard")
	rootCmd.AddCommand(daemonCmd)
}
