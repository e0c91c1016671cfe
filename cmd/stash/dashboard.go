package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seanmcgrath/stash/internal/dashboard"
	"github.com/seanmcgrath/stash/internal/logging"
	"github.com/seanmcgrath/stash/internal/ui"
)

var dashboardPort int

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the sync dashboard standalone",
	Long: `Serve the WebSocket dashboard without running the sync daemon.

Useful for inspecting queue statistics of an existing store; live sync
events only flow when the daemon runs with --dashboard.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		port := dashboardPort
		if port == 0 {
			port = cfg.Dashboard.Port
		}

		logger := logging.NewStderr("[dashboard] ")
		server := dashboard.NewServer(&dashboard.Config{Port: port, Logger: logger})
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting dashboard: %v\n", err)
			os.Exit(1)
		}
		defer server.Stop()

		fmt.Printf("%s Dashboard on http://%s (Ctrl+C to stop)\n", ui.RenderAccent("📊"), server.GetAddr())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		fmt.Printf("\n%s Dashboard stopped\n", ui.RenderPass("✓"))
	},
}

func init() {
	dashboardCmd.Flags().IntVarP(&dashboardPort, "port", "p", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(dashboardCmd)
}
