package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seanmcgrath/stash/internal/logging"
	"github.com/seanmcgrath/stash/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle now",
	Long: `Push every pending local change to the remote service, then pull
remote updates since the last cycle. Conflicts are resolved with the
configured strategy; manual conflicts are parked for later resolution.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		s := buildSyncer(cfg, st, logging.NewStderr("[sync] "))

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), cfg.Remote.BaseURL)
		start := time.Now()

		err := s.SyncNow(context.Background())
		status := s.Status()
		stats := status.LastCycle

		if err != nil {
			fmt.Printf("%s Sync failed after %v: %v\n", ui.RenderErr("✗"), time.Since(start).Round(time.Millisecond), err)
			if len(status.ManualQueue) > 0 {
				fmt.Printf("%s %d conflict(s) need manual resolution (stash queue list)\n", ui.RenderWarn("⚠"), len(status.ManualQueue))
			}
			os.Exit(1)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Pushed:    %d\n", stats.Pushed)
		fmt.Printf("   Pulled:    %d\n", stats.Pulled)
		fmt.Printf("   Conflicts: %d\n", stats.Conflicts)
		if stats.Purged > 0 {
			fmt.Printf("   Purged:    %d\n", stats.Purged)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
