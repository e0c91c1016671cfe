package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seanmcgrath/stash/internal/model"
	"github.com/seanmcgrath/stash/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store and queue status",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		ctx := context.Background()

		fmt.Printf("%s\n\n", ui.RenderHeader("Stash Status"))
		fmt.Printf("Database: %s\n", cfg.Storage.Path)
		if info, err := os.Stat(cfg.Storage.Path); err == nil {
			fmt.Printf("Size:     %.1f KB\n", float64(info.Size())/1024)
		}

		articles, err := st.ArticleCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting articles: %v\n", err)
			os.Exit(1)
		}
		labels, err := st.LabelCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting labels: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Articles: %d\n", articles)
		fmt.Printf("Labels:   %d\n", labels)

		counts, err := st.QueueCounts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queue: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n%s\n", ui.RenderHeader("Change Queue"))
		for _, s := range []model.SyncStatus{model.StatusPending, model.StatusSyncing, model.StatusFailed, model.StatusCompleted} {
			marker := ui.RenderDim("·")
			switch {
			case s == model.StatusFailed && counts[s] > 0:
				marker = ui.RenderErr("✗")
			case s == model.StatusPending && counts[s] > 0:
				marker = ui.RenderAccent("●")
			}
			fmt.Printf("  %s %-9s %d\n", marker, s, counts[s])
		}

		cursor, err := st.Cursor(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading cursor: %v\n", err)
			os.Exit(1)
		}
		last, err := st.LastSyncTime(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading last sync time: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s\n", ui.RenderHeader("Sync"))
		if cursor == "" {
			fmt.Printf("  Cursor:    %s\n", ui.RenderDim("(none)"))
		} else {
			fmt.Printf("  Cursor:    %s\n", cursor)
		}
		if last == nil {
			fmt.Printf("  Last sync: %s\n", ui.RenderWarn("never"))
		} else {
			fmt.Printf("  Last sync: %s\n", last.Local().Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
