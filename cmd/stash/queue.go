package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seanmcgrath/stash/internal/model"
	"github.com/seanmcgrath/stash/internal/ui"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the offline change queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending and failed queue entries",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		ctx := context.Background()

		pending, err := st.PendingEntries(ctx, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing pending entries: %v\n", err)
			os.Exit(1)
		}
		failed, err := st.FailedEntries(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing failed entries: %v\n", err)
			os.Exit(1)
		}

		if len(pending) == 0 && len(failed) == 0 {
			fmt.Printf("%s Queue is empty\n", ui.RenderPass("✓"))
			return
		}

		if len(pending) > 0 {
			fmt.Printf("%s\n", ui.RenderHeader("Pending"))
			for _, e := range pending {
				printEntry(e)
			}
		}
		if len(failed) > 0 {
			if len(pending) > 0 {
				fmt.Println()
			}
			fmt.Printf("%s\n", ui.RenderHeader("Failed"))
			for _, e := range failed {
				printEntry(e)
			}
			fmt.Printf("\n%s Retry with: stash queue retry <id>\n", ui.RenderDim("→"))
		}
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Re-queue a failed entry for the next sync cycle",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid entry id %q\n", args[0])
			os.Exit(1)
		}

		cfg, _ := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		if err := st.RetryEntry(context.Background(), id); err != nil {
			fmt.Fprintf(os.Stderr, "Error retrying entry %d: %v\n", id, err)
			os.Exit(1)
		}
		fmt.Printf("%s Entry %d re-queued\n", ui.RenderPass("✓"), id)
	},
}

func printEntry(e *model.ChangeEntry) {
	line := fmt.Sprintf("  #%-4d %-7s %-7s %-24s %s",
		e.ID, e.Operation, e.EntityType, e.EntityID,
		e.LocalTimestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Println(line)
	if e.Status == model.StatusFailed {
		fmt.Printf("        %s retries=%d: %s\n", ui.RenderErr("✗"), e.RetryCount, e.LastError)
	}
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueRetryCmd)
	rootCmd.AddCommand(queueCmd)
}
