// Command stash is the CLI for the offline-first article sync engine.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/seanmcgrath/stash/internal/config"
	"github.com/seanmcgrath/stash/internal/netstatus"
	"github.com/seanmcgrath/stash/internal/remote"
	"github.com/seanmcgrath/stash/internal/store"
	"github.com/seanmcgrath/stash/internal/syncer"
)

var (
	cfgFile     string
	networkFlag string
)

var rootCmd = &cobra.Command{
	Use:   "stash",
	Short: "Offline-first article sync engine",
	Long: `Stash keeps a local mirror of a remote article collection.

Reads and edits always hit the local SQLite store; a durable change queue
records offline mutations and a sync engine reconciles both sides, resolving
conflicts with a configurable strategy.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .stash.yaml)")
	rootCmd.PersistentFlags().StringVar(&networkFlag, "network", "wifi", "connectivity to assume (wifi, cellular, none)")
}

// loadConfig reads the configuration or exits.
func loadConfig() (*config.Config, *config.Manager) {
	m, err := config.NewManager(cfgFile, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := m.Config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}
	return cfg, m
}

// openStore opens the local database or exits.
func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	return st
}

// buildSyncer wires the store, remote client, and connectivity into an
// orchestrator.
func buildSyncer(cfg *config.Config, st *store.Store, logger *log.Logger) *syncer.Syncer {
	conn, err := netstatus.ParseConnectivity(networkFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := remote.NewClient(cfg.Remote.BaseURL, remote.StaticCredentials(cfg.Remote.Token), nil)
	return syncer.New(st, client, netstatus.Static(conn), cfg.SyncOptions(), logger)
}
