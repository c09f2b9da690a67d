package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clusterbay/pacelink/pkg/config"
	"github.com/clusterbay/pacelink/pkg/log"
	"github.com/clusterbay/pacelink/pkg/relation"
	"github.com/clusterbay/pacelink/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pacelink",
	Short: "Pacelink - Pacemaker resource configuration for HA relations",
	Long: `Pacelink describes Pacemaker/Corosync resources (virtual IPs, DNS
entries, init and systemd services, constraints) and publishes the
configuration to an hacluster peer, republishing only when the content
actually changed.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
			cfg.DataDir = dataDir
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.LogLevel = level
		}
		log.Init(log.Config{Level: log.Level(cfg.LogLevel), Output: os.Stderr})
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Pacelink version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the local database")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(addVIPCmd)
	rootCmd.AddCommand(addDNSHACmd)
	rootCmd.AddCommand(addInitServiceCmd)
	rootCmd.AddCommand(addSystemdServiceCmd)
	rootCmd.AddCommand(deleteResourceCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(metricsCmd)
}

// openManager builds a relation manager over the local database. The CLI
// uses an in-memory channel; the real relation transport is owned by the
// surrounding orchestration layer.
func openManager() (*relation.Manager, func(), error) {
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	mgr, err := relation.NewManager(&relation.Config{
		RelationName: cfg.RelationName,
		Store:        store,
		Channel:      relation.NewInMemoryChannel(),
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return mgr, func() { store.Close() }, nil
}
