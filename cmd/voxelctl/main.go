package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"voxelnet/internal/config"
	"voxelnet/internal/logging"
	"voxelnet/pkg/voxelnet"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voxelctl",
		Short: "Build, evolve and run distributed voxel-robot controllers",
		Long: `voxelctl maps flat genotypes onto per-voxel controllers that talk to
their neighbours, seeds and recombines those genotypes, and replays them
against deterministic synthetic sensors.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("store", "", "store backend: memory|file|sqlite")
	rootCmd.PersistentFlags().String("db-path", "", "store directory (file) or database path (sqlite)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: info|debug|trace")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newLayoutCmd(),
		newSeedCmd(),
		newTransplantCmd(),
		newMutateCmd(),
		newCrossoverCmd(),
		newRolloutCmd(),
		newGenotypesCmd(),
		newRolloutsCmd(),
		newReportCmd(),
		newDeleteCmd(),
		newOperatorsCmd(),
	)
	return rootCmd
}

// loadConfig reads --config and the environment, then applies the persistent
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Kind, _ = cmd.Flags().GetString("store")
	}
	if cmd.Flags().Changed("db-path") {
		cfg.Store.DBPath, _ = cmd.Flags().GetString("db-path")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openClient builds and initialises a client for cfg. Callers close it.
func openClient(cmd *cobra.Command, cfg *config.Config) (*voxelnet.Client, error) {
	client, err := voxelnet.New(voxelnet.Options{
		StoreKind: cfg.Store.Kind,
		DBPath:    cfg.Store.DBPath,
		Workers:   cfg.Controller.Workers,
		Interval:  cfg.Controller.Interval,
		Logger:    logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	return client, nil
}

func withClient(cmd *cobra.Command, fn func(*config.Config, *voxelnet.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := openClient(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	return fn(cfg, client)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// int64Flag returns the flag value when set, fallback otherwise.
func int64Flag(cmd *cobra.Command, name string, fallback int64) int64 {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	v, _ := cmd.Flags().GetInt64(name)
	return v
}

func float64Flag(cmd *cobra.Command, name string, fallback float64) float64 {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return v
}
