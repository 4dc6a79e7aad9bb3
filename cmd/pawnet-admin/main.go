// Package main is the entry point for the PawNetwork admin CLI.
// This tool inspects the users and sites of a PawNetwork deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/justdev-chris/PawNetwork/internal/bootstrap"
	"github.com/justdev-chris/PawNetwork/internal/config"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "pawnet-admin",
	Short:         "PawNetwork admin CLI",
	Long:          `pawnet-admin lists the users and sites of a PawNetwork deployment, shows per-site storage usage and sweeps orphan storage.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "PawNetwork Admin CLI\n")
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Build Time: %s\n", BuildTime)
		fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(versionCmd, usersCmd, sitesCmd, sweepCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// env is what the data commands work against.
type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	backend *repository.Backend
}

// openEnv loads the configuration and opens the configured database.
// Logs go to stderr at warn level unless the config asks for less.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if logCfg.Level == "info" || logCfg.Level == "debug" || logCfg.Level == "trace" {
		logCfg.Level = "warn"
	}
	logger := bootstrap.NewLogger(logCfg, os.Stderr)

	backend, err := bootstrap.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &env{cfg: cfg, logger: logger, backend: backend}, nil
}

func (e *env) Close() {
	_ = e.backend.Database.Close()
}
