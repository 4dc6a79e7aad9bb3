// Package main is the entry point for the PawNetwork database migration tool.
// This tool applies the embedded schema migrations of the configured database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/justdev-chris/PawNetwork/internal/bootstrap"
	"github.com/justdev-chris/PawNetwork/internal/config"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, out io.Writer) error {
	switch command {
	case "version":
		fmt.Fprintf(out, "PawNetwork Migration Tool\n")
		fmt.Fprintf(out, "Version: %s\n", Version)
		fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		return nil

	case "up":
		return withDatabase(ctx, func(db database, driver string) error {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			version, err := db.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s database is at version %d\n", driver, version)
			return nil
		})

	case "status":
		return withDatabase(ctx, func(db database, driver string) error {
			version, err := db.Version(ctx)
			if err != nil {
				return err
			}
			if version == 0 {
				fmt.Fprintf(out, "%s database has no migrations applied\n", driver)
				return nil
			}
			fmt.Fprintf(out, "%s database is at version %d\n", driver, version)
			return nil
		})

	case "help", "-h", "--help":
		printUsage(out)
		return nil

	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// database is the part of repository.Database this tool drives.
type database interface {
	Migrate(ctx context.Context) error
	Version(ctx context.Context) (int, error)
}

func withDatabase(ctx context.Context, fn func(db database, driver string) error) error {
	cfg, err := config.Load(os.Getenv("PAWNET_CONFIG"))
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(cfg.Logging, os.Stderr)

	backend, err := bootstrap.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Database.Close()

	return fn(backend.Database, backend.Driver)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `PawNetwork Migration Tool

Usage:
  pawnet-migrate <command>

Commands:
  up          Apply all pending migrations
  status      Show the current migration version
  version     Print version information
  help        Show this help message

Environment Variables:
  PAWNET_CONFIG             Path to the config file (optional)
  PAWNET_DATABASE_DRIVER    sqlite, postgres or memory
  PAWNET_DATABASE_PATH      SQLite database file

Examples:
  pawnet-migrate up
  PAWNET_DATABASE_DRIVER=postgres PAWNET_DATABASE_HOST=db pawnet-migrate status`)
}
