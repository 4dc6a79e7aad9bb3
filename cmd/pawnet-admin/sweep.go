package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justdev-chris/PawNetwork/internal/bootstrap"
	"github.com/justdev-chris/PawNetwork/internal/service"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove storage left behind by signups that never completed",
	Long: `sweep runs one pass of the storage sweeper. Site directories that no
registered site points at and that are older than the grace period are removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		grace, _ := cmd.Flags().GetDuration("grace-period")

		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		files, err := storage.NewFileStore(storage.DefaultPathConfig(e.cfg.Storage.DataDir), e.logger)
		if err != nil {
			return err
		}

		locker, closeLocker, err := bootstrap.NewLocker(ctx, e.cfg.Redis, e.logger)
		if err != nil {
			return fmt.Errorf("failed to set up locks: %w", err)
		}
		defer closeLocker()

		sweepCfg := service.SweeperConfig{
			Interval:    e.cfg.Sweeper.Interval,
			GracePeriod: e.cfg.Sweeper.GracePeriod,
			DryRun:      dryRun,
		}
		if cmd.Flags().Changed("grace-period") {
			sweepCfg.GracePeriod = grace
		}

		result := service.NewSweeper(e.backend.Repos.Site, files, locker, nil, sweepCfg, e.logger).RunOnce(ctx)
		if result.Skipped {
			return fmt.Errorf("another sweep is running")
		}

		verb := "Removed"
		if dryRun {
			verb = "Would remove"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scanned: %d\n", result.Scanned)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", verb, result.Removed)
		fmt.Fprintf(cmd.OutOrStdout(), "Errors: %d\n", result.Errors)

		if result.Errors > 0 {
			return fmt.Errorf("sweep finished with %d errors", result.Errors)
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().Bool("dry-run", false, "report orphan directories without removing them")
	sweepCmd.Flags().Duration("grace-period", 0, "override the configured grace period")
}
