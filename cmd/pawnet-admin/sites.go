package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Inspect sites",
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sites with owners and view counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		result, err := e.backend.Repos.Site.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
		if err != nil {
			return fmt.Errorf("failed to list sites: %w", err)
		}

		domains := make([]string, len(result.Items))
		for i, s := range result.Items {
			domains[i] = s.Domain
		}
		views, err := e.backend.Repos.Analytics.GetMany(ctx, domains)
		if err != nil {
			return fmt.Errorf("failed to get views: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tOWNER\tSITE ID\tVIEWS\tCREATED")
		for _, s := range result.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.Domain, s.OwnerEmail, s.SiteID, views[s.Domain], s.CreatedAt.Format(time.RFC3339))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d sites\n", len(result.Items), result.Total)
		return nil
	},
}

var sitesShowCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Show a site with its live release",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		site, err := e.backend.Repos.Site.GetByDomain(ctx, domain.NormalizeHost(args[0]))
		if err != nil {
			if errors.Is(err, domain.ErrSiteNotFound) {
				return fmt.Errorf("no site registered for %s", args[0])
			}
			return err
		}

		views, err := e.backend.Repos.Analytics.Get(ctx, site.Domain)
		if err != nil {
			return fmt.Errorf("failed to get views: %w", err)
		}

		files, err := storage.NewFileStore(storage.DefaultPathConfig(e.cfg.Storage.DataDir), e.logger)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Domain:\t%s\n", site.Domain)
		fmt.Fprintf(w, "Owner:\t%s\n", site.OwnerEmail)
		fmt.Fprintf(w, "Site ID:\t%s\n", site.SiteID)
		fmt.Fprintf(w, "Created:\t%s\n", site.CreatedAt.Format(time.RFC3339))
		if site.UpdatedAt != nil {
			fmt.Fprintf(w, "Updated:\t%s\n", site.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(w, "Views:\t%d\n", views)

		usage, err := files.Usage(ctx, site.SiteID)
		if err != nil {
			fmt.Fprintf(w, "Release:\tunavailable (%v)\n", err)
		} else {
			fmt.Fprintf(w, "Release:\t%s\n", usage.Release)
			fmt.Fprintf(w, "Files:\t%d\n", usage.Files)
			fmt.Fprintf(w, "Bytes:\t%d\n", usage.Bytes)
		}
		return w.Flush()
	},
}

func init() {
	sitesListCmd.Flags().Int("limit", 100, "maximum number of sites to list")
	sitesListCmd.Flags().Int("offset", 0, "number of sites to skip")
	sitesCmd.AddCommand(sitesListCmd, sitesShowCmd)
}
