package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/justdev-chris/PawNetwork/internal/repository"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users with their domains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.backend.Repos.User.List(cmd.Context(), repository.ListOptions{Limit: limit, Offset: offset})
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMAIL\tDOMAINS\tCREATED")
		for _, u := range result.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.Email, strings.Join(u.Domains, ","), u.CreatedAt.Format(time.RFC3339))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d users\n", len(result.Items), result.Total)
		return nil
	},
}

func init() {
	usersListCmd.Flags().Int("limit", 100, "maximum number of users to list")
	usersListCmd.Flags().Int("offset", 0, "number of users to skip")
	usersCmd.AddCommand(usersListCmd)
}
