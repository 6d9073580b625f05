package main

import (
	"fmt"
	"strconv"

	repositoryimpl "github.com/foxseedlab/tunesmith/external/repository"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const defaultTopUsers = 10

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := do.Invoke[repositoryimpl.Backend](ctx.injector)
			if err != nil {
				return err
			}
			defer backend.Close()
			if err := backend.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to run migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date")
			return nil
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show user and admin counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := do.Invoke[repositoryimpl.Backend](ctx.injector)
			if err != nil {
				return err
			}
			defer backend.Close()

			users, err := backend.CountUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("count users: %w", err)
			}
			admins, err := backend.CountAdmins(cmd.Context())
			if err != nil {
				return fmt.Errorf("count admins: %w", err)
			}
			topUsers, err := backend.ListTopUsers(cmd.Context(), top)
			if err != nil {
				return fmt.Errorf("list top users: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Value"},
				[][]string{{"Users", strconv.Itoa(users)}, {"Admins", strconv.Itoa(admins)}},
				[]columnAlignment{alignLeft, alignRight},
			))
			if len(topUsers) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(topUsers))
			for _, u := range topUsers {
				rows = append(rows, []string{
					strconv.FormatInt(u.UserID, 10),
					strconv.FormatInt(u.NumberOfFilesSent, 10),
					u.CreatedAt.Format("2006-01-02"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"User ID", "Files", "Since"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", defaultTopUsers, "Number of most active users to list")
	return cmd
}

func newAdminCommand(ctx *commandContext) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage bot admins",
	}
	adminCmd.AddCommand(&cobra.Command{
		Use:   "add <user-id>",
		Short: "Grant admin rights to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserIDArg(args[0])
			if err != nil {
				return err
			}
			backend, err := do.Invoke[repositoryimpl.Backend](ctx.injector)
			if err != nil {
				return err
			}
			defer backend.Close()
			if err := backend.AddAdmin(cmd.Context(), id); err != nil {
				return fmt.Errorf("add admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d is now an admin\n", id)
			return nil
		},
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:   "remove <user-id>",
		Short: "Revoke admin rights from a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserIDArg(args[0])
			if err != nil {
				return err
			}
			backend, err := do.Invoke[repositoryimpl.Backend](ctx.injector)
			if err != nil {
				return err
			}
			defer backend.Close()
			isAdmin, err := backend.IsAdmin(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("check admin: %w", err)
			}
			if !isAdmin {
				return fmt.Errorf("user %d is not an admin", id)
			}
			if err := backend.RemoveAdmin(cmd.Context(), id); err != nil {
				return fmt.Errorf("remove admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d is no longer an admin\n", id)
			return nil
		},
	})
	return adminCmd
}

func parseUserIDArg(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}
