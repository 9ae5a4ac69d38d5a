package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/adreview/internal/models"
	"github.com/joescharf/adreview/internal/output"
)

var adminName string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage dashboard administrators",
	Long: `Manage who may view analytics and manage users in the dashboard.

These commands work on the local database directly, so they can create the
first administrator before anyone has signed in.`,
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List administrators",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminListRun(cmd.Context())
	},
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <email>",
	Short: "Grant admin permission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminGrantRun(cmd.Context(), args[0])
	},
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke <email>",
	Short: "Remove an administrator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminRevokeRun(cmd.Context(), args[0])
	},
}

func init() {
	adminGrantCmd.Flags().StringVar(&adminName, "name", "", "Display name")
	adminCmd.AddCommand(adminListCmd)
	adminCmd.AddCommand(adminGrantCmd)
	adminCmd.AddCommand(adminRevokeCmd)
	rootCmd.AddCommand(adminCmd)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func adminListRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	admins, err := s.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		ui.Info("No administrators. Create one with: adreview admin grant <email>")
		return nil
	}

	table := ui.Table([]string{"Email", "Name", "Admin", "Since"})
	for _, a := range admins {
		flag := output.Red("no")
		if a.IsAdmin {
			flag = output.Green("yes")
		}
		_ = table.Append([]string{a.Email, a.Name, flag, a.CreatedAt.Local().Format("2006-01-02")})
	}
	_ = table.Render()
	return nil
}

func adminGrantRun(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if dryRun {
		ui.DryRunMsg("Would grant admin to %s", email)
		return nil
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.UpsertAdmin(ctx, &models.AdminUser{Email: email, Name: adminName, IsAdmin: true}); err != nil {
		return err
	}
	ui.Success("Granted admin to %s", email)
	return nil
}

func adminRevokeRun(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if dryRun {
		ui.DryRunMsg("Would remove admin %s", email)
		return nil
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.DeleteAdmin(ctx, email); err != nil {
		return err
	}
	ui.Success("Removed admin %s", email)
	return nil
}
