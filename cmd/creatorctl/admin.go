package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creatorlink/creatorlink/internal/admin"
	"github.com/creatorlink/creatorlink/internal/model"
)

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Grant the admin role to an account",
	Long: `Creates the account row if it does not exist yet and assigns the admin
role. Both audit trails record the change with "system" as the actor.`,
	RunE: runBootstrapAdmin,
}

var (
	bootstrapUserID string
	bootstrapEmail  string
	bootstrapRole   string
)

func init() {
	bootstrapAdminCmd.Flags().StringVar(&bootstrapUserID, "user-id", "", "Account id (token subject)")
	bootstrapAdminCmd.Flags().StringVar(&bootstrapEmail, "email", "", "Account email")
	bootstrapAdminCmd.Flags().StringVar(&bootstrapRole, "role", model.RoleAdmin, "Role to grant")
	_ = bootstrapAdminCmd.MarkFlagRequired("user-id")
	_ = bootstrapAdminCmd.MarkFlagRequired("email")
}

func runBootstrapAdmin(cmd *cobra.Command, args []string) error {
	if !model.IsValidRole(bootstrapRole) {
		return admin.ErrInvalidRole
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := admin.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	store := admin.NewPostgresStore(db)
	if err := store.GrantRole(cmd.Context(), bootstrapUserID, bootstrapEmail, bootstrapRole); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Granted %s to %s (%s)\n", bootstrapRole, bootstrapEmail, bootstrapUserID)
	return nil
}
