package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yukikurage/stage-intake/internal/dto"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/services"
)

type createAdminFlags struct {
	username string
	password string
	email    string
}

func newCreateAdminCmd(flags *rootFlags) *cobra.Command {
	opts := &createAdminFlags{}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long:  "Create an admin account. Use this to bootstrap the first admin; later accounts are added from the admin dashboard.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := flags.openDB()
			if err != nil {
				return systemError("open database: %w", err)
			}
			defer closeDB()

			userService := services.NewUserService(repository.NewUserRepository(db), repository.NewStageRepository(db))
			// Actor 0 attributes the audit entry to the new admin.
			user, err := userService.CreateUser(cmd.Context(), 0, services.CreateUserInput{
				Username: opts.username,
				Email:    opts.email,
				Password: opts.password,
				Role:     models.RoleAdmin,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "admin username (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "admin email for password reset")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newListUsersCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := flags.openDB()
			if err != nil {
				return systemError("open database: %w", err)
			}
			defer closeDB()

			userService := services.NewUserService(repository.NewUserRepository(db), repository.NewStageRepository(db))
			users, err := userService.ListUsers(cmd.Context())
			if err != nil {
				return systemError("list users: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tEMAIL\tSTAGE")
			for _, user := range dto.ToUserDTOs(users) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", user.ID, user.Username, user.Role, user.Email, user.StageName)
			}
			return w.Flush()
		},
	}
}
