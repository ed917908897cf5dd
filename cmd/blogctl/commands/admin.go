package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/devnovate/blog/models"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

const (
	usernameFlag = "username"
	emailFlag    = "email"
	passwordFlag = "password"
	limitFlag    = "limit"
)

func newCreateAdminCommand() *cobra.Command {
	flags := storeFlags()
	flags[usernameFlag] = &cobraflags.StringFlag{Name: usernameFlag, Value: "admin", Usage: "Admin username"}
	flags[emailFlag] = &cobraflags.StringFlag{Name: emailFlag, Value: "admin@devnovate.com", Usage: "Admin email"}
	flags[passwordFlag] = &cobraflags.StringFlag{Name: passwordFlag, Value: "", Usage: "Admin password (required)"}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Replace every admin account with a single known admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, flags, func(ctx context.Context, st store.Store) error {
				return createAdmin(ctx, st, cmd.OutOrStdout(),
					flags[usernameFlag].GetString(),
					flags[emailFlag].GetString(),
					flags[passwordFlag].GetString(),
				)
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func createAdmin(ctx context.Context, st store.Store, out io.Writer, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return errors.New("username and email are required")
	}
	if len(password) < utils.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", utils.MinPasswordLength)
	}

	removed, err := st.DeleteUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("remove admins: %w", err)
	}
	fmt.Fprintf(out, "removed %d existing admin account(s)\n", removed)

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	// A regular account may already hold the username; promote it instead of failing
	if existing, err := st.FindUserByUsername(ctx, username); err == nil {
		existing.Role = models.RoleAdmin
		existing.Email = email
		existing.PasswordHash = hash
		if err := st.UpdateUser(ctx, existing); err != nil {
			return err
		}
		fmt.Fprintf(out, "promoted existing user %s to admin\n", existing.Username)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	admin := &models.User{Username: username, Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := st.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	fmt.Fprintf(out, "created admin %s <%s>\n", admin.Username, admin.Email)
	return nil
}

func newPromoteCommand() *cobra.Command {
	flags := storeFlags()
	cmd := &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant the admin role to an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, flags, func(ctx context.Context, st store.Store) error {
				return promote(ctx, st, cmd.OutOrStdout(), args[0])
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func promote(ctx context.Context, st store.Store, out io.Writer, username string) error {
	user, err := st.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return err
	}
	if user.Role == models.RoleAdmin {
		fmt.Fprintf(out, "%s is already an admin\n", user.Username)
		return nil
	}
	user.Role = models.RoleAdmin
	if err := st.UpdateUser(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is now an admin\n", user.Username)
	return nil
}

func newUsersCommand() *cobra.Command {
	flags := storeFlags()
	var limit int
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users and admins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, flags, func(ctx context.Context, st store.Store) error {
				return listUsers(ctx, st, cmd.OutOrStdout(), limit)
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().IntVar(&limit, limitFlag, 100, "Maximum users to list (0 lists all)")
	return cmd
}

func listUsers(ctx context.Context, st store.Store, out io.Writer, limit int) error {
	users, err := st.ListUsers(ctx, store.Page{Limit: limit})
	if err != nil {
		return err
	}
	total, err := st.CountUsers(ctx, "")
	if err != nil {
		return err
	}
	admins, err := st.CountUsers(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d user(s), %d admin(s)\n", total, admins)
	for _, u := range users {
		fmt.Fprintf(out, "%-6s %-24s %-32s %s\n", u.Role, u.Username, u.Email, u.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
