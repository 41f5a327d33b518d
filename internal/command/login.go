package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/session"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			ctx, err := newCmdContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Close()

			resp, err := ctx.Client.Login(cmd.Context(), api.LoginParams{
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			if err := storeAuth(cmd, ctx, resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", resp.User.Name, resp.User.Email)
			return nil
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")

	return cmd
}

// NewSignupCmd creates the signup command.
func NewSignupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if name == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --email and --password are required")
			}

			ctx, err := newCmdContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Close()

			resp, err := ctx.Client.Signup(cmd.Context(), api.SignupParams{
				Name:     name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			if err := storeAuth(cmd, ctx, resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created; signed in as %s <%s>\n", resp.User.Name, resp.User.Email)
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")

	return cmd
}

func storeAuth(cmd *cobra.Command, ctx *cmdContext, resp *api.AuthResponse) error {
	return ctx.Sessions.SetAuth(cmd.Context(), resp.Token, &session.User{
		ID:         resp.User.ID,
		Name:       resp.User.Name,
		Email:      resp.User.Email,
		DisplayPic: resp.User.DisplayPic,
	})
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newCmdContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Close()

			if err := ctx.Sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newCmdContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Close()

			user, err := ctx.Client.Me(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %d)\n", user.Name, user.Email, user.ID)
			return nil
		},
	}
}
