package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hongminglow/therapy-console/internal/format"
	"github.com/hongminglow/therapy-console/internal/models/dto"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), reader, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd.OutOrStdout(), reader, "Password: "); err != nil {
					return err
				}
			}
			if username == "" || password == "" {
				return errors.New("username and password cannot be empty")
			}

			if err := a.session.Login(cmd.Context(), dto.LoginRequest{UserName: username, Password: password}); err != nil {
				return err
			}
			if err := a.session.GetInfo(cmd.Context()); err != nil {
				a.logger.Warn("fetch identity after login", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", a.session.UserName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "User name (prompted if omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if omitted)")
	return cmd
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := a.session.Token(cmd.Context()); ok {
				if err := a.api.Logout(cmd.Context()); err != nil {
					a.logger.Warn("server logout failed", "error", err)
				}
			}
			a.session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := a.session.Token(cmd.Context()); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if refresh || !a.session.HasIdentity() {
				if err := a.session.GetInfo(cmd.Context()); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:        %s\n", a.session.UserName())
			fmt.Fprintf(out, "Roles:       %s\n", strings.Join(a.session.Roles(), ", "))
			fmt.Fprintf(out, "Permissions: %s\n", strings.Join(a.session.Permissions(), ", "))
			if info, ok := a.session.Identity(); ok {
				fmt.Fprintf(out, "Member since %s\n", format.Ago(info.User.CreatedAt))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the identity again instead of using the cached one")
	return cmd
}
