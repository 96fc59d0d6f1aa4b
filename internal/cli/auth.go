package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/noah-isme/backoffice-console/internal/app"
	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

var errNotLoggedIn = errors.New("not logged in, run `console login` first")

func newAuthCmds(load Loader) []*cobra.Command {
	var phone string
	login := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				return runLogin(ctx, cmd, a, phone)
			})
		},
	}
	login.Flags().StringVar(&phone, "phone", "", "Phone number (prompted when empty)")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				a.Session.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				sess, err := requireSession(a)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) role=%s\n", sess.Name, sess.Phone, sess.Role)
				if len(sess.Permissions) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "permissions: %s\n", strings.Join(sess.Permissions, ", "))
				}
				return nil
			})
		},
	}
	return []*cobra.Command{login, logout, whoami}
}

func runLogin(ctx context.Context, cmd *cobra.Command, a *app.App, phone string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	if phone == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Phone: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		phone = strings.TrimSpace(line)
	}
	password, err := promptPassword(cmd, reader, "Password: ")
	if err != nil {
		return err
	}

	sess, err := a.Session.Login(ctx, models.LoginRequest{Phone: phone, Password: password})
	if err != nil {
		return userError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", sess.Name, sess.Role)
	return nil
}

// promptPassword hides input on a terminal and reads a plain line otherwise.
func promptPassword(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pass, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		return string(pass), err
	}
	line, err := reader.ReadString('\n')
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func requireSession(a *app.App) (*models.Session, error) {
	sess := a.Session.Current()
	if sess == nil {
		return nil, errNotLoggedIn
	}
	return sess, nil
}

// userError renders a console error for the terminal, including field messages.
func userError(err error) error {
	appErr := appErrors.FromError(err)
	if len(appErr.Fields) == 0 {
		return errors.New(appErr.Message)
	}
	fields := make([]string, 0, len(appErr.Fields))
	for field := range appErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+appErr.Fields[field])
	}
	return fmt.Errorf("%s (%s)", appErr.Message, strings.Join(parts, "; "))
}
