package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to the bookkeeping API",
		Long:  `Sign in and out, and inspect the stored session. The access token is kept in a local SQLite database.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authLogoutCmd())
	cmd.AddCommand(authStatusCmd())
	cmd.AddCommand(authSetTokenCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with your email and password",
		Args:  cobra.NoArgs,
		RunE:  withApp(runAuthLogin),
	}
	cmd.Flags().StringP("username", "u", "", "account email")
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin")
	return cmd
}

func runAuthLogin(cmd *cobra.Command, _ []string, a *app) error {
	ctx := cmd.Context()
	username, _ := cmd.Flags().GetString("username")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	reader := cli.NewLineReader(cmd.InOrStdin())
	if username == "" {
		fmt.Fprint(cmd.OutOrStdout(), cli.FormatPrompt("Email", "required"))
		var err error
		if username, err = reader.ReadLine(ctx); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	password, err := readPassword(ctx, cmd, reader, fromStdin)
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return common.NewUserError("Email and password are required.", common.ErrMissingConfig)
	}

	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return common.NewUserError(common.UserMessage(err, "Sign in failed"), err)
	}
	if err := a.store.SetToken(ctx, token.AccessToken); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		printOut(cmd, cli.FormatSuccess("Signed in"))
		return nil
	}
	printOut(cmd, cli.FormatSuccess("Signed in as "+user.Email))
	return nil
}

func readPassword(ctx context.Context, cmd *cobra.Command, reader *cli.LineReader, fromStdin bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !fromStdin && cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), cli.FormatPrompt("Password", "hidden"))
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	if !fromStdin {
		fmt.Fprint(cmd.OutOrStdout(), cli.FormatPrompt("Password", "required"))
	}
	password, err := reader.ReadLine(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if err := a.store.ClearToken(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			printOut(cmd, cli.FormatSuccess("Signed out"))
			return nil
		}),
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE:  withApp(runAuthStatus),
	}
}

func runAuthStatus(cmd *cobra.Command, _ []string, a *app) error {
	ctx := cmd.Context()
	token, err := a.store.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		printOut(cmd, cli.FormatWarning("Not signed in. Run `balance auth login`."))
		return nil
	}

	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	printOut(cmd, cli.RenderBox("Signed in", describeUser(user, a.cfg.BusinessID)))
	return nil
}

func describeUser(user model.User, configured string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Email:    %s\n", user.Email)
	if user.FullName != "" {
		fmt.Fprintf(&b, "Name:     %s\n", user.FullName)
	}
	fmt.Fprintf(&b, "Role:     %s\n", user.Role)

	business := model.IDValue(user.BusinessID)
	switch {
	case configured != "":
		fmt.Fprintf(&b, "Business: %s (configured)", configured)
	case business != "":
		fmt.Fprintf(&b, "Business: %s", business)
	default:
		b.WriteString("Business: none")
	}
	return b.String()
}

func authSetTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token <token>",
		Short: "Store an access token issued elsewhere",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			token := strings.TrimSpace(args[0])
			if err := a.store.SetToken(cmd.Context(), token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			printOut(cmd, cli.FormatSuccess("Token stored"))
			return nil
		}),
	}
}
