package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obispado/citas-backend/internal/sysutil"
)

const envAdminPassword = "ADMIN_PASSWORD"

func newAdminCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage operator accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(opts), newAdminPasswordCmd(opts))
	return cmd
}

func newAdminCreateCmd(opts *rootOptions) *cobra.Command {
	var email, role, password string
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an operator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(cmd.InOrStdin(), cmd.ErrOrStderr(), password)
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := a.Auth.CreateAdmin(cmd.Context(), args[0], pw, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Username, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&role, "role", "admin", "account role")
	cmd.Flags().StringVar(&password, "password", "", "password (default: $"+envAdminPassword+" or prompt)")
	return cmd
}

func newAdminPasswordCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "password <username>",
		Short: "Replace an operator's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(cmd.InOrStdin(), cmd.ErrOrStderr(), password)
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Auth.SetPassword(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", strings.ToLower(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (default: $"+envAdminPassword+" or prompt)")
	return cmd
}

// resolvePassword takes the flag, then $ADMIN_PASSWORD, then one line from in.
func resolvePassword(in io.Reader, prompt io.Writer, flag string) (string, error) {
	if pw := sysutil.FirstNonEmpty(flag, os.Getenv(envAdminPassword)); pw != "" {
		return pw, nil
	}
	fmt.Fprint(prompt, "Password: ")
	line, err := readLine(in)
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
