package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/catalog"
)

// credentialFlags binds --email and --password, falling back to
// ATLAS_EMAIL and ATLAS_PASSWORD.
type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Account email (default: ATLAS_EMAIL)")
	cmd.Flags().StringVar(&f.password, "password", "", "Account password (default: ATLAS_PASSWORD)")
}

func (f *credentialFlags) credentials() (registry.Credentials, error) {
	creds := registry.Credentials{Email: f.email, Password: f.password}
	if creds.Email == "" {
		creds.Email = os.Getenv("ATLAS_EMAIL")
	}
	if creds.Password == "" {
		creds.Password = os.Getenv("ATLAS_PASSWORD")
	}
	if creds.Email == "" || creds.Password == "" {
		return registry.Credentials{}, errors.New("email and password are required")
	}
	return creds, nil
}

func (a *app) loginCmd() *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := flags.credentials()
			if err != nil {
				return err
			}
			sess, err := a.catalog.Login(cmd.Context(), creds)
			if err != nil {
				a.logger.Debug("login failed", "error", err)
				return errors.New(catalog.AuthMessage(err))
			}
			role := sess.UserType
			if role == "" {
				role = "guest"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", sess.Email, role)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long:  "Create an account. Registration does not sign in; run atlasctl login afterwards.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := flags.credentials()
			if err != nil {
				return err
			}
			if err := a.catalog.Register(cmd.Context(), creds); err != nil {
				a.logger.Debug("register failed", "error", err)
				return errors.New(catalog.AuthMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account created. Run atlasctl login to sign in.")
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.catalog.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			sess := a.currentSession()
			if !sess.Authenticated() {
				fmt.Fprintln(out, "Not logged in (guest).")
				return nil
			}
			role := sess.UserType
			if role == "" {
				role = "guest"
			}
			fmt.Fprintf(out, "Email:   %s\n", sess.Email)
			fmt.Fprintf(out, "Role:    %s\n", role)
			fmt.Fprintf(out, "Expires: %s\n", expiryText(sess))
			fmt.Fprintf(out, "Session: %s\n", a.store.Path())
			return nil
		},
	}
}
