package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fashionvista/fashionvista/internal/auth"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const (
	defaultLoginURL = "http://localhost:5000/api/users/login"
	cliSession      = "cli"
)

type credentialOptions struct {
	path string
}

func (o *credentialOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.path, "credentials", "", "Credentials file (default: user config dir)")
}

func (o *credentialOptions) store() (*auth.FileTokenStore, error) {
	path := o.path
	if path == "" {
		p, err := auth.DefaultCredentialsPath()
		if err != nil {
			return nil, fmt.Errorf("locate credentials file: %w", err)
		}
		path = p
	}
	return auth.NewFileTokenStore(path), nil
}

func newLoginCmd() *cobra.Command {
	var (
		email    string
		password string
		loginURL string
		timeout  time.Duration
		creds    credentialOptions
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := creds.store()
			if err != nil {
				return err
			}
			sessions := auth.NewSessions(auth.NewClient(loginURL, timeout), store, 24*time.Hour)

			res, err := sessions.Login(cmd.Context(), cliSession, email, password)
			if err != nil {
				var authErr *auth.AuthError
				if errors.As(err, &authErr) {
					return errors.New(authErr.Message)
				}
				return err
			}

			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&loginURL, "login-url", envOr("LOGIN_URL", defaultLoginURL), "Login service URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Login request timeout")
	creds.register(cmd)
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	var creds credentialOptions

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := creds.store()
			if err != nil {
				return err
			}
			if err := store.Clear(context.Background(), cliSession); err != nil {
				return fmt.Errorf("clear credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var creds credentialOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a session token is stored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := creds.store()
			if err != nil {
				return err
			}
			_, ttl, found, err := store.Load(context.Background(), cliSession)
			if err != nil {
				return fmt.Errorf("read credentials: %w", err)
			}
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			if ttl < 0 {
				fmt.Fprintln(out, "Logged in")
			} else {
				fmt.Fprintf(out, "Logged in, token expires in %s\n", ttl.Round(time.Second))
			}
			fmt.Fprintf(out, "Credentials: %s\n", store.Path())
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}
