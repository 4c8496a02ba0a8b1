package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/matheus3301/parley/internal/client"
	"github.com/matheus3301/parley/internal/profile"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

const oauthTimeout = 15 * time.Minute

func registerCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if password == "" {
				if password, err = readSecret("Password: "); err != nil {
					return err
				}
			}
			return run(callTimeout, func(ctx context.Context, e *env) error {
				s, err := e.client.Register(ctx, name, email, password)
				if err != nil {
					return err
				}
				if err := e.remember(s); err != nil {
					return err
				}
				return printSession(s)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if password == "" {
				if password, err = readSecret("Password: "); err != nil {
					return err
				}
			}
			return run(callTimeout, func(ctx context.Context, e *env) error {
				s, err := e.client.SubmitCredentials(ctx, email, password)
				if err != nil {
					return err
				}
				if err := e.remember(s); err != nil {
					return err
				}
				return printSession(s)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func oauthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oauth [provider]",
		Short: "Sign in through an OAuth provider's device flow",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(oauthTimeout, func(ctx context.Context, e *env) error {
				if len(args) == 0 {
					providers, err := e.client.Providers(ctx)
					if err != nil {
						return err
					}
					if jsonOut {
						return outputJSON(providers)
					}
					if len(providers) == 0 {
						fmt.Println("No OAuth providers configured.")
						return nil
					}
					for _, p := range providers {
						fmt.Println(p)
					}
					return nil
				}

				e.client.OnVerification(func(v client.Verification) {
					printVerification(v)
				})
				s, err := e.client.SubmitOAuth(ctx, args[0])
				if err != nil {
					return err
				}
				if err := e.remember(s); err != nil {
					return err
				}
				return printSession(s)
			})
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := profile.Select(profileFlag)
			if err != nil {
				return err
			}
			if err := profile.ClearToken(name); err != nil {
				return err
			}
			color.Green("Signed out of profile %q.", name)
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				s, err := e.session(ctx)
				if err != nil {
					return err
				}
				return printSession(s)
			})
		},
	}
}

func printVerification(v client.Verification) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Printf("Open %s and enter code ", v.URI)
	_, _ = cyan.Println(v.UserCode)
	if qr, err := qrcode.New(v.URI, qrcode.Low); err == nil {
		fmt.Println(qr.ToSmallString(false))
	}
	if !v.ExpiresAt.IsZero() {
		fmt.Printf("Code expires at %s. Waiting for %s...\n", v.ExpiresAt.Local().Format("15:04:05"), v.Provider)
	}
}

// readSecret reads one line from stdin.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
