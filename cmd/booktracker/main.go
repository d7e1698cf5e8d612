package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/booktracker/internal/app"
	"github.com/dharsanguruparan/booktracker/internal/config"
	"github.com/dharsanguruparan/booktracker/internal/logging"
)

// exitError carries a specific exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintf(os.Stderr, "booktracker: %v\n", err)
		stop()
		os.Exit(code)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booktracker",
		Short: "Book tracking REST backend",
		Long: `booktracker serves the book tracking API and bundles the operational tasks around it:
bootstrapping the admin account, checking database connectivity and redacting connection strings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newCreateAdminCmd(),
		newCheckDBCmd(),
		newRedactCmd(),
	)
	return cmd
}

func loadApp() (*app.App, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return app.New(cfg, log), cfg, nil
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
			outcome := app.New(cfg, log).Run(cmd.Context())
			if outcome.Code != 0 {
				// Already logged by the app.
				return &exitError{code: outcome.Code, err: fmt.Errorf("%s", outcome)}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override PORT")
	return cmd
}

func newCreateAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin",
		Short: "Create the bootstrap admin user from ADMIN_* settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := loadApp()
			if err != nil {
				return err
			}
			created, err := a.CreateAdmin(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Admin user created!")
			fmt.Fprintf(out, "username: %s\nemail:    %s\npassword: %s\n", created.Username, created.Email, created.Password)
			return nil
		},
	}
}

func newCheckDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Connect to the configured database once and disconnect",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.CheckDB(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", config.RedactURI(cfg.DatabaseURI))
			return nil
		},
	}
}

func newRedactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redact <uri>",
		Short: "Print a connection string with its credentials masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.RedactURI(args[0]))
			return nil
		},
	}
}
