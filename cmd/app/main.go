package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-starter/config"
	"github.com/goliatone/go-starter/server"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "app",
	Short:         "Web application with email and social sign in",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server until interrupted.

Configuration is read from the environment. DATABASE_URL and NODE_ENV are
required; AUTH_SECRET is required in production.`,
	RunE: runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	RunE:  runMigrate,
}

var autoMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "create missing tables before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	if autoMigrate || app.Config().IsDevelopment() {
		if err := app.Migrate(cmd.Context()); err != nil {
			return err
		}
	}

	return app.Serve(cmd.Context())
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Migrate(cmd.Context()); err != nil {
		return err
	}

	app.GetLogger("migrate").Info("tables ready")
	return nil
}

func bootstrap() (*server.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return server.New(cfg, server.NewLogger(cfg))
}
