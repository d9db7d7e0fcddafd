package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civicalert/civicalert-server/internal/app"
	"github.com/civicalert/civicalert-server/internal/auth"
	"github.com/civicalert/civicalert-server/internal/config"
	"github.com/civicalert/civicalert-server/internal/log"
	"github.com/civicalert/civicalert-server/internal/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "civicalert-server",
		Short:         "Citizen disaster-reporting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newCreateAdminCmd(&configPath))

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and realtime server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New("info")

			cfg, path, err := config.Load(logger, *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}

			logger = log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting civicalert server")

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")

	return cmd
}

func newCreateAdminCmd(configPath *string) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New("warn")

			cfg, _, err := config.Load(logger, *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer st.Close()

			authService := auth.NewService(st, &auth.JWTConfig{
				Secret:   []byte(cfg.JWTSecret),
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
				TTL:      cfg.TokenTTL,
			})

			user, err := authService.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "admin created: %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
