package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/config"
	"github.com/referral/referral/internal/dashboard"
	"github.com/referral/referral/internal/gateway"
	"github.com/referral/referral/internal/platform/apiclient"
	"github.com/referral/referral/internal/platform/auth"
	"github.com/referral/referral/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "referral-console",
		Short:        "Hospital referral admin console",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(browseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cfg *config.Config, logger zerolog.Logger) (*apiclient.Client, error) {
	return apiclient.New(cfg.BackendURL, apiclient.Options{
		Timeout:   cfg.RequestTimeout,
		Token:     cfg.APIToken,
		RateLimit: cfg.RateLimitRPS,
		Burst:     cfg.RateLimitBurst,
		Logger:    logger.With().Str("component", "apiclient").Logger(),
	})
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())
	debounce := cfg.SearchDebounce()
	sessions := gateway.NewSessions(gateway.SessionsConfig{
		Services: func(s auth.Session) dashboard.Services {
			if s.Token == "" {
				return dashboard.NewServices(client)
			}
			return dashboard.NewServices(client.WithToken(s.Token))
		},
		Hub: hub,
		Dashboard: dashboard.Options{
			PageSize:       cfg.PageSize,
			SearchDebounce: &debounce,
			Logger:         logger.With().Str("component", "dashboard").Logger(),
		},
		IdleTimeout: cfg.SessionIdle,
		Logger:      logger,
	})

	if len(cfg.AuthSigningKey) == 0 {
		logger.Warn().Msg("AUTH_SIGNING_KEY is not set: session tokens are decoded without verification")
	}
	e := gateway.NewServer(gateway.ServerConfig{
		Sessions:    sessions,
		Hub:         hub,
		JWT:         auth.JWTConfig{SigningKey: []byte(cfg.AuthSigningKey), Issuer: cfg.AuthIssuer},
		CORSOrigins: cfg.CORSOrigins,
		BodyLimit:   cfg.BodyLimit,
		Version:     version,
		Logger:      logger,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	swept := make(chan struct{})
	go func() {
		sessions.Run(ctx)
		close(swept)
	}()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", client.BaseURL()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	stop()
	<-swept
	logger.Info().Msg("server stopped")
	return nil
}

// cliRunner opens a console for entity against the configured backend.
func cliRunner(cmd *cobra.Command, entity string, filters map[string]string) (runner, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.APIToken = token
	}
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return open(entity, dashboard.NewServices(client), cmd.OutOrStdout(), []collection.Option{
		collection.WithPageSize(cfg.PageSize),
		collection.WithSearchDebounce(cfg.SearchDebounce()),
		collection.WithInitialFilters(filters),
		collection.WithLogger(logger),
		collection.WithContext(cmd.Context()),
	})
}

func listCmd() *cobra.Command {
	var (
		filters []string
		search  string
		page    int
		sortBy  string
	)
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "Print one page of hospitals, doctors, patients or referrals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilters(filters)
			if err != nil {
				return err
			}
			r, err := cliRunner(cmd, args[0], f)
			if err != nil {
				return err
			}
			defer r.close()
			return r.list(cmd.Context(), listOptions{search: search, page: page, sort: parseSort(sortBy)})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter as key=value (repeatable)")
	cmd.Flags().StringVar(&search, "search", "", "free-text search")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort as field[:asc|desc]")
	cmd.Flags().String("token", "", "bearer token (defaults to API_TOKEN)")
	return cmd
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <entity> <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := cliRunner(cmd, args[0], nil)
			if err != nil {
				return err
			}
			defer r.close()
			return r.show(cmd.Context(), args[1])
		},
	}
	cmd.Flags().String("token", "", "bearer token (defaults to API_TOKEN)")
	return cmd
}

func browseCmd() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "browse <entity>",
		Short: "Page, search and filter a collection interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilters(filters)
			if err != nil {
				return err
			}
			r, err := cliRunner(cmd, args[0], f)
			if err != nil {
				return err
			}
			defer r.close()
			return r.browse(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "initial filter as key=value (repeatable)")
	cmd.Flags().String("token", "", "bearer token (defaults to API_TOKEN)")
	return cmd
}
