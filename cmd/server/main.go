package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/rxguard/internal/analysis"
	"github.com/Skufu/rxguard/internal/auth"
	"github.com/Skufu/rxguard/internal/config"
	"github.com/Skufu/rxguard/internal/llm"
	"github.com/Skufu/rxguard/internal/logging"
	"github.com/Skufu/rxguard/internal/metrics"
	"github.com/Skufu/rxguard/internal/server"
	"github.com/Skufu/rxguard/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "rxguard",
		Short:        "Prescription safety checker API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and seed the drug reference table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Env, cfg.LogLevel)

			ctx := context.Background()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return store.Bootstrap(ctx, st, cfg.DrugDataFile, logger)
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Bool("postgres", cfg.EnableDB).Msg("database connection failed")
		return err
	}
	defer st.Close()

	if err := store.Bootstrap(ctx, st, cfg.DrugDataFile, logger); err != nil {
		logger.Error().Err(err).Msg("database bootstrap failed")
		return err
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o700); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	metrics.Register()

	models := modelList(cfg)
	var generator analysis.Generator
	client, err := llm.NewClient(cfg.AIProvider, cfg.APIKey(), baseURL(cfg), cfg.AITimeout)
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.AIProvider).Msg("AI provider not configured; only mock analysis is available")
	} else {
		generator = analysis.NewDispatcher(client, models, cfg.AITimeout, logger)
		logger.Info().Str("provider", client.SourceName()).Strs("models", models).Dur("timeout", cfg.AITimeout).Msg("AI provider configured")
	}

	staticRoot := cfg.StaticRoot
	if staticRoot == "" {
		staticRoot = server.DetectStaticRoot()
	}

	router := server.NewRouter(server.Options{
		Repo:         st,
		Analyzer:     analysis.NewService(st, generator, logger),
		Auth:         auth.NewService(st),
		Logger:       logger,
		UploadDir:    cfg.UploadDir,
		MaxBodyBytes: cfg.MaxBodyBytes,
		StaticRoot:   staticRoot,
		CORSOrigins:  cfg.CORSOrigins,
	})
	srv := newHTTPServer(cfg, router, len(models))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	logger.Info().Str("port", cfg.Port).Str("static_root", staticRoot).Msg("server listening")
	waitForShutdown(srv, logger)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.EnableDB {
		pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

func modelList(cfg *config.Config) []string {
	if len(cfg.AIModels) > 0 {
		return cfg.AIModels
	}
	return llm.Candidates(cfg.AIProvider)
}

func baseURL(cfg *config.Config) string {
	if cfg.AIProvider == "gemini" {
		return cfg.GeminiBaseURL
	}
	return ""
}

// newHTTPServer sizes the write timeout so a full walk of the candidate
// list can finish before the connection is cut.
func newHTTPServer(cfg *config.Config, handler http.Handler, candidates int) *http.Server {
	if candidates < 1 {
		candidates = 1
	}
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Duration(candidates)*cfg.AITimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func waitForShutdown(srv *http.Server, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
