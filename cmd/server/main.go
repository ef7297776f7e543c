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

	"github.com/spf13/cobra"

	"github.com/andresthedesigner/videodaddychat/internal/agents"
	"github.com/andresthedesigner/videodaddychat/internal/api"
	"github.com/andresthedesigner/videodaddychat/internal/auth"
	"github.com/andresthedesigner/videodaddychat/internal/blob"
	"github.com/andresthedesigner/videodaddychat/internal/cache"
	"github.com/andresthedesigner/videodaddychat/internal/catalog"
	"github.com/andresthedesigner/videodaddychat/internal/config"
	"github.com/andresthedesigner/videodaddychat/internal/core"
	"github.com/andresthedesigner/videodaddychat/internal/cryptox"
	"github.com/andresthedesigner/videodaddychat/internal/llm"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "vid0",
	Short:         "Chat backend for video creators",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := store.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		fmt.Printf("%s database is up to date\n", db.Backend())
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token [subject]",
	Short: "Mint a development bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		token, err := auth.NewTokenManager(cfg.JWTSecret).GenerateJWT(auth.Identity{
			Subject: args[0],
			Email:   email,
			Name:    name,
		})
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	tokenCmd.Flags().String("email", "", "email claim")
	tokenCmd.Flags().String("name", "", "name claim")
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	checks := map[string]func(context.Context) error{}

	// Without Redis the counters live in the database.
	var counter core.UsageCounter
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		counter = core.NewRedisCounter(rdb.Client)
		checks["redis"] = rdb.Health
	}

	var blobs blob.Store
	if cfg.Storage.Enabled() {
		s3Store, err := blob.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		blobs = s3Store
	} else {
		logger.Warn(ctx, "attachment storage disabled, set S3_BUCKET to enable uploads")
	}

	cipher, err := cryptox.NewKeyCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	keys := core.NewKeyService(db, cipher, cfg, logger)
	usage := core.NewUsageService(db, counter, keys, logger)
	chats := core.NewChatService(db, usage, blobs, logger)
	models := catalog.New(catalog.StaticLoader)
	completion := core.NewCompletionService(db, usage, chats, keys, models, llm.DefaultRegistry(), logger)

	handler := api.NewAPIHandler(api.Services{
		Users:        core.NewUserService(db, logger),
		Usage:        usage,
		Chats:        chats,
		Messages:     core.NewMessageService(db, chats),
		Projects:     core.NewProjectService(db, blobs, logger),
		Keys:         keys,
		Preferences:  core.NewPreferencesService(db),
		Feedback:     core.NewFeedbackService(db),
		Files:        core.NewFileService(db, blobs, chats, logger),
		Completion:   completion,
		Catalog:      models,
		Orchestrator: agents.NewOrchestrator(),
		Checks:       checks,
	}, logger, cfg.WebhookSecret)

	limiter := api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      api.NewRouter(handler, auth.NewTokenManager(cfg.JWTSecret), limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second, // completions may take up to a minute
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "addr", serverAddr, "database", db.Backend(),
			"redis", cfg.Redis.Enabled(), "storage", cfg.Storage.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
	case <-ctx.Done():
	}
	logger.Info(context.Background(), "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	completion.Wait()

	logger.Info(context.Background(), "server exited gracefully")
	return nil
}
