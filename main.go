package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"perfumery_server/api"
	"perfumery_server/config"
	"perfumery_server/database"
	"perfumery_server/lib"
	"perfumery_server/queue"
	"perfumery_server/services"
	"perfumery_server/structs"
	"syscall"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg := config.GetConfig()
	logger := config.InitializeLogger()

	if envErr != nil {
		logger.Warn("No .env file found or error loading .env file, proceeding with system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with an error", gecho.Field("error", err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *structs.Config, logger *gecho.Logger) error {
	db, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	rdb := services.NewRedisClient(cfg.Cache)
	defer rdb.Close()

	cipher, err := lib.NewFieldCipher(cfg.Encryption.Key)
	if err != nil {
		return fmt.Errorf("invalid encryption key: %w", err)
	}
	if !cipher.Enabled() {
		logger.Warn("ENCRYPTION_KEY not set, customer contact data is stored in plain text")
	}

	deps, cleanup := setupDependencies(ctx, cfg, logger)
	defer cleanup()

	sm := services.NewServiceManager(logger, cfg, db, rdb, cipher, deps)
	if err := sm.AuthService.BootstrapAdmin(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	server := &http.Server{
		Addr:           cfg.Server.Port,
		Handler:        api.App(logger, cfg, sm),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Starting server (%s) on %s", cfg.Server.AppName, cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// setupDependencies connects the optional backends. A backend that is
// disabled or unreachable is left nil and the shop runs without it.
func setupDependencies(ctx context.Context, cfg *structs.Config, logger *gecho.Logger) (services.Dependencies, func()) {
	var deps services.Dependencies
	cleanup := func() {}

	if cfg.Storage.Enabled {
		storage, err := services.NewStorageService(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Error("Object storage unavailable, product images are disabled", gecho.Field("error", err))
		} else {
			deps.Images = storage
		}
	}

	if cfg.Queue.Enabled {
		pool, err := queue.NewChannelPool(cfg.Queue.URL, cfg.Queue.RoutingKey, cfg.Queue.PoolSize, logger)
		if err != nil {
			logger.Error("Message broker unavailable, order events are disabled", gecho.Field("error", err))
		} else {
			publisher := queue.NewPublisher(pool, cfg.Queue, logger)
			deps.Publisher = publisher
			cleanup = publisher.Close
		}
	}

	switch cfg.Payment.Provider {
	case "stripe":
		if cfg.Payment.StripeSecretKey == "" {
			logger.Warn("PAYMENT_PROVIDER is stripe but STRIPE_SECRET_KEY is empty, payment intents are disabled")
			break
		}
		deps.Gateway = services.NewStripeGateway(cfg.Payment.StripeSecretKey)
	default:
		logger.Info("Using demo card payments", gecho.Field("provider", cfg.Payment.Provider))
	}

	return deps, cleanup
}
