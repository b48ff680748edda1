package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"users-service/internal/api/handlers"
	"users-service/internal/api/router"
	"users-service/internal/config"
	"users-service/internal/infrastructure/cache"
	"users-service/internal/infrastructure/repository"
	interfaces "users-service/internal/interfaces/infrastructure"
	"users-service/internal/service"
	"users-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	port string
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long: `Start the users HTTP API.
The storage adapter, Redis cache, idempotent create and auth guard are
selected from the configuration file and USERS_* environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Flags for server command
	serverCmd.Flags().StringVarP(&port, "port", "p", "", "Port for the server to listen on (overrides server.port)")
}

func startServer() {
	cfg := config.Get()

	// Override port if flag is provided
	if port != "" {
		cfg.Server.Port = port
	}

	if cfg.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openStorage(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open storage: %v", err)
	}
	defer store.close()

	var (
		redisCache   *cache.RedisCache
		cacheService interfaces.CacheService
		idempotency  interfaces.IdempotencyRepository
	)
	if cfg.Cache.Enabled || cfg.Idempotency.Enabled {
		redisCache = cache.NewRedisCacheWithConfig(&cfg.Cache)
		defer redisCache.Close()
	}
	if cfg.Cache.Enabled {
		cacheService = redisCache
		logger.Info("User cache enabled (ttl %ds)", cfg.Cache.TTL)
	}
	if cfg.Idempotency.Enabled {
		idempotency = repository.NewRedisIdempotencyRepository(
			redisCache.GetClient(),
			time.Duration(cfg.Idempotency.TTL)*time.Second,
		)
		logger.Info("Idempotency-Key replay enabled")
	}

	probes := map[string]handlers.Pinger{"database": store.repo}
	if redisCache != nil {
		probes["cache"] = handlers.PingFunc(redisCache.Health)
	}

	if cfg.Auth.Enabled && len(cfg.Auth.Tokens) == 0 {
		logger.Warn("Auth guard is enabled without tokens; every guarded request will be rejected")
	}

	r := router.NewRouter(router.Dependencies{
		UserService: service.NewUserService(store.repo, cacheService),
		Health:      handlers.NewHealthHandler(cfg.App.Version, probes),
		Idempotency: idempotency,
		Auth:        cfg.Auth,

		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        r,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
		return
	}

	logger.Info("Server exited")
}
