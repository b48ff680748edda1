package router

import (
	"users-service/internal/api/handlers"
	"users-service/internal/api/middleware"
	"users-service/internal/config"
	"users-service/internal/domain/user"
	interfaces "users-service/internal/interfaces/infrastructure"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	UserService user.UserService
	Health      *handlers.HealthHandler
	// Idempotency enables Idempotency-Key replay on create routes when set.
	Idempotency interfaces.IdempotencyRepository
	Auth        config.AuthConfig

	// MaxBodyBytes caps request bodies; zero uses middleware.DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// NewRouter wires the middleware chain and the /users routes.
// Every request passes through the logger, the error handler and the auth
// guard, in that order.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Logger())
	r.Use(cors.Default())
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.BodyLimit(deps.MaxBodyBytes))
	if deps.Auth.Enabled {
		r.Use(middleware.AuthGuard(deps.Auth.Tokens, deps.Auth.Exclude))
	}

	if deps.Health != nil {
		r.GET("/health", deps.Health.HealthCheck)
		r.GET("/ready", deps.Health.ReadinessCheck)
		r.GET("/live", deps.Health.LivenessCheck)
	}

	userHandler := handlers.NewUserHandler(deps.UserService)

	createChain := []gin.HandlerFunc{}
	if deps.Idempotency != nil {
		createChain = append(createChain, middleware.Idempotency(deps.Idempotency))
	}

	users := r.Group("/users")
	{
		users.POST("", append(createChain, userHandler.Create)...)
		users.POST("/batch", append(createChain, userHandler.CreateBatch)...)
		users.GET("", userHandler.FindAll)
		users.GET("/:id", userHandler.FindOne)
		users.PATCH("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Remove)
	}

	return r
}
