// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/database"
	"github.com/javajoker/license-registry/internal/handlers"
	"github.com/javajoker/license-registry/internal/metrics"
	"github.com/javajoker/license-registry/internal/middleware"
	"github.com/javajoker/license-registry/internal/retrieval"
	"github.com/javajoker/license-registry/internal/services"
	"github.com/javajoker/license-registry/internal/store"
)

const version = "1.0.0"

// Initialize builds the HTTP engine. The returned stop func releases the
// background workers started here and is safe to call more than once.
func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, func(), error) {
	// Store and query engines
	st, err := store.New(db, cfg.Store, database.Models()...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build store: %w", err)
	}
	engine := retrieval.NewEngine(st, cfg.Store.MaxConcurrentLookups)
	pager := retrieval.NewPager(st)

	// Initialize services
	assetService := services.NewAssetService(db, st, engine)
	userService := services.NewUserService(db, st, pager, cfg.Pagination)

	// Initialize handlers
	assetHandler := handlers.NewAssetHandler(assetService)
	userHandler := handlers.NewUserHandler(userService, cfg.Pagination)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	limiter := middleware.NewRateLimiterFromConfig(cfg.RateLimit)
	v1.Use(limiter.Middleware())
	{
		// Asset routes
		assets := v1.Group("/assets")
		{
			assets.GET("", assetHandler.GetAssets)
			assets.POST("", assetHandler.CreateAsset)
			assets.POST("/bulk", assetHandler.CreateAssets)
			assets.GET("/:id", assetHandler.GetAsset)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.PUT("", userHandler.CreateOrUpdateUser)
			users.GET("/:email", userHandler.GetUser)
			users.DELETE("/:email", userHandler.DeleteUser)
		}

		// Organization-scoped user pages
		v1.GET("/organizations/:organization/users", userHandler.ListOrganizationUsers)
	}

	return r, limiter.Stop, nil
}
