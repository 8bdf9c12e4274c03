// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/suppleit/suppleit-backend/internal/config"
	"github.com/suppleit/suppleit-backend/internal/handlers"
	"github.com/suppleit/suppleit-backend/internal/middleware"
	"github.com/suppleit/suppleit-backend/internal/services"
)

const version = "1.0.0"

func Initialize(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) (*gin.Engine, error) {
	// Initialize services
	store := services.NewGormProductStore(db, cfg.Store.SearchLimit)
	productService, err := services.BuildProductService(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	return New(cfg, logger, productService), nil
}

// New builds the engine around an already wired product service.
func New(cfg *config.Config, logger logrus.FieldLogger, productService *services.ProductService) *gin.Engine {
	productHandler := handlers.NewProductHandler(productService)
	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(rateLimiter.Middleware())
	{
		products := v1.Group("/products")
		{
			products.GET("/search", productHandler.SearchProducts)
			products.GET("/:id", productHandler.GetProduct)
		}
	}

	return r
}
