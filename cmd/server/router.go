package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/pkg/middleware"
)

type routeRegistrar interface {
	RegisterRoutes(router *gin.Engine, authLimiter gin.HandlerFunc)
}

// newRouter builds the engine. Middleware only applies to routes registered
// after it, so the metrics middleware goes in before the API routes.
func newRouter(log *zap.Logger, p *ginprometheus.Prometheus, allowedOrigins []string, api routeRegistrar, authLimiter gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	api.RegisterRoutes(router, authLimiter)
	return router
}
