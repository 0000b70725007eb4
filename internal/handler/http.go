package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

// Config holds the settings the HTTP layer reads directly.
type Config struct {
	Production       bool
	WebhookSecret    string
	WebhookProviders []string
	WebhookTimeout   time.Duration
}

// Handler serves the public API and the generator webhooks.
type Handler struct {
	auth     service.AuthService
	journeys service.JourneyService
	webhooks service.WebhookService
	stats    service.StatsService
	profiles service.ProfileService
	cfg      Config
	logger   *zap.Logger
}

func NewHandler(
	auth service.AuthService,
	journeys service.JourneyService,
	webhooks service.WebhookService,
	stats service.StatsService,
	profiles service.ProfileService,
	cfg Config,
	logger *zap.Logger,
) *Handler {
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = 10 * time.Second
	}
	return &Handler{
		auth:     auth,
		journeys: journeys,
		webhooks: webhooks,
		stats:    stats,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger.Named("Handler"),
	}
}

// RegisterRoutes mounts every route. authLimiter guards the credential
// endpoints and may be nil.
func (h *Handler) RegisterRoutes(router *gin.Engine, authLimiter gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	if authLimiter != nil {
		authGroup.Use(authLimiter)
	}
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/logout", h.AuthMiddleware(), h.logout)
		authGroup.GET("/me", h.AuthMiddleware(), h.me)
		authGroup.POST("/change-password", h.AuthMiddleware(), h.changePassword)
	}

	profile := router.Group("/profile")
	profile.Use(h.AuthMiddleware(), noStore())
	{
		profile.GET("", h.getProfile)
		profile.PUT("", h.updateProfile)
		profile.GET("/onboarding", h.getOnboarding)
		profile.POST("/onboarding", h.completeOnboarding)
	}

	journeys := router.Group("/journeys")
	journeys.Use(h.AuthMiddleware(), noStore())
	{
		journeys.POST("", h.createJourney)
		journeys.GET("", h.listJourneys)
		journeys.GET("/:id", h.getJourney)
		journeys.PATCH("/:id", h.updateJourney)
		journeys.DELETE("/:id", h.deleteJourney)
		journeys.GET("/:id/days", h.listDays)
		journeys.GET("/:id/days/:day", h.getDay)
		journeys.POST("/:id/days/:day/complete", h.completeDay)
	}

	stats := router.Group("/stats")
	stats.Use(h.AuthMiddleware(), noStore())
	{
		stats.GET("", h.getStats)
		stats.GET("/streak", h.getStreak)
		stats.GET("/history", h.getHistory)
		stats.GET("/journeys", h.getJourneyStats)
		stats.GET("/time-of-day", h.getTimeOfDay)
	}

	webhooks := router.Group("/webhooks/:provider")
	webhooks.Use(h.WebhookAuthMiddleware(), withTimeout(h.cfg.WebhookTimeout))
	{
		webhooks.POST("/journey-complete", h.journeyComplete)
		webhooks.POST("/journey-error", h.journeyError)
		webhooks.POST("/journey-progress", h.journeyProgress)
		webhooks.POST("/journey-audio", h.journeyAudio)
	}

	router.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "route not found"})
	})
}
