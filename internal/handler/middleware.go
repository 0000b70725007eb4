package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

const claimsKey = "claims"

func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			h.handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		claims, err := h.auth.VerifyAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			h.logger.Debug("Access token verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			h.handleServiceError(c, err)
			return
		}

		tokenVerificationsTotal.WithLabelValues("access", "success").Inc()
		c.Set(models.UserIDKey, claims.UserID)
		c.Set(models.AccessUUIDKey, claims.ID)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// WebhookAuthMiddleware accepts only configured providers and the shared
// secret, either as a bearer token or bare. It runs before any body is read.
func (h *Handler) WebhookAuthMiddleware() gin.HandlerFunc {
	providers := make(map[string]struct{}, len(h.cfg.WebhookProviders))
	for _, p := range h.cfg.WebhookProviders {
		providers[strings.ToLower(p)] = struct{}{}
	}
	if h.cfg.WebhookSecret == "" {
		h.logger.Warn("Webhook secret is not configured; every webhook call will fail")
	}

	return func(c *gin.Context) {
		provider := strings.ToLower(c.Param("provider"))
		if _, ok := providers[provider]; !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "unknown webhook provider"})
			return
		}
		if h.cfg.WebhookSecret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "webhook authentication is not configured"})
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		presented, ok := bearerToken(header)
		if !ok {
			presented = header
		}
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(h.cfg.WebhookSecret)) != 1 {
			h.logger.Warn("Rejected webhook call", zap.String("provider", provider), zap.String("clientIP", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid webhook credentials"})
			return
		}
		c.Set("provider", provider)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

func withTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(models.UserIDKey)
	userID, _ := id.(uuid.UUID)
	return userID
}

func currentClaims(c *gin.Context) *models.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*models.Claims)
	return claims
}
