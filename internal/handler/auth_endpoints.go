package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken      string `json:"token"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresAt        int64  `json:"expiresAt"`
	RefreshExpiresAt int64  `json:"refreshExpiresAt"`
}

type authResponse struct {
	User *models.User `json:"user"`
	tokenResponse
}

func newTokenResponse(td *models.TokenDetails) tokenResponse {
	return tokenResponse{
		AccessToken:      td.AccessToken,
		RefreshToken:     td.RefreshToken,
		ExpiresAt:        td.AtExpires,
		RefreshExpiresAt: td.RtExpires,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	user, td, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	registrationsTotal.Inc()
	respond(c, http.StatusCreated, "", authResponse{User: user, tokenResponse: newTokenResponse(td)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	user, td, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", authResponse{User: user, tokenResponse: newTokenResponse(td)})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		badRequest(c, "refreshToken is required")
		return
	}
	td, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	refreshesTotal.Inc()
	respond(c, http.StatusOK, "", newTokenResponse(td))
}

func (h *Handler) logout(c *gin.Context) {
	var req refreshRequest
	// The body is optional; without it only the access token is revoked.
	_ = c.ShouldBindJSON(&req)
	if err := h.auth.Logout(c.Request.Context(), currentClaims(c), req.RefreshToken); err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"user": user})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req service.ChangePasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), currentUserID(c), req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password changed successfully", nil)
}
