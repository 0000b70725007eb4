package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

func (h *Handler) getProfile(c *gin.Context) {
	view, err := h.profiles.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", view)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req service.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	view, err := h.profiles.Update(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated successfully", view)
}

func (h *Handler) getOnboarding(c *gin.Context) {
	view, err := h.profiles.GetOnboarding(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", view)
}

func (h *Handler) completeOnboarding(c *gin.Context) {
	var req service.OnboardingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	view, err := h.profiles.CompleteOnboarding(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Onboarding completed successfully", view)
}
