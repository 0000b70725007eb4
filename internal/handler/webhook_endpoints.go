package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

func (h *Handler) journeyComplete(c *gin.Context) {
	var req service.CompletePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid webhook payload: "+err.Error())
		return
	}
	result, err := h.webhooks.Complete(c.Request.Context(), c.GetString("provider"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Journey completion processed", result)
}

func (h *Handler) journeyError(c *gin.Context) {
	var req service.ErrorPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid webhook payload: "+err.Error())
		return
	}
	result, err := h.webhooks.Fail(c.Request.Context(), c.GetString("provider"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Error recorded", result)
}

func (h *Handler) journeyProgress(c *gin.Context) {
	var req service.ProgressPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid webhook payload: "+err.Error())
		return
	}
	result, err := h.webhooks.Progress(c.Request.Context(), c.GetString("provider"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Progress updated", result)
}

func (h *Handler) journeyAudio(c *gin.Context) {
	var req service.AudioPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid webhook payload: "+err.Error())
		return
	}
	result, err := h.webhooks.AudioReady(c.Request.Context(), c.GetString("provider"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Audio updated", result)
}
