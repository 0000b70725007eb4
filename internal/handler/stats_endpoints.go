package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getStats(c *gin.Context) {
	overview, err := h.stats.GetStats(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", overview)
}

func (h *Handler) getStreak(c *gin.Context) {
	streak, err := h.stats.GetStreak(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", streak)
}

func (h *Handler) getHistory(c *gin.Context) {
	days := 0
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, "days must be a positive number")
			return
		}
		days = n
	}
	history, err := h.stats.GetListeningHistory(c.Request.Context(), currentUserID(c), days)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"history": history})
}

func (h *Handler) getJourneyStats(c *gin.Context) {
	stats, err := h.stats.GetJourneyStats(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

func (h *Handler) getTimeOfDay(c *gin.Context) {
	dist, err := h.stats.GetTimeOfDay(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", dist)
}
