package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

func journeyIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid journey id")
		return uuid.Nil, false
	}
	return id, true
}

func dayNumberParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		badRequest(c, "invalid day number")
		return 0, false
	}
	return n, true
}

func (h *Handler) createJourney(c *gin.Context) {
	var req service.CreateJourneyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	journey, err := h.journeys.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Journey creation started", gin.H{"journey": journey})
}

func (h *Handler) listJourneys(c *gin.Context) {
	var filter models.JourneyFilter
	if s := c.Query("status"); s != "" {
		st, err := models.ParseJourneyStatus(s)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		filter.Status = &st
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			badRequest(c, "limit must be a number")
			return
		}
		filter.Limit = limit
	}

	journeys, err := h.journeys.List(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if journeys == nil {
		journeys = []models.JourneySummary{}
	}
	respond(c, http.StatusOK, "", gin.H{"journeys": journeys})
}

func (h *Handler) getJourney(c *gin.Context) {
	id, ok := journeyIDParam(c)
	if !ok {
		return
	}
	journey, err := h.journeys.Get(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if journey.Days == nil {
		journey.Days = []models.JourneyDay{}
	}
	respond(c, http.StatusOK, "", gin.H{"journey": journey})
}

func (h *Handler) updateJourney(c *gin.Context) {
	id, ok := journeyIDParam(c)
	if !ok {
		return
	}
	var req service.UpdateJourneyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	journey, err := h.journeys.Update(c.Request.Context(), id, currentUserID(c), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Journey updated", gin.H{"journey": journey})
}

func (h *Handler) deleteJourney(c *gin.Context) {
	id, ok := journeyIDParam(c)
	if !ok {
		return
	}
	if err := h.journeys.Delete(c.Request.Context(), id, currentUserID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "Journey deleted", nil)
}

func (h *Handler) listDays(c *gin.Context) {
	id, ok := journeyIDParam(c)
	if !ok {
		return
	}
	days, err := h.journeys.ListDays(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if days == nil {
		days = []models.JourneyDay{}
	}
	respond(c, http.StatusOK, "", gin.H{"days": days})
}

func (h *Handler) getDay(c *gin.Context) {
	id, ok := journeyIDParam(c)
	if !ok {
		return
	}
	n, ok := dayNumberParam(c)
	if !ok {
		return
	}
	day, err := h.journeys.GetDay(c.Request.Context(), id, n, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"day": day})
}

func (h *Handler) completeDay(c *gin.Context) {
	id, ok := journeyIDParam(c)
	if !ok {
		return
	}
	n, ok := dayNumberParam(c)
	if !ok {
		return
	}
	result, err := h.journeys.CompleteDay(c.Request.Context(), id, n, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	message := "Day completed"
	if result.AlreadyCompleted {
		message = "Day already completed"
	}
	respond(c, http.StatusOK, message, result)
}
