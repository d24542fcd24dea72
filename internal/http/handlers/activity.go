package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sciencecms/pmc-backend/internal/http/response"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
	"github.com/sciencecms/pmc-backend/internal/services"
)

type ActivityHandler struct {
	log        *logger.Logger
	activities services.ActivityService
}

func NewActivityHandler(log *logger.Logger, activities services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		log:        log.With("handler", "ActivityHandler"),
		activities: activities,
	}
}

// GET /api/submission-versions/:id/activities
func (h *ActivityHandler) GetForSubmissionVersion(c *gin.Context) {
	svID, ok := parseID(c, "id")
	if !ok {
		return
	}
	events, err := h.activities.GetForSubmissionVersion(c.Request.Context(), svID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"activities": events})
}
