package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sciencecms/pmc-backend/internal/http/response"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
	"github.com/sciencecms/pmc-backend/internal/services"
)

// PMCHandler exposes the deposit workflow operations. Handlers stay thin:
// parse identifiers, bind the operation's form schema, call the service, and
// translate the error taxonomy to a status code.
type PMCHandler struct {
	log *logger.Logger
	pmc services.PMCService
}

func NewPMCHandler(log *logger.Logger, pmc services.PMCService) *PMCHandler {
	return &PMCHandler{
		log: log.With("handler", "PMCHandler"),
		pmc: pmc,
	}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/work-versions/:id/grants
func (h *PMCHandler) AddGrant(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form services.AddGrantForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	doc, err := h.pmc.AddGrant(c.Request.Context(), wvID, form)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grants": doc.PMC.Grants})
}

// DELETE /api/work-versions/:id/grants/:entryId
func (h *PMCHandler) RemoveGrant(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	form := services.RemoveGrantForm{EntryID: c.Param("entryId")}
	doc, err := h.pmc.RemoveGrant(c.Request.Context(), wvID, form)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grants": doc.PMC.Grants})
}

// PATCH /api/work-versions/:id/grants
func (h *PMCHandler) UpdateGrantID(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form services.UpdateGrantIDForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	doc, err := h.pmc.UpdateGrantID(c.Request.Context(), wvID, form)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grants": doc.PMC.Grants})
}

// PUT /api/work-versions/:id/grants/hhmi
func (h *PMCHandler) SetInitialHHMIGrant(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form services.SetInitialHHMIGrantForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	doc, err := h.pmc.SetInitialHHMIGrant(c.Request.Context(), wvID, form)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grants": doc.PMC.Grants})
}

// DELETE /api/work-versions/:id/grants/hhmi/:uniqueId
func (h *PMCHandler) ClearInitialHHMIGrant(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	form := services.ClearInitialHHMIGrantForm{UniqueID: c.Param("uniqueId")}
	doc, err := h.pmc.ClearInitialHHMIGrant(c.Request.Context(), wvID, form)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grants": doc.PMC.Grants})
}

// GET /api/work-versions/:id/validate
func (h *PMCHandler) ValidateMetadata(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.pmc.ValidateMetadata(c.Request.Context(), wvID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/work-versions/:id/confirm
func (h *PMCHandler) Confirm(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.pmc.Confirm(c.Request.Context(), wvID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/webhooks/work-versions/:id/status
func (h *PMCHandler) ApplyStatusSignal(c *gin.Context) {
	wvID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form services.StatusSignalForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	applied, err := h.pmc.ApplyStatusSignal(c.Request.Context(), wvID, form)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"applied": applied})
}

// POST /api/submission-versions/:id/clone
func (h *PMCHandler) Clone(c *gin.Context) {
	svID, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.pmc.Clone(c.Request.Context(), svID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, res)
}
