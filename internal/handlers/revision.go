package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/revisia/revisia-backend/internal/services"
	"github.com/revisia/revisia-backend/internal/types"
)

type RevisionHandler struct {
	revisionService services.RevisionService
}

func NewRevisionHandler(revisionService services.RevisionService) *RevisionHandler {
	return &RevisionHandler{revisionService: revisionService}
}

// GetSession returns the active session for the synthese, or a null session
// when none exists or the previous one sat idle past the timeout.
func (rh *RevisionHandler) GetSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	session, err := rh.revisionService.GetActiveSession(c.Request.Context(), userID, syntheseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"session": session})
}

func (rh *RevisionHandler) StartSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	var req struct {
		RequirementLevel types.RequirementLevel `json:"requirement_level"`
		CustomSettings   *types.CustomSettings  `json:"custom_settings,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	session, err := rh.revisionService.StartSession(c.Request.Context(), userID, syntheseID, req.RequirementLevel, req.CustomSettings)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (rh *RevisionHandler) SyncSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	var req services.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := rh.revisionService.SyncSession(c.Request.Context(), userID, syntheseID, req); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"synced": true})
}

func (rh *RevisionHandler) SubmitRecall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := rh.revisionService.SubmitRecall(c.Request.Context(), userID, syntheseID, req.Text); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"accepted": true})
}

func (rh *RevisionHandler) RunComparison(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	result, err := rh.revisionService.RunComparison(c.Request.Context(), userID, syntheseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comparison": result})
}

func (rh *RevisionHandler) AdvanceIteration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	result, err := rh.revisionService.AdvanceIteration(c.Request.Context(), userID, syntheseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (rh *RevisionHandler) CompleteSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	result, err := rh.revisionService.CompleteSession(c.Request.Context(), userID, syntheseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (rh *RevisionHandler) StopSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	if err := rh.revisionService.StopSession(c.Request.Context(), userID, syntheseID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rh *RevisionHandler) GetCompletionCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	count, err := rh.revisionService.GetCompletionCount(c.Request.Context(), userID, syntheseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"count": count})
}
