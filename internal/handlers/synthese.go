package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/revisia/revisia-backend/internal/services"
)

type SyntheseHandler struct {
	syntheseService services.SyntheseService
}

func NewSyntheseHandler(syntheseService services.SyntheseService) *SyntheseHandler {
	return &SyntheseHandler{syntheseService: syntheseService}
}

func (sh *SyntheseHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var input services.SyntheseCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	synthese, err := sh.syntheseService.Create(c.Request.Context(), userID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"synthese": synthese})
}

func (sh *SyntheseHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var folderID *uuid.UUID
	if raw := c.Query("folder_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		folderID = &id
	}
	syntheses, err := sh.syntheseService.List(c.Request.Context(), userID, folderID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"syntheses": syntheses})
}

func (sh *SyntheseHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	synthese, err := sh.syntheseService.Get(c.Request.Context(), userID, syntheseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"synthese": synthese})
}

func (sh *SyntheseHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	var input services.SyntheseUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	synthese, err := sh.syntheseService.Update(c.Request.Context(), userID, syntheseID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"synthese": synthese})
}

func (sh *SyntheseHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	syntheseID, ok := pathUUID(c, "syntheseId")
	if !ok {
		return
	}
	if err := sh.syntheseService.Delete(c.Request.Context(), userID, syntheseID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
