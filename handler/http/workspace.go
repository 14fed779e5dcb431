package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/src/core/docqa"
)

type createWorkspaceRequest struct {
	Name           string `json:"name" binding:"required"`
	EmbeddingModel string `json:"embeddingModel"`
	ChatModel      string `json:"chatModel"`
	MaxDocuments   int    `json:"maxDocuments" binding:"min=0"`
}

// ListWorkspaces godoc
// @Summary List all workspaces
// @Tags workspaces
// @Produce json
// @Success 200 {array} docqa.Workspace
// @Failure 500 {object} ErrorResponse
// @Router /workspaces [get]
func (h *Handler) ListWorkspaces(c *gin.Context) {
	workspaces, err := h.wsService.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if workspaces == nil {
		workspaces = []docqa.Workspace{}
	}
	sendJSON(c, http.StatusOK, workspaces)
}

// CreateWorkspace godoc
// @Summary Create a new workspace
// @Tags workspaces
// @Accept json
// @Produce json
// @Param body body createWorkspaceRequest true "Workspace configuration"
// @Success 201 {object} docqa.Workspace
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /workspaces [post]
func (h *Handler) CreateWorkspace(c *gin.Context) {
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	ws := &docqa.Workspace{
		Name:           req.Name,
		EmbeddingModel: req.EmbeddingModel,
		ChatModel:      req.ChatModel,
		MaxDocuments:   req.MaxDocuments,
	}
	if err := h.wsService.Create(c.Request.Context(), ws); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusCreated, ws)
}

// GetWorkspace godoc
// @Summary Get a workspace
// @Tags workspaces
// @Param id path string true "Workspace ID"
// @Produce json
// @Success 200 {object} docqa.Workspace
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{id} [get]
func (h *Handler) GetWorkspace(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	ws, err := h.wsService.Get(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, ws)
}

// DeleteWorkspace godoc
// @Summary Delete a workspace with its documents
// @Tags workspaces
// @Param id path string true "Workspace ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /workspaces/{id} [delete]
func (h *Handler) DeleteWorkspace(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.wsService.Delete(c.Request.Context(), id); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}
