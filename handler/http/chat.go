package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/src/core/docqa"
)

type askRequest struct {
	SessionID      string   `json:"sessionId"`
	Question       string   `json:"question" binding:"required"`
	DocumentIDs    []string `json:"documentIds"`
	TopK           int      `json:"topK" binding:"min=0"`
	Hybrid         bool     `json:"hybrid"`
	IncludeSources bool     `json:"includeSources"`
}

// Ask godoc
// @Summary Ask a question about the documents of a workspace
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Workspace ID"
// @Param body body askRequest true "Question"
// @Success 200 {object} docqa.Answer
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /workspaces/{id}/chat [post]
func (h *Handler) Ask(c *gin.Context) {
	wsID, err := paramID(c, "id")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	docIDs, err := parseIDs(req.DocumentIDs)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), wsID, docqa.AskRequest{
		SessionID:      req.SessionID,
		Question:       req.Question,
		DocumentIDs:    docIDs,
		TopK:           req.TopK,
		Hybrid:         req.Hybrid,
		IncludeSources: req.IncludeSources,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, answer)
}

// GetChatHistory godoc
// @Summary Get the messages of a chat session
// @Tags chat
// @Param sessionId path string true "Chat session ID"
// @Produce json
// @Success 200 {array} docqa.ChatMessage
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /chat/sessions/{sessionId} [get]
func (h *Handler) GetChatHistory(c *gin.Context) {
	history, err := h.chatService.History(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, history)
}

// ResetChatSession godoc
// @Summary Forget a chat session
// @Tags chat
// @Param sessionId path string true "Chat session ID"
// @Success 204 "No Content"
// @Failure 500 {object} ErrorResponse
// @Router /chat/sessions/{sessionId} [delete]
func (h *Handler) ResetChatSession(c *gin.Context) {
	if err := h.chatService.Reset(c.Request.Context(), c.Param("sessionId")); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}
