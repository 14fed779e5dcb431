package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/src/core/docqa"
)

type searchRequest struct {
	Query       string   `json:"query" binding:"required"`
	DocumentIDs []string `json:"documentIds"`
	TopK        int      `json:"topK" binding:"min=0"`
	Hybrid      bool     `json:"hybrid"`
}

type searchResponse struct {
	Results []docqa.SearchResultChunk `json:"results"`
}

// Search godoc
// @Summary Retrieve the chunks closest to a query
// @Tags search
// @Accept json
// @Produce json
// @Param id path string true "Workspace ID"
// @Param body body searchRequest true "Search parameters"
// @Success 200 {object} searchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{id}/search [post]
func (h *Handler) Search(c *gin.Context) {
	wsID, err := paramID(c, "id")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	docIDs, err := parseIDs(req.DocumentIDs)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	results, err := h.searchService.Search(c.Request.Context(), wsID, docqa.SearchRequest{
		Query:       req.Query,
		DocumentIDs: docIDs,
		TopK:        req.TopK,
		Hybrid:      req.Hybrid,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []docqa.SearchResultChunk{}
	}

	sendJSON(c, http.StatusOK, searchResponse{Results: results})
}
