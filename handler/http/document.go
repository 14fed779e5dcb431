package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/src/core/docqa"
)

// multipart headers and boundaries on top of the file itself
const multipartOverhead = 1 << 20

// ListDocuments godoc
// @Summary List documents in a workspace
// @Tags documents
// @Param id path string true "Workspace ID"
// @Produce json
// @Success 200 {array} docqa.Document
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /workspaces/{id}/documents [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	wsID, err := paramID(c, "id")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	docs, err := h.docService.List(c.Request.Context(), wsID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if docs == nil {
		docs = []docqa.Document{}
	}
	sendJSON(c, http.StatusOK, docs)
}

// UploadDocument godoc
// @Summary Upload a PDF, text or image file into a workspace
// @Description The document is ingested asynchronously; poll it until status is ready.
// @Tags documents
// @Accept multipart/form-data
// @Param id path string true "Workspace ID"
// @Param file formData file true "Document file"
// @Produce json
// @Success 202 {object} docqa.Document
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /workspaces/{id}/documents [post]
func (h *Handler) UploadDocument(c *gin.Context) {
	wsID, err := paramID(c, "id")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			sendError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: upload exceeds the %d byte limit", docqa.ErrFileTooLarge, h.maxUploadBytes))
			return
		}
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to read file: %w", err))
		return
	}

	doc, err := h.docService.Upload(c.Request.Context(), wsID, header.Filename, data)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusAccepted, doc)
}

func (h *Handler) documentParams(c *gin.Context) (int64, int64, bool) {
	wsID, err := paramID(c, "id")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return 0, 0, false
	}
	docID, err := paramID(c, "documentId")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return 0, 0, false
	}
	return wsID, docID, true
}

// GetDocument godoc
// @Summary Get a document and its ingestion status
// @Tags documents
// @Param id path string true "Workspace ID"
// @Param documentId path string true "Document ID"
// @Produce json
// @Success 200 {object} docqa.Document
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{id}/documents/{documentId} [get]
func (h *Handler) GetDocument(c *gin.Context) {
	wsID, docID, ok := h.documentParams(c)
	if !ok {
		return
	}
	doc, err := h.docService.Get(c.Request.Context(), wsID, docID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, doc)
}

// DeleteDocument godoc
// @Summary Remove a document from a workspace
// @Tags documents
// @Param id path string true "Workspace ID"
// @Param documentId path string true "Document ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /workspaces/{id}/documents/{documentId} [delete]
func (h *Handler) DeleteDocument(c *gin.Context) {
	wsID, docID, ok := h.documentParams(c)
	if !ok {
		return
	}
	if err := h.docService.Delete(c.Request.Context(), wsID, docID); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReindexDocument godoc
// @Summary Run ingestion again for a document
// @Tags documents
// @Param id path string true "Workspace ID"
// @Param documentId path string true "Document ID"
// @Produce json
// @Success 202 {object} docqa.Document
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /workspaces/{id}/documents/{documentId}/reindex [post]
func (h *Handler) ReindexDocument(c *gin.Context) {
	wsID, docID, ok := h.documentParams(c)
	if !ok {
		return
	}
	doc, err := h.docService.Reindex(c.Request.Context(), wsID, docID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusAccepted, doc)
}

// SummarizeDocument godoc
// @Summary Summarize a ready document
// @Tags documents
// @Param id path string true "Workspace ID"
// @Param documentId path string true "Document ID"
// @Produce json
// @Success 200 {object} docqa.Answer
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /workspaces/{id}/documents/{documentId}/summary [get]
func (h *Handler) SummarizeDocument(c *gin.Context) {
	wsID, docID, ok := h.documentParams(c)
	if !ok {
		return
	}
	answer, err := h.chatService.Summarize(c.Request.Context(), wsID, docID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, answer)
}
