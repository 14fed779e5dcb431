package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docchat/src/core/docqa"
	"docchat/src/core/loader"
)

type Handler struct {
	wsService     docqa.WorkspaceService
	docService    docqa.DocumentService
	searchService docqa.SearchService
	chatService   docqa.ChatService
	sysService    docqa.SystemService

	metrics        http.Handler
	maxUploadBytes int64
}

type Option func(*Handler)

// WithMetrics serves the given handler on GET /metrics
func WithMetrics(h http.Handler) Option {
	return func(handler *Handler) {
		handler.metrics = h
	}
}

// WithMaxUploadBytes caps the request body of uploads
func WithMaxUploadBytes(n int64) Option {
	return func(handler *Handler) {
		handler.maxUploadBytes = n
	}
}

func NewHandler(wsService docqa.WorkspaceService, docService docqa.DocumentService, searchService docqa.SearchService, chatService docqa.ChatService, sysService docqa.SystemService, opts ...Option) *Handler {
	h := &Handler{
		wsService:     wsService,
		docService:    docService,
		searchService: searchService,
		chatService:   chatService,
		sysService:    sysService,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	v1 := r.Group("/api/v1")

	// Workspace routes
	v1.GET("/workspaces", h.ListWorkspaces)
	v1.POST("/workspaces", h.CreateWorkspace)
	v1.GET("/workspaces/:id", h.GetWorkspace)
	v1.DELETE("/workspaces/:id", h.DeleteWorkspace)

	// Document routes
	v1.GET("/workspaces/:id/documents", h.ListDocuments)
	v1.POST("/workspaces/:id/documents", h.UploadDocument)
	v1.GET("/workspaces/:id/documents/:documentId", h.GetDocument)
	v1.DELETE("/workspaces/:id/documents/:documentId", h.DeleteDocument)
	v1.POST("/workspaces/:id/documents/:documentId/reindex", h.ReindexDocument)
	v1.GET("/workspaces/:id/documents/:documentId/summary", h.SummarizeDocument)

	// Retrieval and chat routes
	v1.POST("/workspaces/:id/search", h.Search)
	v1.POST("/workspaces/:id/chat", h.Ask)
	v1.GET("/chat/sessions/:sessionId", h.GetChatHistory)
	v1.DELETE("/chat/sessions/:sessionId", h.ResetChatSession)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// sendError maps domain errors to a status code. status is used for errors
// that carry no domain meaning.
func sendError(c *gin.Context, status int, err error) {
	var maxBytesErr *http.MaxBytesError
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, docqa.ErrWorkspaceNotFound),
		errors.Is(err, docqa.ErrDocumentNotFound),
		errors.Is(err, docqa.ErrSessionNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, docqa.ErrInvalidRequest):
		code = "INVALID_REQUEST"
		status = http.StatusBadRequest
	case errors.Is(err, docqa.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		code = "FILE_TOO_LARGE"
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, loader.ErrUnsupportedFileType):
		code = "UNSUPPORTED_FILE_TYPE"
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, docqa.ErrDocumentLimitExceeded):
		code = "DOCUMENT_LIMIT_EXCEEDED"
		status = http.StatusConflict
	case errors.Is(err, docqa.ErrDocumentNotReady):
		code = "DOCUMENT_NOT_READY"
		status = http.StatusConflict
	case errors.Is(err, loader.ErrNoExtractableText):
		code = "NO_EXTRACTABLE_TEXT"
		status = http.StatusUnprocessableEntity
	case errors.Is(err, loader.ErrOCRUnavailable):
		code = "OCR_UNAVAILABLE"
		status = http.StatusServiceUnavailable
	case status == http.StatusBadRequest:
		code = "INVALID_REQUEST"
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", docqa.ErrInvalidRequest, name, c.Param(name))
	}
	return id, nil
}

func parseIDs(raw []string) ([]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid document id %q", docqa.ErrInvalidRequest, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
