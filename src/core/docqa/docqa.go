package docqa

import (
	"context"
	"errors"
	"time"

	"docchat/src/core/loader"
)

var (
	ErrWorkspaceNotFound     = errors.New("Workspace not found")
	ErrDocumentNotFound      = errors.New("Document not found")
	ErrDocumentNotReady      = errors.New("Document is not ready")
	ErrDocumentLimitExceeded = errors.New("Document limit exceeded")
	ErrFileTooLarge          = errors.New("File too large")
	ErrInvalidRequest        = errors.New("Invalid request")
	ErrSessionNotFound       = errors.New("Chat session not found")
)

// WorkspaceService defines the interface for workspace operations
type WorkspaceService interface {
	List(ctx context.Context) ([]Workspace, error)
	Get(ctx context.Context, id int64) (*Workspace, error)
	Create(ctx context.Context, ws *Workspace) error
	Delete(ctx context.Context, id int64) error
}

// DocumentService defines the interface for document operations
type DocumentService interface {
	List(ctx context.Context, workspaceID int64) ([]Document, error)
	Get(ctx context.Context, workspaceID, documentID int64) (*Document, error)
	Upload(ctx context.Context, workspaceID int64, filename string, data []byte) (*Document, error)
	Delete(ctx context.Context, workspaceID, documentID int64) error
	Reindex(ctx context.Context, workspaceID, documentID int64) (*Document, error)
}

// SearchService defines the interface for retrieval
type SearchService interface {
	Search(ctx context.Context, workspaceID int64, req SearchRequest) ([]SearchResultChunk, error)
}

// ChatService defines the interface for question answering
type ChatService interface {
	Ask(ctx context.Context, workspaceID int64, req AskRequest) (*Answer, error)
	History(ctx context.Context, sessionID string) ([]ChatMessage, error)
	Reset(ctx context.Context, sessionID string) error
	Summarize(ctx context.Context, workspaceID, documentID int64) (*Answer, error)
}

// SystemService defines the interface for system operations
type SystemService interface {
	CheckHealth(ctx context.Context) (*HealthStatus, error)
}

// Workspace groups documents that are searched together
type Workspace struct {
	ID             int64     `json:"id,string"`
	Name           string    `json:"name"`
	EmbeddingModel string    `json:"embeddingModel"`
	ChatModel      string    `json:"chatModel"`
	MaxDocuments   int       `json:"maxDocuments"`
	CreatedAt      time.Time `json:"createdAt"`
}

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded file and the state of its ingestion
type Document struct {
	ID          int64                   `json:"id,string"`
	WorkspaceID int64                   `json:"workspaceId,string"`
	Filename    string                  `json:"filename"`
	MediaType   string                  `json:"mediaType"`
	Size        int64                   `json:"size"`
	ObjectKey   string                  `json:"-"`
	Status      DocumentStatus          `json:"status"`
	Method      loader.ExtractionMethod `json:"method,omitempty"`
	Pages       int                     `json:"pages"`
	Chunks      int                     `json:"chunks"`
	Error       string                  `json:"error,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// Chunk is a piece of document text that gets embedded
type Chunk struct {
	ID          int64  `json:"id,string"`
	DocumentID  int64  `json:"documentId,string"`
	WorkspaceID int64  `json:"workspaceId,string"`
	Page        int    `json:"page"`
	Order       int    `json:"order"`
	Content     string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a message in chat history
type ChatMessage struct {
	SessionID string    `json:"sessionId"`
	MessageID string    `json:"messageId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchResultChunk represents a single chunk in search results
type SearchResultChunk struct {
	ChunkID    int64   `json:"chunkId,string"`
	DocumentID int64   `json:"documentId,string"`
	Filename   string  `json:"filename"`
	Page       int     `json:"page"`
	Order      int     `json:"order"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

type SearchRequest struct {
	Query       string  `json:"query"`
	DocumentIDs []int64 `json:"documentIds,omitempty"`
	TopK        int     `json:"topK,omitempty"`
	Hybrid      bool    `json:"hybrid,omitempty"`
}

type AskRequest struct {
	SessionID      string  `json:"sessionId,omitempty"`
	Question       string  `json:"question"`
	DocumentIDs    []int64 `json:"documentIds,omitempty"`
	TopK           int     `json:"topK,omitempty"`
	Hybrid         bool    `json:"hybrid,omitempty"`
	IncludeSources bool    `json:"includeSources,omitempty"`
}

// Answer is the model reply, with the chunks it was grounded on when requested
type Answer struct {
	SessionID string              `json:"sessionId,omitempty"`
	MessageID string              `json:"messageId"`
	Content   string              `json:"content"`
	Sources   []SearchResultChunk `json:"sources,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// ComponentStatus represents the status of system components
type ComponentStatus string

const (
	ComponentUp   ComponentStatus = "up"
	ComponentDown ComponentStatus = "down"
)

// HealthStatus represents system health status
type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
}
