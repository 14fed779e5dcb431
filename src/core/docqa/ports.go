package docqa

import (
	"context"
	"fmt"

	"docchat/src/core/loader"
)

type WorkspaceRepository interface {
	// Create assigns ws.ID and ws.CreatedAt
	Create(ctx context.Context, ws *Workspace) error
	Get(ctx context.Context, id int64) (*Workspace, error)
	List(ctx context.Context) ([]Workspace, error)
	Delete(ctx context.Context, id int64) error
}

type DocumentRepository interface {
	// Create assigns doc.ID and the timestamps. It returns ErrDocumentLimitExceeded
	// when the workspace already holds maxDocuments documents; maxDocuments <= 0 means no limit.
	// The check and the insert are atomic.
	Create(ctx context.Context, doc *Document, maxDocuments int) error
	Get(ctx context.Context, id int64) (*Document, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id int64) error
}

type ChunkRepository interface {
	// Replace drops the document's chunks and stores the given ones, assigning their IDs in place
	Replace(ctx context.Context, documentID int64, chunks []Chunk) error
	ListByDocument(ctx context.Context, documentID int64) ([]Chunk, error)
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// BlobStore keeps the original uploads
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type VectorRecord struct {
	ChunkID    int64
	DocumentID int64
	Filename   string
	Page       int
	Order      int
	Content    string
	Vector     []float32
}

type SearchQuery struct {
	Vector      []float32
	Text        string
	Limit       int
	DocumentIDs []int64
	Hybrid      bool
	// Alpha weighs vector against keyword score in hybrid mode, 1 is pure vector
	Alpha float32
}

// VectorIndex stores chunk embeddings, one collection per workspace
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string) error
	DropCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, records []VectorRecord) error
	DeleteDocument(ctx context.Context, name string, documentID int64) error
	Search(ctx context.Context, name string, query SearchQuery) ([]SearchResultChunk, error)
	Count(ctx context.Context, name string) (int, error)
	Ping(ctx context.Context) error
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, model string, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, model string, text string) ([]float32, error)
}

type PromptMessage struct {
	Role    string
	Content string
}

type ChatModel interface {
	Chat(ctx context.Context, model string, messages []PromptMessage) (string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type ChatStore interface {
	Append(ctx context.Context, msgs ...ChatMessage) error
	// List returns the last limit messages oldest first, all of them when limit <= 0
	List(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)
	Delete(ctx context.Context, sessionID string) error
}

// EmbeddingCache returns nil entries for misses
type EmbeddingCache interface {
	GetVectors(ctx context.Context, keys []string) ([][]float32, error)
	SetVectors(ctx context.Context, keys []string, vectors [][]float32) error
}

type IngestQueue interface {
	Submit(ctx context.Context, documentID int64) error
}

type DocumentLoader interface {
	Load(ctx context.Context, filename string, data []byte) (*loader.Document, error)
}

// CollectionName is the vector collection backing a workspace
func CollectionName(workspaceID int64) string {
	return fmt.Sprintf("Workspace_%d", workspaceID)
}
