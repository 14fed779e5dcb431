package docqa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat/src/log"
)

type workspaceService struct {
	cfg        Config
	workspaces WorkspaceRepository
	documents  DocumentRepository
	chunks     ChunkRepository
	blobs      BlobStore
	index      VectorIndex
}

func NewWorkspaceService(cfg Config, workspaces WorkspaceRepository, documents DocumentRepository, chunks ChunkRepository, blobs BlobStore, index VectorIndex) WorkspaceService {
	return &workspaceService{
		cfg:        cfg.withDefaults(),
		workspaces: workspaces,
		documents:  documents,
		chunks:     chunks,
		blobs:      blobs,
		index:      index,
	}
}

func (s *workspaceService) List(ctx context.Context) ([]Workspace, error) {
	return s.workspaces.List(ctx)
}

func (s *workspaceService) Get(ctx context.Context, id int64) (*Workspace, error) {
	return s.workspaces.Get(ctx, id)
}

func (s *workspaceService) Create(ctx context.Context, ws *Workspace) error {
	ws.Name = strings.TrimSpace(ws.Name)
	if ws.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if ws.MaxDocuments < 0 {
		return fmt.Errorf("%w: maxDocuments must not be negative", ErrInvalidRequest)
	}
	if ws.EmbeddingModel == "" {
		ws.EmbeddingModel = s.cfg.EmbeddingModel
	}
	if ws.ChatModel == "" {
		ws.ChatModel = s.cfg.ChatModel
	}
	if ws.MaxDocuments == 0 {
		ws.MaxDocuments = s.cfg.MaxDocuments
	}

	if err := s.workspaces.Create(ctx, ws); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	if err := s.index.EnsureCollection(ctx, CollectionName(ws.ID)); err != nil {
		if delErr := s.workspaces.Delete(ctx, ws.ID); delErr != nil {
			log.Error(delErr, "failed to roll back workspace", "workspaceID", ws.ID)
		}
		return fmt.Errorf("failed to create vector collection: %w", err)
	}

	log.Info("workspace created", "workspaceID", ws.ID, "name", ws.Name)
	return nil
}

func (s *workspaceService) Delete(ctx context.Context, id int64) error {
	if _, err := s.workspaces.Get(ctx, id); err != nil {
		return err
	}

	docs, err := s.documents.ListByWorkspace(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if err := s.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to delete chunks of document %d: %w", doc.ID, err)
		}
		if err := s.documents.Delete(ctx, doc.ID); err != nil && !errors.Is(err, ErrDocumentNotFound) {
			return fmt.Errorf("failed to delete document %d: %w", doc.ID, err)
		}
	}

	if err := s.blobs.DeletePrefix(ctx, fmt.Sprintf("%d/", id)); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}

	if err := s.index.DropCollection(ctx, CollectionName(id)); err != nil {
		return fmt.Errorf("failed to drop vector collection: %w", err)
	}

	if err := s.workspaces.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	log.Info("workspace deleted", "workspaceID", id, "documents", len(docs))
	return nil
}
