package docqa

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"docchat/src/core/loader"
	"docchat/src/log"
)

type documentService struct {
	cfg        Config
	workspaces WorkspaceRepository
	documents  DocumentRepository
	chunks     ChunkRepository
	blobs      BlobStore
	index      VectorIndex
	queue      IngestQueue
}

func NewDocumentService(cfg Config, workspaces WorkspaceRepository, documents DocumentRepository, chunks ChunkRepository, blobs BlobStore, index VectorIndex, queue IngestQueue) DocumentService {
	return &documentService{
		cfg:        cfg.withDefaults(),
		workspaces: workspaces,
		documents:  documents,
		chunks:     chunks,
		blobs:      blobs,
		index:      index,
		queue:      queue,
	}
}

func (s *documentService) List(ctx context.Context, workspaceID int64) ([]Document, error) {
	if _, err := s.workspaces.Get(ctx, workspaceID); err != nil {
		return nil, err
	}
	return s.documents.ListByWorkspace(ctx, workspaceID)
}

func (s *documentService) Get(ctx context.Context, workspaceID, documentID int64) (*Document, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.WorkspaceID != workspaceID {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Upload stores the file and queues it for ingestion; the returned document is still pending
func (s *documentService) Upload(ctx context.Context, workspaceID int64, filename string, data []byte) (*Document, error) {
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	filename = cleanFilename(filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidRequest)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidRequest)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(data), s.cfg.MaxUploadBytes)
	}

	mediaType, err := loader.Detect(filename, data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		WorkspaceID: workspaceID,
		Filename:    filename,
		MediaType:   mediaType,
		Size:        int64(len(data)),
		Status:      StatusPending,
	}
	if err := s.documents.Create(ctx, doc, ws.MaxDocuments); err != nil {
		if errors.Is(err, ErrDocumentLimitExceeded) {
			return nil, fmt.Errorf("%w: workspace allows %d documents", ErrDocumentLimitExceeded, ws.MaxDocuments)
		}
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	doc.ObjectKey = ObjectKey(workspaceID, doc.ID, filename)
	if err := s.blobs.Put(ctx, doc.ObjectKey, data, mediaType); err != nil {
		s.discard(ctx, doc)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		s.discard(ctx, doc)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	if err := s.queue.Submit(ctx, doc.ID); err != nil {
		s.discard(ctx, doc)
		return nil, fmt.Errorf("failed to queue ingestion: %w", err)
	}

	log.Info("document uploaded", "workspaceID", workspaceID, "documentID", doc.ID, "filename", filename, "mediaType", mediaType, "size", doc.Size)
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, workspaceID, documentID int64) error {
	doc, err := s.Get(ctx, workspaceID, documentID)
	if err != nil {
		return err
	}

	if err := s.index.DeleteDocument(ctx, CollectionName(workspaceID), documentID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if err := s.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if doc.ObjectKey != "" {
		if err := s.blobs.Delete(ctx, doc.ObjectKey); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	if err := s.documents.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	log.Info("document deleted", "workspaceID", workspaceID, "documentID", documentID)
	return nil
}

func (s *documentService) Reindex(ctx context.Context, workspaceID, documentID int64) (*Document, error) {
	doc, err := s.Get(ctx, workspaceID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == StatusPending || doc.Status == StatusProcessing {
		return nil, fmt.Errorf("%w: document is already %s", ErrInvalidRequest, doc.Status)
	}

	doc.Status = StatusPending
	doc.Error = ""
	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	if err := s.queue.Submit(ctx, doc.ID); err != nil {
		err = fmt.Errorf("failed to queue ingestion: %w", err)
		doc.Status = StatusFailed
		doc.Error = err.Error()
		if updateErr := s.documents.Update(context.WithoutCancel(ctx), doc); updateErr != nil {
			log.Error(updateErr, "failed to mark document failed", "documentID", doc.ID)
		}
		return nil, err
	}
	return doc, nil
}

// discard drops a document whose upload did not complete, blob included
func (s *documentService) discard(ctx context.Context, doc *Document) {
	ctx = context.WithoutCancel(ctx)
	if doc.ObjectKey != "" {
		if err := s.blobs.Delete(ctx, doc.ObjectKey); err != nil {
			log.Error(err, "failed to discard file", "documentID", doc.ID, "objectKey", doc.ObjectKey)
		}
	}
	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		log.Error(err, "failed to discard document", "documentID", doc.ID)
	}
}

// ObjectKey is where the original upload lives in the blob store
func ObjectKey(workspaceID, documentID int64, filename string) string {
	return path.Join(fmt.Sprint(workspaceID), fmt.Sprint(documentID), filename)
}

func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(path.Clean("/" + name))
	if name == "/" || name == "." {
		return ""
	}
	return strings.TrimSpace(name)
}
