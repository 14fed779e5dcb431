package docqa

import (
	"context"
	"fmt"
	"time"

	"docchat/src/core/loader"
	"docchat/src/infrastructure/metrics"
	"docchat/src/log"
)

// Ingestor turns a stored upload into searchable chunks
type Ingestor struct {
	workspaces WorkspaceRepository
	documents  DocumentRepository
	chunks     ChunkRepository
	blobs      BlobStore
	index      VectorIndex
	loader     DocumentLoader
	splitter   *Splitter
	embedder   Embedder
	metrics    *metrics.Metrics
}

func NewIngestor(cfg Config, workspaces WorkspaceRepository, documents DocumentRepository, chunks ChunkRepository, blobs BlobStore, index VectorIndex, docLoader DocumentLoader, embedder Embedder, m *metrics.Metrics) *Ingestor {
	return &Ingestor{
		workspaces: workspaces,
		documents:  documents,
		chunks:     chunks,
		blobs:      blobs,
		index:      index,
		loader:     docLoader,
		splitter:   NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder:   embedder,
		metrics:    m,
	}
}

// Ingest runs the whole pipeline for one document. On failure the document is
// marked failed with the error text and the error is returned.
func (i *Ingestor) Ingest(ctx context.Context, documentID int64) error {
	start := time.Now()

	doc, err := i.documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	ws, err := i.workspaces.Get(ctx, doc.WorkspaceID)
	if err != nil {
		return err
	}

	doc.Status = StatusProcessing
	doc.Error = ""
	if err := i.documents.Update(ctx, doc); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	logger := log.WithValues("workspaceID", ws.ID, "documentID", doc.ID, "filename", doc.Filename)
	logger.Info("ingesting document")

	if err := i.run(ctx, ws, doc); err != nil {
		doc.Status = StatusFailed
		doc.Error = err.Error()
		if updateErr := i.documents.Update(context.WithoutCancel(ctx), doc); updateErr != nil {
			logger.Error(updateErr, "failed to mark document as failed")
		}
		i.metrics.DocumentIngested(string(doc.Method), string(StatusFailed), time.Since(start))
		logger.Error(err, "ingestion failed")
		return err
	}

	doc.Status = StatusReady
	if err := i.documents.Update(ctx, doc); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	i.metrics.DocumentIngested(string(doc.Method), string(StatusReady), time.Since(start))
	logger.Info("document ready", "method", doc.Method, "pages", doc.Pages, "chunks", doc.Chunks, "elapsed", time.Since(start).String())
	return nil
}

func (i *Ingestor) run(ctx context.Context, ws *Workspace, doc *Document) error {
	data, err := i.blobs.Get(ctx, doc.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	parsed, err := i.loader.Load(ctx, doc.Filename, data)
	if err != nil {
		return err
	}
	doc.Method = parsed.Method
	doc.Pages = len(parsed.Pages)

	chunks, err := i.splitter.Split(parsed.Pages)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return loader.ErrNoExtractableText
	}

	texts := make([]string, len(chunks))
	for n := range chunks {
		chunks[n].DocumentID = doc.ID
		chunks[n].WorkspaceID = ws.ID
		texts[n] = chunks[n].Content
	}

	vectors, err := i.embed(ctx, ws.EmbeddingModel, texts)
	if err != nil {
		return err
	}

	if err := i.chunks.Replace(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}

	records := make([]VectorRecord, len(chunks))
	for n, c := range chunks {
		records[n] = VectorRecord{
			ChunkID:    c.ID,
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Page:       c.Page,
			Order:      c.Order,
			Content:    c.Content,
			Vector:     vectors[n],
		}
	}

	collection := CollectionName(ws.ID)
	if err := i.index.EnsureCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to ensure vector collection: %w", err)
	}
	if err := i.index.DeleteDocument(ctx, collection, doc.ID); err != nil {
		return fmt.Errorf("failed to delete old vectors: %w", err)
	}
	if err := i.index.Upsert(ctx, collection, records); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}

	doc.Chunks = len(chunks)
	return nil
}

func (i *Ingestor) embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch, err := i.embedder.EmbedDocuments(ctx, model, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("failed to embed chunks: got %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
