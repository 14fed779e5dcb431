package docqa

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type searchService struct {
	cfg        Config
	workspaces WorkspaceRepository
	index      VectorIndex
	embedder   Embedder
}

func NewSearchService(cfg Config, workspaces WorkspaceRepository, index VectorIndex, embedder Embedder) SearchService {
	return &searchService{
		cfg:        cfg.withDefaults(),
		workspaces: workspaces,
		index:      index,
		embedder:   embedder,
	}
}

func (s *searchService) Search(ctx context.Context, workspaceID int64, req SearchRequest) ([]SearchResultChunk, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if req.TopK < 0 {
		return nil, fmt.Errorf("%w: topK must not be negative", ErrInvalidRequest)
	}

	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	limit := req.TopK
	if limit == 0 {
		limit = s.cfg.TopK
	}
	if limit > MaxTopK {
		limit = MaxTopK
	}

	vector, err := s.embedder.EmbedQuery(ctx, ws.EmbeddingModel, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.index.Search(ctx, CollectionName(ws.ID), SearchQuery{
		Vector:      vector,
		Text:        query,
		Limit:       limit,
		DocumentIDs: req.DocumentIDs,
		Hybrid:      req.Hybrid,
		Alpha:       *s.cfg.HybridAlpha,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
