package weaviate

import (
	"context"
	"fmt"
)

const DefaultHybridAlpha = 0.75

// HybridConfig contains configuration for hybrid search
type HybridConfig struct {
	QueryConfig
	Query string  // Text query for BM25
	Alpha float32 // Weight for vector search, 1 is pure vector and 0 pure BM25
}

// QueryHybrid performs hybrid search combining vector similarity and BM25
func (w *SDK) QueryHybrid(ctx context.Context, className string, vector []float32, config HybridConfig) ([]QueryResult, error) {
	alpha := config.Alpha
	if alpha < 0 || alpha > 1 {
		alpha = DefaultHybridAlpha
	}

	hybrid := w.client.GraphQL().HybridArgumentBuilder().
		WithVector(vector).
		WithQuery(config.Query).
		WithAlpha(alpha)

	query := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(queryFields(config.Fields, "_additional { id score }")...).
		WithHybrid(hybrid).
		WithLimit(limitOrDefault(config.Limit))
	if config.Where != nil {
		query = query.WithWhere(config.Where)
	}

	result, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to query vectors: %s", result.Errors[0].Message)
	}

	return parseResults(result.Data, className, func(additional map[string]interface{}) float64 {
		return toFloat(additional["score"])
	}), nil
}
