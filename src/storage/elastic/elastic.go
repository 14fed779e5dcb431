// Package elastic stores chunk vectors in Elasticsearch dense_vector indices.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"docchat/src/core/docqa"
)

const indexPrefix = "docchat-"

// Index implements docqa.VectorIndex with one index per workspace
type Index struct {
	es *elasticsearch.Client
}

func NewClient(addresses []string, transport http.RoundTripper) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

func NewIndex(es *elasticsearch.Client) *Index {
	return &Index{es: es}
}

// IndexName maps a collection to an Elasticsearch index name
func IndexName(collection string) string {
	return indexPrefix + strings.ToLower(collection)
}

// document is the stored form of a chunk; IDs are keywords to keep int64 precision
type document struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Page       int       `json:"page"`
	Order      int       `json:"order"`
	Content    string    `json:"content"`
	Vector     []float32 `json:"vector,omitempty"`
}

var mapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"chunk_id":    map[string]any{"type": "keyword"},
			"document_id": map[string]any{"type": "keyword"},
			"filename":    map[string]any{"type": "keyword"},
			"page":        map[string]any{"type": "integer"},
			"order":       map[string]any{"type": "integer"},
			"content":     map[string]any{"type": "text"},
			"vector": map[string]any{
				"type":       "dense_vector",
				"index":      true,
				"similarity": "cosine",
			},
		},
	},
}

func (x *Index) EnsureCollection(ctx context.Context, name string) error {
	index := IndexName(name)

	res, err := x.es.Indices.Exists([]string{index}, x.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	res, err = x.es.Indices.Create(index,
		x.es.Indices.Create.WithBody(bytes.NewReader(body)),
		x.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		err := responseError("create index", res)
		// another instance may have created it in between
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return err
	}
	return nil
}

func (x *Index) DropCollection(ctx context.Context, name string) error {
	res, err := x.es.Indices.Delete([]string{IndexName(name)},
		x.es.Indices.Delete.WithIgnoreUnavailable(true),
		x.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("delete index", res)
	}
	return nil
}

func (x *Index) Upsert(ctx context.Context, name string, records []docqa.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		meta := map[string]any{"index": map[string]any{"_id": formatID(r.ChunkID)}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(document{
			ChunkID:    formatID(r.ChunkID),
			DocumentID: formatID(r.DocumentID),
			Filename:   r.Filename,
			Page:       r.Page,
			Order:      r.Order,
			Content:    r.Content,
			Vector:     r.Vector,
		}); err != nil {
			return err
		}
	}

	res, err := x.es.Bulk(&buf,
		x.es.Bulk.WithIndex(IndexName(name)),
		x.es.Bulk.WithRefresh("true"),
		x.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("bulk index", res)
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse bulk response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Status >= 300 {
					return fmt.Errorf("failed to index chunk: %s: %s", op.Error.Type, op.Error.Reason)
				}
			}
		}
	}
	return nil
}

func (x *Index) DeleteDocument(ctx context.Context, name string, documentID int64) error {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"document_id": formatID(documentID)}},
	})
	if err != nil {
		return err
	}

	res, err := x.es.DeleteByQuery([]string{IndexName(name)}, bytes.NewReader(body),
		x.es.DeleteByQuery.WithRefresh(true),
		x.es.DeleteByQuery.WithConflicts("proceed"),
		x.es.DeleteByQuery.WithIgnoreUnavailable(true),
		x.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("delete by query", res)
	}
	return nil
}

// Search runs a kNN query; hybrid adds a match on content and Elasticsearch sums both scores
func (x *Index) Search(ctx context.Context, name string, query docqa.SearchQuery) ([]docqa.SearchResultChunk, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = docqa.DefaultTopK
	}

	var filter []any
	if len(query.DocumentIDs) > 0 {
		ids := make([]string, len(query.DocumentIDs))
		for i, id := range query.DocumentIDs {
			ids[i] = formatID(id)
		}
		filter = append(filter, map[string]any{"terms": map[string]any{"document_id": ids}})
	}

	knn := map[string]any{
		"field":          "vector",
		"query_vector":   query.Vector,
		"k":              limit,
		"num_candidates": max(limit*10, 100),
	}
	if filter != nil {
		knn["filter"] = filter
	}

	req := map[string]any{
		"size":    limit,
		"knn":     knn,
		"_source": []string{"chunk_id", "document_id", "filename", "page", "order", "content"},
	}
	if query.Hybrid && strings.TrimSpace(query.Text) != "" {
		alpha := query.Alpha
		if alpha < 0 || alpha > 1 {
			alpha = docqa.DefaultHybridAlpha
		}
		knn["boost"] = alpha
		boolQuery := map[string]any{
			"must": map[string]any{
				"match": map[string]any{"content": map[string]any{"query": query.Text, "boost": 1 - alpha}},
			},
		}
		if filter != nil {
			boolQuery["filter"] = filter
		}
		req["query"] = map[string]any{"bool": boolQuery}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	res, err := x.es.Search(
		x.es.Search.WithIndex(IndexName(name)),
		x.es.Search.WithBody(bytes.NewReader(body)),
		x.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	chunks := make([]docqa.SearchResultChunk, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		chunks = append(chunks, docqa.SearchResultChunk{
			ChunkID:    parseID(hit.Source.ChunkID),
			DocumentID: parseID(hit.Source.DocumentID),
			Filename:   hit.Source.Filename,
			Page:       hit.Source.Page,
			Order:      hit.Source.Order,
			Content:    hit.Source.Content,
			Score:      hit.Score,
		})
	}
	return chunks, nil
}

func (x *Index) Count(ctx context.Context, name string) (int, error) {
	res, err := x.es.Count(
		x.es.Count.WithIndex(IndexName(name)),
		x.es.Count.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if res.IsError() {
		return 0, responseError("count", res)
	}

	var result struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse count response: %w", err)
	}
	return result.Count, nil
}

func (x *Index) Ping(ctx context.Context) error {
	res, err := x.es.Ping(x.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	var e struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Reason != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, e.Error.Type, e.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: %s %s", op, res.Status(), strings.TrimSpace(string(raw)))
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}
