package weaviate

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate/entities/models"

	"docchat/src/core/docqa"
)

// chunkNamespace derives stable object IDs from chunk IDs
var chunkNamespace = uuid.MustParse("6f1c3a8e-8f5b-4c53-9a55-3c3bbd2b9e41")

var returnedFields = []string{"chunkId", "documentId", "filename", "page", "order", "content"}

// Index stores chunk vectors with one Weaviate class per workspace
type Index struct {
	sdk *SDK
}

func NewIndex(sdk *SDK) *Index {
	return &Index{sdk: sdk}
}

func (x *Index) EnsureCollection(ctx context.Context, name string) error {
	// IDs are stored as text, GraphQL numbers are float64 and would lose precision
	properties := []*models.Property{
		{Name: "chunkId", DataType: []string{"text"}, Description: "ID of the chunk row"},
		{Name: "documentId", DataType: []string{"text"}, Description: "ID of the source document"},
		{Name: "filename", DataType: []string{"text"}, Description: "Name of the uploaded file"},
		{Name: "page", DataType: []string{"int"}, Description: "Page the chunk was taken from"},
		{Name: "order", DataType: []string{"int"}, Description: "Order of the chunk within the document"},
		{Name: "content", DataType: []string{"text"}, Description: "The content of the chunk"},
	}
	return x.sdk.EnsureSchema(ctx, name, properties, "none")
}

func (x *Index) DropCollection(ctx context.Context, name string) error {
	return x.sdk.DeleteSchema(ctx, name)
}

func (x *Index) Upsert(ctx context.Context, name string, records []docqa.VectorRecord) error {
	objects := make([]VectorObject, len(records))
	for i, r := range records {
		objects[i] = VectorObject{
			ID:     ObjectID(r.ChunkID),
			Vector: r.Vector,
			Properties: map[string]interface{}{
				"chunkId":    formatID(r.ChunkID),
				"documentId": formatID(r.DocumentID),
				"filename":   r.Filename,
				"page":       r.Page,
				"order":      r.Order,
				"content":    r.Content,
			},
		}
	}
	return x.sdk.BatchAddVectors(ctx, name, objects)
}

func (x *Index) DeleteDocument(ctx context.Context, name string, documentID int64) error {
	return x.sdk.DeleteWhere(ctx, name, documentFilter([]int64{documentID}))
}

func (x *Index) Search(ctx context.Context, name string, query docqa.SearchQuery) ([]docqa.SearchResultChunk, error) {
	cfg := QueryConfig{
		Fields: returnedFields,
		Limit:  query.Limit,
		Where:  documentFilter(query.DocumentIDs),
	}

	var (
		results []QueryResult
		err     error
	)
	if query.Hybrid {
		results, err = x.sdk.QueryHybrid(ctx, name, query.Vector, HybridConfig{
			QueryConfig: cfg,
			Query:       query.Text,
			Alpha:       query.Alpha,
		})
	} else {
		results, err = x.sdk.QueryVectors(ctx, name, query.Vector, cfg)
	}
	if err != nil {
		return nil, err
	}

	chunks := make([]docqa.SearchResultChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, docqa.SearchResultChunk{
			ChunkID:    parseID(r.Properties["chunkId"]),
			DocumentID: parseID(r.Properties["documentId"]),
			Filename:   stringProp(r.Properties["filename"]),
			Page:       int(toFloat(r.Properties["page"])),
			Order:      int(toFloat(r.Properties["order"])),
			Content:    stringProp(r.Properties["content"]),
			Score:      r.Score,
		})
	}
	return chunks, nil
}

func (x *Index) Count(ctx context.Context, name string) (int, error) {
	return x.sdk.Count(ctx, name)
}

func (x *Index) Ping(ctx context.Context) error {
	return x.sdk.Ready(ctx)
}

// ObjectID is the Weaviate object UUID of a chunk
func ObjectID(chunkID int64) string {
	return uuid.NewSHA1(chunkNamespace, []byte(formatID(chunkID))).String()
}

// documentFilter matches any of the given documents, nil when there is nothing to filter
func documentFilter(ids []int64) *filters.WhereBuilder {
	if len(ids) == 0 {
		return nil
	}
	equal := func(id int64) *filters.WhereBuilder {
		return filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueText(formatID(id))
	}
	if len(ids) == 1 {
		return equal(ids[0])
	}

	operands := make([]*filters.WhereBuilder, len(ids))
	for i, id := range ids {
		operands[i] = equal(id)
	}
	return filters.Where().WithOperator(filters.Or).WithOperands(operands)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(v interface{}) int64 {
	s, _ := v.(string)
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func stringProp(v interface{}) string {
	s, _ := v.(string)
	return s
}
