package weaviate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// SDK encapsulates all Weaviate operations
type SDK struct {
	client *weaviate.Client
}

// NewClient connects to a Weaviate node, host is host:port
func NewClient(host, scheme string) (*weaviate.Client, error) {
	if scheme == "" {
		scheme = "http"
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return client, nil
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// EnsureSchema creates the class unless it already exists
func (w *SDK) EnsureSchema(ctx context.Context, className string, properties []*models.Property, vectorizer string) error {
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      className,
		Properties: properties,
		Vectorizer: vectorizer,
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %w", err)
	}
	return nil
}

// DeleteSchema deletes a class schema from Weaviate, a missing class is not an error
func (w *SDK) DeleteSchema(ctx context.Context, className string) error {
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %w", err)
	}
	if !exists {
		return nil
	}

	if err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete Weaviate class: %w", err)
	}
	return nil
}

// VectorObject represents a single object with its vector and properties
type VectorObject struct {
	ID         string
	Vector     []float32
	Properties map[string]interface{}
}

// BatchAddVectors writes the objects in one batch; objects with an existing ID are replaced
func (w *SDK) BatchAddVectors(ctx context.Context, className string, objects []VectorObject) error {
	if len(objects) == 0 {
		return nil
	}

	objs := make([]*models.Object, len(objects))
	for i, obj := range objects {
		objs[i] = &models.Object{
			Class:      className,
			ID:         strfmt.UUID(obj.ID),
			Properties: obj.Properties,
			Vector:     obj.Vector,
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add vectors: %w", err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("failed to add vector %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteWhere removes every object of the class matching the filter
func (w *SDK) DeleteWhere(ctx context.Context, className string, where *filters.WhereBuilder) error {
	resp, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithOutput("minimal").
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if resp != nil && resp.Results != nil && resp.Results.Failed > 0 {
		return fmt.Errorf("failed to delete %d vectors", resp.Results.Failed)
	}
	return nil
}

// QueryConfig represents configuration for vector similarity search
type QueryConfig struct {
	Fields []string // Fields to return in the result
	Limit  int      // Maximum number of results
	Where  *filters.WhereBuilder
}

const DefaultQueryLimit = 20

// QueryResult represents a single result from vector similarity search
type QueryResult struct {
	ID string
	// Score is higher for better matches: 1-distance for vector queries, the fused score for hybrid ones
	Score      float64
	Properties map[string]interface{}
}

// QueryVectors performs vector similarity search in a class
func (w *SDK) QueryVectors(ctx context.Context, className string, vector []float32, config QueryConfig) ([]QueryResult, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	query := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(queryFields(config.Fields, "_additional { id distance }")...).
		WithNearVector(nearVector).
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
		return 1 - toFloat(additional["distance"])
	}), nil
}

// Count returns the number of objects stored in a class
func (w *SDK) Count(ctx context.Context, className string) (int, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate class: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("failed to aggregate class: %s", result.Errors[0].Message)
	}

	aggregate, _ := result.Data["Aggregate"].(map[string]interface{})
	groups, _ := aggregate[className].([]interface{})
	if len(groups) == 0 {
		return 0, nil
	}
	group, _ := groups[0].(map[string]interface{})
	meta, _ := group["meta"].(map[string]interface{})
	return int(toFloat(meta["count"])), nil
}

// Ready reports whether the node accepts requests
func (w *SDK) Ready(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("weaviate is not ready")
	}
	return nil
}

func queryFields(names []string, additional string) []graphql.Field {
	fields := make([]graphql.Field, 0, len(names)+1)
	for _, name := range names {
		fields = append(fields, graphql.Field{Name: name})
	}
	return append(fields, graphql.Field{Name: additional})
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}

func parseResults(data map[string]models.JSONObject, className string, score func(map[string]interface{}) float64) []QueryResult {
	var queryResults []QueryResult
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := get[className].([]interface{})
	if !ok {
		return nil
	}

	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		additional, _ := objMap["_additional"].(map[string]interface{})

		properties := make(map[string]interface{})
		for k, v := range objMap {
			if k != "_additional" {
				properties[k] = v
			}
		}

		id, _ := additional["id"].(string)
		queryResults = append(queryResults, QueryResult{
			ID:         id,
			Score:      score(additional),
			Properties: properties,
		})
	}
	return queryResults
}

// toFloat reads numbers that GraphQL returns either as JSON numbers or as strings
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}
