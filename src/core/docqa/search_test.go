package docqa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ingestText uploads and ingests a text document, failing the test on error
func ingestText(t *testing.T, f *fixture, workspaceID int64, filename, content string) *Document {
	t.Helper()
	ctx := context.Background()
	doc, err := f.documentSvc.Upload(ctx, workspaceID, filename, []byte(content))
	require.NoError(t, err)
	require.NoError(t, f.ingestor(newTextLoader()).Ingest(ctx, doc.ID))
	return doc
}

func TestSearchRanksByScore(t *testing.T) {
	f := newFixture(Config{})
	ws := newWorkspace(t, f, 0)

	ingestText(t, f, ws.ID, "weather.txt", "rain expected later today")
	invoice := ingestText(t, f, ws.ID, "invoice.txt", "the invoice total is due now")

	results, err := f.searchSvc.Search(context.Background(), ws.ID, SearchRequest{Query: "invoice total"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, invoice.ID, results[0].DocumentID)
	assert.Equal(t, "invoice.txt", results[0].Filename)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchLimits(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		topK      int
		wantLimit int
	}{
		{"default", Config{}, 0, DefaultTopK},
		{"configured default", Config{TopK: 7}, 0, 7},
		{"requested", Config{}, 2, 2},
		{"capped", Config{}, 100, MaxTopK},
		{"configured above cap", Config{TopK: 50}, 0, MaxTopK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.cfg)
			ws := newWorkspace(t, f, 0)

			_, err := f.searchSvc.Search(context.Background(), ws.ID, SearchRequest{Query: "q", TopK: tt.topK})
			require.NoError(t, err)
			require.Len(t, f.index.queries, 1)
			assert.Equal(t, tt.wantLimit, f.index.queries[0].Limit)
		})
	}
}

func TestSearchPassesFilters(t *testing.T) {
	alpha := float32(0.5)
	f := newFixture(Config{HybridAlpha: &alpha})
	ws := newWorkspace(t, f, 0)

	a := ingestText(t, f, ws.ID, "a.txt", "alpha topic")
	ingestText(t, f, ws.ID, "b.txt", "alpha topic")

	results, err := f.searchSvc.Search(context.Background(), ws.ID, SearchRequest{
		Query:       "alpha",
		DocumentIDs: []int64{a.ID},
		Hybrid:      true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].DocumentID)

	q := f.index.queries[0]
	assert.True(t, q.Hybrid)
	assert.Equal(t, "alpha", q.Text)
	assert.InDelta(t, 0.5, q.Alpha, 1e-6)
}

func TestSearchValidation(t *testing.T) {
	f := newFixture(Config{})
	ws := newWorkspace(t, f, 0)
	ctx := context.Background()

	_, err := f.searchSvc.Search(ctx, ws.ID, SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.searchSvc.Search(ctx, ws.ID, SearchRequest{Query: "q", TopK: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.searchSvc.Search(ctx, ws.ID+1, SearchRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}
