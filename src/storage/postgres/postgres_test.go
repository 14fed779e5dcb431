package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docchat/src/core/docqa"
	"docchat/src/storage/postgres/chunkctrl"
	"docchat/src/storage/postgres/documentctrl"
	"docchat/src/storage/postgres/workspacectrl"
)

// openTestDB connects to POSTGRES_DSN and skips the test when it is not set
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	workspaces, err := workspacectrl.NewRepository(db)
	require.NoError(t, err)
	documents, err := documentctrl.NewRepository(db)
	require.NoError(t, err)
	chunks, err := chunkctrl.NewChunkService(db)
	require.NoError(t, err)

	ws := &docqa.Workspace{Name: "it", EmbeddingModel: "e", ChatModel: "c", MaxDocuments: 2}
	require.NoError(t, workspaces.Create(ctx, ws))
	t.Cleanup(func() { workspaces.Delete(context.Background(), ws.ID) })

	doc := &docqa.Document{WorkspaceID: ws.ID, Filename: "a.txt", MediaType: "text/plain", Size: 5, Status: docqa.StatusPending}
	require.NoError(t, documents.Create(ctx, doc, ws.MaxDocuments))
	t.Cleanup(func() { documents.Delete(context.Background(), doc.ID) })

	doc.Status = docqa.StatusReady
	doc.Chunks = 2
	require.NoError(t, documents.Update(ctx, doc))

	got, err := documents.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, docqa.StatusReady, got.Status)
	assert.Equal(t, 2, got.Chunks)

	second := &docqa.Document{WorkspaceID: ws.ID, Filename: "b.txt", MediaType: "text/plain", Size: 5, Status: docqa.StatusPending}
	require.NoError(t, documents.Create(ctx, second, ws.MaxDocuments))
	over := &docqa.Document{WorkspaceID: ws.ID, Filename: "c.txt", MediaType: "text/plain", Size: 5, Status: docqa.StatusPending}
	assert.ErrorIs(t, documents.Create(ctx, over, ws.MaxDocuments), docqa.ErrDocumentLimitExceeded)
	require.NoError(t, documents.Delete(ctx, second.ID))

	listed, err := documents.ListByWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	batch := []docqa.Chunk{{WorkspaceID: ws.ID, Page: 1, Order: 1, Content: "second"}, {WorkspaceID: ws.ID, Page: 1, Order: 0, Content: "first"}}
	require.NoError(t, chunks.Replace(ctx, doc.ID, batch))
	assert.NotZero(t, batch[0].ID)

	stored, err := chunks.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "first", stored[0].Content)

	require.NoError(t, chunks.DeleteByDocument(ctx, doc.ID))
	require.NoError(t, documents.Delete(ctx, doc.ID))
	_, err = documents.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, docqa.ErrDocumentNotFound)

	require.NoError(t, workspaces.Delete(ctx, ws.ID))
	assert.ErrorIs(t, workspaces.Delete(ctx, ws.ID), docqa.ErrWorkspaceNotFound)
}
