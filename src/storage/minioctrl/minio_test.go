package minioctrl

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against MINIO_ENDPOINT with the default minioadmin credentials
func TestRoundTrip(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}

	svc, err := NewMinioService(endpoint, "minioadmin", "minioadmin", false, "docchat-test")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.EnsureBucketExists(ctx))

	prefix := uuid.New().String()
	key := prefix + "/1/notes.txt"
	require.NoError(t, svc.Put(ctx, key, []byte("hello"), "text/plain"))

	data, err := svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, svc.DeletePrefix(ctx, prefix))
	_, err = svc.Get(ctx, key)
	assert.Error(t, err)
	assert.NoError(t, svc.Ping(ctx))
}
