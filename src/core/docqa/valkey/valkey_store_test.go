package valkey

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/src/core/docqa"
)

// newTestStore connects to VALKEY_ADDR and skips the test when it is not set
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		t.Skip("VALKEY_ADDR not set")
	}
	client, err := NewClient(addr)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return NewStore(client, time.Minute, time.Minute)
}

func TestChatHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := uuid.New().String()
	t.Cleanup(func() { s.Delete(context.Background(), session) })

	for i, content := range []string{"q1", "a1", "q2", "a2"} {
		role := docqa.RoleUser
		if i%2 == 1 {
			role = docqa.RoleAssistant
		}
		require.NoError(t, s.Append(ctx, docqa.ChatMessage{
			SessionID: session,
			MessageID: uuid.New().String(),
			Role:      role,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}))
	}

	all, err := s.List(ctx, session, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "q1", all[0].Content)

	last, err := s.List(ctx, session, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "q2", last[0].Content)
	assert.Equal(t, docqa.RoleAssistant, last[1].Role)

	require.NoError(t, s.Delete(ctx, session))
	empty, err := s.List(ctx, session, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbeddingCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hit := "test-" + uuid.New().String()
	miss := "test-" + uuid.New().String()

	require.NoError(t, s.SetVectors(ctx, []string{hit}, [][]float32{{0.25, -1, 3}}))

	vectors, err := s.GetVectors(ctx, []string{miss, hit})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Nil(t, vectors[0])
	assert.Equal(t, []float32{0.25, -1, 3}, vectors[1])

	assert.NoError(t, s.Ping(ctx))
}
