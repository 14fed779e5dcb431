package docqa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHealth(t *testing.T) {
	up := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("dial tcp: connection refused") })

	status, err := NewSystemService(map[string]Pinger{"postgres": up, "valkey": up}).CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, ComponentUp, status.Components["postgres"])

	status, err = NewSystemService(map[string]Pinger{"postgres": up, "weaviate": down}).CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, ComponentUp, status.Components["postgres"])
	assert.Equal(t, ComponentDown, status.Components["weaviate"])
}
