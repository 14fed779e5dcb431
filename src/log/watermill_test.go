package log

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
)

func TestWatermillAdapter(t *testing.T) {
	var lines []string
	prev := Logger()
	defer SetLogger(prev)

	SetLogger(funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 2}))

	adapter := Watermill().With(watermill.LogFields{"topic": "jobs"})
	adapter.Info("subscribed", watermill.LogFields{"handler": "ingest"})
	adapter.Error("handler failed", errors.New("boom"), nil)
	adapter.Trace("tick", nil)

	if assert.Len(t, lines, 3) {
		assert.Contains(t, lines[0], `"topic"="jobs"`)
		assert.Contains(t, lines[0], `"handler"="ingest"`)
		assert.Contains(t, lines[1], `"error"="boom"`)
		assert.Contains(t, lines[2], "tick")
	}
}
