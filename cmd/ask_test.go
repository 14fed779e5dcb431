package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/src/core/docqa"
)

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &docqa.Answer{
		SessionID: "s-1",
		Content:   "It is 42.",
		Sources: []docqa.SearchResultChunk{
			{Filename: "guide.pdf", Page: 3, Score: 0.8123, Content: "  The answer is 42.\n"},
		},
	})

	assert.Equal(t, "It is 42.\n\nSources:\n[1] guide.pdf, page 3 (score 0.812)\nThe answer is 42.\n\nsession: s-1\n", buf.String())
}

func TestCollectQueue(t *testing.T) {
	q := &collectQueue{}
	require.NoError(t, q.Submit(context.Background(), 1))
	require.NoError(t, q.Submit(context.Background(), 2))
	assert.Equal(t, []int64{1, 2}, q.ids)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a:9200", "http://b:9200"}, splitList("http://a:9200, http://b:9200"))
	assert.Empty(t, splitList(""))
}
