package docqa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"docchat/src/log"
)

// CachedEmbedder serves repeated texts from an EmbeddingCache and embeds only the misses
type CachedEmbedder struct {
	next  Embedder
	cache EmbeddingCache
}

func NewCachedEmbedder(next Embedder, cache EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache}
}

func (e *CachedEmbedder) EmbedDocuments(ctx context.Context, model string, texts []string) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = embeddingKey(model, t)
	}

	vectors, err := e.cache.GetVectors(ctx, keys)
	if err != nil || len(vectors) != len(texts) {
		// a broken cache must not stop ingestion
		if err != nil {
			log.Error(err, "embedding cache lookup failed")
		}
		vectors = make([][]float32, len(texts))
	}

	var (
		missIdx   []int
		missTexts []string
	)
	for i, v := range vectors {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := e.next.EmbedDocuments(ctx, model, missTexts)
	if err != nil {
		return nil, err
	}

	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	missKeys := make([]string, len(missIdx))
	for n, i := range missIdx {
		vectors[i] = fresh[n]
		missKeys[n] = keys[i]
	}
	if err := e.cache.SetVectors(ctx, missKeys, fresh); err != nil {
		log.Error(err, "failed to store embeddings in cache")
	}

	log.Debug("embedded texts", "model", model, "cached", len(texts)-len(missTexts), "embedded", len(missTexts))
	return vectors, nil
}

func (e *CachedEmbedder) EmbedQuery(ctx context.Context, model string, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func embeddingKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
