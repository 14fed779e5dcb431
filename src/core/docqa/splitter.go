package docqa

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"docchat/src/core/loader"
)

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
)

// Splitter cuts page text into overlapping chunks sized in estimated tokens
type Splitter struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > size/2 {
		overlap = size / 2
	}

	return &Splitter{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithLenFunc(estimateTokens),
		),
	}
}

// Split returns the chunks of every page, numbered in reading order
func (s *Splitter) Split(pages []loader.Page) ([]Chunk, error) {
	var chunks []Chunk
	for _, page := range pages {
		parts, err := s.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d: %w", page.Number, err)
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Page:    page.Number,
				Order:   len(chunks),
				Content: part,
			})
		}
	}
	return chunks, nil
}
