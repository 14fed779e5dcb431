package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vk "github.com/valkey-io/valkey-go"

	"docchat/src/core/docqa"
)

const (
	chatPrefix      = "chat:"      // Chat history list per session
	embeddingPrefix = "embedding:" // Cached vectors by content hash
)

// Store keeps chat sessions and cached embeddings in valkey
type Store struct {
	client       vk.Client
	historyTTL   time.Duration
	embeddingTTL time.Duration
}

// NewClient connects to a single valkey node
func NewClient(address string) (vk.Client, error) {
	client, err := vk.NewClient(vk.ClientOption{InitAddress: []string{address}})
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}
	return client, nil
}

// NewStore creates a store; a zero TTL keeps keys forever
func NewStore(client vk.Client, historyTTL, embeddingTTL time.Duration) *Store {
	return &Store{
		client:       client,
		historyTTL:   historyTTL,
		embeddingTTL: embeddingTTL,
	}
}

// Append pushes messages to the end of their session lists and refreshes the TTL
func (s *Store) Append(ctx context.Context, msgs ...docqa.ChatMessage) error {
	bySession := make(map[string][]string)
	var order []string
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode chat message: %w", err)
		}
		if _, ok := bySession[msg.SessionID]; !ok {
			order = append(order, msg.SessionID)
		}
		bySession[msg.SessionID] = append(bySession[msg.SessionID], string(data))
	}

	cmds := make(vk.Commands, 0, 2*len(order))
	for _, sessionID := range order {
		key := chatPrefix + sessionID
		cmds = append(cmds, s.client.B().Rpush().Key(key).Element(bySession[sessionID]...).Build())
		if s.historyTTL > 0 {
			cmds = append(cmds, s.client.B().Expire().Key(key).Seconds(int64(s.historyTTL.Seconds())).Build())
		}
	}

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to save chat message: %w", err)
		}
	}
	return nil
}

// List returns the last limit messages of a session, oldest first
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]docqa.ChatMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	items, err := s.client.Do(ctx, s.client.B().Lrange().Key(chatPrefix+sessionID).Start(start).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	messages := make([]docqa.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg docqa.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(chatPrefix+sessionID).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}

// GetVectors looks the keys up with one MGET; misses come back as nil
func (s *Store) GetVectors(ctx context.Context, keys []string) ([][]float32, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = embeddingPrefix + k
	}

	values, err := s.client.Do(ctx, s.client.B().Mget().Key(full...).Build()).ToArray()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached embeddings: %w", err)
	}

	vectors := make([][]float32, len(keys))
	for i, v := range values {
		if i >= len(vectors) {
			break
		}
		raw, err := v.ToString()
		if err != nil {
			if vk.IsValkeyNil(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read cached embedding: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			// treat an unreadable entry as a miss; it is overwritten on the next store
			continue
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (s *Store) SetVectors(ctx context.Context, keys []string, vectors [][]float32) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d keys", len(vectors), len(keys))
	}

	cmds := make(vk.Commands, 0, len(keys))
	for i, k := range keys {
		data, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		if s.embeddingTTL > 0 {
			cmds = append(cmds, s.client.B().Set().Key(embeddingPrefix+k).Value(string(data)).ExSeconds(int64(s.embeddingTTL.Seconds())).Build())
		} else {
			cmds = append(cmds, s.client.B().Set().Key(embeddingPrefix+k).Value(string(data)).Build())
		}
	}

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to cache embedding: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}
