package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"docchat/src/core/docqa"
	"docchat/src/log"
)

const (
	DefaultURL = "http://localhost:11434"
)

// ErrTruncated is returned when the model stopped because it ran out of context
type ErrTruncated struct {
	Message string
}

func (e *ErrTruncated) Error() string {
	return e.Message
}

// Client implements docqa.Embedder and docqa.ChatModel on top of the Ollama API
type Client struct {
	api *api.Client
}

// NewClient creates a new Ollama API client
func NewClient(baseURL string, c *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	// older configs point at the /api prefix, the SDK adds it itself
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/api")

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	if c == nil {
		c = http.DefaultClient
	}

	return &Client{api: api.NewClient(u, c)}, nil
}

// EmbedDocuments embeds all texts in one request
func (c *Client) EmbedDocuments(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.api.Embed(ctx, &api.EmbedRequest{
		Model: model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("error embedding with %s: %w", model, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, model string, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Chat sends the conversation and waits for the complete reply
func (c *Client) Chat(ctx context.Context, model string, messages []docqa.PromptMessage) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: make([]api.Message, len(messages)),
		Stream:   &stream,
	}
	for i, m := range messages {
		req.Messages[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	var (
		reply      strings.Builder
		doneReason string
	)
	err := c.api.Chat(ctx, req, func(r api.ChatResponse) error {
		reply.WriteString(r.Message.Content)
		if r.Done {
			doneReason = r.DoneReason
		}
		return nil
	})
	if err != nil {
		log.Error(err, "failed to make request to ollama", "model", model)
		return "", fmt.Errorf("error generating with %s: %w", model, err)
	}

	if doneReason == "length" {
		return "", &ErrTruncated{Message: "Response was truncated by the model"}
	}
	if reply.Len() == 0 {
		return "", fmt.Errorf("no response received from Ollama")
	}
	return reply.String(), nil
}

// Ping reports whether the Ollama server answers
func (c *Client) Ping(ctx context.Context) error {
	return c.api.Heartbeat(ctx)
}
