package docqa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docchat/src/infrastructure/metrics"
	"docchat/src/log"
)

type chatService struct {
	cfg        Config
	workspaces WorkspaceRepository
	documents  DocumentRepository
	chunks     ChunkRepository
	search     SearchService
	model      ChatModel
	history    ChatStore
	metrics    *metrics.Metrics
}

func NewChatService(cfg Config, workspaces WorkspaceRepository, documents DocumentRepository, chunks ChunkRepository, search SearchService, model ChatModel, history ChatStore, m *metrics.Metrics) ChatService {
	return &chatService{
		cfg:        cfg.withDefaults(),
		workspaces: workspaces,
		documents:  documents,
		chunks:     chunks,
		search:     search,
		model:      model,
		history:    history,
		metrics:    m,
	}
}

// Ask retrieves the chunks closest to the question, stuffs them into one prompt
// together with the recent turns of the session and asks the chat model.
func (s *chatService) Ask(ctx context.Context, workspaceID int64, req AskRequest) (answer *Answer, err error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}

	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.QuestionAnswered(status, time.Since(start))
	}()

	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	var turns []ChatMessage
	if s.cfg.HistoryTurns > 0 {
		turns, err = s.history.List(ctx, sessionID, s.cfg.HistoryTurns)
		if err != nil {
			return nil, fmt.Errorf("failed to load chat history: %w", err)
		}
	}

	sources, err := s.search.Search(ctx, workspaceID, SearchRequest{
		Query:       question,
		DocumentIDs: req.DocumentIDs,
		TopK:        req.TopK,
		Hybrid:      req.Hybrid,
	})
	if err != nil {
		return nil, err
	}
	sources = fitContext(sources, s.cfg.MaxContextTokens)

	system, err := executeTemplate(answerTemplate, promptData{Question: question, Chunks: sources})
	if err != nil {
		return nil, err
	}

	messages := make([]PromptMessage, 0, len(turns)+2)
	messages = append(messages, PromptMessage{Role: RoleSystem, Content: system})
	for _, t := range turns {
		messages = append(messages, PromptMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, PromptMessage{Role: RoleUser, Content: question})

	reply, err := s.model.Chat(ctx, ws.ChatModel, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	now := time.Now().UTC()
	userMsg := ChatMessage{
		SessionID: sessionID,
		MessageID: uuid.New().String(),
		Role:      RoleUser,
		Content:   question,
		CreatedAt: now,
	}
	assistantMsg := ChatMessage{
		SessionID: sessionID,
		MessageID: uuid.New().String(),
		Role:      RoleAssistant,
		Content:   reply,
		CreatedAt: now,
	}
	if err := s.history.Append(ctx, userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save chat message: %w", err)
	}

	log.Debug("question answered", "workspaceID", workspaceID, "sessionID", sessionID, "sources", len(sources))

	answer = &Answer{
		SessionID: sessionID,
		MessageID: assistantMsg.MessageID,
		Content:   reply,
		CreatedAt: now,
	}
	if req.IncludeSources {
		answer.Sources = sources
	}
	return answer, nil
}

func (s *chatService) History(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	msgs, err := s.history.List(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if len(msgs) == 0 {
		return nil, ErrSessionNotFound
	}
	return msgs, nil
}

func (s *chatService) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	return s.history.Delete(ctx, sessionID)
}

// Summarize asks the chat model to summarize the opening chunks of a ready document
func (s *chatService) Summarize(ctx context.Context, workspaceID, documentID int64) (answer *Answer, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.QuestionAnswered(status, time.Since(start))
	}()

	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.WorkspaceID != workspaceID {
		return nil, ErrDocumentNotFound
	}
	if doc.Status != StatusReady {
		return nil, fmt.Errorf("%w: status is %s", ErrDocumentNotReady, doc.Status)
	}

	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunks.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	sources := make([]SearchResultChunk, len(chunks))
	for i, c := range chunks {
		sources[i] = SearchResultChunk{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Filename:   doc.Filename,
			Page:       c.Page,
			Order:      c.Order,
			Content:    c.Content,
		}
	}
	sources = fitContext(sources, s.cfg.MaxContextTokens)

	prompt, err := executeTemplate(summaryTemplate, promptData{Question: SummaryQuestion, Chunks: sources})
	if err != nil {
		return nil, err
	}

	reply, err := s.model.Chat(ctx, ws.ChatModel, []PromptMessage{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	return &Answer{
		MessageID: uuid.New().String(),
		Content:   reply,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}, nil
}
