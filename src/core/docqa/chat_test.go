package docqa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskStuffsContextIntoPrompt(t *testing.T) {
	f := newFixture(Config{ChatModel: "llama3.2"})
	ws := newWorkspace(t, f, 0)
	ingestText(t, f, ws.ID, "invoice.txt", "the invoice total is 42 dollars")

	answer, err := f.chatSvc.Ask(context.Background(), ws.ID, AskRequest{Question: "What is the invoice total?"})
	require.NoError(t, err)

	assert.Equal(t, "It is 42.", answer.Content)
	assert.NotEmpty(t, answer.SessionID)
	assert.NotEmpty(t, answer.MessageID)
	assert.Empty(t, answer.Sources)

	assert.Equal(t, "llama3.2", f.model.model)
	require.Len(t, f.model.messages, 2)
	assert.Equal(t, RoleSystem, f.model.messages[0].Role)
	assert.Contains(t, f.model.messages[0].Content, "[1] invoice.txt, page 1")
	assert.Contains(t, f.model.messages[0].Content, "the invoice total is 42 dollars")
	assert.Equal(t, PromptMessage{Role: RoleUser, Content: "What is the invoice total?"}, f.model.messages[1])

	history, err := f.chatSvc.History(context.Background(), answer.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, answer.MessageID, history[1].MessageID)
}

func TestAskIncludesSourcesWhenRequested(t *testing.T) {
	f := newFixture(Config{})
	ws := newWorkspace(t, f, 0)
	doc := ingestText(t, f, ws.ID, "invoice.txt", "the invoice total is 42 dollars")

	answer, err := f.chatSvc.Ask(context.Background(), ws.ID, AskRequest{Question: "invoice total?", IncludeSources: true})
	require.NoError(t, err)

	require.Len(t, answer.Sources, 1)
	assert.Equal(t, doc.ID, answer.Sources[0].DocumentID)
	assert.Equal(t, "the invoice total is 42 dollars", answer.Sources[0].Content)
}

func TestAskReplaysSessionHistory(t *testing.T) {
	f := newFixture(Config{HistoryTurns: 2})
	ws := newWorkspace(t, f, 0)
	ctx := context.Background()

	first, err := f.chatSvc.Ask(ctx, ws.ID, AskRequest{Question: "first question"})
	require.NoError(t, err)
	_, err = f.chatSvc.Ask(ctx, ws.ID, AskRequest{SessionID: first.SessionID, Question: "second question"})
	require.NoError(t, err)
	_, err = f.chatSvc.Ask(ctx, ws.ID, AskRequest{SessionID: first.SessionID, Question: "third question"})
	require.NoError(t, err)

	msgs := f.model.messages
	require.Len(t, msgs, 4)
	assert.Equal(t, PromptMessage{Role: RoleUser, Content: "second question"}, msgs[1])
	assert.Equal(t, PromptMessage{Role: RoleAssistant, Content: "It is 42."}, msgs[2])
	assert.Equal(t, PromptMessage{Role: RoleUser, Content: "third question"}, msgs[3])

	history, err := f.chatSvc.History(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, history, 6)
}

func TestAskWithoutContextStillAsksModel(t *testing.T) {
	f := newFixture(Config{})
	ws := newWorkspace(t, f, 0)

	_, err := f.chatSvc.Ask(context.Background(), ws.ID, AskRequest{Question: "anything there?"})
	require.NoError(t, err)

	assert.Contains(t, f.model.messages[0].Content, "No relevant context was found")
}

func TestAskErrors(t *testing.T) {
	f := newFixture(Config{})
	ws := newWorkspace(t, f, 0)
	ctx := context.Background()

	_, err := f.chatSvc.Ask(ctx, ws.ID, AskRequest{Question: " "})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.chatSvc.Ask(ctx, ws.ID+1, AskRequest{Question: "q"})
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)

	f.model.err = errors.New("model not found")
	_, err = f.chatSvc.Ask(ctx, ws.ID, AskRequest{SessionID: "s1", Question: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")

	_, err = f.chatSvc.History(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "failed turns are not stored")
}

func TestReset(t *testing.T) {
	f := newFixture(Config{})
	ws := newWorkspace(t, f, 0)
	ctx := context.Background()

	answer, err := f.chatSvc.Ask(ctx, ws.ID, AskRequest{Question: "q"})
	require.NoError(t, err)

	require.NoError(t, f.chatSvc.Reset(ctx, answer.SessionID))
	_, err = f.chatSvc.History(ctx, answer.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, f.chatSvc.Reset(ctx, ""), ErrInvalidRequest)
}

func TestSummarize(t *testing.T) {
	f := newFixture(Config{ChunkSize: 8})
	ws := newWorkspace(t, f, 0)
	doc := ingestText(t, f, ws.ID, "memo.txt", "invoice total due now\n\nrain expected later today")

	f.model.reply = "An invoice and a forecast."
	answer, err := f.chatSvc.Summarize(context.Background(), ws.ID, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, "An invoice and a forecast.", answer.Content)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, 0, answer.Sources[0].Order)

	require.Len(t, f.model.messages, 1)
	prompt := f.model.messages[0].Content
	assert.Contains(t, prompt, SummaryQuestion)
	assert.Contains(t, prompt, "invoice total due now")
	assert.Contains(t, prompt, "rain expected later today")
}

func TestSummarizeRequiresReadyDocument(t *testing.T) {
	f := newFixture(Config{})
	ws := newWorkspace(t, f, 0)
	ctx := context.Background()

	doc, err := f.documentSvc.Upload(ctx, ws.ID, "a.txt", []byte("hello"))
	require.NoError(t, err)

	_, err = f.chatSvc.Summarize(ctx, ws.ID, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotReady)

	_, err = f.chatSvc.Summarize(ctx, ws.ID+1, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestFitContext(t *testing.T) {
	chunks := []SearchResultChunk{
		{Content: "one two three"},
		{Content: "four five six"},
		{Content: "seven eight nine"},
	}

	assert.Len(t, fitContext(chunks, 100), 3)
	assert.Len(t, fitContext(chunks, 6), 2)
	assert.Len(t, fitContext(chunks, 1), 1, "the best chunk is always kept")
	assert.Empty(t, fitContext(nil, 10))
}
