package http

import (
	"context"

	"docchat/src/core/docqa"
)

type mockWorkspaceService struct {
	listFunc   func(ctx context.Context) ([]docqa.Workspace, error)
	getFunc    func(ctx context.Context, id int64) (*docqa.Workspace, error)
	createFunc func(ctx context.Context, ws *docqa.Workspace) error
	deleteFunc func(ctx context.Context, id int64) error
}

func (m *mockWorkspaceService) List(ctx context.Context) ([]docqa.Workspace, error) {
	return m.listFunc(ctx)
}

func (m *mockWorkspaceService) Get(ctx context.Context, id int64) (*docqa.Workspace, error) {
	return m.getFunc(ctx, id)
}

func (m *mockWorkspaceService) Create(ctx context.Context, ws *docqa.Workspace) error {
	return m.createFunc(ctx, ws)
}

func (m *mockWorkspaceService) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

type mockDocumentService struct {
	listFunc    func(ctx context.Context, workspaceID int64) ([]docqa.Document, error)
	getFunc     func(ctx context.Context, workspaceID, documentID int64) (*docqa.Document, error)
	uploadFunc  func(ctx context.Context, workspaceID int64, filename string, data []byte) (*docqa.Document, error)
	deleteFunc  func(ctx context.Context, workspaceID, documentID int64) error
	reindexFunc func(ctx context.Context, workspaceID, documentID int64) (*docqa.Document, error)
}

func (m *mockDocumentService) List(ctx context.Context, workspaceID int64) ([]docqa.Document, error) {
	return m.listFunc(ctx, workspaceID)
}

func (m *mockDocumentService) Get(ctx context.Context, workspaceID, documentID int64) (*docqa.Document, error) {
	return m.getFunc(ctx, workspaceID, documentID)
}

func (m *mockDocumentService) Upload(ctx context.Context, workspaceID int64, filename string, data []byte) (*docqa.Document, error) {
	return m.uploadFunc(ctx, workspaceID, filename, data)
}

func (m *mockDocumentService) Delete(ctx context.Context, workspaceID, documentID int64) error {
	return m.deleteFunc(ctx, workspaceID, documentID)
}

func (m *mockDocumentService) Reindex(ctx context.Context, workspaceID, documentID int64) (*docqa.Document, error) {
	return m.reindexFunc(ctx, workspaceID, documentID)
}

type mockSearchService struct {
	searchFunc func(ctx context.Context, workspaceID int64, req docqa.SearchRequest) ([]docqa.SearchResultChunk, error)
}

func (m *mockSearchService) Search(ctx context.Context, workspaceID int64, req docqa.SearchRequest) ([]docqa.SearchResultChunk, error) {
	return m.searchFunc(ctx, workspaceID, req)
}

type mockChatService struct {
	askFunc       func(ctx context.Context, workspaceID int64, req docqa.AskRequest) (*docqa.Answer, error)
	historyFunc   func(ctx context.Context, sessionID string) ([]docqa.ChatMessage, error)
	resetFunc     func(ctx context.Context, sessionID string) error
	summarizeFunc func(ctx context.Context, workspaceID, documentID int64) (*docqa.Answer, error)
}

func (m *mockChatService) Ask(ctx context.Context, workspaceID int64, req docqa.AskRequest) (*docqa.Answer, error) {
	return m.askFunc(ctx, workspaceID, req)
}

func (m *mockChatService) History(ctx context.Context, sessionID string) ([]docqa.ChatMessage, error) {
	return m.historyFunc(ctx, sessionID)
}

func (m *mockChatService) Reset(ctx context.Context, sessionID string) error {
	return m.resetFunc(ctx, sessionID)
}

func (m *mockChatService) Summarize(ctx context.Context, workspaceID, documentID int64) (*docqa.Answer, error) {
	return m.summarizeFunc(ctx, workspaceID, documentID)
}

type mockSystemService struct {
	checkHealthFunc func(ctx context.Context) (*docqa.HealthStatus, error)
}

func (m *mockSystemService) CheckHealth(ctx context.Context) (*docqa.HealthStatus, error) {
	return m.checkHealthFunc(ctx)
}
