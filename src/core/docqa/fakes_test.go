package docqa

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

type memWorkspaces struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Workspace
}

func newMemWorkspaces() *memWorkspaces {
	return &memWorkspaces{nextID: 100, items: map[int64]Workspace{}}
}

func (r *memWorkspaces) Create(ctx context.Context, ws *Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ws.ID = r.nextID
	ws.CreatedAt = time.Now().UTC()
	r.items[ws.ID] = *ws
	return nil
}

func (r *memWorkspaces) Get(ctx context.Context, id int64) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.items[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return &ws, nil
}

func (r *memWorkspaces) List(ctx context.Context) ([]Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Workspace, 0, len(r.items))
	for _, ws := range r.items {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memWorkspaces) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrWorkspaceNotFound
	}
	delete(r.items, id)
	return nil
}

type memDocuments struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Document
	// statuses records every status a document was saved with
	statuses map[int64][]DocumentStatus
}

func newMemDocuments() *memDocuments {
	return &memDocuments{nextID: 1000, items: map[int64]Document{}, statuses: map[int64][]DocumentStatus{}}
}

func (r *memDocuments) Create(ctx context.Context, doc *Document, maxDocuments int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxDocuments > 0 {
		count := 0
		for _, d := range r.items {
			if d.WorkspaceID == doc.WorkspaceID {
				count++
			}
		}
		if count >= maxDocuments {
			return ErrDocumentLimitExceeded
		}
	}
	r.nextID++
	doc.ID = r.nextID
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	r.items[doc.ID] = *doc
	r.statuses[doc.ID] = append(r.statuses[doc.ID], doc.Status)
	return nil
}

func (r *memDocuments) Get(ctx context.Context, id int64) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.items[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *memDocuments) ListByWorkspace(ctx context.Context, workspaceID int64) ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Document
	for _, d := range r.items {
		if d.WorkspaceID == workspaceID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memDocuments) Update(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[doc.ID]; !ok {
		return ErrDocumentNotFound
	}
	doc.UpdatedAt = time.Now().UTC()
	r.items[doc.ID] = *doc
	r.statuses[doc.ID] = append(r.statuses[doc.ID], doc.Status)
	return nil
}

func (r *memDocuments) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(r.items, id)
	return nil
}

type memChunks struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64][]Chunk
}

func newMemChunks() *memChunks {
	return &memChunks{nextID: 5000, items: map[int64][]Chunk{}}
}

func (r *memChunks) Replace(ctx context.Context, documentID int64, chunks []Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range chunks {
		r.nextID++
		chunks[i].ID = r.nextID
	}
	r.items[documentID] = append([]Chunk(nil), chunks...)
	return nil
}

func (r *memChunks) ListByDocument(ctx context.Context, documentID int64) ([]Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Chunk(nil), r.items[documentID]...), nil
}

func (r *memChunks) DeleteByDocument(ctx context.Context, documentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, documentID)
	return nil
}

type memBlobs struct {
	mu    sync.Mutex
	items map[string][]byte
	err   error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{items: map[string][]byte{}}
}

func (b *memBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.items[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.items[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (b *memBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, key)
	return nil
}

func (b *memBlobs) DeletePrefix(ctx context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.items {
		if strings.HasPrefix(k, prefix) {
			delete(b.items, k)
		}
	}
	return nil
}

type memIndex struct {
	mu          sync.Mutex
	collections map[string]map[int64]VectorRecord
	queries     []SearchQuery
	ensureErr   error
}

func newMemIndex() *memIndex {
	return &memIndex{collections: map[string]map[int64]VectorRecord{}}
}

func (x *memIndex) EnsureCollection(ctx context.Context, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ensureErr != nil {
		return x.ensureErr
	}
	if _, ok := x.collections[name]; !ok {
		x.collections[name] = map[int64]VectorRecord{}
	}
	return nil
}

func (x *memIndex) DropCollection(ctx context.Context, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.collections, name)
	return nil
}

func (x *memIndex) Upsert(ctx context.Context, name string, records []VectorRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.collections[name]
	if !ok {
		return errors.New("collection does not exist")
	}
	for _, r := range records {
		c[r.ChunkID] = r
	}
	return nil
}

func (x *memIndex) DeleteDocument(ctx context.Context, name string, documentID int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, r := range x.collections[name] {
		if r.DocumentID == documentID {
			delete(x.collections[name], id)
		}
	}
	return nil
}

func (x *memIndex) Search(ctx context.Context, name string, q SearchQuery) ([]SearchResultChunk, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.queries = append(x.queries, q)

	allowed := map[int64]bool{}
	for _, id := range q.DocumentIDs {
		allowed[id] = true
	}

	var out []SearchResultChunk
	for _, r := range x.collections[name] {
		if len(allowed) > 0 && !allowed[r.DocumentID] {
			continue
		}
		out = append(out, SearchResultChunk{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Filename:   r.Filename,
			Page:       r.Page,
			Order:      r.Order,
			Content:    r.Content,
			Score:      cosine(q.Vector, r.Vector),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ChunkID < out[j].ChunkID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (x *memIndex) Count(ctx context.Context, name string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.collections[name]), nil
}

func (x *memIndex) Ping(ctx context.Context) error {
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// bagEmbedder gives every distinct lower-cased word its own dimension
type bagEmbedder struct {
	mu    sync.Mutex
	vocab map[string]int
	calls [][]string
	err   error
}

const bagDims = 256

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: map[string]int{}}
}

func (e *bagEmbedder) EmbedDocuments(ctx context.Context, model string, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, append([]string(nil), texts...))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, bagDims)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			w = strings.Trim(w, ".,;:!?")
			idx, ok := e.vocab[w]
			if !ok {
				idx = len(e.vocab) % bagDims
				e.vocab[w] = idx
			}
			v[idx]++
		}
		out[i] = v
	}
	return out, nil
}

func (e *bagEmbedder) EmbedQuery(ctx context.Context, model string, text string) ([]float32, error) {
	v, err := e.EmbedDocuments(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

type scriptedModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	model    string
	messages []PromptMessage
}

func (m *scriptedModel) Chat(ctx context.Context, model string, messages []PromptMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
	m.messages = messages
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type memChatStore struct {
	mu       sync.Mutex
	sessions map[string][]ChatMessage
}

func newMemChatStore() *memChatStore {
	return &memChatStore{sessions: map[string][]ChatMessage{}}
}

func (s *memChatStore) Append(ctx context.Context, msgs ...ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.sessions[m.SessionID] = append(s.sessions[m.SessionID], m)
	}
	return nil
}

func (s *memChatStore) List(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.sessions[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]ChatMessage(nil), msgs...), nil
}

func (s *memChatStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

type memQueue struct {
	mu        sync.Mutex
	submitted []int64
	err       error
}

func (q *memQueue) Submit(ctx context.Context, documentID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.submitted = append(q.submitted, documentID)
	return nil
}

// fixture wires every service over the in-memory fakes
type fixture struct {
	cfg        Config
	workspaces *memWorkspaces
	documents  *memDocuments
	chunks     *memChunks
	blobs      *memBlobs
	index      *memIndex
	embedder   *bagEmbedder
	model      *scriptedModel
	history    *memChatStore
	queue      *memQueue

	workspaceSvc WorkspaceService
	documentSvc  DocumentService
	searchSvc    SearchService
	chatSvc      ChatService
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		cfg:        cfg,
		workspaces: newMemWorkspaces(),
		documents:  newMemDocuments(),
		chunks:     newMemChunks(),
		blobs:      newMemBlobs(),
		index:      newMemIndex(),
		embedder:   newBagEmbedder(),
		model:      &scriptedModel{reply: "It is 42."},
		history:    newMemChatStore(),
		queue:      &memQueue{},
	}
	f.workspaceSvc = NewWorkspaceService(cfg, f.workspaces, f.documents, f.chunks, f.blobs, f.index)
	f.documentSvc = NewDocumentService(cfg, f.workspaces, f.documents, f.chunks, f.blobs, f.index, f.queue)
	f.searchSvc = NewSearchService(cfg, f.workspaces, f.index, f.embedder)
	f.chatSvc = NewChatService(cfg, f.workspaces, f.documents, f.chunks, f.searchSvc, f.model, f.history, nil)
	return f
}

func (f *fixture) ingestor(l DocumentLoader) *Ingestor {
	return NewIngestor(f.cfg, f.workspaces, f.documents, f.chunks, f.blobs, f.index, l, f.embedder, nil)
}
