package docqa

const (
	DefaultTopK             = 4
	MaxTopK                 = 20
	DefaultHybridAlpha      = 0.75
	DefaultMaxContextTokens = 3000
	DefaultHistoryTurns     = 6
	DefaultMaxUploadBytes   = 32 << 20

	embedBatchSize = 32
)

// Config carries the tunables shared by the services
type Config struct {
	EmbeddingModel string
	ChatModel      string

	// MaxDocuments is the per-workspace quota for new workspaces, 0 means unlimited
	MaxDocuments   int
	MaxUploadBytes int64

	ChunkSize    int
	ChunkOverlap int

	TopK             int
	// HybridAlpha weighs vector against keyword score, 0 is pure keyword. Nil or a value
	// outside [0, 1] falls back to DefaultHybridAlpha.
	HybridAlpha      *float32
	MaxContextTokens int
	HistoryTurns     int
}

func (c Config) withDefaults() Config {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.TopK > MaxTopK {
		c.TopK = MaxTopK
	}
	if c.HybridAlpha == nil || *c.HybridAlpha < 0 || *c.HybridAlpha > 1 {
		alpha := float32(DefaultHybridAlpha)
		c.HybridAlpha = &alpha
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.HistoryTurns < 0 {
		c.HistoryTurns = 0
	}
	return c
}
