package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	vk "github.com/valkey-io/valkey-go"
	"gorm.io/gorm"

	"docchat/src/core/docqa"
	"docchat/src/core/docqa/valkey"
	"docchat/src/core/loader"
	"docchat/src/infrastructure/integrations/ocrspace"
	"docchat/src/infrastructure/integrations/ollama"
	"docchat/src/infrastructure/integrations/openai"
	"docchat/src/infrastructure/integrations/unstructured"
	"docchat/src/infrastructure/metrics"
	"docchat/src/log"
	"docchat/src/storage/elastic"
	"docchat/src/storage/minioctrl"
	"docchat/src/storage/postgres"
	"docchat/src/storage/postgres/chunkctrl"
	"docchat/src/storage/postgres/documentctrl"
	"docchat/src/storage/postgres/workspacectrl"
	"docchat/src/storage/weaviate"
)

type llmProvider interface {
	docqa.Embedder
	docqa.ChatModel
	docqa.Pinger
}

// app holds the infrastructure shared by every command
type app struct {
	cfg      docqa.Config
	db       *gorm.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	valkeyClient vk.Client
	store        *valkey.Store
	blobs        *minioctrl.MinioService
	index        docqa.VectorIndex
	llm          llmProvider
	embedder     docqa.Embedder

	workspaces *workspacectrl.Repository
	documents  *documentctrl.Repository
	chunks     *chunkctrl.ChunkService
}

func serviceConfig() docqa.Config {
	alpha := float32(viper.GetFloat64("retrieval.hybrid_alpha"))
	return docqa.Config{
		EmbeddingModel:   viper.GetString("models.embedding"),
		ChatModel:        viper.GetString("models.chat"),
		MaxDocuments:     viper.GetInt("limits.max_documents"),
		MaxUploadBytes:   viper.GetInt64("limits.max_upload_bytes"),
		ChunkSize:        viper.GetInt("chunking.size"),
		ChunkOverlap:     viper.GetInt("chunking.overlap"),
		TopK:             viper.GetInt("retrieval.top_k"),
		HybridAlpha:      &alpha,
		MaxContextTokens: viper.GetInt("retrieval.max_context_tokens"),
		HistoryTurns:     viper.GetInt("chat.history_turns"),
	}
}

func openDB() (*gorm.DB, error) {
	return postgres.Open(postgres.Config{
		Host:     viper.GetString("postgres.host"),
		Port:     viper.GetString("postgres.port"),
		User:     viper.GetString("postgres.user"),
		Password: viper.GetString("postgres.password"),
		DB:       viper.GetString("postgres.db"),
	})
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{cfg: serviceConfig()}

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var err error
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if a.metrics, err = metrics.New(a.registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	if a.db, err = openDB(); err != nil {
		return nil, err
	}
	if a.workspaces, err = workspacectrl.NewRepository(a.db); err != nil {
		return nil, fmt.Errorf("failed to initialize workspace repository: %w", err)
	}
	if a.documents, err = documentctrl.NewRepository(a.db); err != nil {
		return nil, fmt.Errorf("failed to initialize document repository: %w", err)
	}
	if a.chunks, err = chunkctrl.NewChunkService(a.db); err != nil {
		return nil, fmt.Errorf("failed to initialize chunk service: %w", err)
	}

	a.blobs, err = minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
		viper.GetString("minio.bucket"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio service: %w", err)
	}
	if err := a.blobs.EnsureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	if a.valkeyClient, err = valkey.NewClient(viper.GetString("valkey.address")); err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	a.store = valkey.NewStore(a.valkeyClient, viper.GetDuration("chat.history_ttl"), viper.GetDuration("cache.embedding_ttl"))

	if a.index, err = newVectorIndex(); err != nil {
		return nil, err
	}
	if a.llm, err = newLLMProvider(); err != nil {
		return nil, err
	}
	a.embedder = docqa.NewCachedEmbedder(a.llm, a.store)

	ok = true
	return a, nil
}

func newVectorIndex() (docqa.VectorIndex, error) {
	switch backend := viper.GetString("vectorstore.backend"); backend {
	case "weaviate":
		client, err := weaviate.NewClient(viper.GetString("weaviate.host"), viper.GetString("weaviate.scheme"))
		if err != nil {
			return nil, fmt.Errorf("failed to create weaviate client: %w", err)
		}
		return weaviate.NewIndex(weaviate.NewSDK(client)), nil
	case "elasticsearch":
		client, err := elastic.NewClient(splitList(viper.GetString("elasticsearch.addresses")), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		return elastic.NewIndex(client), nil
	default:
		return nil, fmt.Errorf("unknown vectorstore.backend %q", backend)
	}
}

func newLLMProvider() (llmProvider, error) {
	httpClient := &http.Client{Timeout: 5 * time.Minute}
	switch provider := viper.GetString("llm.provider"); provider {
	case "ollama":
		client, err := ollama.NewClient(viper.GetString("ollama.url"), httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return client, nil
	case "openai":
		if viper.GetString("openai.api_key") == "" {
			return nil, fmt.Errorf("openai.api_key is required for the openai provider")
		}
		return openai.NewClient(viper.GetString("openai.api_key"), viper.GetString("openai.base_url"), httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", provider)
	}
}

func newOCRProvider() (loader.OCRProvider, error) {
	httpClient := &http.Client{Timeout: 2 * time.Minute}
	switch provider := viper.GetString("ocr.provider"); provider {
	case "", "none":
		return nil, nil
	case "ocrspace":
		return ocrspace.NewClient(
			viper.GetString("ocrspace.url"),
			viper.GetString("ocrspace.api_key"),
			viper.GetString("ocrspace.language"),
			httpClient,
		), nil
	case "unstructured":
		return unstructured.NewService(viper.GetString("unstructured.url"), "ocr_only", httpClient), nil
	default:
		return nil, fmt.Errorf("unknown ocr.provider %q", provider)
	}
}

func (a *app) newLoader() (*loader.Loader, error) {
	opts := []loader.Option{
		loader.WithMinChars(viper.GetInt("ocr.min_chars")),
		loader.WithObserver(a.metrics),
	}
	provider, err := newOCRProvider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		log.Info("OCR fallback enabled", "provider", provider.Name())
		opts = append(opts, loader.WithOCR(provider))
	}
	return loader.New(opts...), nil
}

func (a *app) newIngestor() (*docqa.Ingestor, error) {
	docLoader, err := a.newLoader()
	if err != nil {
		return nil, err
	}
	return docqa.NewIngestor(a.cfg, a.workspaces, a.documents, a.chunks, a.blobs, a.index, docLoader, a.embedder, a.metrics), nil
}

func (a *app) searchService() docqa.SearchService {
	return docqa.NewSearchService(a.cfg, a.workspaces, a.index, a.embedder)
}

func (a *app) chatService() docqa.ChatService {
	return docqa.NewChatService(a.cfg, a.workspaces, a.documents, a.chunks, a.searchService(), a.llm, a.store, a.metrics)
}

func (a *app) systemService() docqa.SystemService {
	return docqa.NewSystemService(map[string]docqa.Pinger{
		"postgres":    postgres.Pinger{DB: a.db},
		"valkey":      a.store,
		"minio":       a.blobs,
		"vectorstore": a.index,
		"llm":         a.llm,
	})
}

func (a *app) Close() {
	if a.valkeyClient != nil {
		a.valkeyClient.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error(err, "Error closing database connection")
			}
		}
	}
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
