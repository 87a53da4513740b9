package bootstrap

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/analyses"
	"fundingsense-backend/internal/chat"
	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/generation"
	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/llm/anthropic"
	"fundingsense-backend/internal/llm/openai"
	"fundingsense-backend/internal/reasoning"
	"fundingsense-backend/internal/services/health"
	"fundingsense-backend/internal/shared/config"
	"fundingsense-backend/internal/shared/server"
	"fundingsense-backend/internal/shared/server/middleware"
	"fundingsense-backend/internal/shared/storage/db"
	"fundingsense-backend/internal/shared/storage/object"
	localstore "fundingsense-backend/internal/shared/storage/object/local"
	s3store "fundingsense-backend/internal/shared/storage/object/s3"
	"fundingsense-backend/internal/shared/telemetry"
)

const (
	embeddingCacheTTL     = time.Hour
	embeddingCacheCleanup = 10 * time.Minute
)

// App holds shared dependencies and the wired router.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	Evidence    *evidence.Index
	Backing     *evidence.SQLiteBacking
	Persistence string

	AnalysesRepo    analyses.Repo
	ChatRepo        chat.Repo
	AnalysesService *analyses.Service
	ChatService     *chat.Service
	AnalysesHandler *analyses.Handler
	ChatHandler     *chat.Handler
	Health          *health.Service
}

// Build prepares every dependency and wires the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg, Persistence: cfg.Persistence}

	index, backing, err := OpenEvidence(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Evidence, app.Backing = index, backing

	if err := buildRepos(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	client, err := NewLLMClient(cfg.LLM)
	if err != nil {
		app.Close()
		return nil, err
	}
	generator := generation.New(client, cfg.LLM.Timeout)
	validator := reasoning.NewValidator(reasoning.Thresholds{
		High:   cfg.Reasoning.HighRatio,
		Medium: cfg.Reasoning.MediumRatio,
	})

	app.AnalysesService = analyses.NewService(index, validator, generator, app.AnalysesRepo, cfg.Retrieval.TopK)
	app.ChatService = chat.NewService(index, generator, app.ChatRepo, cfg.Chat.HistoryWindow)
	app.AnalysesHandler = analyses.NewHandler(app.AnalysesService)
	app.ChatHandler = chat.NewHandler(app.ChatService)
	app.Health = health.NewService(index, cfg.LLM.Provider, app.Persistence)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Analyses: app.AnalysesHandler,
		Chat:     app.ChatHandler,
		Health:   app.Health,
		Limiter:  middleware.NewRateLimiter(nil),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"persistence":    app.Persistence,
		"llm_provider":   app.Health.LLMProvider,
		"embedding":      cfg.Retrieval.EmbeddingProvider,
		"evidence_units": index.Count(),
	})
	return app, nil
}

// Close releases the databases held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Backing != nil {
		errs = append(errs, a.Backing.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	for _, err := range errs {
		if err != nil {
			return eris.Wrap(err, "bootstrap: close")
		}
	}
	return nil
}

// OpenEvidence opens the SQLite evidence file and loads it into a fresh
// index. Both the API and the ingest command go through here.
func OpenEvidence(ctx context.Context, cfg config.Config) (*evidence.Index, *evidence.SQLiteBacking, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	path := cfg.Retrieval.EvidenceDBPath
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, eris.Wrapf(err, "bootstrap: create %s", dir)
		}
	}
	backing, err := evidence.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	if err := backing.Migrate(ctx); err != nil {
		backing.Close()
		return nil, nil, err
	}

	index := evidence.NewIndex(embedder,
		evidence.WithBacking(backing),
		evidence.WithTimeout(cfg.Retrieval.Timeout),
	)
	if err := index.Load(ctx); err != nil {
		backing.Close()
		return nil, nil, err
	}
	return index, backing, nil
}

// NewEmbedder selects the relevance function. Remote embeddings are cached
// in memory.
func NewEmbedder(cfg config.Config) (evidence.Embedder, error) {
	switch cfg.Retrieval.EmbeddingProvider {
	case "", "hash":
		return evidence.HashEmbedder{}, nil
	case "openai":
		remote, err := evidence.NewOpenAIEmbedder(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL, cfg.Retrieval.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return evidence.NewCachedEmbedder(remote, embeddingCacheTTL, embeddingCacheCleanup), nil
	default:
		return nil, eris.Errorf("bootstrap: unknown EMBEDDING_PROVIDER %q", cfg.Retrieval.EmbeddingProvider)
	}
}

// NewLLMClient returns the configured generation backend. Without a
// provider the placeholder is used and every generation falls back.
func NewLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	switch cfg.Provider {
	case "", "none":
		return llm.PlaceholderClient{}, nil
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.Model, cfg.OpenAIBaseURL)
	case "anthropic":
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.Model)
	default:
		return nil, eris.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.Provider)
	}
}

func buildRepos(ctx context.Context, app *App) error {
	cfg := app.Config
	switch app.Persistence {
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			if !isDevLike(cfg.Env) {
				return err
			}
			telemetry.Warn("bootstrap.db_fallback", map[string]any{"error": err})
			app.Persistence = "memory"
			return buildRepos(ctx, app)
		}
		app.DB = sqlDB
		app.AnalysesRepo = &analyses.PGRepo{DB: sqlDB}
		app.ChatRepo = &chat.PGRepo{DB: sqlDB}
	case "file":
		store, err := buildStore(ctx, cfg)
		if err != nil {
			return err
		}
		app.Store = store
		app.AnalysesRepo = analyses.NewFileRepo(store, "")
		app.ChatRepo = chat.NewFileRepo(store, "")
	default:
		app.Persistence = "memory"
		app.AnalysesRepo = analyses.NewMemoryRepo()
		app.ChatRepo = chat.NewMemoryRepo()
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, eris.New("bootstrap: OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
