package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"jobapplier-backend/internal/artifacts"
	"jobapplier-backend/internal/documents"
	"jobapplier-backend/internal/extract"
	"jobapplier-backend/internal/llm"
	"jobapplier-backend/internal/llm/langchain"
	"jobapplier-backend/internal/llm/openai"
	"jobapplier-backend/internal/queue"
	"jobapplier-backend/internal/services/health"
	"jobapplier-backend/internal/shared/config"
	"jobapplier-backend/internal/shared/server"
	"jobapplier-backend/internal/shared/storage/db"
	"jobapplier-backend/internal/shared/storage/object"
	localstore "jobapplier-backend/internal/shared/storage/object/local"
	s3store "jobapplier-backend/internal/shared/storage/object/s3"
	"jobapplier-backend/internal/shared/telemetry"
	"jobapplier-backend/internal/targets"
	"jobapplier-backend/internal/workerproc"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Queue            queue.Client
	LocalPool        *queue.LocalPool
	Structurer       llm.Structurer
	Generator        llm.Generator
	OCR              llm.OCR
	DocumentsRepo    documents.DocumentsRepo
	TargetsRepo      targets.TargetsRepo
	ArtifactsRepo    artifacts.ArtifactsRepo
	DocumentsService *documents.Service
	TargetsService   *targets.Service
	ArtifactsService *artifacts.Service
	Health           *health.Service
}

// Option overrides a dependency Build would otherwise derive from config.
type Option func(*App)

// WithStructurer replaces the structuring provider.
func WithStructurer(s llm.Structurer) Option {
	return func(a *App) { a.Structurer = s }
}

// WithGenerator replaces the cover letter provider.
func WithGenerator(g llm.Generator) Option {
	return func(a *App) { a.Generator = g }
}

// WithOCR replaces the OCR provider.
func WithOCR(o llm.OCR) Option {
	return func(a *App) { a.OCR = o }
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 4
	}
	if cfg.QueueBuffer <= 0 {
		cfg.QueueBuffer = 64
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildProviders(app)
	for _, opt := range opts {
		opt(app)
	}

	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Health:          app.Health,
		DocumentHandler: documents.NewHandler(app.DocumentsService),
		TargetHandler:   targets.NewHandler(app.TargetsService),
		ArtifactHandler: artifacts.NewHandler(app.ArtifactsService),
	})

	return app, nil
}

// Close drains in-process structuring and releases the database pool.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.LocalPool != nil {
		if err := a.LocalPool.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close local pool: %w", err))
		}
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_unavailable", map[string]any{"fallback": "memory", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildProviders picks the LLM backends. A backend that cannot be built is
// replaced by llm.Unconfigured so the affected features degrade instead of
// failing startup.
func buildProviders(app *App) {
	cfg := app.Config
	app.Structurer = llm.Unconfigured{}
	app.Generator = llm.Unconfigured{}
	app.OCR = llm.Unconfigured{}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if structurer, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel); err != nil {
			providerUnavailable("structuring", cfg.LLMProvider, err)
		} else {
			app.Structurer = structurer
		}
		if generator, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.CoverLetterModel); err != nil {
			providerUnavailable("generation", cfg.LLMProvider, err)
		} else {
			app.Generator = generator
		}
	case config.ProviderOllama, config.ProviderAnthropic:
		if structurer, err := langchain.New(cfg, cfg.LLMModel); err != nil {
			providerUnavailable("structuring", cfg.LLMProvider, err)
		} else {
			app.Structurer = structurer
		}
		if generator, err := langchain.New(cfg, cfg.CoverLetterModel); err != nil {
			providerUnavailable("generation", cfg.LLMProvider, err)
		} else {
			app.Generator = generator
		}
	}

	if cfg.OCRProvider == config.ProviderOpenAI {
		if ocr, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.OCRModel); err != nil {
			providerUnavailable("ocr", cfg.OCRProvider, err)
		} else {
			app.OCR = ocr
		}
	}
}

func providerUnavailable(role, provider string, err error) {
	telemetry.Warn("bootstrap.provider_unavailable", map[string]any{
		"role":     role,
		"provider": provider,
		"error":    err.Error(),
	})
}

func buildQueue(ctx context.Context, app *App) error {
	if app.Config.StructuringQueue == config.QueueSQS {
		client, err := queue.NewSQSClient(ctx, app.Config.AWSRegion, app.Config.SQSQueueURL)
		if err != nil {
			return err
		}
		app.Queue = client
		return nil
	}
	app.LocalPool = queue.NewLocalPool(app.Config.WorkerConcurrency, app.Config.QueueBuffer)
	app.Queue = app.LocalPool
	return nil
}

func buildServices(app *App) error {
	var (
		docRepo      documents.DocumentsRepo
		targetRepo   targets.TargetsRepo
		artifactRepo artifacts.ArtifactsRepo
	)
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		targetRepo = &targets.PGRepo{DB: app.DB}
		artifactRepo = &artifacts.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		targetRepo = targets.NewMemoryRepo()
		artifactRepo = artifacts.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store:              app.Store,
		StorageProvider:    app.Config.ObjectStoreType,
		Repo:               docRepo,
		Extractor:          extract.NewFileExtractor(app.Store),
		Structurer:         app.Structurer,
		Queue:              app.Queue,
		StructuringTimeout: app.Config.StructuringTimeout,
	}
	targetSvc := &targets.Service{
		Store: app.Store,
		Repo:  targetRepo,
		OCR:   app.OCR,
	}
	artifactSvc := &artifacts.Service{
		Repo:      artifactRepo,
		Documents: docSvc,
		Targets:   targetSvc,
		Generator: app.Generator,
	}

	// Workers need the document service, which needs the queue.
	if app.LocalPool != nil {
		app.LocalPool.Start(workerproc.LocalHandler(docSvc))
	}

	queueKind := config.QueueLocal
	if app.LocalPool == nil {
		queueKind = config.QueueSQS
	}

	app.DocumentsRepo = docRepo
	app.TargetsRepo = targetRepo
	app.ArtifactsRepo = artifactRepo
	app.DocumentsService = docSvc
	app.TargetsService = targetSvc
	app.ArtifactsService = artifactSvc
	app.Health = health.NewService(app.Structurer, app.Generator, app.OCR, app.Config.ObjectStoreType, queueKind, app.DB != nil)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
