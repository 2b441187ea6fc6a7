package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/applicants"
	"intake-backend/internal/documents"
	"intake-backend/internal/ocr"
	"intake-backend/internal/queue"
	"intake-backend/internal/shared/cache"
	"intake-backend/internal/shared/config"
	"intake-backend/internal/shared/server"
	"intake-backend/internal/shared/storage/db"
	"intake-backend/internal/shared/storage/object"
	localstore "intake-backend/internal/shared/storage/object/local"
	s3store "intake-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Cache  cache.Cache

	DocumentsRepo  documents.Repo
	ApplicantsRepo applicants.Repo

	DocumentsService  *documents.Service
	ApplicantsService *applicants.Service

	DocumentsHandler  *documents.Handler
	ApplicantsHandler *applicants.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cacheClient, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	detector, err := buildDetector(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Cache:  cacheClient,
	}

	buildServices(app, detector)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		ApplicantHandler: app.ApplicantsHandler,
		DocumentHandler:  app.DocumentsHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return cache.NewMemory(), nil
	}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis connect failed; using in-memory cache: %v", err)
			return cache.NewMemory(), nil
		}
		return nil, err
	}
	return redisCache, nil
}

func buildDetector(cfg config.Config) (ocr.TextDetector, error) {
	switch cfg.OCRProvider {
	case "vision":
		return ocr.NewVisionClient(cfg.VisionAPIKey)
	case "tesseract":
		langs := splitLangs(cfg.TesseractLangs)
		return ocr.NewTesseractDetector(langs...), nil
	default:
		// Uploads still work without a detector; extraction is skipped.
		return nil, nil
	}
}

func buildServices(app *App, detector ocr.TextDetector) {
	var docRepo documents.Repo
	var applicantRepo applicants.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		applicantRepo = &applicants.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		applicantRepo = applicants.NewMemoryRepo()
	}

	applicantSvc := &applicants.Service{
		Repo:  applicantRepo,
		Docs:  documentStatsAdapter{repo: docRepo},
		Cache: app.Cache,
	}

	docSvc := &documents.Service{
		Repo:     docRepo,
		Store:    app.Store,
		Queue:    app.Queue,
		Detector: detector,
		Hook:     applicantSvc,
	}

	app.DocumentsRepo = docRepo
	app.ApplicantsRepo = applicantRepo
	app.DocumentsService = docSvc
	app.ApplicantsService = applicantSvc
	app.DocumentsHandler = documents.NewHandler(docSvc, app.Cache)
	app.ApplicantsHandler = applicants.NewHandler(applicantSvc)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitLangs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// documentStatsAdapter summarizes an applicant's documents for the
// applicants package without a direct package dependency.
type documentStatsAdapter struct {
	repo documents.Repo
}

func (a documentStatsAdapter) DocumentStats(ctx context.Context, applicantID string) (applicants.DocumentStats, error) {
	docs, err := a.repo.ListByApplicant(ctx, applicantID)
	if err != nil {
		return applicants.DocumentStats{}, err
	}
	stats := applicants.DocumentStats{Total: len(docs)}
	for _, doc := range docs {
		if doc.ReviewStatus == documents.ReviewApproved {
			stats.Approved++
			stats.ApprovedTypeCodes = append(stats.ApprovedTypeCodes, doc.TypeCode)
		}
	}
	return stats, nil
}
