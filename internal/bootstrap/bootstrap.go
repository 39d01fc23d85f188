package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/yigit/enrollplan/internal/app/auth"
	appControllers "github.com/yigit/enrollplan/internal/app/controllers"
	appMigrations "github.com/yigit/enrollplan/internal/app/migrations"
	appRepos "github.com/yigit/enrollplan/internal/app/repositories"
	appRoutes "github.com/yigit/enrollplan/internal/app/routes"
	appServices "github.com/yigit/enrollplan/internal/app/services"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/catalogio"
	"github.com/yigit/enrollplan/internal/config"
	"github.com/yigit/enrollplan/internal/db"
	appMiddleware "github.com/yigit/enrollplan/internal/middleware"
	pkgAuth "github.com/yigit/enrollplan/internal/pkg/auth"
	"github.com/yigit/enrollplan/internal/pkg/filestorage"
	"github.com/yigit/enrollplan/internal/pkg/logger"
	"github.com/yigit/enrollplan/internal/seed"
	"github.com/yigit/enrollplan/internal/transcript"
)

// Database holds whichever connection the configured driver opened
type Database struct {
	Pool *pgxpool.Pool // postgres
	SQL  *sql.DB       // sqlite
}

// Close closes the open connection
func (d *Database) Close() {
	if d == nil {
		return
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos                *appRepos.Repositories
	CatalogProvider      *catalog.Provider
	CatalogCache         *catalog.RedisCache // nil when Redis is not configured
	DocumentStore        filestorage.DocumentStore
	Pipeline             *transcript.Pipeline
	JWTService           *pkgAuth.JWTService
	AuthzService         *appAuth.AuthorizationService
	CatalogService       *appServices.CatalogService
	PlanningService      *appServices.PlanningService
	TranscriptService    *appServices.TranscriptService
	CatalogController    *appControllers.CatalogController
	ScheduleController   *appControllers.ScheduleController
	TranscriptController *appControllers.TranscriptController
	AuthMiddleware       *appMiddleware.AuthMiddleware
	UploadLimiter        *appMiddleware.UserRateLimiter
	Logger               zerolog.Logger
}

// Close releases resources owned by the dependencies
func (d *Dependencies) Close() {
	if d.CatalogCache != nil {
		if err := d.CatalogCache.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close catalog cache")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := config.GetEnv("CONFIG_PATH", filepath.Join("configs", "config.yaml"))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger // Get the configured global logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Database, error) {
	if cfg.Database.Driver == "sqlite" {
		lgr.Info().Str("path", cfg.Database.SQLitePath).Msg("Opening SQLite database...")
		sqlDB, err := db.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to open SQLite database")
			return nil, err
		}
		if err := appMigrations.MigrateSQLite(ctx, sqlDB, lgr); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		return &Database{SQL: sqlDB}, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	// Run migrations
	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(dbPool, lgr).Migrate(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	// Create Default Data (after migrations)
	if cfg.Catalog.SeedDemo {
		if err := seed.CreateDefaultCatalog(ctx, appRepos.NewCatalogRepository(dbPool), lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default catalog, proceeding anyway...")
		}
	}

	return &Database{Pool: dbPool}, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *Database, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	var catalogStore catalog.Store
	if database.Pool != nil {
		deps.Repos = appRepos.NewRepositories(database.Pool)
		catalogStore = deps.Repos.CatalogRepository
	} else {
		deps.Repos = appRepos.NewSQLiteRepositories(database.SQL)
		store, err := fileCatalogStore(cfg, lgr)
		if err != nil {
			return nil, err
		}
		catalogStore = store
	}

	// Catalog snapshot
	var cache catalog.SnapshotCache
	if cfg.Redis.Addr != "" {
		deps.CatalogCache = catalog.NewRedisCache(catalog.RedisCacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			TTL:      cfg.Redis.TTL,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := deps.CatalogCache.Ping(pingCtx); err != nil {
			lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, catalog cache reads will fall back to the store")
		}
		cancel()
		cache = deps.CatalogCache
	}
	deps.CatalogProvider = catalog.NewProvider(catalogStore, cache, lgr)
	if err := deps.CatalogProvider.Warm(ctx); err != nil {
		lgr.Error().Err(err).Msg("Initial catalog load failed, serving 503 until a refresh succeeds")
	}

	// Document storage
	var err error
	deps.DocumentStore, err = newDocumentStore(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize document storage")
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}

	// Transcript ingestion
	extractors := transcript.NewExtractors(cfg.Ingestion.MaxDocumentBytes)
	if cfg.Ingestion.OCRURL != "" {
		ocr := transcript.NewOllamaOCR(cfg.Ingestion.OCRURL, cfg.Ingestion.OCRModel, cfg.Ingestion.OCRTimeout)
		for _, mime := range transcript.ImageTypes {
			extractors.Register(mime, ocr)
		}
		lgr.Info().Str("url", cfg.Ingestion.OCRURL).Msg("Image OCR enabled")
	}
	deps.Pipeline = transcript.NewPipeline(
		deps.DocumentStore,
		deps.Repos.TranscriptRepository,
		extractors,
		transcript.Options{ExtractTimeout: cfg.Ingestion.ExtractTimeout},
		lgr,
	)

	// Initialize services
	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.TranscriptRepository)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.JWT.AccessTokenExpiration,
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.CatalogService = appServices.NewCatalogService(deps.CatalogProvider, lgr)
	deps.PlanningService = appServices.NewPlanningService(deps.CatalogProvider, deps.AuthzService, cfg.Catalog.MaxDepth, lgr)
	deps.TranscriptService = appServices.NewTranscriptService(
		deps.Pipeline,
		deps.DocumentStore,
		deps.Repos.TranscriptRepository,
		deps.CatalogProvider,
		deps.AuthzService,
		cfg.Ingestion.Workers,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.UploadLimiter = appMiddleware.NewUserRateLimiter(cfg.RateLimit.UploadsPerMinute, cfg.RateLimit.Burst)

	deps.CatalogController = appControllers.NewCatalogController(deps.CatalogService, deps.PlanningService, lgr)
	deps.ScheduleController = appControllers.NewScheduleController(deps.PlanningService, lgr)
	deps.TranscriptController = appControllers.NewTranscriptController(deps.TranscriptService, deps.PlanningService, cfg.Ingestion.MaxDocumentBytes, lgr)

	return deps, nil
}

// fileCatalogStore builds the in-memory catalog used without Postgres
func fileCatalogStore(cfg *config.Config, lgr zerolog.Logger) (*catalog.MemoryStore, error) {
	if cfg.Catalog.ImportPath != "" {
		courses, sections, err := catalogio.LoadFile(cfg.Catalog.ImportPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog file: %w", err)
		}
		lgr.Info().Str("path", cfg.Catalog.ImportPath).Int("courses", len(courses)).Msg("Catalog loaded from file")
		return catalog.NewMemoryStore(courses, sections)
	}
	if cfg.Catalog.SeedDemo {
		courses, sections := seed.DemoCatalog()
		lgr.Info().Int("courses", len(courses)).Msg("Using demo catalog")
		return catalog.NewMemoryStore(courses, sections)
	}
	return nil, errors.New("sqlite mode needs catalog.import_path or catalog.seed_demo")
}

func newDocumentStore(ctx context.Context, cfg *config.Config) (filestorage.DocumentStore, error) {
	if cfg.Storage.Backend == "s3" {
		return filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Bucket:   cfg.Storage.Bucket,
			Region:   cfg.Storage.Region,
			Endpoint: cfg.Storage.Endpoint,
			Prefix:   cfg.Storage.Prefix,
			MaxBytes: cfg.Ingestion.MaxDocumentBytes,
		})
	}
	return filestorage.NewLocalStorage(cfg.Storage.LocalPath, cfg.Storage.SubPath)
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()
	router.MaxMultipartMemory = cfg.Ingestion.MaxDocumentBytes
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		lgr.Warn().Err(err).Strs("proxies", cfg.Server.TrustedProxies).Msg("Ignoring invalid trusted proxies")
	}

	appRoutes.SetupRouter(router,
		deps.CatalogController,
		deps.ScheduleController,
		deps.TranscriptController,
		deps.AuthMiddleware,
		deps.UploadLimiter,
	)

	return router
}
