// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, FS) and wires
// the pipeline modules together. This is the only place that knows
// about ALL modules.
package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/robypag/scentsmith/pkg/ai/embedding/embopenai"
	"github.com/robypag/scentsmith/pkg/ai/textgen"
	"github.com/robypag/scentsmith/pkg/ai/textgen/tganthropic"
	"github.com/robypag/scentsmith/pkg/ai/textgen/tgopenai"
	"github.com/robypag/scentsmith/pkg/config"
	"github.com/robypag/scentsmith/pkg/docapi"
	"github.com/robypag/scentsmith/pkg/docproc"
	"github.com/robypag/scentsmith/pkg/docs/docsinfra"
	"github.com/robypag/scentsmith/pkg/fsx"
	"github.com/robypag/scentsmith/pkg/fsx/fsxlocal"
	"github.com/robypag/scentsmith/pkg/iam/auth"
	"github.com/robypag/scentsmith/pkg/iam/iaminfra"
	"github.com/robypag/scentsmith/pkg/jobx"
	"github.com/robypag/scentsmith/pkg/jobx/jobxredis"
	"github.com/robypag/scentsmith/pkg/logx"
	"github.com/robypag/scentsmith/pkg/progress"
	"github.com/robypag/scentsmith/pkg/progress/progressredis"
	"github.com/robypag/scentsmith/pkg/sse"
)

// Container holds shared infrastructure and the wired modules.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem

	// Modules
	Users          *iaminfra.PostgresUserStore
	Documents      *docsinfra.PostgresStore
	Jobs           *jobx.Manager
	WorkerClient   *jobx.Client
	Broadcaster    progress.Broadcaster
	Gateway        *sse.Gateway
	AuthMiddleware *auth.Middleware
	DocHandlers    *docapi.Handlers
}

// NewContainer builds everything or dies trying; a process with half
// its dependencies is worse than no process.
func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}
	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

func (c *Container) initInfrastructure() {
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (the broker is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	localFS, err := fsxlocal.NewLocalFileSystem(c.Config.Storage.UploadDir)
	if err != nil {
		logx.Fatalf("Failed to initialize local file system: %v", err)
	}
	c.FileSystem = localFS
	logx.Infof("  ✅ Local file system configured (path: %s)", localFS.GetBasePath())
}

func (c *Container) initModules() {
	ctx := context.Background()

	// Identity
	c.Users = iaminfra.NewPostgresUserStore(c.DB)
	if err := c.Users.EnsureSchema(ctx); err != nil {
		logx.Fatalf("Failed to ensure users schema: %v", err)
	}
	tokens := auth.NewTokenService(c.Config.Server.JWTSecret)
	c.AuthMiddleware = auth.NewMiddleware(tokens, c.Users)

	// AI providers
	embedder := embopenai.New(c.Config.AI.OpenAIAPIKey, c.Config.AI.EmbeddingModel)
	var generator textgen.Generator
	switch c.Config.AI.Provider {
	case "anthropic":
		generator = tganthropic.New(c.Config.AI.AnthropicAPIKey)
	default:
		generator = tgopenai.New(c.Config.AI.OpenAIAPIKey)
	}
	logx.Infof("  ✅ AI providers ready (textgen: %s)", c.Config.AI.Provider)

	// Documents
	c.Documents = docsinfra.NewPostgresStore(c.DB, embedder.Dimensions())
	if err := c.Documents.EnsureSchema(ctx); err != nil {
		logx.Fatalf("Failed to ensure document schema: %v", err)
	}

	// Job broker
	queue := jobxredis.NewRedisQueue(c.Redis)
	c.Jobs = jobx.NewManager(queue, jobx.Defaults{
		MaxAttempts: c.Config.Queue.MaxAttempts,
		Backoff: jobx.BackoffPolicy{
			Kind:     jobx.BackoffExponential,
			Delay:    c.Config.Queue.BackoffBase,
			MaxDelay: c.Config.Queue.BackoffCap,
		},
		KeepCompleted: c.Config.Queue.KeepCompleted,
		KeepFailed:    c.Config.Queue.KeepFailed,
	})

	// Progress channel
	c.Broadcaster = progressredis.NewBroadcaster(c.Redis)
	subscriber := progressredis.NewSubscriber(c.Redis)
	c.Gateway = sse.NewGateway(subscriber, c.Config.SSE.HeartbeatInterval, logx.GetDefaultLogger())

	// Pipeline worker
	worker := docproc.NewWorker(
		c.Documents,
		generator,
		embedder,
		c.Broadcaster,
		c.FileSystem,
		docproc.NewChunker(c.Config.Worker.ChunkSize, c.Config.Worker.ChunkOverlap),
		docproc.Options{StageTimeout: c.Config.Worker.StageTimeout},
		logx.GetDefaultLogger(),
	)
	c.WorkerClient = jobx.NewClient(queue,
		jobx.WithCategories(string(jobx.CategoryDocumentProcessing)),
		jobx.WithConcurrency(c.Config.Worker.Concurrency),
		jobx.WithPollInterval(c.Config.Worker.PollInterval),
		jobx.WithDequeueTimeout(c.Config.Worker.DequeueTimeout),
		jobx.WithShutdownTimeout(c.Config.Worker.ShutdownTimeout),
	)
	c.WorkerClient.Register(string(jobx.CategoryDocumentProcessing), worker.Handle)
	logx.Infof("  ✅ Pipeline worker registered (concurrency: %d)", c.Config.Worker.Concurrency)

	// HTTP surface
	c.DocHandlers = docapi.NewHandlers(c.Documents, c.Jobs, logx.GetDefaultLogger())
}

// StartBackgroundServices launches the worker pool. It returns
// immediately; the pool drains when ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go func() {
		if err := c.WorkerClient.Start(ctx); err != nil {
			logx.Errorf("Worker runtime stopped: %v", err)
		}
	}()
	logx.Info("🔄 Background worker started")
}

// Cleanup releases shared infrastructure.
func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}

	logx.Info("✅ Cleanup complete")
}
