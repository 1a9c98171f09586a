package config

import (
	"fmt"
	"time"
)

// Config aggregates all runtime configuration, loaded once at startup.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Worker   WorkerConfig
	SSE      SSEConfig
	AI       AIConfig
	Storage  StorageConfig
}

// Load reads the full configuration from the environment.
func Load() *Config {
	return &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Queue:    loadQueueConfig(),
		Worker:   loadWorkerConfig(),
		SSE:      loadSSEConfig(),
		AI:       loadAIConfig(),
		Storage:  loadStorageConfig(),
	}
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int
	JWTSecret string
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:      getEnvInt("PORT", 8080),
		JWTSecret: getEnv("JWT_SECRET", ""),
	}
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the libpq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "scentsmith"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "scentsmith"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
	}
}

// RedisConfig configures the job broker and pub/sub transport.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Address renders host:port.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnvInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

// QueueConfig configures enqueue defaults applied by the queue manager.
type QueueConfig struct {
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	KeepCompleted int
	KeepFailed    int
}

func loadQueueConfig() QueueConfig {
	return QueueConfig{
		MaxAttempts:   getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		BackoffBase:   getEnvDuration("QUEUE_BACKOFF_BASE", 5*time.Second),
		BackoffCap:    getEnvDuration("QUEUE_BACKOFF_CAP", 5*time.Minute),
		KeepCompleted: getEnvInt("QUEUE_KEEP_COMPLETED", 100),
		KeepFailed:    getEnvInt("QUEUE_KEEP_FAILED", 500),
	}
}

// WorkerConfig configures the document processor worker pool.
type WorkerConfig struct {
	Concurrency     int
	PollInterval    time.Duration
	DequeueTimeout  time.Duration
	ShutdownTimeout time.Duration
	StageTimeout    time.Duration
	ChunkSize       int
	ChunkOverlap    int
}

func loadWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency:     getEnvInt("WORKER_CONCURRENCY", 2),
		PollInterval:    getEnvDuration("WORKER_POLL_INTERVAL", time.Second),
		DequeueTimeout:  getEnvDuration("WORKER_DEQUEUE_TIMEOUT", 5*time.Second),
		ShutdownTimeout: getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		StageTimeout:    getEnvDuration("WORKER_STAGE_TIMEOUT", 2*time.Minute),
		ChunkSize:       getEnvInt("WORKER_CHUNK_SIZE", 1200),
		ChunkOverlap:    getEnvInt("WORKER_CHUNK_OVERLAP", 200),
	}
}

// SSEConfig configures the event-stream gateway.
type SSEConfig struct {
	HeartbeatInterval time.Duration
}

func loadSSEConfig() SSEConfig {
	return SSEConfig{
		HeartbeatInterval: getEnvDuration("SSE_HEARTBEAT_INTERVAL", 30*time.Second),
	}
}

// AIConfig configures text generation and embedding providers.
type AIConfig struct {
	Provider            string // "openai" or "anthropic" for text generation
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	TextModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
}

func loadAIConfig() AIConfig {
	return AIConfig{
		Provider:            getEnv("AI_PROVIDER", "openai"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		TextModel:           getEnv("AI_TEXT_MODEL", ""),
		EmbeddingModel:      getEnv("AI_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getEnvInt("AI_EMBEDDING_DIMENSIONS", 1536),
	}
}

// StorageConfig configures upload and scratch file storage.
type StorageConfig struct {
	UploadDir string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
	}
}
