package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	GinMode        string
	LogLevel       string // debug, info, warn, error; empty follows GIN_MODE
	LogFormat      string // json or text
	CORSOrigins    []string
	MaxRequestSize int64

	// Storage layout
	DataDir        string
	CorpusDir      string
	EmbeddingsFile string
	ChunksFile     string
	FAQFile        string

	// Segmenter
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int

	// Embeddings configuration
	EmbeddingsProvider    string // "ollama" (default), "google", "hash"
	OllamaHost            string
	OllamaEmbedModel      string
	GoogleEmbeddingsModel string
	EmbedBatchSize        int
	EmbedCacheSize        int
	HashDimensions        int

	// Generation
	LocalLLMModel   string
	LocalLLMTimeout time.Duration
	GeminiAPIKey    string
	GeminiModel     string
	GeminiTier      string
	GeminiTimeout   time.Duration
	MinAnswerLength int

	// Query engine
	SimilarityThreshold float64
	TopK                int

	// Redis Configuration
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RateLimitReqs   int
	RateLimitWindow int

	// MongoDB query log
	MongoURI string
	DBName   string

	// Telemetry
	OTelEndpoint    string
	OTelSampleRatio float64

	// Background ingestion
	IngestCron        string
	WorkerConcurrency int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
		CORSOrigins:    strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		MaxRequestSize: getEnvInt64("MAX_REQUEST_SIZE", 1048576), // 1MB

		DataDir:        getEnv("DATA_DIR", "."),
		CorpusDir:      getEnv("CORPUS_DIR", "books"),
		EmbeddingsFile: getEnv("EMBEDDINGS_FILE", "embeddings.gob"),
		ChunksFile:     getEnv("CHUNKS_FILE", "text_chunks.json"),
		FAQFile:        getEnv("FAQ_FILE", "faq.json"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 100),

		// Embeddings
		EmbeddingsProvider:    strings.ToLower(getEnv("EMBEDDINGS_PROVIDER", "ollama")),
		OllamaHost:            getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaEmbedModel:      getEnv("OLLAMA_EMBED_MODEL", "all-minilm"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbedBatchSize:        getEnvInt("EMBED_BATCH_SIZE", 32),
		EmbedCacheSize:        getEnvInt("EMBED_CACHE_SIZE", 1000),
		HashDimensions:        getEnvInt("HASH_EMBED_DIM", 384),

		LocalLLMModel:   getEnv("LOCAL_LLM_MODEL", "phi3"),
		LocalLLMTimeout: getEnvDuration("LOCAL_LLM_TIMEOUT", 60*time.Second),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		GeminiTimeout:   getEnvDuration("GEMINI_TIMEOUT", 0),
		MinAnswerLength: getEnvInt("MIN_ANSWER_LENGTH", 10),

		SimilarityThreshold: getEnvFloat64("SIMILARITY_THRESHOLD", 0.85),
		TopK:                getEnvInt("TOP_K", 5),

		// Redis is optional; rate limiting and the ingest queue need it
		RedisURL:        getEnv("REDIS_URL", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		MongoURI: getEnv("MONGO_URI", ""),
		DBName:   getEnv("DB_NAME", "krishi_mitra"),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_ENDPOINT", ""),
		OTelSampleRatio: getEnvFloat64("OTEL_SAMPLE_RATIO", 0.1),

		IngestCron:        getEnv("INGEST_CRON", ""),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the numeric settings that the segmenter and the query engine depend on.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.ChunkOverlap)
	}
	if c.MinChunkSize < 0 {
		return fmt.Errorf("MIN_CHUNK_SIZE must not be negative, got %d", c.MinChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [-1, 1], got %v", c.SimilarityThreshold)
	}
	switch c.EmbeddingsProvider {
	case "ollama", "google", "hash":
	default:
		return fmt.Errorf("unknown EMBEDDINGS_PROVIDER: %s", c.EmbeddingsProvider)
	}
	if c.EmbeddingsProvider == "google" && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required for google embeddings - set it in .env file")
	}
	return nil
}

// EmbeddingsPath returns the vector artifact location under DataDir.
func (c *Config) EmbeddingsPath() string { return c.resolve(c.EmbeddingsFile) }

// ChunksPath returns the chunk artifact location under DataDir.
func (c *Config) ChunksPath() string { return c.resolve(c.ChunksFile) }

// FAQPath returns the answer cache file location under DataDir.
func (c *Config) FAQPath() string { return c.resolve(c.FAQFile) }

// CorpusPath returns the document folder. Relative paths are taken from DataDir.
func (c *Config) CorpusPath() string { return c.resolve(c.CorpusDir) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
