package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects and configures the persistence backend.
// Backend is one of postgres, bolt, memory.
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
	Bolt     BoltConfig     `yaml:"bolt,omitempty"`
}

// PostgresConfig contains connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// BoltConfig contains the path for the embedded store.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig contains connection details for Redis.
// When disabled, locking falls back to the storage backend.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	MinChunkSize int `yaml:"min_chunk_size"`
	MaxChunkSize int `yaml:"max_chunk_size"`
}

// RetrievalConfig configures ranking behaviour.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// AIConfig configures an AI provider (openai or ollama).
// APIKeyEnv names the environment variable holding the key, so
// secrets stay out of the config file.
type AIConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// APIKey resolves the configured API key from the environment.
func (c AIConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// AccountConfig is the service account the portal logs in with.
// The password is stored as a bcrypt hash.
type AccountConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	JWTSecretEnv  string        `yaml:"jwt_secret_env"`
	TokenTTLHours int           `yaml:"token_ttl_hours"`
	Account       AccountConfig `yaml:"account"`
}

// JWTSecret resolves the signing secret from the environment.
func (c AuthConfig) JWTSecret() string {
	env := c.JWTSecretEnv
	if env == "" {
		env = "JWT_SECRET"
	}
	return os.Getenv(env)
}

// WorkerConfig configures background task processing.
type WorkerConfig struct {
	Concurrency    int `yaml:"concurrency"`
	DequeueTimeout int `yaml:"dequeue_timeout"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding AIConfig        `yaml:"embedding"`
	LLM       AIConfig        `yaml:"llm"`
	Auth      AuthConfig      `yaml:"auth"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// DSN builds a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Load reads a config from the specified path. If the file does not
// exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Validate checks cross-field constraints that defaults cannot fix.
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case "postgres", "bolt", "memory":
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if c.Chunker.MinChunkSize >= c.Chunker.MaxChunkSize {
		return fmt.Errorf("min_chunk_size must be below max_chunk_size")
	}
	if c.Retrieval.MinSimilarity < -1 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be within [-1, 1]")
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.Postgres.Host == "" {
		cfg.Storage.Postgres.Host = "localhost"
	}
	if cfg.Storage.Postgres.Port == 0 {
		cfg.Storage.Postgres.Port = 5432
	}
	if cfg.Storage.Postgres.SSLMode == "" {
		cfg.Storage.Postgres.SSLMode = "disable"
	}
	if cfg.Storage.Bolt.Path == "" {
		cfg.Storage.Bolt.Path = "regulation-core.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Chunker.MinChunkSize == 0 {
		cfg.Chunker.MinChunkSize = 200
	}
	if cfg.Chunker.MaxChunkSize == 0 {
		cfg.Chunker.MaxChunkSize = 1000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MinSimilarity == 0 {
		cfg.Retrieval.MinSimilarity = 0.25
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 2
	}
	if cfg.Worker.DequeueTimeout == 0 {
		cfg.Worker.DequeueTimeout = 5
	}
}
