// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-recommender/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LLMBackend selects the service that answers judgment prompts.
type LLMBackend string

const (
	LLMOllama LLMBackend = "ollama"
	LLMClaude LLMBackend = "claude"
)

// LLMConfig holds settings for the judgment service used by the classifier,
// the QC engine and filter extraction.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend is "ollama" or "claude".
	Backend LLMBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Model is the model identifier (e.g. "llama3.2", "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Host is the Ollama server URL. Ignored by the Claude backend.
	Host string `json:"host,omitempty" yaml:"host,omitempty" mapstructure:"host"`

	// APIKey authenticates against a hosted backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// EmbeddingBackend selects the service that produces embeddings.
type EmbeddingBackend string

const (
	EmbeddingOllama EmbeddingBackend = "ollama"
	EmbeddingGenAI  EmbeddingBackend = "genai"
)

// EmbeddingConfig holds settings for profile and paper embeddings.
type EmbeddingConfig struct {
	Backend EmbeddingBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	Model   string           `json:"model" yaml:"model" mapstructure:"model"`
	Host    string           `json:"host,omitempty" yaml:"host,omitempty" mapstructure:"host"`
	APIKey  string           `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Dimension is the embedding vector size, used when creating the collection.
	Dimension int `json:"dimension" yaml:"dimension" mapstructure:"dimension"`
}

// VectorBackend selects the vector-similarity store.
type VectorBackend string

const (
	VectorQdrant VectorBackend = "qdrant"
	VectorMemory VectorBackend = "memory"
)

// VectorConfig holds settings for the vector-similarity store.
type VectorConfig struct {
	Backend    VectorBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	Host       string        `json:"host" yaml:"host" mapstructure:"host"`
	Port       int           `json:"port" yaml:"port" mapstructure:"port"`
	Collection string        `json:"collection" yaml:"collection" mapstructure:"collection"`
}

// MetadataConfig holds settings for the OpenAlex metadata API.
type MetadataConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Email is sent as the mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// RequestsPerSecond caps outgoing requests (default 10).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// BatchSize is the number of IDs per batched lookup (max 50).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// CacheTTL is how long cached metadata is trusted before a refresh.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// RetrievalConfig holds retrieval depth policy and replacement eligibility.
type RetrievalConfig struct {
	// BaseDepth is the candidate pool size when the query has no filter
	// instructions (default 20).
	BaseDepth int `json:"base_depth" yaml:"base_depth" mapstructure:"base_depth"`

	// FilterDepth is the candidate pool size when filters will be applied
	// (default 100).
	FilterDepth int `json:"filter_depth" yaml:"filter_depth" mapstructure:"filter_depth"`

	// ReplacementPool is how many unseen candidates are considered for a
	// single replacement (default 10).
	ReplacementPool int `json:"replacement_pool" yaml:"replacement_pool" mapstructure:"replacement_pool"`

	// MinReplacementScore is the minimum similarity a replacement must reach
	// (default 0.35).
	MinReplacementScore float64 `json:"min_replacement_score" yaml:"min_replacement_score" mapstructure:"min_replacement_score"`
}

// StoreConfig holds settings for the relational store.
type StoreConfig struct {
	// DataDir contains the SQLite database file.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds settings for the HTTP transport.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RecommendationsPerMinute caps recommendation and load-more requests
	// per client IP (default 30, 0 disables).
	RecommendationsPerMinute int `json:"recommendations_per_minute" yaml:"recommendations_per_minute" mapstructure:"recommendations_per_minute"`

	// AllowedOrigins enables CORS for browser clients.
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" mapstructure:"allowed_origins"`
}

// Config groups all settings.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Vector    VectorConfig    `json:"vector" yaml:"vector" mapstructure:"vector"`
	Metadata  MetadataConfig  `json:"metadata" yaml:"metadata" mapstructure:"metadata"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultConfig returns the settings used when no config file overrides them.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			HTTPConfig: HTTPConfig{Timeout: 120 * time.Second, UserAgent: "paper-recommender/0.1"},
			Backend:    LLMOllama,
			Model:      "llama3.2",
			Host:       "http://localhost:11434",
		},
		Embedding: EmbeddingConfig{
			Backend:   EmbeddingOllama,
			Model:     "nomic-embed-text",
			Host:      "http://localhost:11434",
			Dimension: 768,
		},
		Vector: VectorConfig{
			Backend:    VectorQdrant,
			Host:       "localhost",
			Port:       6334,
			Collection: "papers",
		},
		Metadata: MetadataConfig{
			HTTPConfig:        HTTPConfig{Timeout: 30 * time.Second, UserAgent: "paper-recommender/0.1"},
			RequestsPerSecond: 10,
			BatchSize:         50,
			CacheTTL:          7 * 24 * time.Hour,
		},
		Retrieval: RetrievalConfig{
			BaseDepth:           20,
			FilterDepth:         100,
			ReplacementPool:     10,
			MinReplacementScore: 0.35,
		},
		Store:  StoreConfig{DataDir: "data"},
		Server: ServerConfig{Addr: ":8080", RecommendationsPerMinute: 30},
	}
}
