// Package config loads the inquirit application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/inquirit/ai"
	"github.com/poiesic/inquirit/core"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the file.
const (
	EnvSearxngURL = "SEARXNG_API_URL"
	EnvAPIKey     = "OPENAI_API_KEY"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Searxng SearxngConfig `yaml:"searxng"`
	AI      AIConfig      `yaml:"ai"`
	Search  SearchConfig  `yaml:"search"`
	Fetch   FetchConfig   `yaml:"fetch"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SearxngConfig points at the metasearch endpoint.
type SearxngConfig struct {
	URL      string        `yaml:"url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
}

// AIConfig holds the OpenAI-compatible model settings.
type AIConfig struct {
	EmbeddingHost  string  `yaml:"embedding_host"`
	ChatHost       string  `yaml:"chat_host"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	APIKey         string  `yaml:"api_key"`
	Temperature    float64 `yaml:"temperature"`
}

// SearchConfig holds reranking settings.
type SearchConfig struct {
	SimilarityMeasure string  `yaml:"similarity_measure"`
	RerankThreshold   float64 `yaml:"rerank_threshold"`
	MaxResults        int     `yaml:"max_results"`
	// SkipDecision lets the rephraser decide a message needs no web search.
	SkipDecision bool `yaml:"skip_decision"`
}

// FetchConfig holds page download and chunking settings.
// MaxConcurrency 0 means one worker per URL.
type FetchConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	HostInterval   time.Duration `yaml:"host_interval"`
	Retries        int           `yaml:"retries"`
	ChunkSize      int           `yaml:"chunk_size"`
	ChunkOverlap   int           `yaml:"chunk_overlap"`
	// Dedupe drops chunks repeated within one page.
	Dedupe bool `yaml:"dedupe"`
}

// HistoryConfig holds the conversation store settings.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
	Turns   int    `yaml:"turns"`
}

// EnabledOrDefault returns whether history is kept; defaults to true when unset.
func (h HistoryConfig) EnabledOrDefault() bool {
	if h.Enabled != nil {
		return *h.Enabled
	}
	return true
}

// Default returns a Config with every default applied and environment overrides honored.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	cfg.History.Path = expandPath(cfg.History.Path, ".")
	return &cfg
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and validates the result. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	cfg.History.Path = expandPath(cfg.History.Path, filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with SEARXNG_API_URL and OPENAI_API_KEY when set.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvSearxngURL)); v != "" {
		cfg.Searxng.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.AI.APIKey = v
	}
}

// Validate checks the values the rest of the application cannot default around.
func (c *Config) Validate() error {
	if c.Searxng.URL == "" {
		return fmt.Errorf("%w: searxng.url is required (or set %s)", ErrInvalidConfig, EnvSearxngURL)
	}
	if _, err := c.SearchConfig(); err != nil {
		return fmt.Errorf("%w: search: %w", ErrInvalidConfig, err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: ai: %w", ErrInvalidConfig, err)
	}
	if c.Fetch.ChunkOverlap >= c.Fetch.ChunkSize {
		return fmt.Errorf("%w: fetch.chunk_overlap must be smaller than fetch.chunk_size", ErrInvalidConfig)
	}
	if c.Fetch.MaxConcurrency < 0 {
		return fmt.Errorf("%w: fetch.max_concurrency cannot be negative", ErrInvalidConfig)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// SearchConfig converts the search section into a core.SearchConfig.
func (c *Config) SearchConfig() (core.SearchConfig, error) {
	measure, err := core.ParseSimilarityMeasure(c.Search.SimilarityMeasure)
	if err != nil {
		return core.SearchConfig{}, err
	}
	return core.NewSearchConfig(
		core.WithSimilarityMeasure(measure),
		core.WithRerankThreshold(c.Search.RerankThreshold),
		core.WithMaxResults(c.Search.MaxResults),
	)
}

// AIConfig converts the ai section into a normalized ai.Config.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
	)
	cfg.Normalize()
	return cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
