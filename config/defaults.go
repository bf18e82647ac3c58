package config

import (
	"github.com/poiesic/inquirit/ai"
	"github.com/poiesic/inquirit/chunk"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/fetch"
	"github.com/poiesic/inquirit/websearch"
)

// DefaultHistoryTurns is how many prior turns are fed back into a query.
const DefaultHistoryTurns = 10

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 2 * fetch.DefaultTimeout
	}
	if cfg.Searxng.Language == "" {
		cfg.Searxng.Language = "en"
	}
	if cfg.Searxng.Timeout == 0 {
		cfg.Searxng.Timeout = websearch.DefaultTimeout
	}

	aiDefaults := ai.DefaultConfig()
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = aiDefaults.EmbeddingHost
	}
	if cfg.AI.ChatHost == "" {
		cfg.AI.ChatHost = aiDefaults.ChatHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = aiDefaults.EmbeddingModel
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = aiDefaults.ChatModel
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = aiDefaults.Temperature
	}

	if cfg.Search.SimilarityMeasure == "" {
		cfg.Search.SimilarityMeasure = string(core.SimilarityCosine)
	}
	if cfg.Search.RerankThreshold == 0 {
		cfg.Search.RerankThreshold = core.DefaultRerankThreshold
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = core.DefaultMaxResults
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = fetch.DefaultTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = fetch.DefaultUserAgent
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = fetch.MaxBodyBytes
	}
	if cfg.Fetch.ChunkSize == 0 {
		cfg.Fetch.ChunkSize = chunk.DefaultChunkSize
	}
	if cfg.Fetch.ChunkOverlap == 0 {
		cfg.Fetch.ChunkOverlap = chunk.DefaultChunkOverlap
	}

	if cfg.History.Path == "" {
		cfg.History.Path = ".local/share/inquirit/history"
	}
	if cfg.History.Turns == 0 {
		cfg.History.Turns = DefaultHistoryTurns
	}
}
