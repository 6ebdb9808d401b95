// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "chemscreen/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PubMedConfig holds settings for the PubMed E-utilities client.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is an optional NCBI API key. With a key the rate limit is
	// 10 requests per second, without it 3.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is sent as the E-utilities email parameter so NCBI can
	// contact the tool operator about usage.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// ToolName is sent as the E-utilities tool parameter (default "chemscreen").
	ToolName string `json:"tool_name" yaml:"tool_name"`

	// MaxRetries is the retry budget for rate-limited or failing calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RequestsPerSecond returns the rate ceiling NCBI grants this client.
func (c PubMedConfig) RequestsPerSecond() float64 {
	if c.APIKey != "" {
		return 10
	}
	return 3
}

// CacheConfig holds settings for the search-result cache.
type CacheConfig struct {
	// Dir is the cache directory (default "data/cache").
	Dir string `json:"dir" yaml:"dir"`

	// TTL is how long cached results stay valid (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Enabled turns the cache off entirely when false.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// SessionConfig holds settings for session persistence.
type SessionConfig struct {
	// Dir is the session database directory (default "data/sessions").
	Dir string `json:"dir" yaml:"dir"`

	// CleanupDays is the retention window for old sessions (default 30).
	CleanupDays int `json:"cleanup_days" yaml:"cleanup_days"`
}

// BatchConfig holds settings for the batch orchestrator.
type BatchConfig struct {
	// Concurrency is the worker pool width (default 5).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxBatchSize caps the number of chemicals per run (default 200).
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size"`
}

// ExportConfig holds settings for the export stage.
type ExportConfig struct {
	// Dir is the export output directory (default "data/exports").
	Dir string `json:"dir" yaml:"dir"`

	// IncludeAbstracts adds one row per publication with abstract text.
	IncludeAbstracts bool `json:"include_abstracts" yaml:"include_abstracts"`
}

// Config groups all stage configurations.
type Config struct {
	PubMed   PubMedConfig     `json:"pubmed" yaml:"pubmed"`
	Search   SearchParameters `json:"search" yaml:"search"`
	Cache    CacheConfig      `json:"cache" yaml:"cache"`
	Sessions SessionConfig    `json:"sessions" yaml:"sessions"`
	Batch    BatchConfig      `json:"batch" yaml:"batch"`
	Export   ExportConfig     `json:"export" yaml:"export"`
}

// DefaultConfig returns the configuration used when no file or flags
// override it.
func DefaultConfig() Config {
	return Config{
		PubMed: PubMedConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "chemscreen/0.1",
			},
			ToolName:   "chemscreen",
			MaxRetries: 3,
		},
		Search: SearchParameters{
			DateRangeYears: 10,
			MaxResults:     100,
			IncludeReviews: true,
			UseCache:       true,
		},
		Cache: CacheConfig{
			Dir:     "data/cache",
			TTL:     24 * time.Hour,
			Enabled: true,
		},
		Sessions: SessionConfig{
			Dir:         "data/sessions",
			CleanupDays: 30,
		},
		Batch: BatchConfig{
			Concurrency:  5,
			MaxBatchSize: 200,
		},
		Export: ExportConfig{
			Dir: "data/exports",
		},
	}
}
