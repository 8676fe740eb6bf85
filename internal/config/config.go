// Package config loads and validates ragd configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file,
// RAGD_* environment variables. A missing config file is fine; the defaults
// describe a working offline setup except for the answer model key.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/askdocs/ragd/internal/ragerr"
)

// DefaultConfigFile is looked for in the working directory when no explicit
// path is given.
const DefaultConfigFile = "ragd.yaml"

// Config is the complete ragd configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	LLM        LLMConfig        `yaml:"llm"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig locates the corpus and the persisted index snapshot.
type PathsConfig struct {
	CorpusDir string `yaml:"corpus_dir"`
	IndexPath string `yaml:"index_path"`
}

// ChunkingConfig tunes the document splitter. Sizes are in runes.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingsConfig selects and tunes the embedding backend.
type EmbeddingsConfig struct {
	// Provider is one of "ollama", "openai", or "static".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// Timeout is a duration string, e.g. "60s".
	Timeout    string `yaml:"timeout"`
	OllamaHost string `yaml:"ollama_host"`
	// Parallel bounds concurrent embedding batches during ingest.
	Parallel int `yaml:"parallel"`
	// QueryCacheSize bounds the LRU of embedded queries.
	QueryCacheSize int `yaml:"query_cache_size"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
	// Mode is the default search mode, "similarity" or "mmr".
	Mode string `yaml:"mode"`
	// ScoreThreshold drops passages below this cosine similarity.
	// 0 disables the filter.
	ScoreThreshold float32 `yaml:"score_threshold"`
	MMRLambda      float32 `yaml:"mmr_lambda"`
	PoolMultiplier int     `yaml:"pool_multiplier"`
}

// LLMConfig tunes answer generation.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LoggingConfig configures the slog setup.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File receives JSON logs in addition to stderr when set.
	File string `yaml:"file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			CorpusDir: "data",
			IndexPath: "embeddings/index.rag",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    2000,
			ChunkOverlap: 200,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "ollama",
			Model:          "zylonai/multilingual-e5-base",
			Dimensions:     768,
			BatchSize:      32,
			Timeout:        "60s",
			OllamaHost:     "http://localhost:11434",
			Parallel:       4,
			QueryCacheSize: 1000,
		},
		Search: SearchConfig{
			TopK:           5,
			Mode:           "similarity",
			ScoreThreshold: 0,
			MMRLambda:      0.5,
			PoolMultiplier: 4,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// EmbedTimeout returns the parsed embedding timeout. Call after Validate.
func (c *Config) EmbedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Embeddings.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Load builds the effective configuration. path may be empty, in which case
// ragd.yaml in the working directory is used if present.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Unmarshal over the defaults: keys absent from the file keep
		// their default values.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, ragerr.New(ragerr.CodeConfigInvalid,
				fmt.Sprintf("failed to parse config file %s", path), err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file, defaults apply.
	default:
		return nil, ragerr.New(ragerr.CodeConfigInvalid,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies RAGD_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RAGD_CORPUS_DIR"); v != "" {
		c.Paths.CorpusDir = v
	}
	if v := os.Getenv("RAGD_INDEX_PATH"); v != "" {
		c.Paths.IndexPath = v
	}
	if v := os.Getenv("RAGD_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("RAGD_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("RAGD_EMBEDDINGS_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("RAGD_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("RAGD_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("RAGD_SCORE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			c.Search.ScoreThreshold = float32(f)
		}
	}
	if v := os.Getenv("RAGD_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("RAGD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return ragerr.New(ragerr.CodeConfigInvalid,
			fmt.Sprintf(format, args...), nil)
	}

	if c.Paths.IndexPath == "" {
		return fail("paths.index_path must not be empty")
	}
	if c.Chunking.ChunkSize <= 0 {
		return fail("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fail("chunking.chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap)
	}
	switch c.Embeddings.Provider {
	case "ollama", "openai", "static":
	default:
		return fail("embeddings.provider must be ollama, openai, or static, got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fail("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fail("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.Timeout != "" {
		if d, err := time.ParseDuration(c.Embeddings.Timeout); err != nil || d <= 0 {
			return fail("embeddings.timeout must be a positive duration, got %q", c.Embeddings.Timeout)
		}
	}
	if c.Search.TopK < 1 || c.Search.TopK > 20 {
		return fail("search.top_k must be between 1 and 20, got %d", c.Search.TopK)
	}
	switch c.Search.Mode {
	case "similarity", "mmr":
	default:
		return fail("search.mode must be similarity or mmr, got %q", c.Search.Mode)
	}
	if c.Search.ScoreThreshold < 0 || c.Search.ScoreThreshold > 1 {
		return fail("search.score_threshold must be in [0, 1], got %v", c.Search.ScoreThreshold)
	}
	if c.Search.MMRLambda < 0 || c.Search.MMRLambda > 1 {
		return fail("search.mmr_lambda must be in [0, 1], got %v", c.Search.MMRLambda)
	}
	if c.Search.PoolMultiplier < 1 {
		return fail("search.pool_multiplier must be at least 1, got %d", c.Search.PoolMultiplier)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fail("llm.temperature must be in [0, 2], got %v", c.LLM.Temperature)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fail("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
