package embed

import (
	"fmt"
	"time"

	"github.com/askdocs/ragd/internal/ragerr"
)

// Provider names accepted by the factory.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// FactoryConfig selects and configures an embedding backend.
type FactoryConfig struct {
	Provider   string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration

	// Host is the Ollama endpoint (ollama provider only).
	Host string

	// APIKey authenticates the OpenAI provider.
	APIKey string

	// QueryCacheSize sizes the LRU query cache (0 = default).
	QueryCacheSize int
}

// New constructs the configured embedder, wrapped with query caching.
func New(cfg FactoryConfig) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case ProviderOllama, "":
		inner = NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
	case ProviderOpenAI:
		inner, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
	case ProviderStatic:
		inner = NewStaticEmbedder(cfg.Dimensions)
	default:
		return nil, ragerr.New(ragerr.CodeConfigInvalid,
			fmt.Sprintf("unknown embedding provider %q", cfg.Provider), nil)
	}
	return NewCachedEmbedder(inner, cfg.QueryCacheSize), nil
}
