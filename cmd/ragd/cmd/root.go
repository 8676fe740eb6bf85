// Package cmd provides the CLI commands for ragd.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/config"
	"github.com/askdocs/ragd/internal/embed"
	"github.com/askdocs/ragd/internal/llm"
	"github.com/askdocs/ragd/internal/logging"
	"github.com/askdocs/ragd/internal/manager"
	"github.com/askdocs/ragd/internal/service"
	"github.com/askdocs/ragd/internal/store"
	"github.com/askdocs/ragd/pkg/version"
)

var (
	configPath string
	debugMode  bool
)

// NewRootCmd creates the root command for the ragd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragd",
		Short: "Retrieval-augmented question answering over a document corpus",
		Long: `ragd chunks and embeds a document corpus into a persistent vector
index, then answers questions grounded in the most relevant passages.

Typical flow:
  ragd ingest ./data        index a corpus
  ragd query "a question"   retrieve context and generate an answer`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("ragd version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ragd.yaml if present)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	// .env holds OPENAI_API_KEY and RAGD_* overrides; absence is fine.
	_ = godotenv.Load()

	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// appEnv is everything a subcommand needs, assembled from config.
type appEnv struct {
	cfg     *config.Config
	svc     *service.Service
	logger  *slog.Logger
	cleanup func()
}

// newAppEnv loads config, sets up logging, and wires the service. needLLM
// controls whether a missing API key is an error or just means no
// generator.
func newAppEnv(needLLM bool) (*appEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: cfg.Logging.Level, FilePath: cfg.Logging.File, WriteToStderr: true}
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(embed.FactoryConfig{
		Provider:       cfg.Embeddings.Provider,
		Model:          cfg.Embeddings.Model,
		Dimensions:     cfg.Embeddings.Dimensions,
		BatchSize:      cfg.Embeddings.BatchSize,
		Timeout:        cfg.EmbedTimeout(),
		Host:           cfg.Embeddings.OllamaHost,
		APIKey:         os.Getenv("OPENAI_API_KEY"),
		QueryCacheSize: cfg.Embeddings.QueryCacheSize,
	})
	if err != nil {
		logCleanup()
		return nil, err
	}

	var gen llm.Generator
	if needLLM {
		gen, err = llm.NewOpenAIGenerator(llm.OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		if err != nil {
			_ = embedder.Close()
			logCleanup()
			return nil, err
		}
	}

	mgr := manager.New(store.NewFileStore(cfg.Paths.IndexPath), logger)
	svc := service.New(
		chunk.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap),
		embedder,
		mgr,
		gen,
		service.Options{
			TopK:           cfg.Search.TopK,
			ScoreThreshold: cfg.Search.ScoreThreshold,
			MMRLambda:      cfg.Search.MMRLambda,
			PoolMultiplier: cfg.Search.PoolMultiplier,
			EmbedBatch:     cfg.Embeddings.BatchSize,
			EmbedParallel:  cfg.Embeddings.Parallel,
		},
		logger,
	)

	cleanup := func() {
		_ = embedder.Close()
		if gen != nil {
			_ = gen.Close()
		}
		logCleanup()
	}
	return &appEnv{cfg: cfg, svc: svc, logger: logger, cleanup: cleanup}, nil
}
