// Package cli implements the docquery command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docquery/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/docquery/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/core/services"
	"github.com/custodia-labs/docquery/internal/logger"
)

// version is the docquery version, overridable at build time with
// -ldflags "-X .../cli.version=...".
var version = "0.1.0"

var (
	flagConfig  string
	flagStorage string
	flagVerbose bool
)

// Shared services, populated by initEngine.
var (
	appConfig        *file.Config
	queryService     driving.QueryService
	reconcileService driving.ReconcileService
	engineCleanup    func() error
)

var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "Semantic search over a local Markdown corpus",
	Long: `Docquery chunks a directory of Markdown documentation along its heading
structure, embeds the chunks, and answers semantic search queries. Chunks
and their vectors are cached on disk so unchanged documents are never
re-embedded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.docquery/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagStorage, "storage", "", "storage directory to index (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose diagnostic output on stderr")
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) error {
	defer func() {
		if engineCleanup != nil {
			if err := engineCleanup(); err != nil {
				logger.Warn("cleanup failed: %v", err)
			}
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the TOML config and applies flag overrides.
func loadConfig() error {
	path := flagConfig
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := file.Load(path)
	if err != nil {
		return err
	}
	if flagStorage != "" {
		cfg.Storage.Dir = flagStorage
	}

	appConfig = cfg
	return nil
}

// initEngine builds the cache store, the embedding service, and the
// engine. Commands that query or reconcile call this; commands like
// version do not pay for it.
func initEngine() error {
	if queryService != nil {
		return nil
	}
	if appConfig.Storage.Dir == "" {
		return errors.New("no storage directory configured (set storage.dir in the config or pass --storage)")
	}

	cachePath := appConfig.Storage.CachePath
	if cachePath == "" {
		var err error
		cachePath, err = file.DefaultCachePath()
		if err != nil {
			return err
		}
	}

	store, err := sqlite.NewStore(cachePath)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	embedder, err := buildEmbedder(appConfig)
	if err != nil {
		store.Close() //nolint:errcheck
		return err
	}

	engine := services.NewEngine(appConfig.Storage.Dir, store, embedder)
	queryService = engine
	reconcileService = engine
	engineCleanup = func() error {
		embedder.Close() //nolint:errcheck
		return store.Close()
	}
	return nil
}

// buildEmbedder selects the embedding provider from configuration.
func buildEmbedder(cfg *file.Config) (driven.EmbeddingService, error) {
	timeout := time.Duration(cfg.Embedder.TimeoutSeconds) * time.Second

	switch cfg.Embedder.Provider {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.Embedder.BaseURL,
			Model:             cfg.Embedder.Model,
			Dimensions:        cfg.Embedder.Dimensions,
			Timeout:           timeout,
			RequestsPerSecond: cfg.Embedder.RequestsPerSecond,
		}), nil

	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.Embedder.APIKey,
			BaseURL:           cfg.Embedder.BaseURL,
			Model:             cfg.Embedder.Model,
			Dimensions:        cfg.Embedder.Dimensions,
			Timeout:           timeout,
			RequestsPerSecond: cfg.Embedder.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("unknown embedder provider %q (want ollama or openai)", cfg.Embedder.Provider)
	}
}
