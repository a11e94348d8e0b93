package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Tanishq1030/Anchor/internal/cluster"
	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	"github.com/Tanishq1030/Anchor/internal/engine"
	"github.com/Tanishq1030/Anchor/internal/logging"
	"github.com/Tanishq1030/Anchor/internal/storage"
)

// getRepoRoot returns the repository root directory.
func getRepoRoot() (string, error) {
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	level := logging.InfoLevel
	if logLevelFlag != "" {
		level = logging.ParseLevel(logLevelFlag)
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  level,
	})
}

// loadConfigOrDefault loads .anchor/config.json, falling back to defaults so
// read-only commands work in uninitialized repositories.
func loadConfigOrDefault(repoRoot string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	cfg.RepoRoot = repoRoot
	return cfg
}

func anchorDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".anchor")
}

// buildEngine wires the corpus, embedder, and pipeline for a repository.
// When a record store is available the embedder caches across runs; without
// one it still caches within the run.
func buildEngine(cfg *config.Config, logger *logging.Logger, store *storage.Store) (*engine.Engine, error) {
	corp, err := corpus.NewGitCorpus(cfg, logger)
	if err != nil {
		return nil, err
	}

	embedder, err := cluster.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	if store != nil {
		embedder = cluster.NewCachingEmbedder(
			storage.NewPersistentEmbedder(embedder, store, cfg.Embedding.Provider, cfg.Embedding.Model),
		)
	}

	return engine.New(cfg, logger, corp, embedder), nil
}

// newContext returns a context cancelled by SIGINT/SIGTERM so in-flight
// symbol pipelines stop cooperatively between stages.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolveSymbols turns CLI arguments into audit targets. Arguments may be
// qualified names (path:Name) or bare names matched against discovery;
// without arguments, configured targets and finally full discovery apply.
func resolveSymbols(ctx context.Context, cfg *config.Config, logger *logging.Logger, args []string) ([]corpus.Symbol, error) {
	scanner := corpus.NewScanner(cfg, logger)

	if len(args) == 0 && len(cfg.Targets) > 0 {
		for _, t := range cfg.Targets {
			for _, s := range t.Symbols {
				if t.Path != "" {
					args = append(args, corpus.Qualified(t.Path, s))
					continue
				}
				args = append(args, s)
			}
		}
	}

	if len(args) == 0 {
		return scanner.DiscoverSymbols(ctx)
	}

	var qualified []corpus.Symbol
	var bare []string
	for _, a := range args {
		if strings.Contains(a, ":") {
			parts := strings.SplitN(a, ":", 2)
			qualified = append(qualified, corpus.Symbol{
				Name:          parts[1],
				QualifiedName: a,
				Kind:          corpus.KindFunction,
				Path:          parts[0],
			})
			continue
		}
		bare = append(bare, a)
	}

	if len(bare) > 0 {
		discovered, err := scanner.DiscoverSymbols(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range bare {
			found := false
			for _, sym := range discovered {
				if sym.Name == name {
					qualified = append(qualified, sym)
					found = true
				}
			}
			if !found {
				return nil, fmt.Errorf("symbol %q not found in repository", name)
			}
		}
	}
	return qualified, nil
}
