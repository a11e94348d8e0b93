package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tanishq1030/Anchor/internal/config"
)

var (
	configFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Anchor configuration",
	Long:  "View and manage Anchor configuration stored in .anchor/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run:   runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and write it back to .anchor/config.json.

Supported keys:
  embedding.provider         hash or openai
  embedding.model            embedding model name
  embedding.dimensions       vector dimensions for the hash provider
  concurrency.workers        worker pool size (0 = all cores)
  concurrency.symbolTimeoutMs per-symbol deadline
  corpus.scipIndexPath       path to a SCIP index
  logging.level              debug, info, warn, or error
  logging.format             json or human`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, human)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	logger := newLogger(configFormat)
	repoRoot := mustGetRepoRoot()
	cfg := loadConfigOrDefault(repoRoot, logger)

	output, err := FormatResponse(cfg, FormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")
	repoRoot := mustGetRepoRoot()
	cfg := loadConfigOrDefault(repoRoot, logger)

	key, value := args[0], args[1]
	if err := applyConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(repoRoot); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "embedding.provider":
		cfg.Embedding.Provider = value
	case "embedding.model":
		cfg.Embedding.Model = value
	case "embedding.dimensions":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s expects an integer: %w", key, err)
		}
		cfg.Embedding.Dimensions = n
	case "concurrency.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s expects an integer: %w", key, err)
		}
		cfg.Concurrency.Workers = n
	case "concurrency.symbolTimeoutMs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s expects an integer: %w", key, err)
		}
		cfg.Concurrency.SymbolTimeoutMs = n
	case "corpus.scipIndexPath":
		cfg.Corpus.ScipIndexPath = value
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}
