package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Anchor configuration",
	Long:  "Creates a .anchor/ directory with default configuration in the current repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .anchor directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.InfoLevel,
	})

	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	dir := anchorDir(cwd)
	if _, statErr := os.Stat(dir); statErr == nil {
		if !initForce {
			// Idempotent behavior: already initialized is success (CI-friendly)
			fmt.Println("Anchor already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(dir, "config.json"))
			fmt.Println("\nRun 'anchor init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			return errors.New(errors.InternalError, "Failed to remove existing .anchor directory", removeErr)
		}
		logger.Info("Removed existing .anchor directory", nil)
	}

	if mkdirErr := os.MkdirAll(dir, 0755); mkdirErr != nil {
		return errors.New(errors.InternalError, "Failed to create .anchor directory", mkdirErr)
	}

	cfg := config.DefaultConfig()
	cfg.RepoRoot = "."
	if err := cfg.Save(cwd); err != nil {
		return errors.New(errors.InternalError, "Failed to write configuration", err)
	}

	fmt.Println("Initialized Anchor.")
	fmt.Printf("Configuration at: %s\n", filepath.Join(dir, "config.json"))
	fmt.Println("\nNext steps:")
	fmt.Println("  anchor extract          # derive intent anchors for discovered symbols")
	fmt.Println("  anchor audit            # run the full drift audit")
	return nil
}
