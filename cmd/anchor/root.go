package main

import (
	"github.com/spf13/cobra"

	"github.com/Tanishq1030/Anchor/internal/version"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "anchor",
	Short: "Anchor - Intent Drift Engine",
	Long: `Anchor audits a codebase to decide whether each long-lived symbol still
serves the purpose it was created for. Every symbol gets one of five
deterministic verdicts (aligned, semantic_overload, intent_violation,
dependency_inertia, confidence_too_low), backed by reproducible evidence,
never a numeric score.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("Anchor version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, or error (default: info)")
}
