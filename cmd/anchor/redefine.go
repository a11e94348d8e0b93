package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
)

var (
	redefineIntent      string
	redefineAssumptions []string
	redefineAuthor      string
)

var redefineCmd = &cobra.Command{
	Use:   "redefine <symbol>",
	Short: "Record a deliberate intent redefinition",
	Long: `Record a deliberate, timestamped intent redefinition for a symbol.

A redefinition starts a new anchor epoch: future audits compare usage
against the new intent, while history before it stays on record. Anchors
are never silently rewritten; this command is the only way to change one.

Examples:
  anchor redefine models.py:save --intent "Persist the record and emit an audit event"
  anchor redefine auth.py:login --intent "Verify SSO assertions" \
      --assumption "delegates credential checks to the identity provider"`,
	Args: cobra.ExactArgs(1),
	RunE: runRedefine,
}

func init() {
	redefineCmd.Flags().StringVar(&redefineIntent, "intent", "", "New intent description (required)")
	redefineCmd.Flags().StringArrayVar(&redefineAssumptions, "assumption", nil, "Behavioral assumption under the new intent (repeatable)")
	redefineCmd.Flags().StringVar(&redefineAuthor, "author", "", "Who authorized the redefinition")
	_ = redefineCmd.MarkFlagRequired("intent")
	rootCmd.AddCommand(redefineCmd)
}

func runRedefine(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")
	repoRoot := mustGetRepoRoot()

	registry := anchorpoint.LoadRegistry(repoRoot, logger)
	redef := anchorpoint.Redefinition{
		Symbol:      args[0],
		Timestamp:   time.Now().UTC(),
		Intent:      redefineIntent,
		Assumptions: redefineAssumptions,
		Author:      redefineAuthor,
	}
	if err := registry.Append(redef); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording redefinition: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recorded redefinition for %s (epoch starts %s)\n",
		redef.Symbol, redef.Timestamp.Format(time.RFC3339))
	return nil
}
