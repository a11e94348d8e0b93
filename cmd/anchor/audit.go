package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tanishq1030/Anchor/internal/engine"
	"github.com/Tanishq1030/Anchor/internal/export"
	"github.com/Tanishq1030/Anchor/internal/storage"
)

var (
	auditFormat       string
	auditNoSave       bool
	auditExportPath   string
	auditExportFormat string
	auditVerdict      string
)

var auditCmd = &cobra.Command{
	Use:   "audit [symbol...]",
	Short: "Audit symbols for intent drift",
	Long: `Audit symbols for drift from their anchored intent.

Each symbol runs through the full pipeline: anchor extraction, call-site
collection, semantic role clustering, rule evaluation, evidence assembly.
The verdict is one of:

  aligned              usage still matches the anchored intent
  semantic_overload    usage split across unrelated roles
  intent_violation     a different role displaced the original intent
  dependency_inertia   kept alive by dependents despite a documented alternative
  confidence_too_low   evidence too thin for a substantive verdict

Symbols may be qualified (path/to/file.py:save) or bare names resolved by
discovery. With no arguments, configured targets are audited, and with no
targets every discovered symbol is.

Examples:
  anchor audit
  anchor audit models.py:save
  anchor audit save validate
  anchor audit --export audits/run.json.gz`,
	Run: runAuditCmd,
}

func init() {
	auditCmd.Flags().StringVar(&auditFormat, "format", "human", "Output format (json, human)")
	auditCmd.Flags().BoolVar(&auditNoSave, "no-save", false, "Skip persisting records to .anchor/records.db")
	auditCmd.Flags().StringVar(&auditExportPath, "export", "", "Write a gzip-compressed archive of the run to this path")
	auditCmd.Flags().StringVar(&auditExportFormat, "export-format", "json", "Archive format (json, yaml)")
	auditCmd.Flags().StringVar(&auditVerdict, "verdict", "", "Only print records with this verdict")
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(auditFormat)
	repoRoot := mustGetRepoRoot()
	cfg := loadConfigOrDefault(repoRoot, logger)

	var store *storage.Store
	if !auditNoSave {
		var err error
		store, err = storage.Open(anchorDir(repoRoot), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening record store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	eng, err := buildEngine(cfg, logger, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := newContext()
	defer cancel()

	symbols, err := resolveSymbols(ctx, cfg, logger, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving symbols: %v\n", err)
		os.Exit(1)
	}
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "No symbols to audit.")
		os.Exit(1)
	}

	result, err := eng.AuditSymbols(ctx, symbols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error auditing: %v\n", err)
		os.Exit(1)
	}

	if store != nil {
		if err := persistRun(store, result); err != nil {
			logger.Warn("Failed to persist run", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if auditExportPath != "" {
		format, err := export.ParseFormat(auditExportFormat)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := export.WriteArchive(auditExportPath, result, format); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting run: %v\n", err)
			os.Exit(1)
		}
	}

	printable := result
	if auditVerdict != "" {
		printable = filterRun(result, auditVerdict)
	}
	output, err := FormatResponse(printable, OutputFormat(auditFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("Audit completed", map[string]interface{}{
		"symbols":  len(symbols),
		"run_id":   result.RunID,
		"duration": time.Since(start).Milliseconds(),
	})
}

func persistRun(store *storage.Store, result *engine.RunResult) error {
	if err := store.BeginRun(result.RunID, result.StartedAt); err != nil {
		return err
	}
	for _, record := range result.Records {
		if err := store.SaveRecord(result.RunID, record); err != nil {
			return err
		}
	}
	return store.CompleteRun(result.RunID, result.CompletedAt, len(result.Records), result.VerdictCounts)
}

// filterRun narrows a run to records carrying one verdict. Failure records
// match the empty verdict filter only, so they never leak into a verdict
// listing.
func filterRun(result *engine.RunResult, verdict string) *engine.RunResult {
	filtered := *result
	filtered.Records = nil
	for _, record := range result.Records {
		if string(record.Verdict) == verdict {
			filtered.Records = append(filtered.Records, record)
		}
	}
	return &filtered
}
