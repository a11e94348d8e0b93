package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tanishq1030/Anchor/internal/engine"
	"github.com/Tanishq1030/Anchor/internal/storage"
)

var (
	recordsFormat  string
	recordsRunID   string
	recordsLimit   int
	recordsVerdict string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored audit runs and records",
	Long: `List stored audit runs, or the records of one run.

Without --run, prints the run index. With --run (or --run latest), prints
that run's audit records.

Examples:
  anchor records
  anchor records --run latest
  anchor records --run latest --verdict intent_violation`,
	Run: runRecords,
}

func init() {
	recordsCmd.Flags().StringVar(&recordsFormat, "format", "human", "Output format (json, human)")
	recordsCmd.Flags().StringVar(&recordsRunID, "run", "", "Run to show records for (id or \"latest\")")
	recordsCmd.Flags().IntVar(&recordsLimit, "limit", 20, "Maximum runs to list")
	recordsCmd.Flags().StringVar(&recordsVerdict, "verdict", "", "Only show records with this verdict")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, args []string) {
	logger := newLogger(recordsFormat)
	repoRoot := mustGetRepoRoot()

	store, err := storage.Open(anchorDir(repoRoot), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening record store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if recordsRunID == "" {
		runs, err := store.ListRuns(recordsLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}
		output, err := FormatResponse(runs, OutputFormat(recordsFormat))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
		return
	}

	runID := recordsRunID
	if runID == "latest" {
		runID, err = store.LatestRunID()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving latest run: %v\n", err)
			os.Exit(1)
		}
		if runID == "" {
			fmt.Fprintln(os.Stderr, "No stored audit runs.")
			os.Exit(1)
		}
	}

	records, err := store.RecordsForRun(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading records: %v\n", err)
		os.Exit(1)
	}

	result := &engine.RunResult{RunID: runID, Records: records, VerdictCounts: map[string]int{}}
	for _, r := range records {
		if r.Verdict != "" {
			result.VerdictCounts[string(r.Verdict)]++
		} else {
			result.FailureCount++
		}
	}
	if recordsVerdict != "" {
		result = filterRun(result, recordsVerdict)
	}

	output, err := FormatResponse(result, OutputFormat(recordsFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
