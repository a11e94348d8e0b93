package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/corpus"
)

var (
	extractFormat string
	extractOutput string
)

// ExtractionReport is the serializable result of an anchor extraction pass.
type ExtractionReport struct {
	ExtractedAt  time.Time                  `json:"extracted_at"`
	Repository   string                     `json:"repository"`
	TotalAnchors int                        `json:"total_anchors"`
	Anchors      []anchorpoint.IntentAnchor `json:"anchors"`
	Skipped      []SkippedSymbol            `json:"skipped,omitempty"`
}

// SkippedSymbol records a symbol no anchor could be derived for.
type SkippedSymbol struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

var extractCmd = &cobra.Command{
	Use:   "extract [symbol...]",
	Short: "Derive intent anchors without auditing",
	Long: `Derive intent anchors for symbols from repository history.

For each symbol, the earliest revision introducing it with a non-trivial
body or docstring becomes its anchor; throwaway commits (wip, spike, mass
reorganizations) never anchor intent. The anchor freezes the symbol's
original purpose and behavioral assumptions for later audits.

Examples:
  anchor extract
  anchor extract models.py:save
  anchor extract --output .anchor/anchors.json`,
	Run: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractFormat, "format", "human", "Output format (json, human)")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "Also write the JSON report to this path")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) {
	logger := newLogger(extractFormat)
	repoRoot := mustGetRepoRoot()
	cfg := loadConfigOrDefault(repoRoot, logger)

	corp, err := corpus.NewGitCorpus(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening corpus: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := newContext()
	defer cancel()

	symbols, err := resolveSymbols(ctx, cfg, logger, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving symbols: %v\n", err)
		os.Exit(1)
	}

	extractor := anchorpoint.NewExtractor(cfg, logger)
	report := &ExtractionReport{
		ExtractedAt: time.Now().UTC(),
		Repository:  repoRoot,
	}

	for _, sym := range symbols {
		history, err := corp.GetSymbolHistory(ctx, sym)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedSymbol{Symbol: sym.QualifiedName, Reason: err.Error()})
			continue
		}
		log, err := extractor.Extract(ctx, sym, history)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedSymbol{Symbol: sym.QualifiedName, Reason: err.Error()})
			continue
		}
		report.Anchors = append(report.Anchors, log.Current())
	}

	sort.Slice(report.Anchors, func(i, j int) bool {
		return report.Anchors[i].Symbol.QualifiedName < report.Anchors[j].Symbol.QualifiedName
	})
	report.TotalAnchors = len(report.Anchors)

	if extractOutput != "" {
		data, err := FormatResponse(report, FormatJSON)
		if err == nil {
			err = os.WriteFile(extractOutput, []byte(data+"\n"), 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	}

	output, err := FormatResponse(report, OutputFormat(extractFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
