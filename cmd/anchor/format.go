package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Tanishq1030/Anchor/internal/engine"
	"github.com/Tanishq1030/Anchor/internal/evidence"
	"github.com/Tanishq1030/Anchor/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *engine.RunResult:
		return formatRunHuman(v), nil
	case []storage.RunSummary:
		return formatRunListHuman(v), nil
	case *ExtractionReport:
		return formatExtractionHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

var verdictGlyphs = map[string]string{
	"aligned":            "=",
	"semantic_overload":  "~",
	"intent_violation":   "!",
	"dependency_inertia": "#",
	"confidence_too_low": "?",
}

func formatRunHuman(run *engine.RunResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Audit run %s\n", run.RunID))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, record := range run.Records {
		b.WriteString(formatRecordHuman(record))
		b.WriteString("\n")
	}

	b.WriteString("Summary:\n")
	verdicts := make([]string, 0, len(run.VerdictCounts))
	for v := range run.VerdictCounts {
		verdicts = append(verdicts, v)
	}
	sort.Strings(verdicts)
	for _, v := range verdicts {
		b.WriteString(fmt.Sprintf("  %-20s %d\n", v, run.VerdictCounts[v]))
	}
	if run.FailureCount > 0 {
		b.WriteString(fmt.Sprintf("  %-20s %d\n", "failed", run.FailureCount))
	}
	b.WriteString(fmt.Sprintf("  %-20s %d\n", "symbols", len(run.Records)))
	return b.String()
}

func formatRecordHuman(record evidence.AuditRecord) string {
	var b strings.Builder

	if record.Verdict == "" {
		b.WriteString(fmt.Sprintf("x %s\n", record.Symbol.QualifiedName))
		if record.Failure != nil {
			b.WriteString(fmt.Sprintf("    failed: [%s] %s\n", record.Failure.Code, record.Failure.Message))
		}
		return b.String()
	}

	glyph := verdictGlyphs[string(record.Verdict)]
	if glyph == "" {
		glyph = "-"
	}
	b.WriteString(fmt.Sprintf("%s %s: %s", glyph, record.Symbol.QualifiedName, record.Verdict))
	if record.TriggeredRuleID != "" {
		b.WriteString(fmt.Sprintf(" (%s)", record.TriggeredRuleID))
	}
	b.WriteString("\n")

	if record.Anchor != nil {
		b.WriteString(fmt.Sprintf("    anchored %s @ %s (confidence %s)\n",
			record.Anchor.AnchorTimestamp.Format("2006-01-02"),
			shortRevision(record.Anchor.AnchorRevisionID),
			record.Anchor.Confidence))
		b.WriteString(fmt.Sprintf("    intent: %s\n", firstLine(record.Anchor.IntentDescription)))
	}

	for _, role := range record.Roles {
		marker := " "
		if role.IsOriginalIntentRole {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("   %s role %-12s %5.1f%%  %s\n",
			marker, role.ID, role.UsagePercentage*100, role.CentroidDescription))
	}

	if record.Failure != nil {
		b.WriteString(fmt.Sprintf("    downgraded: [%s] %s\n", record.Failure.Code, record.Failure.Message))
	}
	for _, note := range record.Notes {
		b.WriteString(fmt.Sprintf("    note: %s\n", note))
	}
	return b.String()
}

func formatRunListHuman(runs []storage.RunSummary) string {
	if len(runs) == 0 {
		return "No stored audit runs.\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-38s %-21s %8s  %s\n", "RUN", "STARTED", "SYMBOLS", "VERDICTS"))
	for _, run := range runs {
		verdicts := make([]string, 0, len(run.VerdictCounts))
		for v := range run.VerdictCounts {
			verdicts = append(verdicts, v)
		}
		sort.Strings(verdicts)
		parts := make([]string, 0, len(verdicts))
		for _, v := range verdicts {
			parts = append(parts, fmt.Sprintf("%s=%d", v, run.VerdictCounts[v]))
		}
		b.WriteString(fmt.Sprintf("%-38s %-21s %8d  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.SymbolCount,
			strings.Join(parts, " ")))
	}
	return b.String()
}

func formatExtractionHuman(report *ExtractionReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Extracted %d intent anchors from %s\n", report.TotalAnchors, report.Repository))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, a := range report.Anchors {
		b.WriteString(fmt.Sprintf("%s\n", a.Symbol.QualifiedName))
		b.WriteString(fmt.Sprintf("    anchored %s @ %s (confidence %s)\n",
			a.AnchorTimestamp.Format("2006-01-02"), shortRevision(a.AnchorRevisionID), a.Confidence))
		b.WriteString(fmt.Sprintf("    intent: %s\n", firstLine(a.IntentDescription)))
		for _, assumption := range a.Assumptions {
			b.WriteString(fmt.Sprintf("    assumes: %s\n", assumption.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
