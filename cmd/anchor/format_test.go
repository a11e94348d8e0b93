package main

import (
	"strings"
	"testing"
	"time"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	"github.com/Tanishq1030/Anchor/internal/engine"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/evidence"
	"github.com/Tanishq1030/Anchor/internal/rules"
	"github.com/Tanishq1030/Anchor/internal/storage"
)

func sampleRunResult() *engine.RunResult {
	anchor := &anchorpoint.IntentAnchor{
		Symbol:            corpus.Symbol{QualifiedName: "forms.py:render"},
		AnchorRevisionID:  "deadbeefdeadbeefdeadbeef",
		AnchorTimestamp:   time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
		IntentDescription: "render HTML forms",
		Confidence:        anchorpoint.ConfidenceHigh,
	}
	return &engine.RunResult{
		RunID: "run-1",
		Records: []evidence.AuditRecord{
			{
				Symbol:          corpus.Symbol{QualifiedName: "forms.py:render"},
				Anchor:          anchor,
				Verdict:         rules.VerdictIntentViolation,
				TriggeredRuleID: "R4-intent-violation",
				Roles: []evidence.RoleEvidence{
					{ID: "role-01", UsagePercentage: 0.75, CentroidDescription: "api, validation"},
					{ID: "role-02", UsagePercentage: 0.25, CentroidDescription: "html, form", IsOriginalIntentRole: true},
				},
			},
			{
				Symbol: corpus.Symbol{QualifiedName: "gen.py:ghost"},
				Failure: &evidence.Failure{
					Code:    errors.AnchorNotFound,
					Message: "no creditable creation revision",
				},
			},
		},
		VerdictCounts: map[string]int{"intent_violation": 1},
		FailureCount:  1,
	}
}

func TestFormatRunJSON(t *testing.T) {
	out, err := FormatResponse(sampleRunResult(), FormatJSON)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}
	if !strings.Contains(out, `"verdict": "intent_violation"`) {
		t.Errorf("JSON output missing verdict:\n%s", out)
	}
}

func TestFormatRunHuman(t *testing.T) {
	out, err := FormatResponse(sampleRunResult(), FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}

	for _, want := range []string{
		"forms.py:render: intent_violation (R4-intent-violation)",
		"anchored 2019-03-01 @ deadbeefdead",
		"intent: render HTML forms",
		"* role role-02",
		"[ANCHOR_NOT_FOUND] no creditable creation revision",
		"intent_violation     1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRunListHuman(t *testing.T) {
	runs := []storage.RunSummary{
		{
			ID:            "run-1",
			StartedAt:     time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			SymbolCount:   12,
			VerdictCounts: map[string]int{"aligned": 10, "confidence_too_low": 2},
		},
	}
	out, err := FormatResponse(runs, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}
	if !strings.Contains(out, "aligned=10 confidence_too_low=2") {
		t.Errorf("run list output:\n%s", out)
	}

	empty, err := FormatResponse([]storage.RunSummary{}, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}
	if !strings.Contains(empty, "No stored audit runs") {
		t.Errorf("empty run list output:\n%s", empty)
	}
}

func TestFormatUnsupported(t *testing.T) {
	if _, err := FormatResponse(nil, OutputFormat("xml")); err == nil {
		t.Error("xml format should be rejected")
	}
}

func TestFilterRun(t *testing.T) {
	filtered := filterRun(sampleRunResult(), "intent_violation")
	if len(filtered.Records) != 1 {
		t.Fatalf("filtered records = %d, want 1", len(filtered.Records))
	}
	if filtered.Records[0].Symbol.QualifiedName != "forms.py:render" {
		t.Errorf("filtered symbol = %s", filtered.Records[0].Symbol.QualifiedName)
	}
}
