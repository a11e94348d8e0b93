package evidence

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/cluster"
	"github.com/Tanishq1030/Anchor/internal/collector"
	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	apperrors "github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/rules"
)

func sampleResult() *cluster.Result {
	mk := func(prefix string, n int) []collector.CallSiteContext {
		out := make([]collector.CallSiteContext, n)
		for i := range out {
			out[i] = collector.CallSiteContext{
				Path: fmt.Sprintf("%s_%02d.py", prefix, i), Line: 5, Revision: "head",
				Window: prefix + " window",
			}
		}
		return out
	}
	return &cluster.Result{
		Roles: []cluster.SemanticRole{
			{ID: "role-01", Members: mk("api", 12), UsagePercentage: 0.6, CentroidDescription: "api, payload"},
			{ID: "role-02", Members: mk("html", 8), UsagePercentage: 0.4, IsOriginalIntentRole: true, CentroidDescription: "html, form"},
		},
		MinPairwiseSimilarity: 0.3,
	}
}

func TestAssembleSamplesEachRole(t *testing.T) {
	a := NewAssembler(config.DefaultConfig())
	anchor := anchorpoint.IntentAnchor{Symbol: corpus.Symbol{QualifiedName: "forms.py:render"}}

	record := a.Assemble(anchor, sampleResult(), rules.Inputs{RoleCount: 2, MinPairwiseSimilarity: 0.3}, rules.VerdictIntentViolation, "R4-intent-violation")

	if record.Verdict != rules.VerdictIntentViolation || record.TriggeredRuleID != "R4-intent-violation" {
		t.Fatalf("verdict = (%s, %s)", record.Verdict, record.TriggeredRuleID)
	}
	if len(record.Roles) != 2 {
		t.Fatalf("roles = %d", len(record.Roles))
	}
	for _, role := range record.Roles {
		if len(role.Samples) < 3 || len(role.Samples) > 5 {
			t.Errorf("role %s has %d samples, want 3..5", role.ID, len(role.Samples))
		}
	}

	originalSampled := false
	for _, role := range record.Roles {
		if role.IsOriginalIntentRole && len(role.Samples) > 0 {
			originalSampled = true
		}
	}
	if !originalSampled {
		t.Error("original-intent role contributed no samples")
	}
	if record.Roles[0].MemberCount != 12 {
		t.Errorf("member count = %d, want 12", record.Roles[0].MemberCount)
	}
}

func TestAssembleDeterministicSerialization(t *testing.T) {
	a := NewAssembler(config.DefaultConfig())
	anchor := anchorpoint.IntentAnchor{Symbol: corpus.Symbol{QualifiedName: "forms.py:render"}}
	in := rules.Inputs{RoleCount: 2, MinPairwiseSimilarity: 0.3}

	first, err := json.Marshal(a.Assemble(anchor, sampleResult(), in, rules.VerdictSemanticOverload, "R5-semantic-overload"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := json.Marshal(a.Assemble(anchor, sampleResult(), in, rules.VerdictSemanticOverload, "R5-semantic-overload"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("records not byte-identical:\n%s", diff)
	}
}

func TestBoundaryNote(t *testing.T) {
	a := NewAssembler(config.DefaultConfig())
	in := rules.Inputs{RoleCount: 2, MinPairwiseSimilarity: 0.75}

	record := a.Assemble(anchorpoint.IntentAnchor{}, sampleResult(), in, rules.VerdictConfidenceTooLow, "R6-fallback")
	if len(record.Notes) == 0 {
		t.Fatal("similarity between 0.7 and 0.8 should produce a contested-boundary note")
	}
}

func TestDowngradedAndFailedRecords(t *testing.T) {
	a := NewAssembler(config.DefaultConfig())
	sym := corpus.Symbol{QualifiedName: "util.py:f"}

	down := a.Downgraded(sym, nil, apperrors.New(apperrors.InsufficientSamples, "too few call sites", nil))
	if down.Verdict != rules.VerdictConfidenceTooLow {
		t.Errorf("downgraded verdict = %s", down.Verdict)
	}
	if down.Failure == nil || down.Failure.Code != apperrors.InsufficientSamples {
		t.Errorf("downgraded failure = %+v", down.Failure)
	}

	failed := a.Failed(sym, apperrors.New(apperrors.AnchorNotFound, "no creation revision", nil))
	if failed.Verdict != "" {
		t.Errorf("failed record carries verdict %s", failed.Verdict)
	}
	if failed.Failure == nil || failed.Failure.Code != apperrors.AnchorNotFound {
		t.Errorf("failed failure = %+v", failed.Failure)
	}
}
