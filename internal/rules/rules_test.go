package rules

import (
	"testing"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/cluster"
	"github.com/Tanishq1030/Anchor/internal/collector"
	"github.com/Tanishq1030/Anchor/internal/config"
	apperrors "github.com/Tanishq1030/Anchor/internal/errors"
)

func thresholds() config.ThresholdsConfig {
	return config.DefaultConfig().Thresholds
}

// healthyInputs describes a symbol no substantive rule should flag except
// aligned. Each test case perturbs it toward one verdict.
func healthyInputs() Inputs {
	return Inputs{
		AnchorConfidence:          anchorpoint.ConfidenceHigh,
		CallSiteCount:             40,
		RoleCount:                 1,
		MaxRoleShare:              1.0,
		MinPairwiseSimilarity:     1.0,
		UnclusteredShare:          0,
		IntentAlignmentShare:      1.0,
		PrimaryIsOriginalIntent:   true,
		OriginalIntentRoleExists:  true,
		OriginalIntentRoleShare:   1.0,
		PrimaryRoleShare:          1.0,
		ViolatedAssumptions:       0,
		UnusedAssumptionShare:     0,
		MeaningfulChangesInWindow: 2,
		DependentCount:            10,
	}
}

func TestEvaluateVerdicts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		mutate      func(*Inputs)
		wantVerdict Verdict
		wantRule    string
	}{
		{
			name:        "aligned single role",
			mutate:      func(in *Inputs) {},
			wantVerdict: VerdictAligned,
			wantRule:    "R2-aligned",
		},
		{
			name: "low anchor confidence gates everything",
			mutate: func(in *Inputs) {
				in.AnchorConfidence = anchorpoint.ConfidenceLow
			},
			wantVerdict: VerdictConfidenceTooLow,
			wantRule:    "R1-confidence-gate",
		},
		{
			name: "fifteen call sites below minimum",
			mutate: func(in *Inputs) {
				in.CallSiteCount = 15
			},
			wantVerdict: VerdictConfidenceTooLow,
			wantRule:    "R1-confidence-gate",
		},
		{
			name: "unclustered share at the boundary",
			mutate: func(in *Inputs) {
				in.UnclusteredShare = 0.10
			},
			wantVerdict: VerdictConfidenceTooLow,
			wantRule:    "R1-confidence-gate",
		},
		{
			name: "overload at sixty forty split",
			mutate: func(in *Inputs) {
				in.RoleCount = 2
				in.MaxRoleShare = 0.60
				in.PrimaryRoleShare = 0.60
				in.PrimaryIsOriginalIntent = false
				in.OriginalIntentRoleShare = 0.40
				in.MinPairwiseSimilarity = 0.30
				in.IntentAlignmentShare = 0.40
			},
			wantVerdict: VerdictSemanticOverload,
			wantRule:    "R5-semantic-overload",
		},
		{
			name: "three way thirty thirty thirty overload",
			mutate: func(in *Inputs) {
				in.RoleCount = 3
				in.MaxRoleShare = 0.34
				in.PrimaryRoleShare = 0.34
				in.PrimaryIsOriginalIntent = false
				in.OriginalIntentRoleShare = 0.30
				in.MinPairwiseSimilarity = 0.40
				in.IntentAlignmentShare = 0.30
			},
			wantVerdict: VerdictSemanticOverload,
			wantRule:    "R5-semantic-overload",
		},
		{
			name: "violation at fifty one forty nine",
			mutate: func(in *Inputs) {
				in.RoleCount = 2
				in.MaxRoleShare = 0.51
				in.PrimaryRoleShare = 0.51
				in.PrimaryIsOriginalIntent = false
				in.OriginalIntentRoleShare = 0.49
				in.MinPairwiseSimilarity = 0.30
				in.IntentAlignmentShare = 0.49
				in.ViolatedAssumptions = 2
				in.UnusedAssumptionShare = 0.60
			},
			wantVerdict: VerdictIntentViolation,
			wantRule:    "R4-intent-violation",
		},
		{
			name: "displaced html renderer",
			mutate: func(in *Inputs) {
				in.RoleCount = 2
				in.MaxRoleShare = 0.75
				in.PrimaryRoleShare = 0.75
				in.PrimaryIsOriginalIntent = false
				in.OriginalIntentRoleShare = 0.25
				in.MinPairwiseSimilarity = 0.30
				in.IntentAlignmentShare = 0.25
				in.ViolatedAssumptions = 3
				in.UnusedAssumptionShare = 0.80
			},
			wantVerdict: VerdictIntentViolation,
			wantRule:    "R4-intent-violation",
		},
		{
			name: "frozen symbol with documented alternative",
			mutate: func(in *Inputs) {
				in.MeaningfulChangesInWindow = 0
				in.DocumentedAlternativeExists = true
				in.WorkaroundShare = 0.45
				in.DependentCount = 5000
			},
			wantVerdict: VerdictDependencyInertia,
			wantRule:    "R3-dependency-inertia",
		},
		{
			name: "username password model inertia",
			mutate: func(in *Inputs) {
				in.MeaningfulChangesInWindow = 3
				in.DocumentedAlternativeExists = true
				in.WorkaroundShare = 0.55
				in.DependentCount = 20000
				in.IntentAlignmentShare = 0.55
			},
			wantVerdict: VerdictDependencyInertia,
			wantRule:    "R3-dependency-inertia",
		},
		{
			name: "inertia needs the dependent threshold",
			mutate: func(in *Inputs) {
				in.MeaningfulChangesInWindow = 0
				in.DocumentedAlternativeExists = true
				in.WorkaroundShare = 0.45
				in.DependentCount = 1000
			},
			wantVerdict: VerdictConfidenceTooLow,
			wantRule:    "R6-fallback",
		},
		{
			name: "drifted but ambiguous falls back",
			mutate: func(in *Inputs) {
				in.RoleCount = 2
				in.MaxRoleShare = 0.70
				in.PrimaryRoleShare = 0.70
				in.PrimaryIsOriginalIntent = false
				in.OriginalIntentRoleShare = 0.30
				in.MinPairwiseSimilarity = 0.30
				in.IntentAlignmentShare = 0.30
				in.UnusedAssumptionShare = 0.20
			},
			wantVerdict: VerdictConfidenceTooLow,
			wantRule:    "R6-fallback",
		},
		{
			name: "no meaningful change blocks aligned",
			mutate: func(in *Inputs) {
				in.MeaningfulChangesInWindow = 0
			},
			wantVerdict: VerdictConfidenceTooLow,
			wantRule:    "R6-fallback",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := healthyInputs()
			tc.mutate(&in)
			verdict, rule := Evaluate(in, thresholds())
			if verdict != tc.wantVerdict || rule != tc.wantRule {
				t.Errorf("Evaluate = (%s, %s), want (%s, %s)", verdict, rule, tc.wantVerdict, tc.wantRule)
			}
		})
	}
}

// TestExactlyOneRuleFires sweeps synthetic input combinations and asserts
// evaluation always lands on exactly one verdict: the first match wins and
// the fallback catches everything else.
func TestExactlyOneRuleFires(t *testing.T) {
	t.Parallel()
	th := thresholds()

	confidences := []anchorpoint.Confidence{
		anchorpoint.ConfidenceHigh, anchorpoint.ConfidenceLow,
	}
	counts := []int{15, 40}
	shares := []float64{0.25, 0.49, 0.51, 0.60, 1.0}
	similarities := []float64{0.3, 0.85}
	changes := []int{0, 2, 12}

	for _, conf := range confidences {
		for _, count := range counts {
			for _, primary := range shares {
				for _, sim := range similarities {
					for _, ch := range changes {
						in := Inputs{
							AnchorConfidence:            conf,
							CallSiteCount:               count,
							RoleCount:                   2,
							MaxRoleShare:                primary,
							PrimaryRoleShare:            primary,
							MinPairwiseSimilarity:       sim,
							OriginalIntentRoleExists:    true,
							OriginalIntentRoleShare:     1 - primary,
							IntentAlignmentShare:        1 - primary,
							UnusedAssumptionShare:       0.6,
							MeaningfulChangesInWindow:   ch,
							DocumentedAlternativeExists: true,
							WorkaroundShare:             0.45,
							DependentCount:              5000,
						}
						matches := 0
						for _, r := range Table {
							if r.When(in, th) {
								matches++
								break
							}
						}
						if matches != 1 {
							t.Fatalf("inputs %+v matched %d rules", in, matches)
						}
						verdict, _ := Evaluate(in, th)
						if verdict == "" {
							t.Fatalf("empty verdict for %+v", in)
						}
					}
				}
			}
		}
	}
}

func role(id string, members int, share float64, original bool) cluster.SemanticRole {
	ms := make([]collector.CallSiteContext, members)
	for i := range ms {
		ms[i] = collector.CallSiteContext{Path: id, Line: i, Revision: "head", Window: "open(path) and lock held"}
	}
	return cluster.SemanticRole{
		ID:                   id,
		Members:              ms,
		UsagePercentage:      share,
		IsOriginalIntentRole: original,
	}
}

func TestBuildInputsFlattensRoles(t *testing.T) {
	anchor := anchorpoint.IntentAnchor{
		Confidence: anchorpoint.ConfidenceHigh,
		Assumptions: []anchorpoint.Assumption{
			{Description: "performs file I/O", Signal: "file-io"},
			{Description: "calls collaborator method notify_watchers", Signal: "notify_watchers"},
		},
	}
	res := &cluster.Result{
		Roles: []cluster.SemanticRole{
			role("role-01", 30, 0.6, false),
			role("role-02", 20, 0.4, true),
		},
		MinPairwiseSimilarity: 0.3,
		IntentAlignmentShare:  0.4,
	}

	in, err := BuildInputs(anchor, res, HistoryStats{MeaningfulChangesInWindow: 4, DependentCount: 7})
	if err != nil {
		t.Fatalf("BuildInputs: %v", err)
	}

	if in.CallSiteCount != 50 || in.RoleCount != 2 {
		t.Errorf("counts = (%d sites, %d roles)", in.CallSiteCount, in.RoleCount)
	}
	if in.PrimaryRoleShare != 0.6 || in.PrimaryIsOriginalIntent {
		t.Errorf("primary = (%v, original=%v)", in.PrimaryRoleShare, in.PrimaryIsOriginalIntent)
	}
	if !in.OriginalIntentRoleExists || in.OriginalIntentRoleShare != 0.4 {
		t.Errorf("original role = (%v, %v)", in.OriginalIntentRoleExists, in.OriginalIntentRoleShare)
	}
	// Windows mention open( but never notify_watchers: one of two
	// assumptions is unused.
	if in.ViolatedAssumptions != 1 || in.UnusedAssumptionShare != 0.5 {
		t.Errorf("assumptions = (%d violated, %v unused)", in.ViolatedAssumptions, in.UnusedAssumptionShare)
	}
}

func TestBuildInputsPercentageInvariant(t *testing.T) {
	res := &cluster.Result{
		Roles: []cluster.SemanticRole{
			role("role-01", 30, 0.6, true),
			role("role-02", 20, 0.3, false),
		},
	}
	_, err := BuildInputs(anchorpoint.IntentAnchor{}, res, HistoryStats{})
	if !apperrors.IsCode(err, apperrors.InvariantViolation) {
		t.Fatalf("err = %v, want INVARIANT_VIOLATION", err)
	}
}

func TestBuildInputsDuplicateMembership(t *testing.T) {
	shared := collector.CallSiteContext{Path: "a.py", Line: 1, Revision: "head"}
	res := &cluster.Result{
		Roles: []cluster.SemanticRole{
			{ID: "role-01", Members: []collector.CallSiteContext{shared}, UsagePercentage: 0.5},
			{ID: "role-02", Members: []collector.CallSiteContext{shared}, UsagePercentage: 0.5},
		},
	}
	_, err := BuildInputs(anchorpoint.IntentAnchor{}, res, HistoryStats{})
	if !apperrors.IsCode(err, apperrors.InvariantViolation) {
		t.Fatalf("err = %v, want INVARIANT_VIOLATION", err)
	}
}
