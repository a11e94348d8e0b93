// Package rules holds the drift decision table: an ordered list of
// predicate-to-verdict mappings evaluated over a flat input structure.
// Evaluation is a pure function, the system's only decision point.
package rules

import (
	"fmt"
	"math"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/cluster"
	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/errors"
)

// Verdict is one of the five audit outcomes. Never a score.
type Verdict string

const (
	VerdictAligned           Verdict = "aligned"
	VerdictSemanticOverload  Verdict = "semantic_overload"
	VerdictIntentViolation   Verdict = "intent_violation"
	VerdictDependencyInertia Verdict = "dependency_inertia"
	VerdictConfidenceTooLow  Verdict = "confidence_too_low"
)

// majorityShare is the displaced-primary boundary in the intent violation
// rule. A fixed part of the verdict contract, like the configured thresholds.
const majorityShare = 0.50

const percentageTolerance = 1e-6

// Inputs is the flat structure the rule table reads. Every field is derived
// before evaluation; predicates do no computation beyond comparisons.
type Inputs struct {
	AnchorConfidence anchorpoint.Confidence `json:"anchor_confidence"`
	CallSiteCount    int                    `json:"call_site_count"`

	// RoleCount and MaxRoleShare cover clustered roles only; the residual
	// unclustered role is tracked by UnclusteredShare.
	RoleCount             int     `json:"role_count"`
	MaxRoleShare          float64 `json:"max_role_share"`
	MinPairwiseSimilarity float64 `json:"min_pairwise_similarity"`
	UnclusteredShare      float64 `json:"unclustered_share"`

	IntentAlignmentShare     float64 `json:"intent_alignment_share"`
	PrimaryIsOriginalIntent  bool    `json:"primary_is_original_intent"`
	OriginalIntentRoleExists bool    `json:"original_intent_role_exists"`
	OriginalIntentRoleShare  float64 `json:"original_intent_role_share"`
	PrimaryRoleShare         float64 `json:"primary_role_share"`

	ViolatedAssumptions   int     `json:"violated_assumptions"`
	UnusedAssumptionShare float64 `json:"unused_assumption_share"`

	MeaningfulChangesInWindow   int     `json:"meaningful_changes_in_window"`
	DocumentedAlternativeExists bool    `json:"documented_alternative_exists"`
	WorkaroundShare             float64 `json:"workaround_share"`
	DependentCount              int     `json:"dependent_count"`
}

// Rule binds one verdict to its predicate. Rules are data: the table below
// is the product contract, and changing a threshold changes the product.
type Rule struct {
	ID      string
	Verdict Verdict
	When    func(in Inputs, t config.ThresholdsConfig) bool
}

// Table is evaluated in order; the first matching rule wins. The trailing
// fallback always matches, so evaluation selects exactly one verdict.
var Table = []Rule{
	{
		ID:      "R1-confidence-gate",
		Verdict: VerdictConfidenceTooLow,
		When: func(in Inputs, t config.ThresholdsConfig) bool {
			return in.AnchorConfidence == anchorpoint.ConfidenceLow ||
				in.CallSiteCount < t.MinCallSites ||
				in.UnclusteredShare >= t.UnclusteredShare
		},
	},
	{
		ID:      "R2-aligned",
		Verdict: VerdictAligned,
		When: func(in Inputs, t config.ThresholdsConfig) bool {
			coherent := in.RoleCount == 1 || in.MinPairwiseSimilarity > t.VariantRoleSimilarity
			return coherent &&
				in.IntentAlignmentShare >= t.IntentAlignmentShare &&
				in.ViolatedAssumptions == 0 &&
				in.MeaningfulChangesInWindow >= 1
		},
	},
	{
		ID:      "R3-dependency-inertia",
		Verdict: VerdictDependencyInertia,
		When: func(in Inputs, t config.ThresholdsConfig) bool {
			return in.MeaningfulChangesInWindow < t.MinMeaningfulChanges &&
				in.DocumentedAlternativeExists &&
				in.WorkaroundShare >= t.WorkaroundShare &&
				in.DependentCount > t.MinDependents
		},
	},
	{
		ID:      "R4-intent-violation",
		Verdict: VerdictIntentViolation,
		When: func(in Inputs, t config.ThresholdsConfig) bool {
			return in.PrimaryRoleShare > majorityShare &&
				!in.PrimaryIsOriginalIntent &&
				in.OriginalIntentRoleExists &&
				in.OriginalIntentRoleShare > 0 &&
				in.OriginalIntentRoleShare < majorityShare &&
				in.UnusedAssumptionShare > majorityShare
		},
	},
	{
		ID:      "R5-semantic-overload",
		Verdict: VerdictSemanticOverload,
		When: func(in Inputs, t config.ThresholdsConfig) bool {
			return in.RoleCount >= 2 &&
				in.MaxRoleShare <= t.DominanceShare &&
				in.MinPairwiseSimilarity < t.DistinctRoleSimilarity &&
				in.OriginalIntentRoleShare > 0.20
		},
	},
	{
		ID:      "R6-fallback",
		Verdict: VerdictConfidenceTooLow,
		When:    func(Inputs, config.ThresholdsConfig) bool { return true },
	},
}

// Evaluate runs the table and returns the selected verdict with the rule
// that fired. Pure: no I/O, no randomness, no clock.
func Evaluate(in Inputs, t config.ThresholdsConfig) (Verdict, string) {
	for _, r := range Table {
		if r.When(in, t) {
			return r.Verdict, r.ID
		}
	}
	// Unreachable: the fallback rule always matches.
	return VerdictConfidenceTooLow, "R6-fallback"
}

// HistoryStats carries the temporal signals derived from revision history.
type HistoryStats struct {
	MeaningfulChangesInWindow   int
	DependentCount              int
	DocumentedAlternativeExists bool
}

// BuildInputs validates clustering output and flattens it with the anchor
// and history stats into the rule table's input structure.
//
// Structural defects here are pipeline bugs, not data problems, so they fail
// hard with INVARIANT_VIOLATION instead of being silently corrected.
func BuildInputs(anchor anchorpoint.IntentAnchor, res *cluster.Result, stats HistoryStats) (Inputs, error) {
	if err := validateRoles(res); err != nil {
		return Inputs{}, err
	}

	unusedCount := countUnusedAssumptions(anchor.Assumptions, res)

	in := Inputs{
		AnchorConfidence:            anchor.Confidence,
		MinPairwiseSimilarity:       res.MinPairwiseSimilarity,
		UnclusteredShare:            res.UnclusteredShare,
		IntentAlignmentShare:        res.IntentAlignmentShare,
		WorkaroundShare:             res.WorkaroundShare,
		MeaningfulChangesInWindow:   stats.MeaningfulChangesInWindow,
		DependentCount:              stats.DependentCount,
		DocumentedAlternativeExists: stats.DocumentedAlternativeExists,
		ViolatedAssumptions:         unusedCount,
		UnusedAssumptionShare:       assumptionShare(unusedCount, len(anchor.Assumptions)),
	}

	for _, role := range res.Roles {
		in.CallSiteCount += len(role.Members)
		if role.Unclustered {
			continue
		}
		in.RoleCount++
		if role.UsagePercentage > in.MaxRoleShare {
			in.MaxRoleShare = role.UsagePercentage
		}
		// Roles arrive ordered largest-first, so the first clustered role
		// is the primary.
		if in.PrimaryRoleShare == 0 {
			in.PrimaryRoleShare = role.UsagePercentage
			in.PrimaryIsOriginalIntent = role.IsOriginalIntentRole
		}
		if role.IsOriginalIntentRole && !in.OriginalIntentRoleExists {
			in.OriginalIntentRoleExists = true
			in.OriginalIntentRoleShare = role.UsagePercentage
		}
	}

	return in, nil
}

func validateRoles(res *cluster.Result) error {
	var sum float64
	seen := map[string]string{}
	for _, role := range res.Roles {
		sum += role.UsagePercentage
		for _, m := range role.Members {
			if prev, ok := seen[m.Key()]; ok {
				return errors.New(
					errors.InvariantViolation,
					fmt.Sprintf("context %s belongs to roles %s and %s", m.Key(), prev, role.ID),
					nil,
				)
			}
			seen[m.Key()] = role.ID
		}
	}
	if len(res.Roles) > 0 && math.Abs(sum-1.0) > percentageTolerance {
		return errors.New(
			errors.InvariantViolation,
			fmt.Sprintf("role usage percentages sum to %.9f", sum),
			nil,
		)
	}
	return nil
}

// countUnusedAssumptions reports how many anchor-time assumptions no context
// window exercises. Detection is lexical and deliberately generous toward the
// symbol: an assumption only counts as unused when its signal appears in no
// window at all.
func countUnusedAssumptions(assumptions []anchorpoint.Assumption, res *cluster.Result) int {
	unused := 0
	for _, a := range assumptions {
		if a.Signal == "" {
			continue
		}
		if !assumptionExercised(a, res) {
			unused++
		}
	}
	return unused
}

func assumptionShare(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func assumptionExercised(a anchorpoint.Assumption, res *cluster.Result) bool {
	for _, role := range res.Roles {
		for _, m := range role.Members {
			if anchorpoint.SignalExercised(a.Signal, m.Window) {
				return true
			}
		}
	}
	return false
}
