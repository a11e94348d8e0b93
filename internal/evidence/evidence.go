// Package evidence packages pipeline output into self-contained audit
// records. Every record carries enough material for a human to see why its
// verdict was reached.
package evidence

import (
	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/cluster"
	"github.com/Tanishq1030/Anchor/internal/collector"
	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/rules"
)

const (
	minSamplesPerRole = 3
	maxSamplesPerRole = 5
)

// RoleEvidence is a serializable view of one semantic role with a small
// representative sample of its member contexts.
type RoleEvidence struct {
	ID                   string                      `json:"id"`
	CentroidDescription  string                      `json:"centroid_description"`
	UsagePercentage      float64                     `json:"usage_percentage"`
	IsOriginalIntentRole bool                        `json:"is_original_intent_role"`
	Unclustered          bool                        `json:"unclustered,omitempty"`
	MemberCount          int                         `json:"member_count"`
	Samples              []collector.CallSiteContext `json:"samples"`
}

// Failure explains why a symbol produced no substantive verdict.
type Failure struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// AuditRecord is the immutable output artifact, one per symbol. It is fully
// self-contained: no live references back into the corpus, and no clock
// fields, so identical input always yields a byte-identical record.
type AuditRecord struct {
	Symbol          corpus.Symbol             `json:"symbol"`
	Anchor          *anchorpoint.IntentAnchor `json:"anchor,omitempty"`
	Roles           []RoleEvidence            `json:"roles,omitempty"`
	Verdict         rules.Verdict             `json:"verdict"`
	TriggeredRuleID string                    `json:"triggered_rule_id,omitempty"`

	// Inputs snapshots the exact values the rule table saw, and Thresholds
	// the configuration they were compared against.
	Inputs     *rules.Inputs            `json:"inputs,omitempty"`
	Thresholds *config.ThresholdsConfig `json:"thresholds,omitempty"`

	Notes   []string `json:"notes,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// Assembler builds audit records.
type Assembler struct {
	samplesPerRole int
	thresholds     config.ThresholdsConfig
}

func NewAssembler(cfg *config.Config) *Assembler {
	n := cfg.Evidence.SamplesPerRole
	if n < minSamplesPerRole {
		n = minSamplesPerRole
	}
	if n > maxSamplesPerRole {
		n = maxSamplesPerRole
	}
	return &Assembler{samplesPerRole: n, thresholds: cfg.Thresholds}
}

// Assemble packages a completed pipeline run for one symbol. Samples are the
// first members of each role in canonical order, so the record is a pure
// function of the pipeline output; the original-intent role always
// contributes at least one sample by construction.
func (a *Assembler) Assemble(anchor anchorpoint.IntentAnchor, res *cluster.Result, in rules.Inputs, verdict rules.Verdict, ruleID string) AuditRecord {
	roles := make([]RoleEvidence, 0, len(res.Roles))
	for _, role := range res.Roles {
		samples := role.Members
		if len(samples) > a.samplesPerRole {
			samples = samples[:a.samplesPerRole]
		}
		copied := make([]collector.CallSiteContext, len(samples))
		copy(copied, samples)
		roles = append(roles, RoleEvidence{
			ID:                   role.ID,
			CentroidDescription:  role.CentroidDescription,
			UsagePercentage:      role.UsagePercentage,
			IsOriginalIntentRole: role.IsOriginalIntentRole,
			Unclustered:          role.Unclustered,
			MemberCount:          len(role.Members),
			Samples:              copied,
		})
	}

	anchorCopy := anchor
	thresholds := a.thresholds
	record := AuditRecord{
		Symbol:          anchor.Symbol,
		Anchor:          &anchorCopy,
		Roles:           roles,
		Verdict:         verdict,
		TriggeredRuleID: ruleID,
		Inputs:          &in,
		Thresholds:      &thresholds,
		Notes:           buildNotes(in, thresholds),
	}
	return record
}

// Downgraded records a symbol whose pipeline hit a recoverable condition:
// the verdict is confidence_too_low with the reason attached, never a
// guessed substantive verdict.
func (a *Assembler) Downgraded(sym corpus.Symbol, anchor *anchorpoint.IntentAnchor, err error) AuditRecord {
	thresholds := a.thresholds
	return AuditRecord{
		Symbol:     sym,
		Anchor:     anchor,
		Verdict:    rules.VerdictConfidenceTooLow,
		Thresholds: &thresholds,
		Failure: &Failure{
			Code:    errors.CodeOf(err),
			Message: err.Error(),
		},
	}
}

// Failed records a hard per-symbol failure (no anchor, no usages, invariant
// violation). The record carries no verdict beyond the failure itself.
func (a *Assembler) Failed(sym corpus.Symbol, err error) AuditRecord {
	return AuditRecord{
		Symbol: sym,
		Failure: &Failure{
			Code:    errors.CodeOf(err),
			Message: err.Error(),
		},
	}
}

// buildNotes attaches flag-don't-resolve annotations for boundary cases a
// reviewer should see, like role pairs landing between the distinct and
// variant similarity thresholds.
func buildNotes(in rules.Inputs, t config.ThresholdsConfig) []string {
	var notes []string
	if in.RoleCount >= 2 &&
		in.MinPairwiseSimilarity >= t.DistinctRoleSimilarity &&
		in.MinPairwiseSimilarity <= t.VariantRoleSimilarity {
		notes = append(notes, "role similarity falls between the distinct and variant thresholds; treat role boundaries as contested")
	}
	if in.UnclusteredShare > 0 {
		notes = append(notes, "some contexts matched no role; see the unclustered role for the residue")
	}
	return notes
}
