// Package anchorpoint derives a symbol's frozen intent anchor from history.
// An anchor is the earliest creditable statement of what a symbol was built
// to do; redefinitions start new epochs but never erase earlier ones.
package anchorpoint

import (
	"time"

	"github.com/Tanishq1030/Anchor/internal/corpus"
)

// Confidence grades how much evidence backs an anchor
type Confidence string

const (
	// ConfidenceHigh requires a docstring and a deep revision history
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium requires one of the two criteria
	ConfidenceMedium Confidence = "medium"
	// ConfidenceLow means neither criterion holds
	ConfidenceLow Confidence = "low"
)

// Assumption is a fact about the original implementation, derived from
// structural signals in the anchor-time body. Signal is the lexical token
// that produced the assumption; the rule engine later checks whether any
// current context still exercises it.
type Assumption struct {
	Description string `json:"description"`
	Signal      string `json:"signal"`
}

// IntentAnchor is the frozen statement of a symbol's original purpose,
// tied to a specific historical point. Immutable once created.
type IntentAnchor struct {
	Symbol               corpus.Symbol `json:"symbol"`
	AnchorRevisionID     string        `json:"anchorRevisionId"`
	AnchorTimestamp      time.Time     `json:"anchorTimestamp"`
	IntentDescription    string        `json:"intentDescription"`
	Assumptions          []Assumption  `json:"assumptions"`
	Confidence           Confidence    `json:"confidence"`
	// ConfidenceReason carries the stable error code explaining a downgraded
	// confidence grade, e.g. INSUFFICIENT_EVIDENCE for a too-thin history.
	ConfidenceReason     string        `json:"confidenceReason,omitempty"`
	IsManualRedefinition bool          `json:"isManualRedefinition"`
}

// Log is the append-only sequence of anchor epochs for one symbol.
// The latest entry is the active comparison baseline.
type Log struct {
	entries []IntentAnchor
}

// NewLog creates a log seeded with the extracted anchor.
func NewLog(anchor IntentAnchor) *Log {
	return &Log{entries: []IntentAnchor{anchor}}
}

// Append adds a new epoch. Entries are never removed or rewritten.
func (l *Log) Append(anchor IntentAnchor) {
	l.entries = append(l.entries, anchor)
}

// Current returns the active anchor (the latest epoch).
func (l *Log) Current() IntentAnchor {
	return l.entries[len(l.entries)-1]
}

// Epochs returns all epochs oldest first. The returned slice is a copy.
func (l *Log) Epochs() []IntentAnchor {
	out := make([]IntentAnchor, len(l.entries))
	copy(out, l.entries)
	return out
}
