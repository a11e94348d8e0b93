package anchorpoint

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

// Extractor locates anchor commits and derives frozen intent anchors.
type Extractor struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *Registry
}

// NewExtractor creates an anchor extractor. The redefinition registry is
// loaded from .anchor/redefinitions.toml under the configured repo root.
func NewExtractor(cfg *config.Config, logger *logging.Logger) *Extractor {
	return &Extractor{
		cfg:      cfg,
		logger:   logger,
		registry: LoadRegistry(cfg.RepoRoot, logger),
	}
}

// Registry exposes the redefinition registry, for commands that append to it.
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// Extract scans a symbol's history chronologically and returns its anchor
// epoch log: the creation anchor plus one epoch per recorded redefinition.
//
// Fails with AnchorNotFound when no creditable creation revision exists.
// A history shorter than the configured minimum downgrades confidence to low
// instead of failing.
func (e *Extractor) Extract(ctx context.Context, sym corpus.Symbol, history []corpus.Revision) (*Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	anchorRev, ok := findAnchorRevision(history)
	if !ok {
		return nil, errors.New(
			errors.AnchorNotFound,
			"No creditable creation revision for symbol",
			nil,
		).WithDetails(map[string]interface{}{"symbol": sym.QualifiedName})
	}

	intent := deriveIntent(anchorRev)
	assumptions := DeriveAssumptions(anchorRev.SymbolBody)
	confidence := gradeConfidence(anchorRev, len(history), e.cfg.Thresholds)

	confidenceReason := ""
	if len(history) < e.cfg.Thresholds.MinHistoryRevisions {
		e.logger.Debug("History below configured minimum, downgrading confidence", map[string]interface{}{
			"symbol":    sym.QualifiedName,
			"revisions": len(history),
			"code":      string(errors.InsufficientEvidence),
		})
		confidence = ConfidenceLow
		confidenceReason = string(errors.InsufficientEvidence)
	}

	log := NewLog(IntentAnchor{
		Symbol:            sym,
		AnchorRevisionID:  anchorRev.ID,
		AnchorTimestamp:   anchorRev.Timestamp,
		IntentDescription: intent,
		Assumptions:       assumptions,
		Confidence:        confidence,
		ConfidenceReason:  confidenceReason,
	})

	// Recorded redefinitions append later epochs; the rule engine always
	// compares against the latest.
	for _, redef := range e.registry.For(sym.QualifiedName) {
		if !redef.Timestamp.After(log.Current().AnchorTimestamp) {
			e.logger.Warn("Skipping redefinition not newer than active anchor", map[string]interface{}{
				"symbol":    sym.QualifiedName,
				"timestamp": redef.Timestamp,
			})
			continue
		}
		log.Append(IntentAnchor{
			Symbol:               sym,
			AnchorRevisionID:     fmt.Sprintf("redefinition@%s", redef.Timestamp.UTC().Format("2006-01-02")),
			AnchorTimestamp:      redef.Timestamp,
			IntentDescription:    redef.Intent,
			Assumptions:          manualAssumptions(redef.Assumptions),
			Confidence:           ConfidenceHigh,
			IsManualRedefinition: true,
		})
	}

	return log, nil
}

// findAnchorRevision picks the earliest non-spike revision where the symbol
// exists with a stable name and a non-trivial body or a docstring. The
// corpus guarantees bodies are materialized at least up to the first such
// revision.
func findAnchorRevision(history []corpus.Revision) (corpus.Revision, bool) {
	for _, rev := range history {
		if rev.CreditableAnchor() {
			return rev, true
		}
	}
	return corpus.Revision{}, false
}

// IsSpikeRevision reports whether a revision looks like a throwaway or
// reorganization commit.
func IsSpikeRevision(rev corpus.Revision) bool {
	return rev.IsSpike()
}

// deriveIntent prefers attached documentation, falling back to the anchor
// commit message and the definition line.
func deriveIntent(rev corpus.Revision) string {
	if rev.Docstring != "" {
		return rev.Docstring
	}

	firstLine := rev.SymbolBody
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	return strings.TrimSpace(rev.Message + ": " + strings.TrimSpace(firstLine))
}

func gradeConfidence(rev corpus.Revision, revisions int, t config.ThresholdsConfig) Confidence {
	hasDoc := rev.Docstring != ""
	deepHistory := revisions >= t.HighConfidenceRevisions

	switch {
	case hasDoc && deepHistory:
		return ConfidenceHigh
	case hasDoc || deepHistory:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// assumptionSignals maps structural tokens in the anchor-time body to the
// behavioral facts they imply. Order fixes assumption ordering in output.
var assumptionSignals = []struct {
	pattern     *regexp.Regexp
	signal      string
	description string
}{
	{regexp.MustCompile(`(?i)\b(open|read|write|readfile|writefile)\s*\(`), "file-io", "performs file I/O"},
	{regexp.MustCompile(`(?i)\b(lock|mutex|rlock|semaphore|synchronized|atomic)\b`), "synchronization", "uses synchronization primitives"},
	{regexp.MustCompile(`(?i)\b(http|request|socket|urlopen|fetch)\b`), "network", "performs network access"},
	{regexp.MustCompile(`(?i)\b(sql|select|insert|update|delete|query|commit|save)\s*[\(\s]`), "persistence", "persists or queries stored data"},
	{regexp.MustCompile(`(?i)\b(session|cookie)\b`), "session-state", "reads or writes session state"},
	{regexp.MustCompile(`(?i)\b(try|except|catch|raise|panic|recover)\b|err\s*!=\s*nil`), "error-handling", "handles failure paths explicitly"},
	{regexp.MustCompile(`(?i)\b(hash|encrypt|digest|password|credential)\b`), "credentials", "handles credentials or hashing"},
	{regexp.MustCompile(`(?i)\b(render|template|html)\b`), "rendering", "renders templated output"},
	{regexp.MustCompile(`(?i)\b(validate|clean|is_valid|sanitize)\b`), "validation", "validates its input"},
	{regexp.MustCompile(`(?i)\b(cache|memoize)\b`), "caching", "caches derived results"},
}

var collaboratorCall = regexp.MustCompile(`(?:self|this)\.([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)

// DeriveAssumptions extracts behavioral facts from an anchor-time body.
// Assumptions are facts about the original implementation, not opinions;
// each carries the signal token used later to test whether current usage
// still exercises it.
func DeriveAssumptions(body string) []Assumption {
	var out []Assumption

	for _, s := range assumptionSignals {
		if s.pattern.MatchString(body) {
			out = append(out, Assumption{Description: s.description, Signal: s.signal})
		}
	}

	seen := map[string]struct{}{}
	for _, m := range collaboratorCall.FindAllStringSubmatch(body, -1) {
		method := m[1]
		if _, ok := seen[method]; ok {
			continue
		}
		seen[method] = struct{}{}
		out = append(out, Assumption{
			Description: "calls collaborator method " + method,
			Signal:      method,
		})
	}

	return out
}

// SignalExercised reports whether a text window exhibits the behavior an
// assumption signal implies. Structural signals match via their original
// pattern; collaborator-method signals match as substrings of the window.
func SignalExercised(signal, window string) bool {
	if signal == "" {
		return false
	}
	for _, s := range assumptionSignals {
		if s.signal == signal {
			return s.pattern.MatchString(window)
		}
	}
	return strings.Contains(strings.ToLower(window), strings.ToLower(signal))
}

func manualAssumptions(descriptions []string) []Assumption {
	out := make([]Assumption, 0, len(descriptions))
	for _, d := range descriptions {
		out = append(out, Assumption{Description: d, Signal: ""})
	}
	return out
}
