// Package collector gathers call-site contexts for a symbol across the
// current tree and a sample of historical revisions.
package collector

import (
	"context"
	"fmt"
	"sort"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

// CallSiteContext is one observed use of a symbol with enough surrounding
// text to classify the role it plays there.
type CallSiteContext struct {
	Path          string `json:"path"`
	Line          int    `json:"line"`
	Revision      string `json:"revision"`
	EnclosingName string `json:"enclosing_name,omitempty"`
	Module        string `json:"module"`
	Window        string `json:"window"`
	Historical    bool   `json:"historical,omitempty"`
}

// Location identifies a context site for ordering and deduplication.
func (c CallSiteContext) Location() string {
	return fmt.Sprintf("%s:%d", c.Path, c.Line)
}

// Key is unique per (location, revision) pair.
func (c CallSiteContext) Key() string {
	return c.Location() + "@" + c.Revision
}

// Collector assembles a symbol's call-site contexts from a corpus.
type Collector struct {
	corpus corpus.Corpus
	cfg    *config.Config
	logger *logging.Logger
}

func New(c corpus.Corpus, cfg *config.Config, logger *logging.Logger) *Collector {
	return &Collector{corpus: c, cfg: cfg, logger: logger}
}

// Collect returns the symbol's deduplicated contexts, current tree first,
// ordered by (location, revision). Historical sampling failures are logged
// and skipped; a symbol with zero current usages fails with NO_USAGE_FOUND.
func (c *Collector) Collect(ctx context.Context, sym corpus.Symbol, history []corpus.Revision) ([]CallSiteContext, error) {
	current, err := c.corpus.GetCurrentUsages(ctx, sym)
	if err != nil {
		return nil, err
	}

	contexts := make([]CallSiteContext, 0, len(current))
	for _, u := range current {
		contexts = append(contexts, fromUsage(u, false))
	}

	for _, rev := range sampleRevisions(history, c.cfg.Corpus.HistorySampleCount) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		past, err := c.corpus.GetHistoricalUsages(ctx, sym, rev.ID)
		if err != nil {
			c.logger.Warn("Skipping historical sample", map[string]interface{}{
				"symbol":   sym.QualifiedName,
				"revision": rev.ID,
				"error":    err.Error(),
			})
			continue
		}
		for _, u := range past {
			contexts = append(contexts, fromUsage(u, true))
		}
	}

	contexts = dedupe(contexts)
	if len(contexts) == 0 {
		return nil, errors.New(
			errors.NoUsageFound,
			"Symbol has no reachable call sites",
			nil,
		).WithDetails(map[string]interface{}{"symbol": sym.QualifiedName})
	}
	return contexts, nil
}

func fromUsage(u corpus.Usage, historical bool) CallSiteContext {
	return CallSiteContext{
		Path:          u.Path,
		Line:          u.Line,
		Revision:      u.Revision,
		EnclosingName: u.EnclosingName,
		Module:        u.Module,
		Window:        u.Window,
		Historical:    historical,
	}
}

// sampleRevisions picks up to n revisions spread evenly across history,
// oldest first. Even spread keeps temporal coverage stable as history grows.
func sampleRevisions(history []corpus.Revision, n int) []corpus.Revision {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		out := make([]corpus.Revision, len(history))
		copy(out, history)
		return out
	}

	out := make([]corpus.Revision, 0, n)
	step := float64(len(history)-1) / float64(n-1)
	last := -1
	for i := 0; i < n; i++ {
		idx := int(float64(i) * step)
		if idx == last {
			continue
		}
		last = idx
		out = append(out, history[idx])
	}
	return out
}

// dedupe removes duplicate (location, revision) pairs and fixes the ordering
// every downstream stage relies on.
func dedupe(contexts []CallSiteContext) []CallSiteContext {
	seen := make(map[string]struct{}, len(contexts))
	out := contexts[:0]
	for _, c := range contexts {
		k := c.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Historical != out[j].Historical {
			return !out[i].Historical
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Revision < out[j].Revision
	})
	return out
}
