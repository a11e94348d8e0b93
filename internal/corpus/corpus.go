// Package corpus provides read access to symbol history and usage data.
// It is the only place where the engine touches version control or index
// files; everything above this boundary is pure computation.
package corpus

import (
	"context"
	"strings"
	"time"
)

// SymbolKind classifies an audited symbol
type SymbolKind string

const (
	// KindFunction is a free function or method
	KindFunction SymbolKind = "function"
	// KindClass is a class, struct or other named type
	KindClass SymbolKind = "class"
	// KindModuleAttribute is a module-level callable or constant
	KindModuleAttribute SymbolKind = "module-attribute"
)

// Symbol identifies a long-lived symbol under audit.
// Immutable once a run has started.
type Symbol struct {
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualifiedName"` // <path>:<name>
	Kind          SymbolKind `json:"kind"`
	Path          string     `json:"path"` // creation-time file, repo-relative
	Line          int        `json:"line,omitempty"`
}

// Qualified builds the canonical qualified name for a path/name pair.
func Qualified(path, name string) string {
	return path + ":" + name
}

// Revision is one entry of a symbol's history, oldest first.
type Revision struct {
	ID           string    `json:"id"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"` // first line only
	FilesTouched int       `json:"filesTouched"`

	// ContainsSymbol reports whether the symbol exists at this revision.
	ContainsSymbol bool `json:"containsSymbol"`
	// SymbolBody is the symbol's source snippet at this revision ("" if absent).
	SymbolBody string `json:"symbolBody,omitempty"`
	// Docstring is the documentation text attached to the symbol at this revision.
	Docstring string `json:"docstring,omitempty"`
}

const (
	// minAnchorBodyLines is what counts as a non-trivial symbol body
	minAnchorBodyLines = 3

	// spikeFileThreshold marks commits touching more files as reorganizations
	spikeFileThreshold = 50
)

// spikeIndicators flag throwaway commits that must not anchor intent.
// Substring matching is deliberate: it mirrors how these markers appear in
// real commit messages ("WIP: ...", "temp fix", "experiment with ...").
var spikeIndicators = []string{"wip", "spike", "temp", "temporary", "experiment", "test"}

// IsSpike reports whether the revision looks like a throwaway or
// reorganization commit.
func (r Revision) IsSpike() bool {
	message := strings.ToLower(r.Message)
	for _, indicator := range spikeIndicators {
		if strings.Contains(message, indicator) {
			return true
		}
	}
	return r.FilesTouched > spikeFileThreshold
}

// CreditableAnchor reports whether the revision can serve as a symbol's
// creation anchor: the symbol exists with a materialized body, the commit is
// not a spike, and the definition carries a docstring or a non-trivial body.
// History materialization must keep producing bodies until a revision passes
// this predicate, or anchor selection dead-ends on a spike introduction.
func (r Revision) CreditableAnchor() bool {
	if !r.ContainsSymbol || r.SymbolBody == "" {
		return false
	}
	if r.IsSpike() {
		return false
	}
	return r.Docstring != "" || strings.Count(r.SymbolBody, "\n")+1 >= minAnchorBodyLines
}

// Usage is a raw reference site for a symbol, before context enrichment.
type Usage struct {
	Path          string `json:"path"`
	Line          int    `json:"line"`
	Revision      string `json:"revision"` // "" means current working tree
	EnclosingName string `json:"enclosingName,omitempty"`
	Module        string `json:"module"`
	Window        string `json:"window"` // fixed-size text window around the site
}

// Corpus is the capability boundary consumed by the engine (history access,
// usage enumeration, ecosystem counts). Implementations must be safe for
// concurrent readers and must never mutate repository state.
type Corpus interface {
	// GetSymbolHistory returns the symbol's revisions in chronological order.
	GetSymbolHistory(ctx context.Context, sym Symbol) ([]Revision, error)

	// GetCurrentUsages enumerates every distinct reference site of the symbol
	// in the current snapshot. Usage order is deterministic (path, line).
	GetCurrentUsages(ctx context.Context, sym Symbol) ([]Usage, error)

	// GetHistoricalUsages samples usages at a past revision, for temporal
	// drift signals. Implementations may return an empty slice when snapshot
	// access is unsupported.
	GetHistoricalUsages(ctx context.Context, sym Symbol, revision string) ([]Usage, error)

	// CountDependents returns the number of distinct dependent modules/files.
	CountDependents(ctx context.Context, sym Symbol) (int, error)

	// FindDocumentedAlternatives returns qualified names of documented
	// replacement symbols (deprecation notes, "use X instead" markers).
	FindDocumentedAlternatives(ctx context.Context, sym Symbol) ([]string, error)
}
