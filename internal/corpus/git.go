package corpus

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

const (
	// DefaultQueryTimeout is the default timeout for git operations
	DefaultQueryTimeout = 5000 * time.Millisecond

	// maxHistoricalFiles caps the files scanned per historical snapshot
	maxHistoricalFiles = 400
)

// GitCorpus implements Corpus against a local git repository.
type GitCorpus struct {
	repoRoot     string
	cfg          *config.Config
	logger       *logging.Logger
	queryTimeout time.Duration
	scanner      *Scanner
	ecosystem    *Ecosystem
	scip         *ScipSource
}

// NewGitCorpus creates a corpus backed by the git repository at cfg.RepoRoot.
func NewGitCorpus(cfg *config.Config, logger *logging.Logger) (*GitCorpus, error) {
	if logger == nil {
		return nil, errors.New(errors.InternalError, "Logger is required for GitCorpus", nil)
	}

	c := &GitCorpus{
		repoRoot:     cfg.RepoRoot,
		cfg:          cfg,
		logger:       logger,
		queryTimeout: DefaultQueryTimeout,
		scanner:      NewScanner(cfg, logger),
		ecosystem:    LoadEcosystem(cfg.RepoRoot, logger),
	}
	if cfg.Corpus.ScipIndexPath != "" {
		c.scip = NewScipSource(cfg.RepoRoot, cfg.Corpus.ScipIndexPath, logger)
	}

	if !c.isAvailable() {
		return nil, errors.New(
			errors.CorpusUnavailable,
			"Git is not available in this repository",
			nil,
		).WithFixes(
			errors.FixAction{
				Type:        errors.RunCommand,
				Command:     "git status",
				Safe:        true,
				Description: "Verify you're in a git repository",
			},
		)
	}

	return c, nil
}

func (c *GitCorpus) isAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.queryTimeout)
	defer cancel()
	_, err := c.executeGit(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// GetSymbolHistory returns the symbol's file revisions in chronological order.
// Symbol bodies are materialized oldest-first until a revision qualifies as a
// creation anchor; later revisions carry metadata only. Spike or trivial
// introductions therefore still leave the next qualifying revision with a
// body for anchor selection to land on.
func (c *GitCorpus) GetSymbolHistory(ctx context.Context, sym Symbol) ([]Revision, error) {
	c.logger.Debug("Fetching symbol history", map[string]interface{}{
		"symbol": sym.QualifiedName,
	})

	// Format: hash|author|ISO timestamp|subject, followed by touched files
	args := []string{
		"log", "--reverse", "--follow",
		"--format=%x01%H|%an|%aI|%s", "--name-only",
	}
	if c.cfg.Corpus.MaxHistoryCommits > 0 {
		args = append(args, fmt.Sprintf("-n%d", c.cfg.Corpus.MaxHistoryCommits))
	}
	args = append(args, "--", sym.Path)

	output, err := c.executeGit(ctx, args...)
	if err != nil {
		return nil, err
	}

	revisions := parseHistoryLog(output, c.logger)
	if len(revisions) == 0 {
		return nil, errors.New(
			errors.SymbolNotFound,
			"No history found for symbol",
			nil,
		).WithDetails(map[string]interface{}{"symbol": sym.QualifiedName})
	}

	fileAt := func(ctx context.Context, revisionID string) (string, error) {
		return c.fileAtRevision(ctx, revisionID, sym.Path)
	}
	if err := materializeAnchorBodies(ctx, revisions, sym, fileAt); err != nil {
		return nil, err
	}

	return revisions, nil
}

// materializeAnchorBodies fills in symbol bodies oldest-first. Materialization
// continues past revisions that cannot anchor intent (spike commits, trivial
// bodies) and stops only once a revision satisfies CreditableAnchor, so anchor
// selection can always advance to the next qualifying commit. Revisions after
// that point carry metadata only.
func materializeAnchorBodies(ctx context.Context, revisions []Revision, sym Symbol, fileAt func(context.Context, string) (string, error)) error {
	anchored := false
	for i := range revisions {
		if anchored {
			revisions[i].ContainsSymbol = true
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := fileAt(ctx, revisions[i].ID)
		if err != nil {
			continue // file absent at this revision
		}
		body, doc, _, ok := ExtractSnippet(sym.Path, sym.Name, content)
		if !ok {
			continue
		}
		revisions[i].ContainsSymbol = true
		revisions[i].SymbolBody = body
		revisions[i].Docstring = doc
		anchored = revisions[i].CreditableAnchor()
	}
	return nil
}

// parseHistoryLog parses `git log --format=%x01H|an|aI|s --name-only` output.
func parseHistoryLog(output string, logger *logging.Logger) []Revision {
	var revisions []Revision

	blocks := strings.Split(output, "\x01")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		parts := strings.SplitN(lines[0], "|", 4)
		if len(parts) != 4 {
			logger.Warn("Skipping malformed git log entry", map[string]interface{}{
				"line": lines[0],
			})
			continue
		}

		ts, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			logger.Warn("Skipping git log entry with bad timestamp", map[string]interface{}{
				"timestamp": parts[2],
			})
			continue
		}

		touched := 0
		for _, l := range lines[1:] {
			if strings.TrimSpace(l) != "" {
				touched++
			}
		}

		revisions = append(revisions, Revision{
			ID:           parts[0],
			Author:       parts[1],
			Timestamp:    ts,
			Message:      parts[3],
			FilesTouched: touched,
		})
	}

	return revisions
}

// GetCurrentUsages scans the working tree for reference sites.
func (c *GitCorpus) GetCurrentUsages(ctx context.Context, sym Symbol) ([]Usage, error) {
	usages, err := c.scanner.ScanTree(ctx, sym)
	if err != nil {
		return nil, err
	}
	if c.scip != nil {
		scipUsages, err := c.scip.UsagesFor(sym, c.cfg.Corpus.ContextWindowLines)
		if err != nil {
			c.logger.Warn("SCIP usage source unavailable, continuing with scan results", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			usages = append(usages, scipUsages...)
		}
	}
	if len(usages) == 0 {
		return nil, errors.New(
			errors.NoUsageFound,
			"Symbol has zero observed call sites",
			nil,
		).WithDetails(map[string]interface{}{"symbol": sym.QualifiedName})
	}
	return dedupeUsages(usages), nil
}

// GetHistoricalUsages scans file contents at a past revision. Scan size is
// capped; results feed temporal signals only, never the primary role split.
func (c *GitCorpus) GetHistoricalUsages(ctx context.Context, sym Symbol, revision string) ([]Usage, error) {
	listing, err := c.executeGit(ctx, "ls-tree", "-r", "--name-only", revision)
	if err != nil {
		return nil, err
	}

	var usages []Usage
	scanned := 0
	for _, path := range strings.Split(listing, "\n") {
		path = strings.TrimSpace(path)
		if path == "" || !IsSourceFile(path) || c.scanner.ignored(path) {
			continue
		}
		if scanned >= maxHistoricalFiles {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := c.fileAtRevision(ctx, revision, path)
		if err != nil {
			continue
		}
		scanned++
		usages = append(usages, c.scanner.scanContent(sym, path, revision, content)...)
	}

	return dedupeUsages(usages), nil
}

// CountDependents counts distinct dependent files, preferring a recorded
// ecosystem snapshot when one names the symbol.
func (c *GitCorpus) CountDependents(ctx context.Context, sym Symbol) (int, error) {
	if n, ok := c.ecosystem.Dependents(sym.QualifiedName); ok {
		return n, nil
	}

	usages, err := c.scanner.ScanTree(ctx, sym)
	if err != nil {
		return 0, err
	}
	files := map[string]struct{}{}
	for _, u := range usages {
		if u.Path != sym.Path {
			files[u.Path] = struct{}{}
		}
	}
	return len(files), nil
}

// FindDocumentedAlternatives looks for recorded or in-source deprecation
// pointers ("use X instead", "deprecated in favor of X").
func (c *GitCorpus) FindDocumentedAlternatives(ctx context.Context, sym Symbol) ([]string, error) {
	alternatives := c.ecosystem.Alternatives(sym.QualifiedName)

	content, err := c.executeGit(ctx, "show", "HEAD:"+sym.Path)
	if err == nil {
		alternatives = append(alternatives, scanDeprecationPointers(content, sym.Name)...)
	}

	sort.Strings(alternatives)
	return dedupeStrings(alternatives), nil
}

func (c *GitCorpus) fileAtRevision(ctx context.Context, revision, path string) (string, error) {
	return c.executeGit(ctx, "show", revision+":"+path)
}

// executeGit runs a git command rooted at the repository with a timeout.
func (c *GitCorpus) executeGit(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoRoot

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New(errors.Timeout, "git command timed out", err).
				WithDetails(map[string]interface{}{"args": strings.Join(args, " ")})
		}
		return "", errors.New(errors.CorpusUnavailable, "git command failed", err).
			WithDetails(map[string]interface{}{"args": strings.Join(args, " ")})
	}

	return strings.TrimRight(string(output), "\n"), nil
}

// dedupeUsages removes duplicate (path, line, revision) sites and sorts
// deterministically.
func dedupeUsages(usages []Usage) []Usage {
	seen := make(map[string]struct{}, len(usages))
	out := usages[:0]
	for _, u := range usages {
		key := fmt.Sprintf("%s:%d@%s", u.Path, u.Line, u.Revision)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
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

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var deprecationMarkers = []string{
	"deprecated in favor of", "superseded by", "replaced by", "prefer ",
}

var useInsteadPattern = regexp.MustCompile(`(?i)use\s+([A-Za-z_][\w.]*)\s+instead`)

// scanDeprecationPointers extracts alternative names from deprecation comments
// near the symbol's definition.
func scanDeprecationPointers(content, name string) []string {
	var out []string
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		if !strings.Contains(l, name) {
			continue
		}
		lo := i - 5
		if lo < 0 {
			lo = 0
		}
		for j := lo; j <= i; j++ {
			lower := strings.ToLower(lines[j])
			if m := useInsteadPattern.FindStringSubmatch(lines[j]); m != nil {
				out = append(out, m[1])
			}
			for _, marker := range deprecationMarkers {
				idx := strings.Index(lower, marker)
				if idx < 0 {
					continue
				}
				rest := strings.TrimSpace(lines[j][idx+len(marker):])
				fields := strings.FieldsFunc(rest, func(r rune) bool {
					return r == ' ' || r == ',' || r == ';' || r == ')' || r == '.'
				})
				if len(fields) > 0 && fields[0] != "" {
					out = append(out, strings.Trim(fields[0], "`'\""))
				}
			}
		}
	}
	return out
}
