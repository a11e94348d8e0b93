package corpus

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

// Scanner enumerates reference sites for symbols across a source tree.
// Sites come from the tree-sitter extractor when the build supports it,
// with a lexical word-boundary scan as the always-available path.
type Scanner struct {
	repoRoot    string
	ignore      []string
	windowLines int
	logger      *logging.Logger
}

// NewScanner creates a scanner for the configured repository.
func NewScanner(cfg *config.Config, logger *logging.Logger) *Scanner {
	window := cfg.Corpus.ContextWindowLines
	if window <= 0 {
		window = 8
	}
	return &Scanner{
		repoRoot:    cfg.RepoRoot,
		ignore:      cfg.Corpus.Ignore,
		windowLines: window,
		logger:      logger,
	}
}

// ScanTree walks the working tree and collects reference sites for a symbol.
func (s *Scanner) ScanTree(ctx context.Context, sym Symbol) ([]Usage, error) {
	var usages []Usage

	err := filepath.Walk(s.repoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip inaccessible files
		}
		if info.IsDir() {
			if s.ignoredDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSourceFile(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.repoRoot, path)
		if err != nil {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		usages = append(usages, s.scanContent(sym, filepath.ToSlash(rel), "", string(content))...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return usages, nil
}

// scanContent finds word-boundary references to the symbol in file content,
// excluding its own definition lines, and captures the surrounding window.
func (s *Scanner) scanContent(sym Symbol, path, revision, content string) []Usage {
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(sym.Name) + `\b`)
	defPatterns := definitionRegexps(path, sym.Name)

	lines := strings.Split(content, "\n")
	var usages []Usage

	for i, line := range lines {
		if !pattern.MatchString(line) {
			continue
		}

		isDefinition := false
		for _, p := range defPatterns {
			if p.MatchString(line) {
				isDefinition = true
				break
			}
		}
		if isDefinition {
			continue
		}
		if isCommentLine(line) {
			continue
		}

		usages = append(usages, Usage{
			Path:          path,
			Line:          i + 1,
			Revision:      revision,
			EnclosingName: EnclosingName(lines, i),
			Module:        moduleOf(path),
			Window:        window(lines, i, s.windowLines),
		})
	}

	return usages
}

// DiscoverSymbols finds auditable symbol definitions across the tree.
// Tree-sitter extraction is used when available; otherwise a lexical
// definition scan.
func (s *Scanner) DiscoverSymbols(ctx context.Context) ([]Symbol, error) {
	if TreeSitterAvailable() {
		return discoverWithTreeSitter(ctx, s)
	}
	return s.discoverLexical(ctx)
}

var lexicalDefPattern = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?(func|def|function|class|type)\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`)

func (s *Scanner) discoverLexical(ctx context.Context) ([]Symbol, error) {
	var symbols []Symbol

	err := filepath.Walk(s.repoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		if info.IsDir() {
			if s.ignoredDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSourceFile(path) || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.repoRoot, path)
		if err != nil {
			return nil
		}
		relSlash := filepath.ToSlash(rel)

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		for i, line := range strings.Split(string(content), "\n") {
			m := lexicalDefPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			kind := KindFunction
			if m[1] == "class" || m[1] == "type" {
				kind = KindClass
			}
			symbols = append(symbols, Symbol{
				Name:          m[2],
				QualifiedName: Qualified(relSlash, m[2]),
				Kind:          kind,
				Path:          relSlash,
				Line:          i + 1,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

func (s *Scanner) ignoredDir(name string) bool {
	for _, ig := range s.ignore {
		if name == ig {
			return true
		}
	}
	return strings.HasPrefix(name, ".") && name != "."
}

func (s *Scanner) ignored(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if s.ignoredDir(part) {
			return true
		}
	}
	return false
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "*") ||
		strings.HasPrefix(trimmed, "/*")
}

// moduleOf maps a file path to its caller module (top-level directory chain).
func moduleOf(path string) string {
	dir := filepath.ToSlash(filepath.Dir(path))
	if dir == "." {
		return "(root)"
	}
	return dir
}

// window extracts the fixed-size text window around a site, one line per
// statement, trimmed.
func window(lines []string, site, radius int) string {
	lo := site - radius
	if lo < 0 {
		lo = 0
	}
	hi := site + radius + 1
	if hi > len(lines) {
		hi = len(lines)
	}

	out := make([]string, 0, hi-lo)
	for _, l := range lines[lo:hi] {
		trimmed := strings.TrimSpace(l)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
