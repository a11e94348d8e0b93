package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

// ScipSource exposes SCIP index occurrences as usage sites. When an index is
// configured it supplements the lexical scan with precise reference data.
type ScipSource struct {
	indexPath string
	repoRoot  string
	logger    *logging.Logger

	mu    sync.Mutex
	index *scippb.Index
}

// NewScipSource creates a SCIP-backed usage source. The index is loaded
// lazily on first query.
func NewScipSource(repoRoot, indexPath string, logger *logging.Logger) *ScipSource {
	return &ScipSource{
		indexPath: indexPath,
		repoRoot:  repoRoot,
		logger:    logger,
	}
}

func (s *ScipSource) load() (*scippb.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index, nil
	}

	if _, err := os.Stat(s.indexPath); os.IsNotExist(err) {
		return nil, errors.New(
			errors.IndexMissing,
			fmt.Sprintf("SCIP index not found at %s", s.indexPath),
			err,
		).WithFixes(errors.FixAction{
			Type:        errors.RunCommand,
			Command:     "scip print --index=" + s.indexPath,
			Safe:        true,
			Description: "Verify SCIP index path and validity",
		})
	}

	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		return nil, errors.New(errors.InternalError, "Failed to read SCIP index", err)
	}

	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, errors.New(errors.InternalError, "Failed to parse SCIP index", err)
	}

	s.logger.Debug("Loaded SCIP index", map[string]interface{}{
		"path":      s.indexPath,
		"documents": len(index.Documents),
	})

	s.index = &index
	return s.index, nil
}

// UsagesFor returns reference occurrences of the symbol from the index.
// Definition occurrences are excluded; windows come from the working tree.
func (s *ScipSource) UsagesFor(sym Symbol, windowLines int) ([]Usage, error) {
	index, err := s.load()
	if err != nil {
		return nil, err
	}

	var usages []Usage
	for _, doc := range index.Documents {
		if !IsSourceFile(doc.RelativePath) {
			continue
		}

		var lines []string
		for _, occ := range doc.Occurrences {
			if !symbolMatches(occ.Symbol, sym.Name) {
				continue
			}
			if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
				continue
			}
			if len(occ.Range) < 1 {
				continue
			}

			if lines == nil {
				content, err := os.ReadFile(filepath.Join(s.repoRoot, doc.RelativePath))
				if err != nil {
					break // document not in working tree, skip its occurrences
				}
				lines = strings.Split(string(content), "\n")
			}

			site := int(occ.Range[0])
			if site >= len(lines) {
				continue
			}

			usages = append(usages, Usage{
				Path:          doc.RelativePath,
				Line:          site + 1,
				EnclosingName: EnclosingName(lines, site),
				Module:        moduleOf(doc.RelativePath),
				Window:        window(lines, site, windowLines),
			})
		}
	}

	return usages, nil
}

// symbolMatches checks whether a SCIP symbol string's final descriptor names
// the audited symbol. SCIP descriptors end in forms like `Name().`, `Name#`
// or `Name.`; matching on the terminal segment avoids false positives from
// package paths.
func symbolMatches(scipSymbol, name string) bool {
	idx := strings.LastIndexAny(scipSymbol, "/#.")
	tail := scipSymbol
	if idx >= 0 && idx+1 < len(scipSymbol) {
		tail = scipSymbol[idx+1:]
	}
	tail = strings.TrimSuffix(tail, ".")
	tail = strings.TrimSuffix(tail, "()")
	tail = strings.TrimSuffix(tail, "#")
	if tail == name {
		return true
	}
	// Descriptors like `module/Name().` leave the tail empty after the final
	// dot; fall back to a segment scan.
	return strings.Contains(scipSymbol, "/"+name+"(") ||
		strings.Contains(scipSymbol, "/"+name+"#") ||
		strings.Contains(scipSymbol, "/"+name+".")
}
