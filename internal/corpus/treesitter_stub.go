//go:build !cgo

package corpus

import "context"

// TreeSitterAvailable reports whether AST-based discovery is compiled in.
// This stub is used when CGO is not available.
func TreeSitterAvailable() bool {
	return false
}

// discoverWithTreeSitter falls back to the lexical scan when CGO is disabled.
func discoverWithTreeSitter(ctx context.Context, s *Scanner) ([]Symbol, error) {
	return s.discoverLexical(ctx)
}
