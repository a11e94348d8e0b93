//go:build cgo

package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// TreeSitterAvailable reports whether AST-based discovery is compiled in.
func TreeSitterAvailable() bool {
	return true
}

// discoverWithTreeSitter extracts named definitions via tree-sitter for the
// supported grammars, falling back to the lexical scan for other languages.
func discoverWithTreeSitter(ctx context.Context, s *Scanner) ([]Symbol, error) {
	parser := sitter.NewParser()
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
		if strings.HasSuffix(path, "_test.go") {
			return nil
		}
		lang, defTypes, classTypes := grammarFor(path)
		if lang == nil {
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

		source, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		parser.SetLanguage(lang)
		tree, err := parser.ParseCtx(ctx, nil, source)
		if err != nil {
			return nil // unparseable file, skip
		}

		walkNodes(tree.RootNode(), func(n *sitter.Node) {
			kind := KindFunction
			switch {
			case nodeTypeIn(n, defTypes):
			case nodeTypeIn(n, classTypes):
				kind = KindClass
			default:
				return
			}

			name := nodeName(n, source)
			if name == "" || name == "<anonymous>" {
				return
			}
			symbols = append(symbols, Symbol{
				Name:          name,
				QualifiedName: Qualified(relSlash, name),
				Kind:          kind,
				Path:          relSlash,
				Line:          int(n.StartPoint().Row) + 1,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

func grammarFor(path string) (lang *sitter.Language, defTypes, classTypes []string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return golang.GetLanguage(),
			[]string{"function_declaration", "method_declaration"},
			[]string{"type_declaration"}
	case ".py":
		return python.GetLanguage(),
			[]string{"function_definition"},
			[]string{"class_definition"}
	case ".js", ".jsx":
		return javascript.GetLanguage(),
			[]string{"function_declaration", "generator_function_declaration"},
			[]string{"class_declaration"}
	}
	return nil, nil, nil
}

func walkNodes(root *sitter.Node, visit func(*sitter.Node)) {
	if root == nil {
		return
	}
	visit(root)
	for i := uint32(0); i < root.ChildCount(); i++ {
		walkNodes(root.Child(int(i)), visit)
	}
}

func nodeTypeIn(n *sitter.Node, types []string) bool {
	for _, t := range types {
		if n.Type() == t {
			return true
		}
	}
	return false
}

func nodeName(n *sitter.Node, source []byte) string {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil && n.Type() == "type_declaration" {
		// type_declaration wraps a type_spec which carries the name
		for i := uint32(0); i < n.ChildCount(); i++ {
			child := n.Child(int(i))
			if child != nil && child.Type() == "type_spec" {
				nameNode = child.ChildByFieldName("name")
				break
			}
		}
	}
	if nameNode == nil {
		return ""
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()])
}
