package corpus

import (
	"path/filepath"
	"regexp"
	"strings"
)

// maxSnippetLines caps the symbol body captured from a revision.
const maxSnippetLines = 60

var definitionPatterns = map[string][]*regexp.Regexp{
	".go": {
		regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?%s\s*[(\[]`),
		regexp.MustCompile(`^type\s+%s\s`),
		regexp.MustCompile(`^(?:var|const)\s+%s\b`),
	},
	".py": {
		regexp.MustCompile(`^\s*(?:async\s+)?def\s+%s\s*\(`),
		regexp.MustCompile(`^\s*class\s+%s\b`),
		regexp.MustCompile(`^%s\s*=`),
	},
	".js": {
		regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*%s\s*\(`),
		regexp.MustCompile(`^\s*(?:export\s+)?class\s+%s\b`),
		regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+%s\s*=`),
	},
	".java": {
		regexp.MustCompile(`\b(?:class|interface|enum)\s+%s\b`),
		regexp.MustCompile(`\b%s\s*\([^;]*\)\s*\{`),
	},
	".rb": {
		regexp.MustCompile(`^\s*def\s+%s\b`),
		regexp.MustCompile(`^\s*class\s+%s\b`),
	},
}

func init() {
	// Shared patterns for the TypeScript family
	definitionPatterns[".ts"] = definitionPatterns[".js"]
	definitionPatterns[".tsx"] = definitionPatterns[".js"]
	definitionPatterns[".jsx"] = definitionPatterns[".js"]
}

// IsSourceFile reports whether the extension belongs to a scannable language.
func IsSourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".rb", ".kt", ".rs", ".c", ".cpp", ".h":
		return true
	}
	return false
}

// definitionRegexps compiles the per-language definition patterns for a name.
func definitionRegexps(path, name string) []*regexp.Regexp {
	templates, ok := definitionPatterns[strings.ToLower(filepath.Ext(path))]
	if !ok {
		// Generic fallback: any line that looks like it declares the name
		return []*regexp.Regexp{
			regexp.MustCompile(`\b(?:def|func|function|class|type)\s+` + regexp.QuoteMeta(name) + `\b`),
		}
	}

	out := make([]*regexp.Regexp, 0, len(templates))
	for _, t := range templates {
		out = append(out, regexp.MustCompile(strings.Replace(t.String(), "%s", regexp.QuoteMeta(name), 1)))
	}
	return out
}

// ExtractSnippet finds a symbol's definition in source text and returns its
// body (bounded), docstring and 1-indexed definition line. Returns ok=false
// when the symbol is not defined in the source.
func ExtractSnippet(path, name string, source string) (body, docstring string, line int, ok bool) {
	lines := strings.Split(source, "\n")
	patterns := definitionRegexps(path, name)

	for i, l := range lines {
		matched := false
		for _, p := range patterns {
			if p.MatchString(l) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		end := i + maxSnippetLines
		if end > len(lines) {
			end = len(lines)
		}
		body = strings.Join(lines[i:captureEnd(lines, i, end)], "\n")
		docstring = extractDocstring(path, lines, i)
		return body, docstring, i + 1, true
	}

	return "", "", 0, false
}

// captureEnd finds where the definition body ends: the next line at the same
// or lower indentation that starts a new top-level construct, or the bound.
func captureEnd(lines []string, start, bound int) int {
	baseIndent := indentOf(lines[start])
	for i := start + 1; i < bound; i++ {
		l := lines[i]
		if strings.TrimSpace(l) == "" {
			continue
		}
		if indentOf(l) <= baseIndent && looksLikeDeclaration(l) {
			return i
		}
	}
	return bound
}

func indentOf(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

var declarationStart = regexp.MustCompile(`^\s*(?:func|def|class|type|public|private|protected|export|module|const|var|let)\b`)

func looksLikeDeclaration(s string) bool {
	return declarationStart.MatchString(s)
}

// extractDocstring captures documentation attached to a definition: preceding
// comment lines, or for Python a triple-quoted string immediately below.
func extractDocstring(path string, lines []string, defLine int) string {
	if strings.ToLower(filepath.Ext(path)) == ".py" {
		if doc := pythonDocstring(lines, defLine); doc != "" {
			return doc
		}
	}

	// Preceding comment block
	var doc []string
	for i := defLine - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(trimmed, "//"):
			doc = append([]string{strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))}, doc...)
		case strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#!"):
			doc = append([]string{strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))}, doc...)
		case strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") || strings.HasSuffix(trimmed, "*/"):
			cleaned := strings.Trim(trimmed, "/* ")
			if cleaned != "" {
				doc = append([]string{cleaned}, doc...)
			}
		default:
			return strings.TrimSpace(strings.Join(doc, " "))
		}
	}
	return strings.TrimSpace(strings.Join(doc, " "))
}

func pythonDocstring(lines []string, defLine int) string {
	for i := defLine + 1; i < len(lines) && i < defLine+4; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		for _, q := range []string{`"""`, "'''"} {
			if !strings.HasPrefix(trimmed, q) {
				continue
			}
			rest := strings.TrimPrefix(trimmed, q)
			if idx := strings.Index(rest, q); idx >= 0 {
				return strings.TrimSpace(rest[:idx])
			}
			var doc []string
			if rest != "" {
				doc = append(doc, rest)
			}
			for j := i + 1; j < len(lines); j++ {
				if idx := strings.Index(lines[j], q); idx >= 0 {
					doc = append(doc, strings.TrimSpace(lines[j][:idx]))
					return strings.TrimSpace(strings.Join(doc, " "))
				}
				doc = append(doc, strings.TrimSpace(lines[j]))
			}
			return strings.TrimSpace(strings.Join(doc, " "))
		}
		return ""
	}
	return ""
}

// EnclosingName finds the nearest enclosing definition name above a line.
var enclosingPattern = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?(?:func|def|function|class|type)\s+(?:\([^)]*\)\s*)?\*?\s*([A-Za-z_][A-Za-z0-9_]*)`)

func EnclosingName(lines []string, site int) string {
	for i := site; i >= 0; i-- {
		if m := enclosingPattern.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	return ""
}
