package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

func newTestScanner(t *testing.T, root string) *Scanner {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RepoRoot = root
	return NewScanner(cfg, logging.NewDiscardLogger())
}

func TestScanContent_SkipsDefinitionAndComments(t *testing.T) {
	source := `# render draws the widget
def render(widget):
    return widget.draw()

def page(widget):
    # render is called twice here
    header = render(widget)
    footer = render(widget)
    return header + footer
`

	s := newTestScanner(t, t.TempDir())
	sym := Symbol{Name: "render", QualifiedName: "ui.py:render", Kind: KindFunction, Path: "ui.py"}

	usages := s.scanContent(sym, "ui.py", "", source)

	if len(usages) != 2 {
		t.Fatalf("usage count = %d, want 2 (definition and comments excluded)", len(usages))
	}
	if usages[0].Line != 7 || usages[1].Line != 8 {
		t.Errorf("usage lines = %d, %d, want 7, 8", usages[0].Line, usages[1].Line)
	}
	for _, u := range usages {
		if u.EnclosingName != "page" {
			t.Errorf("EnclosingName = %q, want page", u.EnclosingName)
		}
		if u.Module != "(root)" {
			t.Errorf("Module = %q, want (root)", u.Module)
		}
		if u.Window == "" {
			t.Error("Window should capture surrounding lines")
		}
	}
}

func TestScanContent_WordBoundary(t *testing.T) {
	source := "result = save(user)\nresult = autosave(user)\nresult = saved_items\n"

	s := newTestScanner(t, t.TempDir())
	sym := Symbol{Name: "save", QualifiedName: "m.py:save", Path: "m.py"}

	usages := s.scanContent(sym, "m.py", "", source)
	if len(usages) != 1 {
		t.Fatalf("usage count = %d, want 1 (autosave and saved_items must not match)", len(usages))
	}
	if usages[0].Line != 1 {
		t.Errorf("usage line = %d, want 1", usages[0].Line)
	}
}

func TestScanTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/store.py", "def save(user):\n    return db.commit(user)\n")
	writeFile(t, root, "app/views.py", "from lib.store import save\n\ndef submit(user):\n    return save(user)\n")
	writeFile(t, root, "node_modules/pkg/index.js", "save(user);\n")
	writeFile(t, root, "README.md", "call save() to persist\n")

	s := newTestScanner(t, root)
	sym := Symbol{Name: "save", QualifiedName: "lib/store.py:save", Path: "lib/store.py"}

	usages, err := s.ScanTree(context.Background(), sym)
	if err != nil {
		t.Fatalf("ScanTree() error = %v", err)
	}

	if len(usages) != 2 {
		t.Fatalf("usage count = %d, want 2 (ignored dirs and non-source files excluded): %+v", len(usages), usages)
	}
	paths := map[string]bool{}
	for _, u := range usages {
		paths[u.Path] = true
	}
	if !paths["app/views.py"] {
		t.Errorf("expected a usage in app/views.py, got %v", paths)
	}
}

func TestDiscoverSymbols_Lexical(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "svc/handler.go", "package svc\n\nfunc HandleRequest(w http.ResponseWriter) {}\n\ntype Session struct{}\n")
	writeFile(t, root, "svc/handler_test.go", "package svc\n\nfunc TestHandleRequest(t *testing.T) {}\n")
	writeFile(t, root, "scripts/run.py", "def migrate(db):\n    pass\n")

	s := newTestScanner(t, root)
	symbols, err := s.discoverLexical(context.Background())
	if err != nil {
		t.Fatalf("discoverLexical() error = %v", err)
	}

	byName := map[string]Symbol{}
	for _, sym := range symbols {
		byName[sym.Name] = sym
	}

	if _, ok := byName["TestHandleRequest"]; ok {
		t.Error("test files should be excluded from discovery")
	}
	if got := byName["HandleRequest"]; got.Kind != KindFunction || got.Path != "svc/handler.go" {
		t.Errorf("HandleRequest = %+v, want function in svc/handler.go", got)
	}
	if got := byName["Session"]; got.Kind != KindClass {
		t.Errorf("Session kind = %q, want %q", got.Kind, KindClass)
	}
	if got := byName["migrate"]; got.QualifiedName != "scripts/run.py:migrate" {
		t.Errorf("migrate QualifiedName = %q, want scripts/run.py:migrate", got.QualifiedName)
	}
}

func TestWindow(t *testing.T) {
	lines := []string{"a", "", "b", "site", "c", "", "d"}
	got := window(lines, 3, 2)
	want := "b\nsite\nc"
	if got != want {
		t.Errorf("window() = %q, want %q", got, want)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
