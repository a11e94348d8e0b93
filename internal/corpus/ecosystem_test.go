package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Tanishq1030/Anchor/internal/logging"
)

func TestLoadEcosystem(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".anchor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `[[symbols]]
qualified = "lib/store.py:save"
dependents = 2400
alternatives = ["lib/store.py:persist"]

[[symbols]]
qualified = "ui/forms.py:render"
dependents = 12
`
	if err := os.WriteFile(filepath.Join(dir, "ecosystem.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	eco := LoadEcosystem(root, logging.NewDiscardLogger())

	deps, ok := eco.Dependents("lib/store.py:save")
	if !ok || deps != 2400 {
		t.Errorf("Dependents(save) = %d, %v, want 2400, true", deps, ok)
	}
	alts := eco.Alternatives("lib/store.py:save")
	if len(alts) != 1 || alts[0] != "lib/store.py:persist" {
		t.Errorf("Alternatives(save) = %v", alts)
	}
	if alts := eco.Alternatives("ui/forms.py:render"); len(alts) != 0 {
		t.Errorf("Alternatives(render) = %v, want empty", alts)
	}
	if _, ok := eco.Dependents("unknown:symbol"); ok {
		t.Error("Dependents for unknown symbol should report ok=false")
	}
}

func TestLoadEcosystem_Missing(t *testing.T) {
	eco := LoadEcosystem(t.TempDir(), logging.NewDiscardLogger())
	if _, ok := eco.Dependents("anything"); ok {
		t.Error("missing file should yield an empty snapshot")
	}
}

func TestLoadEcosystem_Malformed(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".anchor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ecosystem.toml"), []byte("[[symbols\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	eco := LoadEcosystem(root, logging.NewDiscardLogger())
	if _, ok := eco.Dependents("anything"); ok {
		t.Error("malformed file should yield an empty snapshot")
	}
}
