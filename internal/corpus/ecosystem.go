package corpus

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Tanishq1030/Anchor/internal/logging"
)

// EcosystemEntry records externally-known facts about a symbol that a single
// repository cannot observe: registry dependent counts and documented
// alternatives. Entries live in .anchor/ecosystem.toml and are maintained by
// whatever collects that data; the engine only reads them.
type EcosystemEntry struct {
	Qualified    string   `toml:"qualified"`
	Dependents   int      `toml:"dependents"`
	Alternatives []string `toml:"alternatives"`
}

type ecosystemFile struct {
	Symbols []EcosystemEntry `toml:"symbols"`
}

// Ecosystem is a read-only snapshot of recorded ecosystem data.
type Ecosystem struct {
	entries map[string]EcosystemEntry
}

// LoadEcosystem reads .anchor/ecosystem.toml. A missing file yields an empty
// snapshot, never an error; a malformed file is logged and ignored.
func LoadEcosystem(repoRoot string, logger *logging.Logger) *Ecosystem {
	eco := &Ecosystem{entries: map[string]EcosystemEntry{}}

	path := filepath.Join(repoRoot, ".anchor", "ecosystem.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return eco
	}

	var file ecosystemFile
	if err := toml.Unmarshal(data, &file); err != nil {
		logger.Warn("Ignoring malformed ecosystem file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return eco
	}

	for _, e := range file.Symbols {
		eco.entries[e.Qualified] = e
	}
	return eco
}

// Dependents returns the recorded dependent count for a symbol, if any.
func (e *Ecosystem) Dependents(qualified string) (int, bool) {
	entry, ok := e.entries[qualified]
	if !ok {
		return 0, false
	}
	return entry.Dependents, true
}

// Alternatives returns the recorded alternatives for a symbol.
func (e *Ecosystem) Alternatives(qualified string) []string {
	return e.entries[qualified].Alternatives
}
