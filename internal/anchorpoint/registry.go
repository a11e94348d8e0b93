package anchorpoint

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Tanishq1030/Anchor/internal/logging"
)

const registryFile = "redefinitions.toml"

// Redefinition records a deliberate, human-authored intent change for a
// symbol. Redefinitions never overwrite history; they append epochs.
type Redefinition struct {
	Symbol      string    `toml:"symbol"`
	Timestamp   time.Time `toml:"timestamp"`
	Intent      string    `toml:"intent"`
	Assumptions []string  `toml:"assumptions,omitempty"`
	Author      string    `toml:"author,omitempty"`
}

type registryDoc struct {
	Redefinitions []Redefinition `toml:"redefinition"`
}

// Registry holds the intent redefinitions read from .anchor/redefinitions.toml.
type Registry struct {
	path    string
	logger  *logging.Logger
	entries []Redefinition
}

// LoadRegistry reads the redefinition registry under repoRoot. A missing file
// yields an empty registry; a malformed one is ignored with a warning so a
// bad registry never blocks an audit.
func LoadRegistry(repoRoot string, logger *logging.Logger) *Registry {
	path := filepath.Join(repoRoot, ".anchor", registryFile)
	r := &Registry{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Cannot read redefinition registry", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return r
	}

	var doc registryDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		logger.Warn("Malformed redefinition registry ignored", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return r
	}

	r.entries = doc.Redefinitions
	return r
}

// For returns the redefinitions recorded for a qualified symbol name,
// oldest first.
func (r *Registry) For(qualified string) []Redefinition {
	var out []Redefinition
	for _, e := range r.entries {
		if e.Symbol == qualified {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Append records a new redefinition and rewrites the registry file.
func (r *Registry) Append(redef Redefinition) error {
	if redef.Timestamp.IsZero() {
		redef.Timestamp = time.Now().UTC()
	}
	r.entries = append(r.entries, redef)

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(registryDoc{Redefinitions: r.entries})
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}
