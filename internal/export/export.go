// Package export serializes audit runs to JSON or YAML documents and
// gzip-compressed archives.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"github.com/Tanishq1030/Anchor/internal/engine"
)

// Format selects the serialization for an exported run.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json or yaml (yml), defaulting empty to json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (expected json or yaml)", s)
	}
}

// Write serializes the run to w. JSON output is indented and stable: record
// order and field order are fixed, so identical runs serialize identically.
func Write(w io.Writer, result *engine.RunResult, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteArchive writes the run as a gzip-compressed document at path,
// creating parent directories as needed. The extension picks nothing: the
// format argument does.
func WriteArchive(path string, result *engine.RunResult, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return err
	}
	if err := Write(gz, result, format); err != nil {
		_ = gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return f.Close()
}

// ReadArchive loads a run previously written by WriteArchive. Only JSON
// archives round-trip; YAML archives are for human consumption.
func ReadArchive(path string) (*engine.RunResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("archive is not gzip-compressed: %w", err)
	}
	defer gz.Close()

	var result engine.RunResult
	if err := json.NewDecoder(gz).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	return &result, nil
}
