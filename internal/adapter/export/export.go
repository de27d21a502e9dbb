// Package export writes built dictionaries to files.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/heartmarshall/prondict/internal/domain"
)

// Format selects the output encoding.
type Format string

const (
	// FormatTSV writes one "word<TAB>pronunciation" line per pronunciation.
	FormatTSV Format = "tsv"
	// FormatJSON writes {"metadata": ..., "entries": [...]}.
	FormatJSON Format = "json"
)

// Ext returns the file extension for f.
func (f Format) Ext() string { return "." + string(f) }

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTSV, FormatJSON:
		return Format(s), nil
	}
	return "", domain.NewValidationError("format", fmt.Sprintf("unsupported format %q", s))
}

// WriteTSV writes dict in dictionary order.
func WriteTSV(w io.Writer, dict *domain.Dictionary) error {
	bw := bufio.NewWriter(w)
	for _, e := range dict.Entries {
		for _, p := range e.Pronunciations {
			if _, err := fmt.Fprintf(bw, "%s\t%s\n", e.Word, p); err != nil {
				return fmt.Errorf("write tsv: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write tsv: %w", err)
	}
	return nil
}

type jsonDocument struct {
	Metadata domain.Metadata          `json:"metadata"`
	Entries  []domain.DictionaryEntry `json:"entries"`
}

// WriteJSON writes dict with its metadata. Entries keep dictionary order.
func WriteJSON(w io.Writer, dict *domain.Dictionary) error {
	doc := jsonDocument{Metadata: dict.Metadata, Entries: dict.Entries}
	if doc.Entries == nil {
		doc.Entries = []domain.DictionaryEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// FileExporter writes one file per language into a directory.
type FileExporter struct {
	dir    string
	format Format
}

// NewFileExporter creates an exporter writing format files into dir.
func NewFileExporter(dir string, format Format) *FileExporter {
	return &FileExporter{dir: dir, format: format}
}

// Path returns the file a dictionary for lang is written to.
func (e *FileExporter) Path(lang domain.Language) string {
	return filepath.Join(e.dir, string(lang)+e.format.Ext())
}

// Export writes dict and returns the file path. The file is written to a
// temporary name first and renamed into place, so readers never observe a
// partial dictionary.
func (e *FileExporter) Export(dict *domain.Dictionary) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}

	path := e.Path(dict.Metadata.Language)
	tmp, err := os.CreateTemp(e.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("export: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	switch e.format {
	case FormatJSON:
		err = WriteJSON(tmp, dict)
	default:
		err = WriteTSV(tmp, dict)
	}
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("export %s: %w", dict.Metadata.Language, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("export: rename: %w", err)
	}
	return path, nil
}
