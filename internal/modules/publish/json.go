// Package publish renders analysis results for the visualization front-end:
// the data.json document, an optional spreadsheet and an optional bucket upload.
package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/domain"
)

// Encode renders result as the indented JSON document the front-end reads.
func Encode(result *domain.AnalysisResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	return append(data, '\n'), nil
}

// FileWriter writes the JSON document to a fixed path.
type FileWriter struct {
	path string
	log  zerolog.Logger
}

// NewFileWriter creates a writer for path.
func NewFileWriter(path string, log zerolog.Logger) *FileWriter {
	return &FileWriter{
		path: path,
		log:  log.With().Str("component", "json_writer").Logger(),
	}
}

// Path returns the output path.
func (w *FileWriter) Path() string {
	return w.path
}

// Write replaces the output file atomically: readers see the old document or
// the new one, never a partial write.
func (w *FileWriter) Write(data []byte) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}

	w.log.Info().Str("path", w.path).Int("bytes", len(data)).Msg("Wrote analysis document")
	return nil
}
