package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Persisted file names. Each file is a plain serialized array or object,
// human-readable and safe to hand-edit for recovery.
const (
	patternsFile  = "patterns.json"
	learningsFile = "learnings.json"
	metricsFile   = "metrics.json"
)

// FileStorage serializes the three memory stores to JSON files in a
// directory. Saves are full-file overwrites, last writer wins; loads are
// idempotent, so repeated loads with unchanged files produce identical
// in-memory state.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// SavePatterns overwrites patterns.json.
func (fs *FileStorage) SavePatterns(patterns []ExecutionPattern) error {
	return fs.write(patternsFile, patterns)
}

// LoadPatterns reads patterns.json, returning nil when absent.
func (fs *FileStorage) LoadPatterns() ([]ExecutionPattern, error) {
	var patterns []ExecutionPattern
	if err := fs.read(patternsFile, &patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// SaveLearnings overwrites learnings.json.
func (fs *FileStorage) SaveLearnings(records []LearningRecord) error {
	return fs.write(learningsFile, records)
}

// LoadLearnings reads learnings.json, returning nil when absent.
func (fs *FileStorage) LoadLearnings() ([]LearningRecord, error) {
	var records []LearningRecord
	if err := fs.read(learningsFile, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveMetrics overwrites metrics.json.
func (fs *FileStorage) SaveMetrics(metrics WorkflowMetrics) error {
	return fs.write(metricsFile, metrics)
}

// LoadMetrics reads metrics.json. The bool reports whether the file existed.
func (fs *FileStorage) LoadMetrics() (WorkflowMetrics, bool, error) {
	path := filepath.Join(fs.dir, metricsFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return WorkflowMetrics{}, false, nil
	}
	if err != nil {
		return WorkflowMetrics{}, false, fmt.Errorf("reading %s: %w", metricsFile, err)
	}
	var m WorkflowMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return WorkflowMetrics{}, false, fmt.Errorf("parsing %s: %w", metricsFile, err)
	}
	return m, true, nil
}

// write marshals v with stable indentation and a trailing newline so an
// unchanged save leaves the file bytes untouched.
func (fs *FileStorage) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	data = append(data, '\n')
	path := filepath.Join(fs.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (fs *FileStorage) read(name string, v any) error {
	path := filepath.Join(fs.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}
