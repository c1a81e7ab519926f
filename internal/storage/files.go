// Package storage keeps the JSON artefacts of a run: the category tree, the
// raw per-category output and the deduplicated product list.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fouani/storesync/internal/config"
	"fouani/storesync/internal/domain"
)

type Files struct {
	cfg config.FilesConfig
	mu  sync.Mutex
}

func NewFiles(cfg config.FilesConfig) *Files {
	return &Files{cfg: cfg}
}

func (f *Files) SaveMenu(tree *domain.Tree) error {
	return writeJSON(f.cfg.Menu, tree)
}

// LoadMenu reads the persisted tree and recomputes depths. A missing file
// returns an error matching os.ErrNotExist.
func (f *Files) LoadMenu() (*domain.Tree, error) {
	var tree domain.Tree
	if err := readJSON(f.cfg.Menu, &tree); err != nil {
		return nil, err
	}
	tree.AssignDepths()
	return &tree, nil
}

// ResetRaw empties the raw file so it only holds the current run.
func (f *Files) ResetRaw() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSON(f.cfg.Raw, []domain.ProductRecord{})
}

// AppendRaw adds one category's records to the raw file. The file stays a
// valid JSON list after every call.
func (f *Files) AppendRaw(records []domain.ProductRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.loadRaw()
	if err != nil {
		return err
	}
	return writeJSON(f.cfg.Raw, append(existing, records...))
}

func (f *Files) LoadRaw() ([]domain.ProductRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadRaw()
}

func (f *Files) loadRaw() ([]domain.ProductRecord, error) {
	records := []domain.ProductRecord{}
	if err := readJSON(f.cfg.Raw, &records); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return records, nil
}

func (f *Files) SaveDedup(records []domain.ProductRecord) error {
	if records == nil {
		records = []domain.ProductRecord{}
	}
	return writeJSON(f.cfg.Dedup, records)
}

func (f *Files) LoadDedup() ([]domain.ProductRecord, error) {
	records := []domain.ProductRecord{}
	if err := readJSON(f.cfg.Dedup, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// writeJSON replaces path through a temporary file so readers never see a partial document.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
