// Package state persists the computed execution order between runs.
// The order is a single flat record, fully overwritten on every save and
// reloaded to keep later runs ordering files consistently. Absence of a
// prior order is a valid state, not an error.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cubestack/cubist/internal/cube"
)

// DefaultPath is the well-known location of the order file, relative to
// the project root.
const DefaultPath = ".cubist/order.json"

// ExecutionOrder is the persisted ordering record. A single resolution
// populates either Tables or Seeders, never both.
type ExecutionOrder struct {
	Tables    []string  `json:"tables"`
	Seeders   []string  `json:"seeders"`
	Timestamp time.Time `json:"timestamp"`
}

// Store loads and saves execution orders.
type Store interface {
	// Load returns the persisted order, or nil when none exists.
	Load() (*ExecutionOrder, error)
	// Save overwrites the persisted order.
	Save(order *ExecutionOrder) error
}

// FileStore is a Store backed by a JSON file. Writes are last-writer-wins
// full overwrites; no concurrent writers are expected in CLI usage.
type FileStore struct {
	path string
}

// NewFileStore creates a store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted order. A missing or unreadable file is treated
// as "no prior order" and returns nil without error; callers fall back to
// their original file order.
func (s *FileStore) Load() (*ExecutionOrder, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, nil
	}

	var order ExecutionOrder
	if err := json.Unmarshal(data, &order); err != nil {
		// Corrupt state is recoverable: the next save rewrites it
		return nil, nil
	}
	return &order, nil
}

// Save writes the order, creating the state directory if needed.
func (s *FileStore) Save(order *ExecutionOrder) error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution order: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0640); err != nil {
		return fmt.Errorf("failed to write execution order: %w", err)
	}
	return nil
}

// Reorder sequences files according to the stored table order. Seeders
// follow the table order too: seeding must respect the same foreign key
// precedence as table creation. Files whose table name does not appear in
// the stored order are appended at the end in their original relative
// order. Reordering an already-ordered list is idempotent.
func Reorder(order *ExecutionOrder, files []*cube.File) []*cube.File {
	if order == nil || len(order.Tables) == 0 {
		return files
	}

	byName := make(map[string]*cube.File, len(files))
	for _, f := range files {
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}

	result := make([]*cube.File, 0, len(files))
	placed := make(map[string]bool, len(files))
	for _, name := range order.Tables {
		if f, ok := byName[name]; ok && !placed[name] {
			result = append(result, f)
			placed[name] = true
		}
	}
	for _, f := range files {
		if !placed[f.Name] {
			result = append(result, f)
			placed[f.Name] = true
		}
	}
	return result
}
