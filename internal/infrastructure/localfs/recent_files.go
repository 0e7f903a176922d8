package localfs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hszk-dev/vidbrief/internal/domain/repository"
)

// DefaultRecentLimit is the number of entries kept when no limit is configured.
const DefaultRecentLimit = 10

// Compile-time verification that RecentFiles implements repository.RecentFiles.
var _ repository.RecentFiles = (*RecentFiles)(nil)

// RecentFiles persists a bounded, deduplicated list of resolved video paths as a JSON array.
type RecentFiles struct {
	path  string
	limit int
}

// NewRecentFiles returns a list stored at path. A non-positive limit uses DefaultRecentLimit.
func NewRecentFiles(path string, limit int) *RecentFiles {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RecentFiles{path: path, limit: limit}
}

// Load returns the stored paths that still exist, most recent first.
// A missing or unreadable list is treated as empty.
func (r *RecentFiles) Load() []string {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return []string{}
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{}
	}

	paths := make([]string, 0, len(raw))
	for _, item := range raw {
		p, ok := item.(string)
		if !ok || p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		paths = append(paths, p)
	}
	return r.normalize(paths)
}

// Add moves path to the front of the list and persists the result.
func (r *RecentFiles) Add(path string) ([]string, error) {
	paths := append([]string{path}, r.Load()...)
	return r.normalize(paths), r.Save(paths)
}

// Save resolves, deduplicates and truncates paths before persisting them.
func (r *RecentFiles) Save(paths []string) error {
	data, err := json.MarshalIndent(r.normalize(paths), "", "  ")
	if err != nil {
		return fmt.Errorf("encode recent files: %w", err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("save recent files: %w", err)
	}
	return nil
}

func (r *RecentFiles) normalize(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, min(len(paths), r.limit))
	for _, p := range paths {
		resolved := resolve(p)
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
		if len(out) == r.limit {
			break
		}
	}
	return out
}

func resolve(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}
