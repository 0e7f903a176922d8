package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hszk-dev/vidbrief/internal/domain/repository"
)

const recordExt = ".json"

// Compile-time verification that RecordStore implements repository.RecordStore.
var _ repository.RecordStore = (*RecordStore)(nil)

// RecordStore keeps one JSON document per cache record in a directory.
type RecordStore struct {
	dir string
}

// NewRecordStore creates the directory if needed and returns a store rooted at it.
func NewRecordStore(dir string) (*RecordStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record directory: %w", err)
	}
	return &RecordStore{dir: dir}, nil
}

// Dir returns the directory holding the records.
func (s *RecordStore) Dir() string {
	return s.dir
}

func (s *RecordStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := repository.ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrRecordNotFound
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	return data, nil
}

// Put writes the payload to a temp file and renames it over the record,
// so readers never observe a partially written document.
func (s *RecordStore) Put(_ context.Context, key string, payload []byte) error {
	if err := repository.ValidateKey(key); err != nil {
		return err
	}
	return writeFileAtomic(s.path(key), payload)
}

func (s *RecordStore) Delete(_ context.Context, key string) error {
	if err := repository.ValidateKey(key); err != nil {
		return err
	}

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

func (s *RecordStore) path(key string) string {
	return filepath.Join(s.dir, key+recordExt)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
