package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/domain/run"
)

// Repository defines persistence operations for run records.
type Repository interface {
	Load(ctx context.Context) (*run.Record, error)
	Save(ctx context.Context, record *run.Record) error
}

// FileRepository keeps the last run record as a YAML file.
type FileRepository struct {
	// path is the filesystem location of the record file.
	path string
	// mu protects concurrent access to the record file.
	mu sync.Mutex
}

// ErrNotFound is returned when no run has been recorded yet.
var ErrNotFound = errors.New("run record not found")

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the record file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*run.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read run record: %w", err)
	}

	record := new(run.Record)
	if err = yaml.Unmarshal(contents, record); err != nil {
		return nil, fmt.Errorf("decode run record: %w", err)
	}

	return record, nil
}

// Save replaces the record on disk. The file is written next to the
// target and renamed, so readers never see a partial record.
func (r *FileRepository) Save(_ context.Context, record *run.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create run record: %w", err)
	}

	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	if err = errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write run record: %w", err)
	}

	if err = os.Chmod(tmpPath, config.DefaultFilePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod run record: %w", err)
	}

	if err = os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace run record: %w", err)
	}

	return nil
}
