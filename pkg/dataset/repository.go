package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no data set has the requested
	// id.
	ErrNotFound = errors.New("dataset not found")

	// ErrAlreadyExists is returned when a new data set's name
	// resolves to an id that is already stored.
	ErrAlreadyExists = errors.New("dataset already exists")
)

// Repository stores data sets.
type Repository interface {
	Save(ctx context.Context, ds DataSet) (DataSet, error)
	FindByID(ctx context.Context, id string) (DataSet, error)
	FindAll(ctx context.Context) ([]DataSet, error)
	RemoveByID(ctx context.Context, id string) error
}

// FileRepository keeps one JSON file per data set under
// <root>/dataset.
type FileRepository struct {
	mu  sync.RWMutex
	dir string
	now func() time.Time
}

var _ Repository = (*FileRepository)(nil)

// NewFileRepository creates the storage directory if needed.
func NewFileRepository(root string) (*FileRepository, error) {
	dir := filepath.Join(root, "dataset")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset directory %s: %w", dir, err)
	}
	return &FileRepository{dir: dir, now: time.Now}, nil
}

func (r *FileRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

// Save stores ds. A data set without an id is new: its id is
// derived from its name and saving fails with ErrAlreadyExists when
// that id is taken. A data set carrying an id replaces the stored
// one.
func (r *FileRepository) Save(
	_ context.Context,
	ds DataSet,
) (DataSet, error) {
	if errs := Validate(ds); len(errs) > 0 {
		return DataSet{}, errs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ds.ID == "" {
		ds.ID = IDFromName(ds.Name)
		if _, err := os.Stat(r.path(ds.ID)); err == nil {
			return DataSet{}, fmt.Errorf("%s: %w", ds.ID, ErrAlreadyExists)
		}
		if ds.CreationDate.IsZero() {
			ds.CreationDate = r.now().UTC()
		}
	}
	if ds.Constants == nil {
		ds.Constants = map[string]string{}
	}
	if ds.Datatable == nil {
		ds.Datatable = []map[string]string{}
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return DataSet{}, fmt.Errorf("marshal dataset %s: %w", ds.ID, err)
	}
	tmp := r.path(ds.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return DataSet{}, fmt.Errorf("write dataset %s: %w", ds.ID, err)
	}
	if err := os.Rename(tmp, r.path(ds.ID)); err != nil {
		return DataSet{}, fmt.Errorf("write dataset %s: %w", ds.ID, err)
	}
	return ds, nil
}

// FindByID loads one data set.
func (r *FileRepository) FindByID(
	_ context.Context,
	id string,
) (DataSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load(r.path(id), id)
}

func (r *FileRepository) load(path, id string) (DataSet, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DataSet{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return DataSet{}, fmt.Errorf("read dataset %s: %w", id, err)
	}
	var ds DataSet
	if err := json.Unmarshal(data, &ds); err != nil {
		return DataSet{}, fmt.Errorf("parse dataset %s: %w", id, err)
	}
	return ds, nil
}

// FindAll returns every stored data set sorted by id.
func (r *FileRepository) FindAll(_ context.Context) ([]DataSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset directory %s: %w", r.dir, err)
	}
	result := make([]DataSet, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		ds, err := r.load(filepath.Join(r.dir, entry.Name()), id)
		if err != nil {
			return nil, err
		}
		result = append(result, ds)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// RemoveByID deletes a data set.
func (r *FileRepository) RemoveByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("remove dataset %s: %w", id, err)
	}
	return nil
}
