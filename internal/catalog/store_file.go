package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

const filePerm = 0o644

// FileStore keeps the collection as a JSON array in a single file.
type FileStore struct {
	path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) ([]Product, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Product{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	products, err := decodeProducts(data)
	if err != nil {
		return nil, s.quarantine(err)
	}
	return products, nil
}

// quarantine moves an undecodable file to <path>.corrupt-<unix> so the next
// Save cannot overwrite the only copy of the data.
func (s *FileStore) quarantine(loadErr error) error {
	aside := s.path + ".corrupt-" + strconv.FormatInt(s.now().Unix(), 10)
	if err := os.Rename(s.path, aside); err != nil {
		return &PersistenceError{Op: "load", Err: multierr.Append(errors.Unwrap(loadErr), err)}
	}
	return &PersistenceError{Op: "load", Err: fmt.Errorf("%w (moved to %s)", errors.Unwrap(loadErr), aside)}
}

// Save writes to a temp file next to the target and renames it over the
// target, so a failed write never leaves a truncated file behind.
func (s *FileStore) Save(ctx context.Context, products []Product) (err error) {
	data, err := encodeProducts(products)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	defer func() {
		if err != nil {
			err = multierr.Append(err, removeIfExists(tmp.Name()))
			err = &PersistenceError{Op: "save", Err: err}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), filePerm); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	return syncDir(dir)
}

// syncDir flushes the directory entry so the rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	return multierr.Append(d.Sync(), d.Close())
}

func removeIfExists(name string) error {
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func decodeProducts(data []byte) ([]Product, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Product{}, nil
	}

	var out []Product
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

func encodeProducts(products []Product) ([]byte, error) {
	if products == nil {
		products = []Product{}
	}
	return json.Marshal(products)
}
