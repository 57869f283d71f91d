package credentials

import (
	"os"
	"path/filepath"

	"github.com/jrsteele09/officehub-client/internal/errors"
)

// FileBackend stores the snapshot in <dir>/auth-storage.json
type FileBackend struct {
	dir string
}

var _ Backend = (*FileBackend)(nil)

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (f *FileBackend) Path() string {
	return filepath.Join(f.dir, StorageKey+".json")
}

func (f *FileBackend) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the file atomically so a crash never leaves a torn snapshot
func (f *FileBackend) Write(data []byte) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return errors.Wrapf(err, "create %s", f.dir)
	}
	tmp, err := os.CreateTemp(f.dir, StorageKey+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.Path())
}

func (f *FileBackend) Delete() error {
	if err := os.Remove(f.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
