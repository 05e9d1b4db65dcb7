package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps each blob as <dir>/<name>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Load(ctx context.Context) (State, error) {
	blobs := map[string][]byte{}
	for _, name := range []string{EntriesBlob, SettingsBlob} {
		if err := ctx.Err(); err != nil {
			return State{}, err
		}
		b, err := os.ReadFile(s.path(name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return State{}, err
		}
		blobs[name] = b
	}
	return decodeState(blobs)
}

// Save stages both blobs as temp files and renames them into place only
// after both were written.
func (s *FileStore) Save(ctx context.Context, st State) error {
	blobs, err := encodeState(st)
	if err != nil {
		return err
	}

	names := []string{EntriesBlob, SettingsBlob}
	tmps := make([]string, 0, len(names))
	cleanup := func() {
		for _, t := range tmps {
			_ = os.Remove(t)
		}
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		f, err := os.CreateTemp(s.dir, name+".*.tmp")
		if err != nil {
			cleanup()
			return fmt.Errorf("stage %s: %w", name, err)
		}
		tmps = append(tmps, f.Name())
		if _, err := f.Write(blobs[name]); err != nil {
			_ = f.Close()
			cleanup()
			return fmt.Errorf("stage %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}

	for i, name := range names {
		if err := os.Rename(tmps[i], s.path(name)); err != nil {
			cleanup()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// UpdatedAt returns when a blob was last written.
func (s *FileStore) UpdatedAt(_ context.Context, name string) (time.Time, error) {
	fi, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, fmt.Errorf("blob %q not found", name)
	}
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime().UTC(), nil
}

func (s *FileStore) Close() error { return nil }
