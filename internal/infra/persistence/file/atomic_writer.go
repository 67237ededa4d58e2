package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const defaultFileMode os.FileMode = 0o644

// WriteFileAtomic replaces path with data so that readers see either the old
// content or the new content. The staged file is created next to path, made
// durable, given the target's permissions and renamed over it. The parent
// directory is synced afterwards where the filesystem allows it.
func WriteFileAtomic(afs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := afs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	mode, err := targetMode(afs, path)
	if err != nil {
		return err
	}

	staged, err := stage(afs, dir, data, mode)
	if err != nil {
		return err
	}
	if err := afs.Rename(staged, path); err != nil {
		_ = afs.Remove(staged)
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	syncDir(afs, dir)
	return nil
}

// targetMode keeps the permissions of an existing file; new files get 0644
func targetMode(afs afero.Fs, path string) (os.FileMode, error) {
	info, err := afs.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return 0, fmt.Errorf("cannot replace directory %s", path)
		}
		return info.Mode().Perm(), nil
	case errors.Is(err, fs.ErrNotExist):
		return defaultFileMode, nil
	default:
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}

// stage writes data to a fresh temp file in dir and returns its name. On
// error nothing is left behind.
func stage(afs afero.Fs, dir string, data []byte, mode os.FileMode) (name string, err error) {
	f, err := afero.TempFile(afs, dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name = f.Name()

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close temp file: %w", cerr)
		}
		if err != nil {
			_ = afs.Remove(name)
			name = ""
		}
	}()

	n, err := f.Write(data)
	if err == nil && n < len(data) {
		err = fmt.Errorf("short write (%d of %d bytes)", n, len(data))
	}
	if err != nil {
		return name, fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return name, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = afs.Chmod(name, mode); err != nil {
		return name, fmt.Errorf("failed to set mode on temp file: %w", err)
	}
	return name, nil
}

// syncDir flushes the directory entry created by the rename. Failures are
// ignored: some platforms cannot open or sync a directory.
func syncDir(afs afero.Fs, dir string) {
	d, err := afs.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// WriteJSONAtomic encodes v as indented JSON with a trailing newline and
// writes it with WriteFileAtomic
func WriteJSONAtomic(afs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	return WriteFileAtomic(afs, path, data)
}
