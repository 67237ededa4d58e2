package file_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YoshitsuguKoike/agentstate/internal/infra/persistence/file"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failFS is a filesystem that fails on selected operations
type failFS struct {
	afero.Fs
	failOnRename bool
	failOnMkdir  bool
	failOnChmod  bool
}

func (m *failFS) Chmod(name string, mode os.FileMode) error {
	if m.failOnChmod {
		return errors.New("chmod failed")
	}
	return m.Fs.Chmod(name, mode)
}

func (m *failFS) Rename(oldname, newname string) error {
	if m.failOnRename {
		return errors.New("rename failed")
	}
	return m.Fs.Rename(oldname, newname)
}

func (m *failFS) MkdirAll(path string, perm os.FileMode) error {
	if m.failOnMkdir {
		return errors.New("mkdir failed")
	}
	return m.Fs.MkdirAll(path, perm)
}

func assertNoTempFiles(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	files, _ := afero.ReadDir(fs, dir)
	for _, f := range files {
		assert.False(t, strings.HasPrefix(f.Name(), ".tmp-"), "temp file not cleaned up: %s", f.Name())
	}
}

func TestWriteFileAtomic(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		data    []byte
		setupFS func(fs afero.Fs) error
	}{
		{
			name: "Write new file",
			path: "var/context.json",
			data: []byte(`{"phase":"planning"}`),
		},
		{
			name: "Overwrite existing file",
			path: "var/context.json",
			data: []byte(`{"phase":"executing"}`),
			setupFS: func(fs afero.Fs) error {
				return afero.WriteFile(fs, "var/context.json", []byte(`{"phase":"planning"}`), 0o644)
			},
		},
		{
			name: "Write to nested directory",
			path: "a/b/c/checkpoints/x.json",
			data: []byte("{}"),
		},
		{
			name: "Write empty file",
			path: "empty.json",
			data: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.setupFS != nil {
				require.NoError(t, tt.setupFS(fs))
			}

			require.NoError(t, file.WriteFileAtomic(fs, tt.path, tt.data))

			content, err := afero.ReadFile(fs, tt.path)
			require.NoError(t, err)
			assert.Equal(t, string(tt.data), string(content))
			assertNoTempFiles(t, fs, filepath.Dir(tt.path))
		})
	}
}

func TestWriteFileAtomic_RenameFailure(t *testing.T) {
	fs := &failFS{Fs: afero.NewMemMapFs(), failOnRename: true}

	err := file.WriteFileAtomic(fs, "var/test.json", []byte("content"))
	require.Error(t, err)

	exists, _ := afero.Exists(fs, "var/test.json")
	assert.False(t, exists)
	assertNoTempFiles(t, fs, "var")
}

func TestWriteFileAtomic_MkdirFailure(t *testing.T) {
	fs := &failFS{Fs: afero.NewMemMapFs(), failOnMkdir: true}

	err := file.WriteFileAtomic(fs, "var/test.json", []byte("content"))
	assert.ErrorContains(t, err, "failed to create directory")
}

func TestWriteFileAtomic_FileMode(t *testing.T) {
	tests := []struct {
		name     string
		existing os.FileMode
		want     os.FileMode
	}{
		{name: "New file gets default mode", want: 0o644},
		{name: "Existing mode is kept", existing: 0o600, want: 0o600},
		{name: "Group readable mode is kept", existing: 0o640, want: 0o640},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.existing != 0 {
				require.NoError(t, afero.WriteFile(fs, "var/context.json", []byte("{}"), tt.existing))
				require.NoError(t, fs.Chmod("var/context.json", tt.existing))
			}

			require.NoError(t, file.WriteFileAtomic(fs, "var/context.json", []byte(`{"phase":"planning"}`)))

			info, err := fs.Stat("var/context.json")
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Mode().Perm())
		})
	}
}

func TestWriteFileAtomic_StagingFailureLeavesTargetIntact(t *testing.T) {
	fs := &failFS{Fs: afero.NewMemMapFs(), failOnChmod: true}
	require.NoError(t, afero.WriteFile(fs.Fs, "var/context.json", []byte("old"), 0o644))

	err := file.WriteFileAtomic(fs, "var/context.json", []byte("new"))
	assert.ErrorContains(t, err, "failed to set mode")

	content, err := afero.ReadFile(fs, "var/context.json")
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))
	assertNoTempFiles(t, fs, "var")
}

func TestWriteFileAtomic_RefusesDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("var/context.json", 0o755))

	err := file.WriteFileAtomic(fs, "var/context.json", []byte("{}"))
	assert.ErrorContains(t, err, "cannot replace directory")
	assertNoTempFiles(t, fs, "var")
}

func TestWriteJSONAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, file.WriteJSONAtomic(fs, "doc.json", map[string]int{"token_count": 3}))

	content, err := afero.ReadFile(fs, "doc.json")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "\n"))
	assert.JSONEq(t, `{"token_count":3}`, string(content))

	err = file.WriteJSONAtomic(fs, "bad.json", make(chan int))
	assert.Error(t, err)
}
