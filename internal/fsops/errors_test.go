package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{"permission", &fs.PathError{Op: "remove", Path: "/x", Err: syscall.EACCES}, "access"},
		{"not exist", &fs.PathError{Op: "remove", Path: "/x", Err: syscall.ENOENT}, "not_found"},
		{"not empty", &fs.PathError{Op: "remove", Path: "/x", Err: syscall.ENOTEMPTY}, "filesystem"},
		{"plain", errors.New("boom"), "filesystem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("remove", "/x", tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.wantKind, Kind(got))
			assert.ErrorIs(t, got, tt.err)
			assert.Contains(t, got.Error(), "/x")
		})
	}
}

func TestClassify_NilAndIdempotent(t *testing.T) {
	assert.NoError(t, Classify("remove", "/x", nil))

	first := Classify("remove", "/x", fs.ErrNotExist)
	second := Classify("walk", "/y", first)
	assert.Same(t, first, second)
	assert.True(t, IsNotFound(second))
}

func TestOSDeleter_RemoveAllMissingPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")

	err := OSDeleter{}.RemoveAll(missing)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestOSDeleter_RemoveNonEmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "full")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))

	err := OSDeleter{}.Remove(dir)
	require.Error(t, err)
	assert.Equal(t, "filesystem", Kind(err))

	require.NoError(t, OSDeleter{}.RemoveAll(dir))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestFakeDeleter_RecordsAndInjects(t *testing.T) {
	f := &FakeDeleter{}
	f.FailOn("/b", syscall.EACCES)

	assert.NoError(t, f.Remove("/a"))
	assert.ErrorIs(t, f.RemoveAll("/b"), syscall.EACCES)
	assert.Equal(t, []string{"rm:/a", "rmall:/b"}, f.Calls)
}
