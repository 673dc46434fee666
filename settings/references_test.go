package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEncoding(t *testing.T) {
	ref := SplitEncoding("refs.md;iso-8859-1", "utf-8")
	assert.Equal(t, "refs.md", ref.Name)
	assert.Equal(t, "iso-8859-1", ref.Encoding)

	plain := SplitEncoding("refs.md", "utf-8")
	assert.Equal(t, "refs.md", plain.Name)
	assert.Equal(t, "utf-8", plain.Encoding)

	trailing := SplitEncoding("refs.md;", "utf-8")
	assert.Equal(t, "refs.md;", trailing.Name)
	assert.Equal(t, "utf-8", trailing.Encoding)
}

func TestResolvePathBasePath(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "refs.md"), []byte("[ref]: x"), 0o644))

	r := newTestResolver(t, Options{})

	path, err := r.ResolvePath(Reference{Name: "refs.md"}, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "refs.md"), path)
}

func TestResolvePathUserPathFallback(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "refs.md"), []byte("[ref]: x"), 0o644))

	t.Setenv("CRITICMD_HOME", home)
	t.Setenv("CRITICMD_SETTINGS", filepath.Join(t.TempDir(), "nonexistent.yml"))
	r, err := NewResolver(Options{})
	require.NoError(t, err)

	path, err := r.ResolvePath(Reference{Name: "refs.md"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "refs.md"), path)
}

func TestResolvePathAbsolute(t *testing.T) {
	file := filepath.Join(t.TempDir(), "refs.md")
	require.NoError(t, os.WriteFile(file, []byte("[ref]: x"), 0o644))

	r := newTestResolver(t, Options{})

	path, err := r.ResolvePath(Reference{Name: file}, "")
	require.NoError(t, err)
	assert.Equal(t, file, path)
}

func TestResolvePathMissing(t *testing.T) {
	r := newTestResolver(t, Options{})

	_, err := r.ResolvePath(Reference{Name: "missing.md"}, t.TempDir())
	require.Error(t, err)
	assert.True(t, IsReferenceNotFound(err))
}
