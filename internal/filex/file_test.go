package filex

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o770))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o660))
}

func TestEnsureParentDir(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "a", "b", "history.db")

	require.NoError(t, EnsureParentDir(file))
	fi, err := os.Stat(filepath.Join(tmp, "a", "b"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	require.NoError(t, EnsureParentDir(file))
}

func TestEnsureParentDir_FileInTheWay(t *testing.T) {
	tmp := t.TempDir()
	write(t, filepath.Join(tmp, "a"), "x")

	require.Error(t, EnsureParentDir(filepath.Join(tmp, "a", "history.db")))
}

func TestCandidate(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "notes.TXT")
	write(t, p, "hello")

	c, err := Candidate(p)
	require.NoError(t, err)
	assert.Equal(t, "notes.TXT", c.Name)
	assert.Empty(t, c.RelativePath)
	assert.Equal(t, int64(5), c.Size)
	assert.Equal(t, "text/plain", c.MediaType)

	rc, err := c.Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestCandidate_Errors(t *testing.T) {
	tmp := t.TempDir()

	_, err := Candidate(filepath.Join(tmp, "missing.txt"))
	require.Error(t, err)

	_, err = Candidate(tmp)
	require.Error(t, err)
}

func TestDirCandidates(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	write(t, filepath.Join(root, "a", "readme.txt"), "a")
	write(t, filepath.Join(root, "b", "readme.txt"), "bb")
	write(t, filepath.Join(root, "top.pdf"), "%PDF-1.4")

	got, err := DirCandidates(root)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "project/a/readme.txt", got[0].RelativePath)
	assert.Equal(t, "readme.txt", got[0].Name)
	assert.Equal(t, "project/b/readme.txt", got[1].RelativePath)
	assert.Equal(t, int64(2), got[1].Size)
	assert.Equal(t, "project/top.pdf", got[2].RelativePath)
	assert.Equal(t, "application/pdf", got[2].MediaType)
}

func TestDirCandidates_NotADir(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "f.txt")
	write(t, p, "x")

	_, err := DirCandidates(p)
	require.Error(t, err)
}

func TestMediaType_Sniff(t *testing.T) {
	tmp := t.TempDir()

	p := filepath.Join(tmp, "noext")
	write(t, p, "plain words here")
	mt, err := MediaType(p)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)

	empty := filepath.Join(tmp, "empty")
	write(t, empty, "")
	mt, err = MediaType(empty)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", mt)
}
