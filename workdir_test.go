package vcs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodee/vcs"
)

func TestWorkdirStatus(t *testing.T) {
	dir := t.TempDir()
	repo, err := vcs.Open("mem", dir, vcs.Options{Create: true})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("bye"), 0o644))

	im := repo.NewInMemoryChangeset()
	require.NoError(t, im.Add(&vcs.StagedNode{Path: "a.txt", Content: []byte("hi")}))
	require.NoError(t, im.Add(&vcs.StagedNode{Path: "b.txt", Content: []byte("bye")}))
	_, err = im.Commit("init", "A <a@x>", nil, "", time.Unix(0, 0))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi-edited"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("new"), 0o644))

	wd := repo.Workdir()
	status, err := wd.GetStatus()
	require.NoError(t, err)

	require.Len(t, status.Changed, 1)
	assert.Equal(t, "a.txt", status.Changed[0].Path)
	assert.Equal(t, "hi-edited", string(status.Changed[0].Content))

	assert.Equal(t, []string{"b.txt"}, status.Removed)

	require.Len(t, status.Untracked, 1)
	assert.Equal(t, "c.txt", status.Untracked[0].Path)

	assert.Empty(t, status.Added)
}

func TestWorkdirMutationUnsupported(t *testing.T) {
	dir := t.TempDir()
	repo, err := vcs.Open("mem", dir, vcs.Options{Create: true})
	require.NoError(t, err)

	wd := repo.Workdir()
	assert.ErrorIs(t, wd.Update(nil), vcs.ErrWorkdirMutation)
	_, err = wd.Commit("msg", "A <a@x>")
	assert.ErrorIs(t, err, vcs.ErrWorkdirMutation)
}
