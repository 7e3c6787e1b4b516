package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodee/vcs/backend"
	"github.com/velodee/vcs/backend/memory"
)

func open(t *testing.T, path string) backend.Adapter {
	t.Helper()
	h, err := memory.Open(path, true, "", nil)
	require.NoError(t, err)
	return h
}

func commit(t *testing.T, h backend.Adapter, parents []string, ops []backend.Op) string {
	t.Helper()
	id, err := h.CommitInMemory(parents, "jane", time.Unix(0, 0), "default", "msg", ops)
	require.NoError(t, err)
	return id
}

func TestOpenCreateThenReopenSeesSameStore(t *testing.T) {
	path := t.Name()
	h := open(t, path)
	id := commit(t, h, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("hi")}})

	h2, err := memory.Open(path, false, "", nil)
	require.NoError(t, err)
	revs, err := h2.Revisions()
	require.NoError(t, err)
	assert.Equal(t, []string{id}, revs)
}

func TestCreateOnExistingPathFails(t *testing.T) {
	path := t.Name()
	open(t, path)
	_, err := memory.Open(path, true, "", nil)
	assert.Error(t, err)
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	_, err := memory.Open(t.Name()+"-missing", false, "", nil)
	assert.Error(t, err)
}

func TestCommitInfoAndFileContent(t *testing.T) {
	h := open(t, t.Name())
	id := commit(t, h, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("hello"), Executable: true}})

	info, err := h.CommitInfo(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, info.FilePaths)
	assert.Equal(t, []string{"a.txt"}, info.TouchedPaths)
	assert.Empty(t, info.Parents)

	content, err := h.FileContent(id, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	exec, err := h.FileExecutable(id, "a.txt")
	require.NoError(t, err)
	assert.True(t, exec)
}

func TestStatusAgainstParent(t *testing.T) {
	h := open(t, t.Name())
	id1 := commit(t, h, nil, []backend.Op{
		{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("1")},
		{Kind: backend.OpAdd, Path: "b.txt", Content: []byte("2")},
	})
	id2 := commit(t, h, []string{id1}, []backend.Op{
		{Kind: backend.OpChange, Path: "a.txt", Content: []byte("1b")},
		{Kind: backend.OpRemove, Path: "b.txt"},
		{Kind: backend.OpAdd, Path: "c.txt", Content: []byte("3")},
	})

	st, err := h.Status(id2, id1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.txt"}, st.Added)
	assert.Equal(t, []string{"a.txt"}, st.Changed)
	assert.Equal(t, []string{"b.txt"}, st.Removed)
}

func TestFileHistoryNewestFirst(t *testing.T) {
	h := open(t, t.Name())
	id1 := commit(t, h, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("v1")}})
	id2 := commit(t, h, []string{id1}, []backend.Op{{Kind: backend.OpChange, Path: "a.txt", Content: []byte("v2")}})

	hist, err := h.FileHistory(id2, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{id2, id1}, hist)
}

func TestFileAnnotateAttributesLinesToIntroducingCommit(t *testing.T) {
	h := open(t, t.Name())
	id1 := commit(t, h, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("one\ntwo\n")}})
	id2 := commit(t, h, []string{id1}, []backend.Op{{Kind: backend.OpChange, Path: "a.txt", Content: []byte("one\nTWO\nthree\n")}})

	lines, err := h.FileAnnotate(id2, "a.txt")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, id1, lines[0].RawID)
	assert.Equal(t, id2, lines[1].RawID)
	assert.Equal(t, id2, lines[2].RawID)
}

func TestTagAndUntag(t *testing.T) {
	h := open(t, t.Name())
	id := commit(t, h, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("x")}})

	_, err := h.Tag("v1", id, "jane", "tag v1", time.Unix(0, 0), false)
	require.NoError(t, err)
	_, tags, err := h.Refs()
	require.NoError(t, err)
	assert.Equal(t, id, tags["v1"])

	require.NoError(t, h.Untag("v1", "jane", "drop v1", time.Unix(0, 0)))
	_, tags, err = h.Refs()
	require.NoError(t, err)
	assert.NotContains(t, tags, "v1")
}

func TestSetBranchAndRemoveBranch(t *testing.T) {
	h := open(t, t.Name())
	id := commit(t, h, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("x")}})

	require.NoError(t, h.SetBranch("feature", id))
	branches, _, err := h.Refs()
	require.NoError(t, err)
	assert.Equal(t, id, branches["feature"])

	require.NoError(t, h.RemoveBranch("feature"))
	branches, _, err = h.Refs()
	require.NoError(t, err)
	assert.NotContains(t, branches, "feature")
}

func TestCommitContentAddressingIsDeterministic(t *testing.T) {
	h1 := open(t, t.Name()+"-1")
	h2 := open(t, t.Name()+"-2")

	id1 := commit(t, h1, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("x")}})
	id2 := commit(t, h2, nil, []backend.Op{{Kind: backend.OpAdd, Path: "a.txt", Content: []byte("x")}})
	assert.Equal(t, id1, id2)
}
