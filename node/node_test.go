package node_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodee/vcs/node"
)

// fakeChangeset is a minimal node.Changeset used only to exercise the
// node package in isolation, independent of the root vcs package.
type fakeChangeset struct {
	rev     int
	rawID   string
	files   []string
	dirs    []string
	content map[string][]byte
	nodes   map[string]node.Node
}

func newFakeChangeset(rawID string, rev int, files []string) *fakeChangeset {
	dirset := map[string]bool{"": true}
	for _, f := range files {
		parts := splitPath(f)
		for i := range parts {
			if i == 0 {
				continue
			}
			dirset[join(parts[:i])] = true
		}
	}
	var dirs []string
	for d := range dirset {
		dirs = append(dirs, d)
	}

	return &fakeChangeset{
		rev:     rev,
		rawID:   rawID,
		files:   files,
		dirs:    dirs,
		content: map[string][]byte{},
		nodes:   map[string]node.Node{},
	}
}

func splitPath(p string) []string {
	var parts []string
	cur := ""
	for _, r := range p {
		if r == '/' {
			parts = append(parts, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	parts = append(parts, cur)
	return parts
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

func (c *fakeChangeset) Revision() int         { return c.rev }
func (c *fakeChangeset) RawID() string         { return c.rawID }
func (c *fakeChangeset) FilePaths() []string   { return c.files }
func (c *fakeChangeset) DirPaths() []string    { return c.dirs }

func (c *fakeChangeset) FileContent(path string) ([]byte, error) {
	return c.content[path], nil
}
func (c *fakeChangeset) FileSize(path string) (int64, error) {
	return int64(len(c.content[path])), nil
}
func (c *fakeChangeset) FileExecutable(path string) (bool, error) { return false, nil }
func (c *fakeChangeset) FileHistory(path string) ([]node.Changeset, error) {
	return []node.Changeset{c}, nil
}
func (c *fakeChangeset) FileAnnotate(path string) ([]node.AnnotateLine, error) {
	return nil, nil
}

func (c *fakeChangeset) GetNode(p string) (node.Node, error) {
	if n, ok := c.nodes[p]; ok {
		return n, nil
	}
	var n node.Node
	switch {
	case p == "":
		n = node.NewDir(c, "")
	case contains(c.files, p):
		n = node.NewFile(c, p)
	case contains(c.dirs, p):
		n = node.NewDir(c, p)
	default:
		return nil, &node.PathError{Path: p, Reason: "does not exist"}
	}
	c.nodes[p] = n
	return n, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"a/b/c", "a/b/c", false},
		{"a/b/c/", "a/b/c", false},
		{"/a/b", "", true},
		{"a/./b", "", true},
		{"a/../b", "", true},
		{"a//b", "", true},
	}
	for _, tc := range cases {
		got, err := node.Canonicalize(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestDirChildrenOrderingAndKinds(t *testing.T) {
	cs := newFakeChangeset("deadbeef", 0, []string{
		"README", "src/main.go", "src/lib/util.go", "zzz.txt",
	})
	root, err := cs.GetNode("")
	require.NoError(t, err)
	require.Equal(t, node.RootKind, root.Kind())

	d := root.(*node.Dir)
	children, err := d.Children()
	require.NoError(t, err)
	require.Len(t, children, 3)

	// dirs before files, then lexicographic by basename
	assert.Equal(t, "src", children[0].Name())
	assert.Equal(t, node.DirKind, children[0].Kind())
	assert.Equal(t, "README", children[1].Name())
	assert.Equal(t, "zzz.txt", children[2].Name())
}

func TestFileLazyFieldsMemoised(t *testing.T) {
	cs := newFakeChangeset("cafe", 1, []string{"a.txt"})
	cs.content["a.txt"] = []byte("hello")

	n, err := cs.GetNode("a.txt")
	require.NoError(t, err)
	f := n.(*node.File)

	size, err := f.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	content, err := f.Content()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	// mutate the backing store; a memoised File must not observe it
	cs.content["a.txt"] = []byte("mutated")
	content2, err := f.Content()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content2))
}

func TestEqual(t *testing.T) {
	csA := newFakeChangeset("aaaa", 0, []string{"x"})
	csB := newFakeChangeset("bbbb", 1, []string{"x"})

	a1, _ := csA.GetNode("x")
	a2, _ := csA.GetNode("x")
	b1, _ := csB.GetNode("x")

	assert.True(t, node.Equal(a1, a2))
	assert.False(t, node.Equal(a1, b1))
}

func TestWalk(t *testing.T) {
	cs := newFakeChangeset("f00d", 0, []string{"a.txt", "dir/b.txt", "dir/sub/c.txt"})
	root, err := cs.GetNode("")
	require.NoError(t, err)

	var visited []string
	err = node.Walk(root, func(dir node.Node, subdirs, files []node.Node) error {
		visited = append(visited, dir.Path())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "dir", "dir/sub"}, visited)
}

func TestGetNodeMissing(t *testing.T) {
	cs := newFakeChangeset("abc", 0, []string{"a.txt"})
	_, err := cs.GetNode("nope")
	assert.Error(t, err)
}

func TestDirChildMissingUnwrapsToErrChildNotFound(t *testing.T) {
	cs := newFakeChangeset("abc", 0, []string{"a.txt"})
	root, err := cs.GetNode("")
	require.NoError(t, err)
	d := root.(*node.Dir)

	_, err = d.Child("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, node.ErrChildNotFound))
	var cnf *node.ChildNotFoundError
	assert.True(t, errors.As(err, &cnf))
	assert.Equal(t, "nope", cnf.Name)
}
