// Package node implements the backend-agnostic node tree exposed by a
// changeset: files, directories and the root, each lazily realized from
// the owning changeset on first access.
package node

import (
	"errors"
	"path"
	"strings"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Kind identifies the variant of a Node.
type Kind int8

const (
	// FileKind is a regular tracked file.
	FileKind Kind = iota
	// DirKind is a non-empty directory.
	DirKind
	// RootKind is the Dir whose path is the empty string.
	RootKind
)

func (k Kind) String() string {
	switch k {
	case FileKind:
		return "file"
	case DirKind:
		return "dir"
	case RootKind:
		return "root"
	default:
		return "unknown"
	}
}

// ErrNotSupported names an operation a node kind does not support. No
// function in this package returns it: File has no Children method, and
// File.GetNode with a non-empty subpath reports a PathError.
var ErrNotSupported = errors.New("node: operation not supported for this kind")

// Changeset is the surface a Node needs from its owning changeset in
// order to lazily realize content and children. The concrete Changeset
// type in the root vcs package satisfies this interface; it is declared
// here, rather than imported, so that node has no dependency on vcs and
// can be imported by it without a cycle.
type Changeset interface {
	// Revision is the owning changeset's monotone revision index.
	Revision() int
	// RawID is the owning changeset's backend-native identifier.
	RawID() string
	// FilePaths lists every tracked file path in the changeset.
	FilePaths() []string
	// DirPaths lists every non-empty directory, plus "" for the root.
	DirPaths() []string
	// FileContent returns the raw bytes of path at this changeset.
	FileContent(path string) ([]byte, error)
	// FileSize returns the byte length of path at this changeset.
	FileSize(path string) (int64, error)
	// FileExecutable reports whether path carries the executable bit.
	FileExecutable(path string) (bool, error)
	// FileHistory returns the changesets that modified path, newest first.
	FileHistory(path string) ([]Changeset, error)
	// FileAnnotate returns per-line blame of path.
	FileAnnotate(path string) ([]AnnotateLine, error)
	// GetNode resolves an absolute (changeset-rooted) path to a Node,
	// materializing and caching it as needed. Used by Dir/Root to
	// resolve descendants outside their own immediate children.
	GetNode(path string) (Node, error)
}

// AnnotateLine is one line of a File's annotate output.
type AnnotateLine struct {
	LineNo    int
	Changeset Changeset
	Line      []byte
}

// Node is a tree entry bound to one specific changeset.
type Node interface {
	// Path is the canonical, repo-relative path ("" for the root).
	Path() string
	// Kind reports which variant this node is.
	Kind() Kind
	// Changeset is the snapshot this node belongs to.
	Changeset() Changeset
	// Name is the last path component ("" for the root).
	Name() string
	// GetNode resolves subpath relative to this node.
	GetNode(subpath string) (Node, error)
}

// Canonicalize normalizes a repository path: strips a trailing slash,
// rejects "." and ".." components, and rejects a leading slash. The
// empty string denotes the root and canonicalizes to itself.
func Canonicalize(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "/") {
		return "", &PathError{Path: p, Reason: "leading slash not allowed"}
	}
	p = strings.TrimSuffix(p, "/")
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			return "", &PathError{Path: p, Reason: "empty path component"}
		}
		if part == "." || part == ".." {
			return "", &PathError{Path: p, Reason: "relative components (. or ..) are not supported"}
		}
	}
	return p, nil
}

// PathError reports an invalid repository path.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return "node: invalid path " + strconvQuote(e.Path) + ": " + e.Reason
}

func strconvQuote(s string) string {
	return "\"" + s + "\""
}

// basename returns the last path component of a canonical path.
func basename(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// parentOf returns the canonical parent directory path of p, or "" if p
// is a top-level entry.
func parentOf(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// sortSiblings orders nodes per spec: directories (and the synthetic
// root, which never appears as a sibling) before files, then
// lexicographic by basename. Ordering is done with a binary heap rather
// than a plain sort, the way the teacher orders commit-graph frontiers.
func sortSiblings(nodes []Node) {
	h := binaryheap.NewWith(func(a, b interface{}) int {
		na, nb := a.(Node), b.(Node)
		if (na.Kind() == FileKind) != (nb.Kind() == FileKind) {
			if na.Kind() == FileKind {
				return 1
			}
			return -1
		}
		return strings.Compare(na.Name(), nb.Name())
	})
	for _, n := range nodes {
		h.Push(n)
	}
	for i := range nodes {
		v, _ := h.Pop()
		nodes[i] = v.(Node)
	}
}
