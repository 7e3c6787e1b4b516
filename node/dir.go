package node

import (
	"errors"
	"path"
)

// ErrChildNotFound is node's own taxonomy root for a missing immediate
// child, the package-local analogue of vcs.ErrNodeDoesNotExistChangeset
// (node cannot import vcs without a cycle, so it carries its own rooted
// sentinel rather than the root package's). Every ChildNotFoundError
// unwraps to this, so errors.Is(err, node.ErrChildNotFound) succeeds
// regardless of which directory or name produced it.
var ErrChildNotFound = errors.New("node: child not found")

// Dir is a directory tree entry: it references the immediate child
// files and subdirectories at its path within one changeset. A Dir
// whose path is "" is the Root.
type Dir struct {
	path string
	cs   Changeset

	children    []Node
	childrenSet bool
}

// NewDir constructs a Dir node bound to cs at path ("" for the root).
func NewDir(cs Changeset, path string) *Dir {
	return &Dir{path: path, cs: cs}
}

func (d *Dir) Path() string         { return d.path }
func (d *Dir) Changeset() Changeset { return d.cs }
func (d *Dir) Name() string         { return basename(d.path) }

// Kind reports RootKind for the empty path, DirKind otherwise.
func (d *Dir) Kind() Kind {
	if d.path == "" {
		return RootKind
	}
	return DirKind
}

// Children returns the immediate child nodes at this directory, sorted
// with subdirectories before files and lexicographically by basename
// within each group. Realized lazily and memoised on first call.
func (d *Dir) Children() ([]Node, error) {
	if d.childrenSet {
		return d.children, nil
	}

	seen := make(map[string]bool)
	var children []Node

	for _, dp := range d.cs.DirPaths() {
		if dp == d.path || dp == "" {
			continue
		}
		if parentOf(dp) != d.path {
			continue
		}
		if seen[dp] {
			continue
		}
		seen[dp] = true
		children = append(children, NewDir(d.cs, dp))
	}

	for _, fp := range d.cs.FilePaths() {
		if parentOf(fp) != d.path {
			continue
		}
		if seen[fp] {
			continue
		}
		seen[fp] = true
		children = append(children, NewFile(d.cs, fp))
	}

	sortSiblings(children)
	d.children = children
	d.childrenSet = true
	return d.children, nil
}

// Child resolves the immediate child named name, failing with
// ErrChildNotFound if no such child exists.
func (d *Dir) Child(name string) (Node, error) {
	children, err := d.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, &ChildNotFoundError{Dir: d.path, Name: name}
}

// GetNode resolves subpath relative to this directory by delegating to
// the owning changeset, which holds the authoritative node cache.
func (d *Dir) GetNode(subpath string) (Node, error) {
	if subpath == "" {
		return d, nil
	}
	full := subpath
	if d.path != "" {
		full = path.Join(d.path, subpath)
	}
	return d.cs.GetNode(full)
}

// ChildNotFoundError reports a missing immediate child of a directory.
type ChildNotFoundError struct {
	Dir  string
	Name string
}

func (e *ChildNotFoundError) Error() string {
	return "node: no child named " + strconvQuote(e.Name) + " under " + strconvQuote(e.Dir)
}

func (e *ChildNotFoundError) Unwrap() error { return ErrChildNotFound }

// Walk visits the tree rooted at n in depth-first pre-order, calling fn
// once per directory (including n itself if it is a Dir/Root) with its
// immediate subdirectories and files. Files yield nothing: Walk over a
// File returns immediately without invoking fn.
func Walk(n Node, fn func(dir Node, subdirs, files []Node) error) error {
	d, ok := n.(*Dir)
	if !ok {
		return nil
	}

	children, err := d.Children()
	if err != nil {
		return err
	}

	var subdirs, files []Node
	for _, c := range children {
		if c.Kind() == FileKind {
			files = append(files, c)
		} else {
			subdirs = append(subdirs, c)
		}
	}

	if err := fn(d, subdirs, files); err != nil {
		return err
	}

	for _, sd := range subdirs {
		if err := Walk(sd, fn); err != nil {
			return err
		}
	}
	return nil
}
