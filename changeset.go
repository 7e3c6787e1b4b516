package vcs

import (
	"fmt"
	"time"

	"github.com/velodee/vcs/diff"
	"github.com/velodee/vcs/node"
)

// Changeset is one immutable snapshot of a Repository's history. It
// satisfies node.Changeset so the node package can lazily realize file
// content and directory children against it without importing this
// package back (spec §4.A/§4.B).
type Changeset struct {
	repo    *Repository
	parents []*Changeset

	revision int
	rawID    string
	shortID  string
	author   string
	message  string
	date     time.Time
	branch   string
	tags     []string

	filePaths    []string
	dirPaths     []string
	touchedPaths []string

	nodeCache map[string]node.Node
	fileSet   map[string]struct{}
	dirSet    map[string]struct{}

	diffDone    bool
	diffAdded   []node.Node
	diffChanged []node.Node
	diffRemoved []node.Node
}

// Revision is this changeset's monotone index into the repository's
// history (0-based, oldest first).
func (cs *Changeset) Revision() int { return cs.revision }

// RawID is the backend-native identifier (e.g. a full SHA).
func (cs *Changeset) RawID() string { return cs.rawID }

// ShortID is RawID truncated to its conventional display length.
func (cs *Changeset) ShortID() string { return cs.shortID }

// ID returns "tip" for the most recent changeset, ShortID otherwise.
func (cs *Changeset) ID() string {
	if cs.Last() {
		return "tip"
	}
	return cs.shortID
}

// Last reports whether this changeset currently sits at the tip. It is
// computed against the repository's live revision count, not memoised,
// since new commits can demote a previously-last changeset.
func (cs *Changeset) Last() bool {
	return cs.revision == len(cs.repo.revisions)-1
}

func (cs *Changeset) Author() string     { return cs.author }
func (cs *Changeset) Message() string    { return cs.message }
func (cs *Changeset) Date() time.Time    { return cs.date }
func (cs *Changeset) Branch() string     { return cs.branch }
func (cs *Changeset) Tags() []string     { return append([]string(nil), cs.tags...) }
func (cs *Changeset) Parents() []*Changeset {
	return append([]*Changeset(nil), cs.parents...)
}

func (cs *Changeset) FilePaths() []string { return append([]string(nil), cs.filePaths...) }
func (cs *Changeset) DirPaths() []string  { return append([]string(nil), cs.dirPaths...) }

func (cs *Changeset) fileMembership() map[string]struct{} {
	if cs.fileSet == nil {
		cs.fileSet = diff.Set(cs.filePaths)
	}
	return cs.fileSet
}

func (cs *Changeset) dirMembership() map[string]struct{} {
	if cs.dirSet == nil {
		cs.dirSet = diff.Set(cs.dirPaths)
	}
	return cs.dirSet
}

// FileContent is the low-level, backend-direct accessor node.File uses
// to lazily fetch its bytes; GetFileContent is the public, kind-checked
// equivalent.
func (cs *Changeset) FileContent(path string) ([]byte, error) {
	b, err := cs.repo.adapter.FileContent(cs.rawID, path)
	if err != nil {
		return nil, &RepositoryError{Path: cs.repo.path, Err: err}
	}
	return b, nil
}

func (cs *Changeset) FileSize(path string) (int64, error) {
	n, err := cs.repo.adapter.FileSize(cs.rawID, path)
	if err != nil {
		return 0, &RepositoryError{Path: cs.repo.path, Err: err}
	}
	return n, nil
}

func (cs *Changeset) FileExecutable(path string) (bool, error) {
	x, err := cs.repo.adapter.FileExecutable(cs.rawID, path)
	if err != nil {
		return false, &RepositoryError{Path: cs.repo.path, Err: err}
	}
	return x, nil
}

// FileHistory implements node.Changeset by resolving the backend's
// newest-first raw_id list into cached *Changeset values via
// Repository.GetChangeset, so identity is preserved with any other path
// to the same changeset (R3).
func (cs *Changeset) FileHistory(path string) ([]node.Changeset, error) {
	ids, err := cs.repo.adapter.FileHistory(cs.rawID, path)
	if err != nil {
		return nil, &RepositoryError{Path: cs.repo.path, Err: err}
	}
	out := make([]node.Changeset, len(ids))
	for i, id := range ids {
		c, err := cs.repo.GetChangeset(id)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// FileAnnotate implements node.Changeset's per-line blame.
func (cs *Changeset) FileAnnotate(path string) ([]node.AnnotateLine, error) {
	entries, err := cs.repo.adapter.FileAnnotate(cs.rawID, path)
	if err != nil {
		return nil, &RepositoryError{Path: cs.repo.path, Err: err}
	}
	out := make([]node.AnnotateLine, len(entries))
	for i, e := range entries {
		c, err := cs.repo.GetChangeset(e.RawID)
		if err != nil {
			return nil, err
		}
		out[i] = node.AnnotateLine{LineNo: i + 1, Changeset: c, Line: e.Line}
	}
	return out, nil
}

// GetNode resolves path (canonicalized, "" for the root) to a Node,
// materializing and caching it on first access. This is the single
// source of truth node.Dir.GetNode delegates back to.
func (cs *Changeset) GetNode(p string) (node.Node, error) {
	canon, err := node.Canonicalize(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChangeset, err)
	}
	if n, ok := cs.nodeCache[canon]; ok {
		return n, nil
	}

	var n node.Node
	switch {
	case canon == "":
		n = node.NewDir(cs, "")
	case contains(cs.fileMembership(), canon):
		n = node.NewFile(cs, canon)
	case contains(cs.dirMembership(), canon):
		n = node.NewDir(cs, canon)
	default:
		return nil, &NodeDoesNotExistError{Path: canon, Revision: cs.revision}
	}
	cs.nodeCache[canon] = n
	return n, nil
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// GetNodes returns the immediate children of the directory at path.
func (cs *Changeset) GetNodes(path string) ([]node.Node, error) {
	n, err := cs.GetNode(path)
	if err != nil {
		return nil, err
	}
	d, ok := n.(*node.Dir)
	if !ok {
		return nil, &WrongKindError{Path: path, Want: "directory"}
	}
	return d.Children()
}

// GetFileContent returns the raw bytes of the file at path.
func (cs *Changeset) GetFileContent(path string) ([]byte, error) {
	f, err := cs.file(path)
	if err != nil {
		return nil, err
	}
	return f.Content()
}

// GetFileSize returns the byte length of the file at path.
func (cs *Changeset) GetFileSize(path string) (int64, error) {
	f, err := cs.file(path)
	if err != nil {
		return 0, err
	}
	return f.Size()
}

// GetFileExecutable reports whether the file at path is executable.
func (cs *Changeset) GetFileExecutable(path string) (bool, error) {
	f, err := cs.file(path)
	if err != nil {
		return false, err
	}
	return f.IsExecutable()
}

// GetFileHistory returns the changesets that modified path, newest first.
func (cs *Changeset) GetFileHistory(path string) ([]*Changeset, error) {
	f, err := cs.file(path)
	if err != nil {
		return nil, err
	}
	hist, err := f.History()
	if err != nil {
		return nil, err
	}
	out := make([]*Changeset, len(hist))
	for i, h := range hist {
		out[i] = h.(*Changeset)
	}
	return out, nil
}

// GetFileChangeset returns the changeset that most recently modified
// path (the first, most-recent entry of GetFileHistory).
func (cs *Changeset) GetFileChangeset(path string) (*Changeset, error) {
	hist, err := cs.GetFileHistory(path)
	if err != nil {
		return nil, err
	}
	if len(hist) == 0 {
		return cs, nil
	}
	return hist[0], nil
}

// AnnotateLine is one line of GetFileAnnotate's output.
type AnnotateLine struct {
	LineNo    int
	Changeset *Changeset
	Line      []byte
}

// GetFileAnnotate returns per-line blame of the file at path.
func (cs *Changeset) GetFileAnnotate(path string) ([]AnnotateLine, error) {
	f, err := cs.file(path)
	if err != nil {
		return nil, err
	}
	lines, err := f.Annotate()
	if err != nil {
		return nil, err
	}
	out := make([]AnnotateLine, len(lines))
	for i, l := range lines {
		out[i] = AnnotateLine{LineNo: l.LineNo, Changeset: l.Changeset.(*Changeset), Line: l.Line}
	}
	return out, nil
}

func (cs *Changeset) file(path string) (*node.File, error) {
	n, err := cs.GetNode(path)
	if err != nil {
		return nil, err
	}
	f, ok := n.(*node.File)
	if !ok {
		return nil, &WrongKindError{Path: path, Want: "file"}
	}
	return f, nil
}

// Walk visits the tree rooted at path in depth-first pre-order.
func (cs *Changeset) Walk(path string, fn func(dir node.Node, subdirs, files []node.Node) error) error {
	n, err := cs.GetNode(path)
	if err != nil {
		return err
	}
	return node.Walk(n, fn)
}

// Next returns the changeset immediately after this one. If branch is
// non-empty, it must equal this changeset's own branch, and the result
// is the next changeset on that branch (skipping any on another).
func (cs *Changeset) Next(branch string) (*Changeset, error) {
	if branch != "" && cs.branch != branch {
		return nil, fmt.Errorf("%w: changeset %d is not on branch %q", ErrVCS, cs.revision, branch)
	}
	for idx := cs.revision + 1; idx < len(cs.repo.revisions); idx++ {
		c, err := cs.repo.GetChangeset(idx)
		if err != nil {
			return nil, err
		}
		if branch == "" || c.branch == branch {
			return c, nil
		}
	}
	return nil, &ChangesetDoesNotExistError{Rev: "next"}
}

// Prev returns the changeset immediately before this one, symmetric
// with Next.
func (cs *Changeset) Prev(branch string) (*Changeset, error) {
	if branch != "" && cs.branch != branch {
		return nil, fmt.Errorf("%w: changeset %d is not on branch %q", ErrVCS, cs.revision, branch)
	}
	for idx := cs.revision - 1; idx >= 0; idx-- {
		c, err := cs.repo.GetChangeset(idx)
		if err != nil {
			return nil, err
		}
		if branch == "" || c.branch == branch {
			return c, nil
		}
	}
	return nil, &ChangesetDoesNotExistError{Rev: "prev"}
}

// diffSets computes (and memoises) this changeset's added/changed/
// removed node sets against its first parent, per the first-parent
// diff rule of spec §4.B. Merge changesets (more than one parent) and
// changesets touching more than 100 paths fall back to the backend's
// own Status report rather than the cheap set-difference rule.
func (cs *Changeset) diffSets() (added, changed, removed []node.Node, err error) {
	if cs.diffDone {
		return cs.diffAdded, cs.diffChanged, cs.diffRemoved, nil
	}

	const largeDiffThreshold = 100
	useStatus := len(cs.parents) >= 2 || len(cs.touchedPaths) > largeDiffThreshold

	var addedPaths, changedPaths, removedPaths []string
	if useStatus {
		var parentRawID string
		if len(cs.parents) > 0 {
			parentRawID = cs.parents[0].rawID
		}
		st, serr := cs.repo.adapter.Status(cs.rawID, parentRawID)
		if serr != nil {
			return nil, nil, nil, &RepositoryError{Path: cs.repo.path, Err: serr}
		}
		addedPaths, changedPaths, removedPaths = st.Added, st.Changed, st.Removed
	} else {
		parentFiles := map[string]struct{}{}
		if len(cs.parents) > 0 {
			parentFiles = cs.parents[0].fileMembership()
		}
		addedPaths, changedPaths, removedPaths = diff.Classify(cs.touchedPaths, parentFiles, cs.fileMembership())
	}

	added, err = cs.resolveNodes(addedPaths)
	if err != nil {
		return nil, nil, nil, err
	}
	changed, err = cs.resolveNodes(changedPaths)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(cs.parents) > 0 {
		removed, err = cs.parents[0].resolveNodes(removedPaths)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	cs.diffAdded, cs.diffChanged, cs.diffRemoved = added, changed, removed
	cs.diffDone = true
	return added, changed, removed, nil
}

func (cs *Changeset) resolveNodes(paths []string) ([]node.Node, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]node.Node, 0, len(paths))
	for _, p := range paths {
		n, err := cs.GetNode(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Added returns the files introduced by this changeset relative to its
// first parent (or all files, for a changeset with no parent).
func (cs *Changeset) Added() ([]node.Node, error) {
	a, _, _, err := cs.diffSets()
	return a, err
}

// Changed returns the files modified by this changeset relative to its
// first parent.
func (cs *Changeset) Changed() ([]node.Node, error) {
	_, c, _, err := cs.diffSets()
	return c, err
}

// Removed returns the files deleted by this changeset relative to its
// first parent, resolved against the parent (since they are absent
// from this changeset's own tree).
func (cs *Changeset) Removed() ([]node.Node, error) {
	_, _, r, err := cs.diffSets()
	return r, err
}

// Stat aggregates this changeset's diff: counts of files added,
// changed and removed, plus summed line-level insertions/deletions
// across the changed files. A supplement beyond the distilled spec,
// grounded on go-git's object.Stats.
type Stat struct {
	FilesAdded   int
	FilesChanged int
	FilesRemoved int
	LinesAdded   int
	LinesRemoved int
}

// Stat computes this changeset's aggregate diff statistics.
func (cs *Changeset) Stat() (Stat, error) {
	added, changed, removed, err := cs.diffSets()
	if err != nil {
		return Stat{}, err
	}

	st := Stat{FilesAdded: len(added), FilesChanged: len(changed), FilesRemoved: len(removed)}
	if len(cs.parents) == 0 {
		return st, nil
	}
	parent := cs.parents[0]
	for _, n := range changed {
		f, ok := n.(*node.File)
		if !ok {
			continue
		}
		newContent, err := f.Content()
		if err != nil {
			return Stat{}, err
		}
		pf, err := parent.GetNode(n.Path())
		if err != nil {
			continue
		}
		pff, ok := pf.(*node.File)
		if !ok {
			continue
		}
		oldContent, err := pff.Content()
		if err != nil {
			return Stat{}, err
		}
		ins, del := diff.LineStats(oldContent, newContent)
		st.LinesAdded += ins
		st.LinesRemoved += del
	}
	return st, nil
}
