package vcs

import (
	"errors"
	"time"

	"github.com/velodee/vcs/backend"
	"github.com/velodee/vcs/node"
)

// StagedNode is a file staged into an InMemoryChangeset via Add, Change
// or Remove. Remove only consults Path; Content/Executable are ignored
// for a removal.
type StagedNode struct {
	Path       string
	Content    []byte
	Executable bool
}

// State reports whether an InMemoryChangeset currently holds any staged
// changes.
type State int

const (
	// StateEmpty is the initial state, and the state Commit resets to
	// on success.
	StateEmpty State = iota
	// StateStaged means at least one path is staged for add, change or
	// removal.
	StateStaged
)

// InMemoryChangeset is a mutable staging area for building one new
// commit: paths are staged via Add/Change/Remove, validated via
// CheckIntegrity, and persisted via Commit. Grounded directly on
// original_source/vcs/backends/base.py's BaseInMemoryChangeset.
type InMemoryChangeset struct {
	repo *Repository

	added        map[string]*StagedNode
	addedOrder   []string
	changed      map[string]*StagedNode
	changedOrder []string
	removed      map[string]*StagedNode
	removedOrder []string

	parents []*Changeset
}

// State reports whether anything is currently staged.
func (im *InMemoryChangeset) State() State {
	if len(im.added)+len(im.changed)+len(im.removed) == 0 {
		return StateEmpty
	}
	return StateStaged
}

// Add stages new files. Fails with IntegrityError{Kind: ErrNodeAlready
// Added} if any path is already staged for add.
func (im *InMemoryChangeset) Add(nodes ...*StagedNode) error {
	for _, n := range nodes {
		if _, ok := im.added[n.Path]; ok {
			return &IntegrityError{Path: n.Path, Kind: ErrNodeAlreadyAdded}
		}
	}
	for _, n := range nodes {
		im.added[n.Path] = n
		im.addedOrder = append(im.addedOrder, n.Path)
	}
	return nil
}

// Change stages modifications to existing files. Fails with
// IntegrityError if any path is already staged removed or changed.
func (im *InMemoryChangeset) Change(nodes ...*StagedNode) error {
	for _, n := range nodes {
		if _, ok := im.removed[n.Path]; ok {
			return &IntegrityError{Path: n.Path, Kind: ErrNodeAlreadyRemoved}
		}
		if _, ok := im.changed[n.Path]; ok {
			return &IntegrityError{Path: n.Path, Kind: ErrNodeAlreadyChanged}
		}
	}
	for _, n := range nodes {
		im.changed[n.Path] = n
		im.changedOrder = append(im.changedOrder, n.Path)
	}
	return nil
}

// Remove stages file deletions. Fails with IntegrityError if any path
// is already staged removed or changed.
func (im *InMemoryChangeset) Remove(nodes ...*StagedNode) error {
	for _, n := range nodes {
		if _, ok := im.removed[n.Path]; ok {
			return &IntegrityError{Path: n.Path, Kind: ErrNodeAlreadyRemoved}
		}
		if _, ok := im.changed[n.Path]; ok {
			return &IntegrityError{Path: n.Path, Kind: ErrNodeAlreadyChanged}
		}
	}
	for _, n := range nodes {
		im.removed[n.Path] = n
		im.removedOrder = append(im.removedOrder, n.Path)
	}
	return nil
}

// Reset discards every staged change, returning to StateEmpty.
func (im *InMemoryChangeset) Reset() {
	im.added = map[string]*StagedNode{}
	im.addedOrder = nil
	im.changed = map[string]*StagedNode{}
	im.changedOrder = nil
	im.removed = map[string]*StagedNode{}
	im.removedOrder = nil
	im.parents = nil
}

// CheckIntegrity validates the currently staged changes against
// parents (defaulting, on first call, to [tip, nil] for a non-empty
// repository or [nil, nil] for an empty one, and remembering whichever
// parents it settles on for the Commit that follows). Validation order
// is deterministic: every added path is checked first, then every
// changed path, then every removed path.
func (im *InMemoryChangeset) CheckIntegrity(parents []*Changeset) error {
	if im.parents == nil {
		resolved, err := im.defaultParents(parents)
		if err != nil {
			return err
		}
		im.parents = resolved
	}

	var actual []*Changeset
	for _, p := range im.parents {
		if p != nil {
			actual = append(actual, p)
		}
	}

	for _, path := range im.addedOrder {
		for _, p := range actual {
			if _, err := p.GetNode(path); err == nil {
				return &IntegrityError{Path: path, Kind: ErrNodeAlreadyExists}
			}
		}
	}

	for _, path := range im.changedOrder {
		if len(actual) == 0 {
			return &IntegrityError{Path: path, Kind: ErrNodeDoesNotExist}
		}
		found, changedSomewhere := false, false
		for _, p := range actual {
			n, err := p.GetNode(path)
			if err != nil {
				continue
			}
			f, ok := n.(*node.File)
			if !ok {
				continue
			}
			found = true
			oldContent, err := f.Content()
			if err != nil {
				return err
			}
			if string(oldContent) != string(im.changed[path].Content) {
				changedSomewhere = true
			}
		}
		if !found {
			return &IntegrityError{Path: path, Kind: ErrNodeDoesNotExist}
		}
		if !changedSomewhere {
			return &IntegrityError{Path: path, Kind: ErrNodeNotChanged}
		}
	}

	for _, path := range im.removedOrder {
		if len(actual) == 0 {
			return &IntegrityError{Path: path, Kind: ErrNodeDoesNotExist}
		}
		removedOK := false
		for _, p := range actual {
			if _, err := p.GetNode(path); err == nil {
				removedOK = true
			}
		}
		if !removedOK {
			return &IntegrityError{Path: path, Kind: ErrNodeDoesNotExist}
		}
	}

	return nil
}

func (im *InMemoryChangeset) defaultParents(parents []*Changeset) ([]*Changeset, error) {
	if len(parents) >= 2 {
		return parents[:2], nil
	}
	if len(parents) == 1 {
		return []*Changeset{parents[0], nil}, nil
	}

	tip, err := im.repo.GetChangeset(nil)
	if err != nil {
		if errors.Is(err, ErrEmptyRepository) {
			return []*Changeset{nil, nil}, nil
		}
		return nil, err
	}
	return []*Changeset{tip, nil}, nil
}

// Commit validates the currently staged changes (via CheckIntegrity),
// persists them through the backend, and resets to StateEmpty. On
// failure — whether an integrity violation or a backend error — the
// staged changes are left untouched so the caller can inspect or retry.
// Fails with ErrNothingChanged if nothing is staged.
func (im *InMemoryChangeset) Commit(message, author string, parents []*Changeset, branch string, date time.Time) (*Changeset, error) {
	if im.State() == StateEmpty {
		return nil, ErrNothingChanged
	}
	if err := im.CheckIntegrity(parents); err != nil {
		return nil, err
	}

	var parentRawIDs []string
	for _, p := range im.parents {
		if p != nil {
			parentRawIDs = append(parentRawIDs, p.rawID)
		}
	}

	if branch == "" {
		if len(im.parents) > 0 && im.parents[0] != nil {
			branch = im.parents[0].branch
		} else {
			branch = im.repo.cfg.DefaultBranch(im.repo.alias)
		}
	}

	var ops []backend.Op
	for _, path := range im.addedOrder {
		n := im.added[path]
		ops = append(ops, backend.Op{Kind: backend.OpAdd, Path: path, Content: n.Content, Executable: n.Executable})
	}
	for _, path := range im.changedOrder {
		n := im.changed[path]
		ops = append(ops, backend.Op{Kind: backend.OpChange, Path: path, Content: n.Content, Executable: n.Executable})
	}
	for _, path := range im.removedOrder {
		ops = append(ops, backend.Op{Kind: backend.OpRemove, Path: path})
	}

	_, err := im.repo.adapter.CommitInMemory(parentRawIDs, author, date, branch, message, ops)
	if err != nil {
		return nil, &CommitBackendError{Err: err}
	}

	if err := im.repo.adapter.Refresh(); err != nil {
		return nil, &RepositoryError{Path: im.repo.path, Err: err}
	}
	revisions, err := im.repo.adapter.Revisions()
	if err != nil {
		return nil, &RepositoryError{Path: im.repo.path, Err: err}
	}
	im.repo.revisions = revisions
	if err := im.repo.refreshRefs(); err != nil {
		return nil, err
	}
	im.repo.cache.Forget(tipKey, nullKey)

	cs, err := im.repo.GetChangeset(len(revisions) - 1)
	if err != nil {
		return nil, err
	}

	im.Reset()
	return cs, nil
}
