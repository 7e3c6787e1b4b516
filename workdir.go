package vcs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// ErrWorkdirMutation is returned by Workdir.Update and Workdir.Commit:
// this core's Workdir is a read-only view over the filesystem (spec §1
// non-goal: "no working-directory filesystem mutation beyond reading
// untracked entries"), so checking out a revision or committing
// straight from the working tree is deliberately unsupported here —
// that belongs to a concrete backend binding, not this core.
var ErrWorkdirMutation = fmt.Errorf("workdir mutation is not supported by this core: %w", ErrVCS)

// WorkdirEntry is one file read directly off the filesystem by Workdir,
// as opposed to a node.Node bound to a committed Changeset. Untracked
// and modified-on-disk entries have no owning changeset to lazily
// fetch content from, so they get this simpler, eagerly-read shape
// instead of pretending to be a node.File.
type WorkdirEntry struct {
	Path       string
	Content    []byte
	Executable bool
}

// Workdir is a read-only view over the filesystem working tree,
// classifying entries relative to the repository's tip changeset (spec
// §4.E). It uses go-billy the way the teacher uses it for its own
// worktree checkout, but only ever reads.
type Workdir struct {
	repo    *Repository
	fs      billy.Filesystem
	metaDir string
}

func newWorkdir(r *Repository) *Workdir {
	return &Workdir{
		repo:    r,
		fs:      osfs.New(r.path),
		metaDir: "." + r.alias,
	}
}

// GetUntracked returns every filesystem entry under the working tree
// that is not a path known to the tip changeset, skipping the
// backend's own metadata directory (e.g. ".git").
func (w *Workdir) GetUntracked() ([]WorkdirEntry, error) {
	tip, err := w.repo.GetChangeset(nil)
	if err != nil {
		if errors.Is(err, ErrEmptyRepository) {
			tip = nil
		} else {
			return nil, err
		}
	}

	tracked := map[string]bool{}
	if tip != nil {
		for _, p := range tip.FilePaths() {
			tracked[p] = true
		}
	}

	var out []WorkdirEntry
	err = w.walk("", func(p string) error {
		if tracked[p] {
			return nil
		}
		entry, err := w.readEntry(p)
		if err != nil {
			return err
		}
		out = append(out, entry)
		return nil
	})
	return out, err
}

// GetChanged returns the tracked files whose on-disk content differs
// from the tip changeset's recorded content.
func (w *Workdir) GetChanged() ([]WorkdirEntry, error) {
	tip, err := w.repo.GetChangeset(nil)
	if err != nil {
		return nil, err
	}

	var out []WorkdirEntry
	for _, p := range tip.FilePaths() {
		diskContent, err := w.readFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue // reported by GetRemoved instead
			}
			return nil, err
		}
		tipContent, err := tip.GetFileContent(p)
		if err != nil {
			return nil, err
		}
		if string(diskContent) != string(tipContent) {
			out = append(out, WorkdirEntry{Path: p, Content: diskContent})
		}
	}
	return out, nil
}

// GetRemoved returns the tracked files present in the tip changeset but
// absent from the filesystem.
func (w *Workdir) GetRemoved() ([]string, error) {
	tip, err := w.repo.GetChangeset(nil)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, p := range tip.FilePaths() {
		if _, err := w.fs.Stat(p); err != nil {
			if os.IsNotExist(err) {
				out = append(out, p)
				continue
			}
			return nil, err
		}
	}
	return out, nil
}

// GetAdded always reports no entries: this core models staged adds
// only through InMemoryChangeset, not through a backend-native staging
// index, and no backend.Adapter operation exposes one to read back
// (spec §6 has no such op). A real binding with an index (git's, say)
// would override this at the backend layer.
func (w *Workdir) GetAdded() ([]WorkdirEntry, error) {
	return nil, nil
}

// Status is the aggregate result of GetAdded/GetChanged/GetRemoved/
// GetUntracked.
type Status struct {
	Added     []WorkdirEntry
	Changed   []WorkdirEntry
	Removed   []string
	Untracked []WorkdirEntry
}

// GetStatus computes the full working-tree status in one call.
func (w *Workdir) GetStatus() (Status, error) {
	added, err := w.GetAdded()
	if err != nil {
		return Status{}, err
	}
	changed, err := w.GetChanged()
	if err != nil {
		return Status{}, err
	}
	removed, err := w.GetRemoved()
	if err != nil {
		return Status{}, err
	}
	untracked, err := w.GetUntracked()
	if err != nil {
		return Status{}, err
	}
	return Status{Added: added, Changed: changed, Removed: removed, Untracked: untracked}, nil
}

// Update would check out rev into the working tree. Unsupported here;
// see ErrWorkdirMutation.
func (w *Workdir) Update(rev interface{}) error {
	return ErrWorkdirMutation
}

// Commit would build and commit a changeset straight from the working
// tree's current state. Unsupported here; see ErrWorkdirMutation.
func (w *Workdir) Commit(message, author string) (*Changeset, error) {
	return nil, ErrWorkdirMutation
}

func (w *Workdir) readEntry(p string) (WorkdirEntry, error) {
	content, err := w.readFile(p)
	if err != nil {
		return WorkdirEntry{}, err
	}
	info, err := w.fs.Stat(p)
	if err != nil {
		return WorkdirEntry{}, err
	}
	return WorkdirEntry{Path: p, Content: content, Executable: info.Mode()&0o111 != 0}, nil
}

func (w *Workdir) readFile(p string) ([]byte, error) {
	f, err := w.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// walk visits every regular file under dir (recursively), skipping the
// backend's metadata directory, calling fn with each file's
// slash-separated path relative to the working tree root.
func (w *Workdir) walk(dir string, fn func(path string) error) error {
	fsDir := dir
	if fsDir == "" {
		fsDir = "."
	}
	entries, err := w.fs.ReadDir(fsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if dir == "" && e.Name() == w.metaDir {
			continue
		}
		full := e.Name()
		if dir != "" {
			full = path.Join(dir, e.Name())
		}
		if e.IsDir() {
			if err := w.walk(full, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(full); err != nil {
			return err
		}
	}
	return nil
}
