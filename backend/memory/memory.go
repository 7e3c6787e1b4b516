// Package memory implements a reference backend.Adapter that holds its
// entire object store in process memory, content-addressing commits
// with sha1cd the way a real backend derives a raw_id from content.
//
// It is not a binding to Mercurial or Git — those are out of scope for
// this core per spec §1 — but a standalone backend used to exercise
// the core end-to-end in tests and the cmd/vcscat demo, grounded
// directly on the teacher's storage/memory package (in-memory object
// maps keyed by content hash).
package memory

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pjbgf/sha1cd"

	"github.com/velodee/vcs/backend"
	"github.com/velodee/vcs/diff"
)

func init() {
	backend.Register("mem", Open)
}

// commit is one stored snapshot: a full copy of the file set it
// represents plus the metadata the core needs back out of CommitInfo.
type commit struct {
	rawID   string
	parents []string
	author  string
	message string
	date    time.Time
	branch  string
	touched []string
	files   map[string]entry
}

type entry struct {
	content    []byte
	executable bool
}

// Handle is the opened in-memory repository.
type Handle struct {
	path          string
	commits       map[string]*commit
	order         []string
	branches      map[string]string
	tags          map[string]string
	defaultBranch string
}

// Open implements backend.Factory for alias "mem". path is purely
// nominal bookkeeping (there is no on-disk store); create/srcURL
// follow the same semantics spec §4.C documents for real backends:
// create on a path that already has a store (empty or not), or opening
// a path with no store and create=false, are both errors.
func Open(path string, create bool, srcURL string, opts map[string]string) (backend.Adapter, error) {
	existing, ok := stores[path]
	switch {
	case create && ok:
		return nil, fmt.Errorf("memory: repository already exists at %q", path)
	case create && !ok:
		h := &Handle{
			path:          path,
			commits:       map[string]*commit{},
			branches:      map[string]string{},
			tags:          map[string]string{},
			defaultBranch: "default",
		}
		if srcURL != "" {
			src, ok := stores[srcURL]
			if !ok {
				return nil, fmt.Errorf("memory: clone source %q not found", srcURL)
			}
			h.cloneFrom(src)
		}
		stores[path] = h
		return h, nil
	case !create && !ok:
		return nil, fmt.Errorf("memory: no repository at %q: %w", path, os.ErrNotExist)
	default:
		return existing, nil
	}
}

// stores is the process-wide registry of opened in-memory repository
// paths, so that repeated Open calls against the same path (for
// example two vcs.Open calls on one path) observe the same store rather
// than a fresh empty one.
var stores = map[string]*Handle{}

func (h *Handle) cloneFrom(src *Handle) {
	for id, c := range src.commits {
		h.commits[id] = c
	}
	h.order = append(h.order, src.order...)
	for k, v := range src.branches {
		h.branches[k] = v
	}
	for k, v := range src.tags {
		h.tags[k] = v
	}
	h.defaultBranch = src.defaultBranch
}

func (h *Handle) Alias() string { return "mem" }

func (h *Handle) Revisions() ([]string, error) {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out, nil
}

func (h *Handle) Refs() (branches, tags map[string]string, err error) {
	b := make(map[string]string, len(h.branches))
	for k, v := range h.branches {
		b[k] = v
	}
	t := make(map[string]string, len(h.tags))
	for k, v := range h.tags {
		t[k] = v
	}
	return b, t, nil
}

func (h *Handle) CommitInfo(rawID string) (backend.CommitInfo, error) {
	c, ok := h.commits[rawID]
	if !ok {
		return backend.CommitInfo{}, fmt.Errorf("memory: no such commit %q", rawID)
	}
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var tags []string
	for name, id := range h.tags {
		if id == rawID {
			tags = append(tags, name)
		}
	}
	sort.Strings(tags)

	return backend.CommitInfo{
		Parents:      append([]string(nil), c.parents...),
		Author:       c.author,
		Message:      c.message,
		Date:         c.date,
		Branch:       c.branch,
		Tags:         tags,
		TouchedPaths: append([]string(nil), c.touched...),
		FilePaths:    paths,
	}, nil
}

func (h *Handle) Status(rawID, parentRawID string) (backend.FileStatus, error) {
	c, ok := h.commits[rawID]
	if !ok {
		return backend.FileStatus{}, fmt.Errorf("memory: no such commit %q", rawID)
	}

	var parentFiles map[string]entry
	if parentRawID != "" {
		p, ok := h.commits[parentRawID]
		if !ok {
			return backend.FileStatus{}, fmt.Errorf("memory: no such commit %q", parentRawID)
		}
		parentFiles = p.files
	}

	var status backend.FileStatus
	for path := range c.files {
		if _, ok := parentFiles[path]; !ok {
			status.Added = append(status.Added, path)
		}
	}
	for path, old := range parentFiles {
		cur, ok := c.files[path]
		if !ok {
			status.Removed = append(status.Removed, path)
			continue
		}
		if string(old.content) != string(cur.content) || old.executable != cur.executable {
			status.Changed = append(status.Changed, path)
		}
	}
	sort.Strings(status.Added)
	sort.Strings(status.Changed)
	sort.Strings(status.Removed)
	return status, nil
}

func (h *Handle) FileContent(rawID, path string) ([]byte, error) {
	e, err := h.fileEntry(rawID, path)
	if err != nil {
		return nil, err
	}
	return e.content, nil
}

func (h *Handle) FileSize(rawID, path string) (int64, error) {
	e, err := h.fileEntry(rawID, path)
	if err != nil {
		return 0, err
	}
	return int64(len(e.content)), nil
}

func (h *Handle) FileExecutable(rawID, path string) (bool, error) {
	e, err := h.fileEntry(rawID, path)
	if err != nil {
		return false, err
	}
	return e.executable, nil
}

func (h *Handle) fileEntry(rawID, path string) (entry, error) {
	c, ok := h.commits[rawID]
	if !ok {
		return entry{}, fmt.Errorf("memory: no such commit %q", rawID)
	}
	e, ok := c.files[path]
	if !ok {
		return entry{}, fmt.Errorf("memory: no such file %q at %q", path, rawID)
	}
	return e, nil
}

// FileHistory walks the flat revision order backward from rawID,
// collecting every commit whose TouchedPaths contains path. This
// mirrors the spec's flat, append-only revisions list (§3 R1) rather
// than a parent-DAG walk, consistent with revision numbers being a
// simple index into that list.
func (h *Handle) FileHistory(rawID, path string) ([]string, error) {
	idx := -1
	for i, id := range h.order {
		if id == rawID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("memory: no such commit %q", rawID)
	}

	var out []string
	for i := idx; i >= 0; i-- {
		c := h.commits[h.order[i]]
		for _, t := range c.touched {
			if t == path {
				out = append(out, c.rawID)
				break
			}
		}
	}
	return out, nil
}

func (h *Handle) FileAnnotate(rawID, path string) ([]backend.AnnotateEntry, error) {
	ids, err := h.FileHistory(rawID, path)
	if err != nil {
		return nil, err
	}
	// FileHistory is newest-first; Annotate wants oldest-first.
	history := make([]diff.HistoryEntry, len(ids))
	for i, id := range ids {
		content, err := h.FileContent(id, path)
		if err != nil {
			return nil, err
		}
		history[len(ids)-1-i] = diff.HistoryEntry{RawID: id, Content: content}
	}

	lines, err := diff.Annotate(history)
	if err != nil {
		return nil, err
	}
	out := make([]backend.AnnotateEntry, len(lines))
	for i, l := range lines {
		out[i] = backend.AnnotateEntry{RawID: l.RawID, Line: l.Text}
	}
	return out, nil
}

func (h *Handle) CommitInMemory(parents []string, author string, date time.Time, branch, message string, ops []backend.Op) (string, error) {
	files := map[string]entry{}
	if len(parents) > 0 && parents[0] != "" {
		base, ok := h.commits[parents[0]]
		if !ok {
			return "", fmt.Errorf("memory: no such parent %q", parents[0])
		}
		for k, v := range base.files {
			files[k] = v
		}
	}

	touched := make([]string, 0, len(ops))
	for _, op := range ops {
		touched = append(touched, op.Path)
		switch op.Kind {
		case backend.OpAdd, backend.OpChange:
			files[op.Path] = entry{content: op.Content, executable: op.Executable}
		case backend.OpRemove:
			delete(files, op.Path)
		}
	}

	var cleanParents []string
	for _, p := range parents {
		if p != "" {
			cleanParents = append(cleanParents, p)
		}
	}
	if branch == "" {
		branch = h.defaultBranch
	}

	rawID := computeRawID(cleanParents, author, message, date, branch, files)
	h.commits[rawID] = &commit{
		rawID:   rawID,
		parents: cleanParents,
		author:  author,
		message: message,
		date:    date,
		branch:  branch,
		touched: touched,
		files:   files,
	}
	h.order = append(h.order, rawID)
	h.branches[branch] = rawID
	return rawID, nil
}

func (h *Handle) Tag(name, revRawID, user, message string, date time.Time, local bool) (string, error) {
	if _, ok := h.commits[revRawID]; !ok {
		return "", fmt.Errorf("memory: no such commit %q", revRawID)
	}
	h.tags[name] = revRawID
	return "", nil
}

func (h *Handle) Untag(name, user, message string, date time.Time) error {
	if _, ok := h.tags[name]; !ok {
		return fmt.Errorf("memory: no such tag %q", name)
	}
	delete(h.tags, name)
	return nil
}

func (h *Handle) SetBranch(name, revRawID string) error {
	if _, ok := h.commits[revRawID]; !ok {
		return fmt.Errorf("memory: no such commit %q", revRawID)
	}
	h.branches[name] = revRawID
	return nil
}

func (h *Handle) RemoveBranch(name string) error {
	if _, ok := h.branches[name]; !ok {
		return fmt.Errorf("memory: no such branch %q", name)
	}
	delete(h.branches, name)
	return nil
}

func (h *Handle) Refresh() error { return nil }

// computeRawID content-addresses a commit from its full logical
// content, the way a real backend derives an id from an object's
// bytes, using the collision-detecting SHA-1 implementation the
// teacher pulls in for its own object hashing.
func computeRawID(parents []string, author, message string, date time.Time, branch string, files map[string]entry) string {
	h := sha1cd.New()
	fmt.Fprintf(h, "parents %v\n", parents)
	fmt.Fprintf(h, "author %s\n", author)
	fmt.Fprintf(h, "branch %s\n", branch)
	fmt.Fprintf(h, "date %d\n", date.UnixNano())
	fmt.Fprintf(h, "message %s\n", message)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		e := files[p]
		fmt.Fprintf(h, "file %s %t %d\n", p, e.executable, len(e.content))
		h.Write(e.content)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
