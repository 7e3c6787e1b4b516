// Package vcs is a backend-agnostic version-control abstraction: a
// Repository exposes an indexable, iterable history of immutable
// Changeset snapshots, each with a lazily realized node tree, while the
// concrete Mercurial/Git/whatever mechanics live behind the narrow
// backend.Adapter interface (package backend). Grounded directly on the
// teacher's Repository/Storer split: the root package holds the
// porcelain, an adapter package holds the plumbing.
package vcs

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/velodee/vcs/backend"
	"github.com/velodee/vcs/cache"
	"github.com/velodee/vcs/config"
	"github.com/velodee/vcs/node"
	"github.com/velodee/vcs/vcslog"
)

// tipKey and nullKey are the cache's two sentinel keys: the integer
// revision a repository's "tip" happens to sit at shifts with every
// commit, so "tip"/"HEAD"/-1/nil all resolve to the same dynamic
// position and must be cached (and invalidated) together, distinctly
// from the stable keys (integer revision, raw_id, short_id) of the
// changeset that currently occupies that position.
type tipKeyT struct{}
type nullKeyT struct{}

var tipKey interface{} = tipKeyT{}
var nullKey interface{} = nullKeyT{}

// Repository is a backend-agnostic handle on one version-controlled
// history. It is not safe for concurrent use (spec §5): every method
// must be called from a single goroutine.
type Repository struct {
	path    string
	alias   string
	adapter backend.Adapter

	revisions []string
	branches  map[string]string
	tags      map[string]string

	cache *cache.Changesets
	cfg   *config.Config
	log   vcslog.Logger
}

// Open opens (or, with opts.Create, creates) the repository at path
// using the backend registered under alias.
func Open(alias, path string, opts Options) (*Repository, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	adapter, err := backend.Open(alias, path, opts.Create, opts.SrcURL, opts.BackendOptions)
	if err != nil {
		return nil, &RepositoryError{Path: path, Err: err}
	}

	revisions, err := adapter.Revisions()
	if err != nil {
		return nil, &RepositoryError{Path: path, Err: err}
	}
	branches, tags, err := adapter.Refs()
	if err != nil {
		return nil, &RepositoryError{Path: path, Err: err}
	}

	cfg, err := config.Load(filepath.Join(path, ".vcsconfig"))
	if err != nil {
		return nil, &RepositoryError{Path: path, Err: err}
	}

	r := &Repository{
		path:      path,
		alias:     alias,
		adapter:   adapter,
		revisions: revisions,
		branches:  branches,
		tags:      tags,
		cache:     cache.New(0),
		cfg:       cfg,
		log:       opts.Logger,
	}
	r.log.Debugf("opened %s repository at %q (%d revisions)", alias, path, len(revisions))
	return r, nil
}

// Path returns the filesystem path this repository was opened at.
func (r *Repository) Path() string { return r.path }

// Alias reports the backend this repository was opened through.
func (r *Repository) Alias() string { return r.alias }

// Name is the last path component of the repository's path, matching
// the teacher's convention for a repository's display name.
func (r *Repository) Name() string { return filepath.Base(r.path) }

// Count returns the number of changesets currently known.
func (r *Repository) Count() int { return len(r.revisions) }

// Equal reports whether r and other denote the same on-disk repository.
func (r *Repository) Equal(other *Repository) bool {
	if r == nil || other == nil {
		return r == other
	}
	rp, err1 := filepath.Abs(r.path)
	op, err2 := filepath.Abs(other.path)
	if err1 != nil || err2 != nil {
		return r.path == other.path
	}
	return rp == op
}

func (r *Repository) refreshRefs() error {
	branches, tags, err := r.adapter.Refs()
	if err != nil {
		return &RepositoryError{Path: r.path, Err: err}
	}
	r.branches = branches
	r.tags = tags
	return nil
}

// lastIndex returns the index of the most recent changeset, failing
// with ErrEmptyRepository if none exist yet.
func (r *Repository) lastIndex() (int, error) {
	if len(r.revisions) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyRepository, r.path)
	}
	return len(r.revisions) - 1, nil
}

func (r *Repository) indexOfRawID(rawID string) (int, bool) {
	for i, id := range r.revisions {
		if id == rawID {
			return i, true
		}
	}
	return 0, false
}

func (r *Repository) indexOfRefOrErr(rawID string, name interface{}) (int, error) {
	if idx, ok := r.indexOfRawID(rawID); ok {
		return idx, nil
	}
	return 0, &ChangesetDoesNotExistError{Rev: name}
}

// normalizeKey canonicalizes the handful of revision specifiers that
// all mean "the most recent changeset" to a single cache key, so a
// direct cache probe (before paying for resolve) sees them as one alias.
func normalizeKey(rev interface{}) interface{} {
	switch v := rev.(type) {
	case nil:
		return nullKey
	case int:
		if v == -1 {
			return tipKey
		}
		return v
	case string:
		if v == "tip" || v == "HEAD" {
			return tipKey
		}
		return v
	default:
		return rev
	}
}

// resolve maps a revision specifier to a concrete index into
// r.revisions, per spec §4.C: nil/-1/"tip"/"HEAD" mean the most recent
// changeset; an in-range int is used directly; a string of fewer than
// 12 decimal digits is parsed as an int and retried; a 12- or 40-
// character hex string is matched against raw_ids (ambiguous or absent
// prefixes fail); anything else is looked up as a branch or tag name.
func (r *Repository) resolve(rev interface{}) (int, error) {
	switch v := rev.(type) {
	case nil:
		return r.lastIndex()
	case int:
		if v == -1 {
			return r.lastIndex()
		}
		if v < 0 || v >= len(r.revisions) {
			return 0, &ChangesetDoesNotExistError{Rev: rev}
		}
		return v, nil
	case string:
		return r.resolveString(v)
	default:
		return 0, &ChangesetDoesNotExistError{Rev: rev}
	}
}

func (r *Repository) resolveString(s string) (int, error) {
	if s == "tip" || s == "HEAD" {
		return r.lastIndex()
	}
	if isAllDigits(s) && len(s) < 12 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, &ChangesetDoesNotExistError{Rev: s}
		}
		return r.resolve(n)
	}
	if isHex(s) && (len(s) == 12 || len(s) == 40) {
		return r.resolveHexPrefix(s)
	}
	if rawID, ok := r.branches[s]; ok {
		return r.indexOfRefOrErr(rawID, s)
	}
	if rawID, ok := r.tags[s]; ok {
		return r.indexOfRefOrErr(rawID, s)
	}
	return 0, &ChangesetDoesNotExistError{Rev: s}
}

func (r *Repository) resolveHexPrefix(prefix string) (int, error) {
	matches := 0
	found := -1
	for i, id := range r.revisions {
		if strings.HasPrefix(id, prefix) {
			matches++
			found = i
			if matches > 1 {
				break
			}
		}
	}
	if matches != 1 {
		return 0, &ChangesetDoesNotExistError{Rev: prefix}
	}
	return found, nil
}

// GetChangeset resolves rev and returns the (possibly cached) Changeset
// it denotes. rev may be nil, -1, "tip", "HEAD" (most recent), an int
// index, a decimal-digit string under 12 characters (parsed as an
// int), a 12- or 40-character hex raw_id (or unambiguous prefix), or a
// branch/tag name.
func (r *Repository) GetChangeset(rev interface{}) (*Changeset, error) {
	key := normalizeKey(rev)
	if v, ok := r.cache.Get(key); ok {
		return v.(*Changeset), nil
	}

	idx, err := r.resolve(rev)
	if err != nil {
		return nil, err
	}
	if v, ok := r.cache.Get(idx); ok {
		return v.(*Changeset), nil
	}

	cs, err := r.buildChangeset(idx)
	if err != nil {
		return nil, err
	}

	aliases := []interface{}{idx, cs.rawID, cs.shortID}
	if idx == len(r.revisions)-1 {
		aliases = append(aliases, tipKey, nullKey)
	}
	r.cache.Put(cs, aliases...)
	return cs, nil
}

func (r *Repository) buildChangeset(idx int) (*Changeset, error) {
	rawID := r.revisions[idx]
	info, err := r.adapter.CommitInfo(rawID)
	if err != nil {
		return nil, &RepositoryError{Path: r.path, Err: err}
	}

	cs := &Changeset{
		repo:         r,
		revision:     idx,
		rawID:        rawID,
		shortID:      shortID(rawID),
		author:       info.Author,
		message:      info.Message,
		date:         info.Date,
		branch:       info.Branch,
		tags:         info.Tags,
		filePaths:    info.FilePaths,
		dirPaths:     deriveDirPaths(info.FilePaths),
		touchedPaths: info.TouchedPaths,
		nodeCache:    map[string]node.Node{},
	}

	for _, prawID := range info.Parents {
		pidx, ok := r.indexOfRawID(prawID)
		if !ok {
			return nil, &RepositoryError{Path: r.path, Err: fmt.Errorf("parent %q not found in revision list", prawID)}
		}
		pcs, err := r.GetChangeset(pidx)
		if err != nil {
			return nil, err
		}
		cs.parents = append(cs.parents, pcs)
	}

	return cs, nil
}

func shortID(rawID string) string {
	if len(rawID) <= 12 {
		return rawID
	}
	return rawID[:12]
}

// deriveDirPaths computes every proper directory prefix of every file
// path, plus "" for the root, with duplicates removed. Order carries no
// meaning (spec §4.B).
func deriveDirPaths(files []string) []string {
	set := map[string]bool{"": true}
	for _, f := range files {
		parts := strings.Split(f, "/")
		for i := 1; i < len(parts); i++ {
			set[strings.Join(parts[:i], "/")] = true
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// ErrStop, returned from a ChangesetIter.ForEach callback, stops
// iteration early without propagating as an error, mirroring the
// teacher's storer.ErrStop for its own commit iterators.
var ErrStop = errors.New("vcs: stop iteration")

// ChangesetIter yields changesets newest-first, starting offset entries
// back from the tip and stopping after at most limit items (limit <= 0
// means unlimited). Grounded on the teacher's commitPreorderIter.
type ChangesetIter struct {
	repo      *Repository
	idx       int
	remaining int
}

// DefaultLimit and DefaultOffset are the conventional values for a
// GetChangesets call with no particular bound in mind.
const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// GetChangesets returns an iterator over history, newest-first,
// starting offset changesets back from the tip, yielding at most limit
// of them (limit <= 0 for no limit). An offset at or beyond the start
// of history yields an iterator that is immediately exhausted, not an
// error.
func (r *Repository) GetChangesets(limit, offset int) *ChangesetIter {
	start := len(r.revisions) - offset - 1
	if limit <= 0 {
		limit = -1
	}
	return &ChangesetIter{repo: r, idx: start, remaining: limit}
}

// Next returns the next changeset, or io.EOF once exhausted.
func (it *ChangesetIter) Next() (*Changeset, error) {
	if it.remaining == 0 || it.idx < 0 {
		return nil, io.EOF
	}
	cs, err := it.repo.GetChangeset(it.idx)
	if err != nil {
		return nil, err
	}
	it.idx--
	if it.remaining > 0 {
		it.remaining--
	}
	return cs, nil
}

// ForEach calls fn once per remaining changeset, stopping early without
// error if fn returns ErrStop.
func (it *ChangesetIter) ForEach(fn func(*Changeset) error) error {
	for {
		cs, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(cs); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// Tag creates a named tag at rev. name must not already exist.
func (r *Repository) Tag(name, user string, rev interface{}, message string, date time.Time, local bool) (*Changeset, error) {
	if _, exists := r.tags[name]; exists {
		return nil, &TagError{Name: name, Kind: ErrTagAlreadyExist}
	}
	idx, err := r.resolve(rev)
	if err != nil {
		return nil, err
	}
	rawID := r.revisions[idx]
	if _, err := r.adapter.Tag(name, rawID, user, message, date, local); err != nil {
		return nil, &RepositoryError{Path: r.path, Err: err}
	}
	if err := r.refreshRefs(); err != nil {
		return nil, err
	}
	if err := r.refreshTags(idx); err != nil {
		return nil, err
	}
	return r.GetChangeset(idx)
}

// RemoveTag removes an existing tag.
func (r *Repository) RemoveTag(name, user, message string, date time.Time) error {
	rawID, exists := r.tags[name]
	if !exists {
		return &TagError{Name: name, Kind: ErrTagDoesNotExist}
	}
	if err := r.adapter.Untag(name, user, message, date); err != nil {
		return &RepositoryError{Path: r.path, Err: err}
	}
	if err := r.refreshRefs(); err != nil {
		return err
	}
	if idx, ok := r.indexOfRawID(rawID); ok {
		return r.refreshTags(idx)
	}
	return nil
}

// refreshTags re-reads, from the adapter, the tag list of the changeset
// at idx if that changeset is already cached, so a tag added or removed
// after it was first materialized shows up in its Tags(). The cached
// *Changeset is updated in place, so every alias keeps returning the
// same object (R3).
func (r *Repository) refreshTags(idx int) error {
	cached, ok := r.cache.Get(idx)
	if !ok {
		return nil
	}
	cs := cached.(*Changeset)
	info, err := r.adapter.CommitInfo(cs.rawID)
	if err != nil {
		return &RepositoryError{Path: r.path, Err: err}
	}
	cs.tags = info.Tags
	return nil
}

// Branch creates a named branch at rev, symmetric with Tag. name must
// not already exist.
func (r *Repository) Branch(name string, rev interface{}) (*Changeset, error) {
	if _, exists := r.branches[name]; exists {
		return nil, &BranchError{Name: name, Kind: ErrBranchAlreadyExist}
	}
	idx, err := r.resolve(rev)
	if err != nil {
		return nil, err
	}
	rawID := r.revisions[idx]
	if err := r.adapter.SetBranch(name, rawID); err != nil {
		return nil, &RepositoryError{Path: r.path, Err: err}
	}
	if err := r.refreshRefs(); err != nil {
		return nil, err
	}
	return r.GetChangeset(idx)
}

// RemoveBranch removes an existing branch pointer.
func (r *Repository) RemoveBranch(name string) error {
	if _, exists := r.branches[name]; !exists {
		return &BranchError{Name: name, Kind: ErrBranchDoesNotExist}
	}
	if err := r.adapter.RemoveBranch(name); err != nil {
		return &RepositoryError{Path: r.path, Err: err}
	}
	return r.refreshRefs()
}

// Branches returns the current branch name -> raw_id map.
func (r *Repository) Branches() map[string]string {
	out := make(map[string]string, len(r.branches))
	for k, v := range r.branches {
		out[k] = v
	}
	return out
}

// Tags returns the current tag name -> raw_id map.
func (r *Repository) Tags() map[string]string {
	out := make(map[string]string, len(r.tags))
	for k, v := range r.tags {
		out[k] = v
	}
	return out
}

// NewInMemoryChangeset creates an empty staging area for a new commit.
func (r *Repository) NewInMemoryChangeset() *InMemoryChangeset {
	return &InMemoryChangeset{
		repo:    r,
		added:   map[string]*StagedNode{},
		changed: map[string]*StagedNode{},
		removed: map[string]*StagedNode{},
	}
}

// Workdir returns a read-only view over the filesystem working tree at
// this repository's path.
func (r *Repository) Workdir() *Workdir {
	return newWorkdir(r)
}
