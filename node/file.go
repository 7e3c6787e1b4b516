package node

// File is a leaf tree entry: a tracked regular file at a path within
// one changeset. All derived fields are realized lazily, once, on
// first access and memoised for the lifetime of the node.
type File struct {
	path string
	cs   Changeset

	content     []byte
	contentSet  bool
	size        int64
	sizeSet     bool
	executable  bool
	execSet     bool
	history     []Changeset
	historySet  bool
	annotate    []AnnotateLine
	annotateSet bool
}

// NewFile constructs a File node bound to cs at path. path must already
// be canonical; callers normally obtain Files via Changeset.GetNode.
func NewFile(cs Changeset, path string) *File {
	return &File{path: path, cs: cs}
}

func (f *File) Path() string         { return f.path }
func (f *File) Kind() Kind           { return FileKind }
func (f *File) Changeset() Changeset { return f.cs }
func (f *File) Name() string         { return basename(f.path) }

// GetNode resolves subpath relative to this file. Files have no
// children, so any non-empty subpath fails.
func (f *File) GetNode(subpath string) (Node, error) {
	if subpath == "" {
		return f, nil
	}
	return nil, &PathError{Path: subpath, Reason: "cannot descend into a file"}
}

// Content returns the file's raw bytes at this changeset, fetching and
// memoising them from the backend on first call.
func (f *File) Content() ([]byte, error) {
	if !f.contentSet {
		b, err := f.cs.FileContent(f.path)
		if err != nil {
			return nil, err
		}
		f.content = b
		f.contentSet = true
	}
	return f.content, nil
}

// Size returns the byte length of the file's content.
func (f *File) Size() (int64, error) {
	if !f.sizeSet {
		s, err := f.cs.FileSize(f.path)
		if err != nil {
			return 0, err
		}
		f.size = s
		f.sizeSet = true
	}
	return f.size, nil
}

// IsExecutable reports whether this file carries the executable bit.
func (f *File) IsExecutable() (bool, error) {
	if !f.execSet {
		x, err := f.cs.FileExecutable(f.path)
		if err != nil {
			return false, err
		}
		f.executable = x
		f.execSet = true
	}
	return f.executable, nil
}

// History returns the changesets that modified this file, newest-first.
func (f *File) History() ([]Changeset, error) {
	if !f.historySet {
		h, err := f.cs.FileHistory(f.path)
		if err != nil {
			return nil, err
		}
		f.history = h
		f.historySet = true
	}
	return f.history, nil
}

// Annotate returns per-line blame: for each line, the changeset that
// last touched it and the line's raw bytes.
func (f *File) Annotate() ([]AnnotateLine, error) {
	if !f.annotateSet {
		a, err := f.cs.FileAnnotate(f.path)
		if err != nil {
			return nil, err
		}
		f.annotate = a
		f.annotateSet = true
	}
	return f.annotate, nil
}

// Equal reports whether two nodes denote the same path, kind and
// owning changeset.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() || a.Path() != b.Path() {
		return false
	}
	return a.Changeset().RawID() == b.Changeset().RawID()
}
