package vcs

import "github.com/velodee/vcs/vcslog"

// Options configures Open. The zero value opens an existing repository
// with no logger and no backend-specific extras.
type Options struct {
	// Create, when true, initializes a new repository at the given
	// path instead of opening an existing one.
	Create bool
	// SrcURL, when set, clones from this source into the newly
	// created repository. Only valid together with Create.
	SrcURL string
	// BackendOptions is passed through verbatim to the backend Factory.
	BackendOptions map[string]string
	// Logger receives diagnostic output; defaults to vcslog.Nop.
	Logger vcslog.Logger
}

func (o *Options) validate() error {
	if o.Logger == nil {
		o.Logger = vcslog.Nop
	}
	if o.SrcURL != "" && !o.Create {
		return &RepositoryError{Err: errSrcURLRequiresCreate}
	}
	return nil
}
