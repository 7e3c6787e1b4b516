// Package config parses the repository-local ".vcsconfig" file: the
// default author used for synthesized commits and each backend's
// default branch name, mirroring the teacher's own config package
// (which parses ".git/config" the same way) but scoped down to what
// this core needs, per spec §2's ambient-configuration expansion.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/go-git/gcfg"
)

// fallbackBranch is consulted when the config file doesn't name a
// default branch for an alias, matching each backend's own convention
// (hg: "default", git: "master").
var fallbackBranch = map[string]string{
	"hg":  "default",
	"git": "master",
}

// branchSection holds one "[branch \"alias\"]" section's fields.
type branchSection struct {
	Name string
}

// raw is the gcfg-decoded shape of a .vcsconfig file:
//
//	[defaults]
//	author = Jane Doe <jane@example.com>
//
//	[branch "hg"]
//	name = default
type raw struct {
	Defaults struct {
		Author string
	}
	Branch map[string]*branchSection
}

// Config is the resolved, query-friendly view of a .vcsconfig file.
type Config struct {
	DefaultAuthor string
	defaultBranch map[string]string
}

// Load parses the .vcsconfig file at path. A missing or empty file
// yields a zero-value Config (empty author, only the built-in branch
// fallbacks), not an error — local configuration is always optional.
func Load(path string) (*Config, error) {
	var r raw
	if err := gcfg.ReadFileInto(&r, path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{defaultBranch: map[string]string{}}, nil
		}
		return nil, err
	}

	c := &Config{
		DefaultAuthor: r.Defaults.Author,
		defaultBranch: make(map[string]string, len(r.Branch)),
	}
	for alias, section := range r.Branch {
		if section != nil && section.Name != "" {
			c.defaultBranch[strings.ToLower(alias)] = section.Name
		}
	}
	return c, nil
}

// DefaultBranch returns the configured default branch name for alias,
// falling back to the backend's own built-in convention, and finally
// to "default" for an alias this package has no convention for.
func (c *Config) DefaultBranch(alias string) string {
	if c != nil {
		if name, ok := c.defaultBranch[strings.ToLower(alias)]; ok {
			return name
		}
	}
	if name, ok := fallbackBranch[strings.ToLower(alias)]; ok {
		return name
	}
	return "default"
}
