package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodee/vcs/config"
)

func TestLoadMissingFileYieldsZeroValueNotError(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope", ".vcsconfig"))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DefaultAuthor)
	assert.Equal(t, "default", cfg.DefaultBranch("hg"))
	assert.Equal(t, "master", cfg.DefaultBranch("git"))
	assert.Equal(t, "default", cfg.DefaultBranch("mem"))
}

func TestLoadParsesAuthorAndBranchOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".vcsconfig")
	contents := "[defaults]\nauthor = Jane Doe <jane@example.com>\n\n[branch \"mem\"]\nname = trunk\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe <jane@example.com>", cfg.DefaultAuthor)
	assert.Equal(t, "trunk", cfg.DefaultBranch("mem"))
	assert.Equal(t, "default", cfg.DefaultBranch("hg"))
}
