package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodee/vcs/diff"
)

func TestClassify(t *testing.T) {
	parent := diff.Set([]string{"a.txt", "b.txt"})
	self := diff.Set([]string{"a.txt", "c.txt"})
	touched := []string{"a.txt", "b.txt", "c.txt"}

	added, changed, removed := diff.Classify(touched, parent, self)
	assert.Equal(t, []string{"c.txt"}, added)
	assert.Equal(t, []string{"a.txt"}, changed)
	assert.Equal(t, []string{"b.txt"}, removed)
}

func TestClassifyNoParentTreatsEverythingAsAdded(t *testing.T) {
	self := diff.Set([]string{"a.txt", "b.txt"})
	added, changed, removed := diff.Classify([]string{"a.txt", "b.txt"}, map[string]struct{}{}, self)
	assert.Equal(t, []string{"a.txt", "b.txt"}, added)
	assert.Empty(t, changed)
	assert.Empty(t, removed)
}

func TestAnnotateSingleRevisionAttributesEveryLine(t *testing.T) {
	history := []diff.HistoryEntry{
		{RawID: "r1", Content: []byte("one\ntwo\n")},
	}
	lines, err := diff.Annotate(history)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "r1", lines[0].RawID)
	assert.Equal(t, "r1", lines[1].RawID)
	assert.Equal(t, "one", string(lines[0].Text))
}

func TestAnnotateCarriesForwardUnchangedLines(t *testing.T) {
	history := []diff.HistoryEntry{
		{RawID: "r1", Content: []byte("one\ntwo\nthree\n")},
		{RawID: "r2", Content: []byte("one\nTWO\nthree\n")},
	}
	lines, err := diff.Annotate(history)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "r1", lines[0].RawID, "unchanged line 1 stays attributed to r1")
	assert.Equal(t, "r2", lines[1].RawID, "changed line is attributed to r2")
	assert.Equal(t, "r1", lines[2].RawID, "unchanged line 3 stays attributed to r1")
}

func TestLineStats(t *testing.T) {
	added, removed := diff.LineStats([]byte("a\nb\nc\n"), []byte("a\nB\nc\nd\n"))
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)
}

func TestAnnotateEmptyHistory(t *testing.T) {
	lines, err := diff.Annotate(nil)
	require.NoError(t, err)
	assert.Nil(t, lines)
}
