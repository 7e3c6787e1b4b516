package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// HistoryEntry is one revision of a file's content, used as input to
// Annotate. History must be ordered oldest-first and its last entry
// must be the revision being annotated.
type HistoryEntry struct {
	RawID   string
	Content []byte
}

// Line is one line of Annotate's output: the raw bytes of the line and
// the raw_id of the revision that introduced it.
type Line struct {
	LineNo int
	RawID  string
	Text   []byte
}

// Annotate computes per-line blame across history using line-mode
// diffing (sergi/go-diff's DiffLinesToChars/DiffCharsToLines trick):
// each pair of consecutive revisions is diffed at line granularity,
// and a line's attribution carries forward from the oldest ancestor in
// which it is still present unchanged, changing only when a revision's
// diff reports it as inserted.
func Annotate(history []HistoryEntry) ([]Line, error) {
	if len(history) == 0 {
		return nil, nil
	}

	dmp := diffmatchpatch.New()
	prevLines := splitLines(history[0].Content)
	attr := make([]string, len(prevLines))
	for i := range attr {
		attr[i] = history[0].RawID
	}

	for i := 1; i < len(history); i++ {
		currLines := splitLines(history[i].Content)
		prevText := strings.Join(prevLines, "\n")
		currText := strings.Join(currLines, "\n")

		a, b, lineArray := dmp.DiffLinesToChars(prevText, currText)
		diffs := dmp.DiffMain(a, b, false)
		diffs = dmp.DiffCharsToLines(diffs, lineArray)

		newAttr := make([]string, 0, len(currLines))
		pIdx := 0
		for _, d := range diffs {
			n := countDiffLines(d.Text)
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				for j := 0; j < n; j++ {
					if pIdx < len(attr) {
						newAttr = append(newAttr, attr[pIdx])
					} else {
						newAttr = append(newAttr, history[i].RawID)
					}
					pIdx++
				}
			case diffmatchpatch.DiffDelete:
				pIdx += n
			case diffmatchpatch.DiffInsert:
				for j := 0; j < n; j++ {
					newAttr = append(newAttr, history[i].RawID)
				}
			}
		}

		attr = newAttr
		prevLines = currLines
	}

	out := make([]Line, len(prevLines))
	last := history[len(history)-1].RawID
	for i, l := range prevLines {
		rawID := last
		if i < len(attr) {
			rawID = attr[i]
		}
		out[i] = Line{LineNo: i + 1, RawID: rawID, Text: []byte(l)}
	}
	return out, nil
}

// LineStats reports the number of inserted and deleted lines between
// two revisions of a file's content, for Changeset.Stat.
func LineStats(oldContent, newContent []byte) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(string(oldContent), string(newContent))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		n := countDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

// splitLines splits content into lines the way go-git's File.Lines
// does: on "\n", dropping a trailing empty element left by a final
// newline.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.Split(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// countDiffLines counts the lines folded into one diffmatchpatch.Diff's
// Text after DiffCharsToLines, each of which is terminated by "\n"
// except possibly the very last line of the file.
func countDiffLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
