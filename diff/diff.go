// Package diff implements the first-parent diff classification rules
// used to compute a changeset's added/changed/removed file sets, the
// line-level annotate (blame) helper, and per-file line-change stats.
package diff

import "sort"

// Classify partitions touched (the backend-reported "touched paths" of
// a changeset) into added/changed/removed against the file sets of the
// first parent (parentFiles) and of the changeset itself (selfFiles),
// per the first-parent diff rule of spec §4.B:
//
//	added   = (touched ∩ selfFiles) \ parentFiles
//	removed = (touched ∩ parentFiles) \ selfFiles
//	changed = touched ∩ parentFiles ∩ selfFiles
//
// A touched path in neither file set lands in none of the three. Each
// returned slice is sorted and the three are pairwise disjoint.
func Classify(touched []string, parentFiles, selfFiles map[string]struct{}) (added, changed, removed []string) {
	for _, p := range touched {
		_, inParent := parentFiles[p]
		_, inSelf := selfFiles[p]
		switch {
		case !inParent && inSelf:
			added = append(added, p)
		case inParent && !inSelf:
			removed = append(removed, p)
		case inParent && inSelf:
			changed = append(changed, p)
		}
	}
	sort.Strings(added)
	sort.Strings(changed)
	sort.Strings(removed)
	return added, changed, removed
}

// Set builds a membership set from a path slice, for use with Classify.
func Set(paths []string) map[string]struct{} {
	s := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}
