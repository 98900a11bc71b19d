package grades

import (
	"sort"

	"github.com/antzucaro/matchr"
)

// RenameThreshold is the Jaro-Winkler similarity above which a dropped and
// an added subject are considered to be the same course.
const RenameThreshold = 0.85

// Rename is a guess that the portal renamed a subject between two scrapes.
type Rename struct {
	From       string
	To         string
	Similarity float64
}

// SuggestRenames pairs subjects that disappeared with subjects that
// appeared. Detect still sees these as a drop plus an add, the suggestions
// are only meant for logs.
func SuggestRenames(previous, current Snapshot) []Rename {
	currentIndex := current.Index()
	previousIndex := previous.Index()

	var dropped, added []string
	for _, r := range previous {
		if _, ok := currentIndex[r.Subject]; !ok {
			dropped = append(dropped, r.Subject)
		}
	}
	for _, r := range current {
		if _, ok := previousIndex[r.Subject]; !ok {
			added = append(added, r.Subject)
		}
	}

	var candidates []Rename
	for _, from := range dropped {
		for _, to := range added {
			similarity := matchr.JaroWinkler(from, to, false)
			if similarity >= RenameThreshold {
				candidates = append(candidates, Rename{From: from, To: to, Similarity: similarity})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	// greedy one-to-one matching, best pairs first
	usedFrom := make(map[string]struct{})
	usedTo := make(map[string]struct{})
	var out []Rename
	for _, c := range candidates {
		if _, ok := usedFrom[c.From]; ok {
			continue
		}
		if _, ok := usedTo[c.To]; ok {
			continue
		}
		usedFrom[c.From] = struct{}{}
		usedTo[c.To] = struct{}{}
		out = append(out, c)
	}
	return out
}
