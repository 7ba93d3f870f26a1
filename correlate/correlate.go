// Package correlate pairs element snapshots taken from two renderings
// of the same page, typically the English baseline and a translated
// rendering. Pairing is structural: translated text differs by
// definition, so only language-independent signals are usable.
package correlate

import (
	"log/slog"

	"github.com/bictech/transcheck/pagescan"
)

// Strategy names the signal that produced a pair.
type Strategy string

const (
	ByID       Strategy = "id"
	ByLocator  Strategy = "locator"
	ByClassSet Strategy = "classset"
	ByPosition Strategy = "position"
)

// Pair joins one baseline element with its counterpart in the other
// rendering. Other is nil when no counterpart was found; such pairs
// are correlation anomalies, not translation mismatches.
type Pair struct {
	Base     pagescan.ElementRef
	Other    *pagescan.ElementRef
	Strategy Strategy
}

// Correlate pairs each baseline element with at most one element of the
// other snapshot. Strategies apply in fixed order per element: unique
// id, structural locator, unique multi-class set, then same document
// position. Positional pairing over snapshots of different sizes is
// unreliable and is logged once per call.
func Correlate(baseline, other []pagescan.ElementRef, logger *slog.Logger) []Pair {
	idx := indexRefs(other)

	if len(baseline) != len(other) {
		logger.Warn("correlate: snapshot sizes differ, positional fallback unreliable",
			"baseline", len(baseline), "other", len(other))
	}

	pairs := make([]Pair, 0, len(baseline))
	for i, base := range baseline {
		if p, ok := match(base, i, other, idx); ok {
			pairs = append(pairs, p)
			continue
		}
		logger.Debug("correlate: no counterpart",
			"locator", base.Locator, "text", base.Text)
		pairs = append(pairs, Pair{Base: base})
	}
	return pairs
}

func match(base pagescan.ElementRef, pos int, other []pagescan.ElementRef, idx refIndex) (Pair, bool) {
	if base.ID != "" {
		if ref, ok := idx.byID[base.ID]; ok {
			return Pair{Base: base, Other: ref, Strategy: ByID}, true
		}
	}
	if ref, ok := idx.byLocator[base.Locator]; ok {
		return Pair{Base: base, Other: ref, Strategy: ByLocator}, true
	}
	if set := base.ClassSet(); set != "" {
		if ref, ok := idx.byClassSet[set]; ok {
			return Pair{Base: base, Other: ref, Strategy: ByClassSet}, true
		}
	}
	if pos < len(other) {
		return Pair{Base: base, Other: &other[pos], Strategy: ByPosition}, true
	}
	return Pair{}, false
}

type refIndex struct {
	byID       map[string]*pagescan.ElementRef
	byLocator  map[string]*pagescan.ElementRef
	byClassSet map[string]*pagescan.ElementRef
}

// indexRefs builds lookup tables over the other snapshot. Only keys
// that identify exactly one element are kept; an ambiguous signal is
// worse than falling through to the next strategy.
func indexRefs(refs []pagescan.ElementRef) refIndex {
	idx := refIndex{
		byID:       map[string]*pagescan.ElementRef{},
		byLocator:  map[string]*pagescan.ElementRef{},
		byClassSet: map[string]*pagescan.ElementRef{},
	}
	idDup := map[string]bool{}
	locDup := map[string]bool{}
	setDup := map[string]bool{}
	for i := range refs {
		ref := &refs[i]
		if ref.ID != "" {
			unique(idx.byID, idDup, ref.ID, ref)
		}
		if ref.Locator != "" {
			unique(idx.byLocator, locDup, ref.Locator, ref)
		}
		if set := ref.ClassSet(); set != "" {
			unique(idx.byClassSet, setDup, set, ref)
		}
	}
	return idx
}

func unique(m map[string]*pagescan.ElementRef, dup map[string]bool, key string, ref *pagescan.ElementRef) {
	if dup[key] {
		return
	}
	if _, seen := m[key]; seen {
		delete(m, key)
		dup[key] = true
		return
	}
	m[key] = ref
}
