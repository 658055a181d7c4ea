package refine

import "sort"

// DefaultOverlapThreshold is the overlap ratio beyond which two grounded
// items are considered duplicates.
const DefaultOverlapThreshold = 0.5

// Deduplicator removes items whose grounded spans substantially overlap,
// keeping the more informative one.
type Deduplicator struct {
	// Threshold is the overlap ratio (relative to the shorter interval)
	// that triggers a merge decision.
	Threshold float64

	// TypeAware prevents items of different types from displacing each
	// other even when their spans overlap.
	TypeAware bool
}

// NewDeduplicator creates a deduplicator with the given overlap threshold.
func NewDeduplicator(threshold float64, typeAware bool) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}
	return &Deduplicator{Threshold: threshold, TypeAware: typeAware}
}

// Process collapses overlapping items. Items without a complete char
// interval bypass comparison entirely and are appended, untouched, after the
// kept items. Each new candidate is compared against every previously kept
// item, not just the nearest — removals leave the kept set non-disjoint.
func (d *Deduplicator) Process(items []*Item) []*Item {
	if len(items) == 0 {
		return []*Item{}
	}

	var valid, bypass []*Item
	for _, it := range items {
		if _, _, ok := it.Location.Interval(); ok {
			valid = append(valid, it)
		} else {
			bypass = append(bypass, it)
		}
	}
	if len(valid) == 0 {
		return bypass
	}

	sorted := make([]*Item, len(valid))
	copy(sorted, valid)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, _, _ := sorted[i].Location.Interval()
		sj, _, _ := sorted[j].Location.Interval()
		return si < sj
	})

	var kept []*Item
	for _, it := range sorted {
		keep := true
		for ki := 0; ki < len(kept); ki++ {
			other := kept[ki]
			if d.TypeAware && it.Type != other.Type {
				continue
			}
			if overlapRatio(it, other) <= d.Threshold {
				continue
			}
			if better(it, other) {
				kept = append(kept[:ki], kept[ki+1:]...)
				ki--
			} else {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, it)
		}
	}

	return append(kept, bypass...)
}

// overlapRatio is the intersection length over the shorter interval's
// length; zero when the intervals do not intersect. Symmetric.
func overlapRatio(a, b *Item) float64 {
	startA, endA, _ := a.Location.Interval()
	startB, endB, _ := b.Location.Interval()

	overlapStart := max(startA, startB)
	overlapEnd := min(endA, endB)
	if overlapStart >= overlapEnd {
		return 0.0
	}

	minLen := min(endA-startA, endB-startB)
	if minLen == 0 {
		return 0.0
	}
	return float64(overlapEnd-overlapStart) / float64(minLen)
}

// better reports whether a beats b: more populated attributes, then longer
// text, then higher confidence. Deterministic; full ties favor b.
func better(a, b *Item) bool {
	ca, cb := a.populatedAttrs(), b.populatedAttrs()
	if ca != cb {
		return ca > cb
	}
	la, lb := len([]rune(a.Text)), len([]rune(b.Text))
	if la != lb {
		return la > lb
	}
	return a.Confidence > b.Confidence
}
