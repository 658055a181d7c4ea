package refine

import "testing"

func locAt(start, end int) *Location {
	s, e, line := start, end, 1
	return &Location{CharStart: &s, CharEnd: &e, Line: &line, MatchType: MatchExact, Confidence: 1.0}
}

func TestOverlapRatioSymmetric(t *testing.T) {
	cases := []struct {
		a, b [2]int
		want float64
	}{
		{[2]int{0, 12}, [2]int{6, 12}, 1.0},  // (6,12) fully inside (0,12)
		{[2]int{0, 10}, [2]int{5, 15}, 0.5},  // half of each
		{[2]int{0, 10}, [2]int{10, 20}, 0.0}, // touching, no intersection
		{[2]int{0, 5}, [2]int{20, 30}, 0.0},  // disjoint
	}

	for _, tc := range cases {
		a := &Item{Location: locAt(tc.a[0], tc.a[1])}
		b := &Item{Location: locAt(tc.b[0], tc.b[1])}
		if got := overlapRatio(a, b); got != tc.want {
			t.Errorf("overlapRatio(%v,%v) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
		if overlapRatio(a, b) != overlapRatio(b, a) {
			t.Errorf("overlapRatio not symmetric for %v/%v", tc.a, tc.b)
		}
	}
}

func TestDedupKeepsMorePopulatedItem(t *testing.T) {
	d := NewDeduplicator(0.5, false)
	items := []*Item{
		{
			Type:     TypeEntity,
			Text:     "class MLevel",
			Summary:  "level class",
			Location: locAt(0, 12),
		},
		{
			Type:     TypeEntity,
			Text:     "MLevel",
			Location: locAt(6, 12),
		},
	}

	out := d.Process(items)
	if len(out) != 1 {
		t.Fatalf("expected 1 item after dedup, got %d", len(out))
	}
	if out[0].Text != "class MLevel" {
		t.Fatalf("expected the more populated item to survive, got %q", out[0].Text)
	}
}

func TestDedupRemovesEarlierKeptLoser(t *testing.T) {
	d := NewDeduplicator(0.5, false)
	items := []*Item{
		{Type: TypeRule, Text: "no edits", Location: locAt(50, 60)},
		{
			Type:       TypeRule,
			Text:       "no edits allowed",
			Summary:    "edit ban",
			Location:   locAt(50, 65),
			Attributes: map[string]any{"reason": "stability"},
		},
	}

	out := d.Process(items)
	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}
	if out[0].Text != "no edits allowed" {
		t.Fatalf("later, richer item should displace the kept one, got %q", out[0].Text)
	}
}

func TestDedupTieBreaksOnTextLengthThenConfidence(t *testing.T) {
	d := NewDeduplicator(0.5, false)

	out := d.Process([]*Item{
		{Type: TypeEntity, Text: "short", Location: locAt(0, 10)},
		{Type: TypeEntity, Text: "longer text", Location: locAt(0, 10)},
	})
	if len(out) != 1 || out[0].Text != "longer text" {
		t.Fatalf("expected longer text to win, got %+v", out)
	}

	out = d.Process([]*Item{
		{Type: TypeEntity, Text: "samelen", Confidence: 0.4, Location: locAt(0, 10)},
		{Type: TypeEntity, Text: "samelen", Confidence: 0.9, Location: locAt(0, 10)},
	})
	if len(out) != 1 || out[0].Confidence != 0.9 {
		t.Fatalf("expected higher confidence to win, got %+v", out)
	}
}

func TestDedupTypeAware(t *testing.T) {
	items := []*Item{
		{Type: TypeEntity, Text: "class MLevel", Location: locAt(0, 12)},
		{Type: TypeRule, Text: "MLevel", Location: locAt(6, 12)},
	}

	if out := NewDeduplicator(0.5, true).Process(items); len(out) != 2 {
		t.Fatalf("type-aware dedup must not merge across types, got %d items", len(out))
	}
	if out := NewDeduplicator(0.5, false).Process(items); len(out) != 1 {
		t.Fatalf("type-blind dedup should merge, got %d items", len(out))
	}
}

func TestDedupUnlocatedItemsBypass(t *testing.T) {
	d := NewDeduplicator(0.5, false)
	items := []*Item{
		{Type: TypeCandidate, Text: "no location"},
		{Type: TypeEntity, Text: "located", Location: locAt(0, 7)},
		{Type: TypeEntity, Text: "none match", Location: &Location{MatchType: MatchNone, Confidence: 0.1}},
	}

	out := d.Process(items)
	if len(out) != 3 {
		t.Fatalf("expected all 3 items, got %d", len(out))
	}
	// Kept items come first, bypassed items after, in input order.
	if out[0].Text != "located" || out[1].Text != "no location" || out[2].Text != "none match" {
		t.Fatalf("unexpected output order: %q %q %q", out[0].Text, out[1].Text, out[2].Text)
	}
}

func TestDedupEmptyInput(t *testing.T) {
	if out := NewDeduplicator(0.5, false).Process(nil); len(out) != 0 {
		t.Fatalf("expected empty output, got %d items", len(out))
	}
}
