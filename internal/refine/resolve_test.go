package refine

import (
	"math"
	"testing"
)

func TestNameSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"MLevel", "MLevel", 1.0},
		{"Python", "Python3", 0.9 * 6.0 / 7.0}, // containment
		{"", "MLevel", 0.0},
		{"MLevel", "", 0.0},
	}
	for _, tc := range cases {
		if got := NameSimilarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NameSimilarity(%q,%q) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
		if NameSimilarity(tc.a, tc.b) != NameSimilarity(tc.b, tc.a) {
			t.Errorf("NameSimilarity not symmetric for %q/%q", tc.a, tc.b)
		}
	}

	// "MLevel" vs "MGLevel": not a substring pair, edit similarity
	// 2×6/13 ≈ 0.923 — above the default threshold.
	if got := NameSimilarity("MLevel", "MGLevel"); math.Abs(got-12.0/13.0) > 1e-9 {
		t.Errorf("NameSimilarity(MLevel,MGLevel) = %f, want %f", got, 12.0/13.0)
	}

	// "MLevel" vs "MMultiGateLevel" stays well below 0.7.
	if got := NameSimilarity("MLevel", "MMultiGateLevel"); got >= 0.7 {
		t.Errorf("MLevel/MMultiGateLevel similarity %f should be below 0.7", got)
	}
}

func TestResolverMergesSimilarEntities(t *testing.T) {
	r := NewResolver(0.7)
	items := []*Item{
		{Type: TypeEntity, Text: "MLevel"},
		{Type: TypeEntity, Text: "MGLevel"},
		{Type: TypeEntity, Text: "MMultiGateLevel"},
		{Type: TypeRelation, From: "MLevel", To: "MMultiGateLevel", RelationType: "manages"},
	}

	out := r.Process(items)

	var entityNames []string
	for _, it := range out {
		if it.Type == TypeEntity {
			entityNames = append(entityNames, it.Text)
		}
	}
	if len(entityNames) != 2 {
		t.Fatalf("expected 2 entities after merge, got %v", entityNames)
	}
	// MLevel folds into MGLevel (longer no-space name); MMultiGateLevel
	// stays separate.
	if entityNames[0] != "MGLevel" || entityNames[1] != "MMultiGateLevel" {
		t.Fatalf("unexpected canonical entities: %v", entityNames)
	}

	var rel *Item
	for _, it := range out {
		if it.Type == TypeRelation {
			rel = it
		}
	}
	if rel == nil {
		t.Fatal("relation item missing from output")
	}
	if rel.From != "MGLevel" {
		t.Fatalf("relation endpoint not rewritten: from=%q", rel.From)
	}
	if rel.To != "MMultiGateLevel" {
		t.Fatalf("unaliased endpoint must stay put: to=%q", rel.To)
	}
	if items[3].From != "MLevel" {
		t.Fatal("input relation was mutated")
	}
}

func TestResolverIdempotent(t *testing.T) {
	r := NewResolver(0.7)
	items := []*Item{
		{Type: TypeEntity, Text: "MLevel"},
		{Type: TypeEntity, Text: "MGLevel"},
		{Type: TypeEntity, Text: "Actor"},
		{Type: TypeRelation, From: "MGLevel", To: "Actor", RelationType: "contains"},
	}

	once := r.Process(items)
	twice := r.Process(once)

	if len(twice) != len(once) {
		t.Fatalf("second pass changed item count: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Text != twice[i].Text || once[i].From != twice[i].From || once[i].To != twice[i].To {
			t.Fatalf("second pass changed item %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestResolverCanonicalPrefersNoSpaceThenLength(t *testing.T) {
	r := NewResolver(0.6)
	items := []*Item{
		{Type: TypeEntity, Text: "M Level Class"},
		{Type: TypeEntity, Text: "MLevelClass"},
	}

	out := r.Process(items)
	if len(out) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(out))
	}
	if out[0].Text != "MLevelClass" {
		t.Fatalf("expected the space-free name to win, got %q", out[0].Text)
	}
}

func TestResolverNoOpWithOneEntity(t *testing.T) {
	r := NewResolver(0.7)
	items := []*Item{
		{Type: TypeEntity, Text: "Actor"},
		{Type: TypeCandidate, Text: "someone"},
	}
	out := r.Process(items)
	if len(out) != 2 {
		t.Fatalf("expected passthrough, got %d items", len(out))
	}
}

func TestComponentsClustererMergesChains(t *testing.T) {
	names := []string{"aaaa", "aaab", "aabb"}
	sim := func(a, b string) float64 { return editSimilarity(a, b) }

	// aaaa~aaab (0.75) and aaab~aabb (0.75) but aaaa~aabb (0.5): greedy
	// seeded at aaaa leaves aabb out, components folds all three together.
	greedy := (GreedyClusterer{}).Cluster(names, sim, 0.7)
	if len(greedy) != 2 {
		t.Fatalf("expected greedy to produce 2 clusters, got %d", len(greedy))
	}

	components := (ComponentsClusterer{}).Cluster(names, sim, 0.7)
	if len(components) != 1 {
		t.Fatalf("expected components to produce 1 cluster, got %d", len(components))
	}
	if len(components[0]) != 3 {
		t.Fatalf("expected all 3 names in one component, got %v", components[0])
	}
}
