package refine

import "strings"

// Entity resolution: cluster near-duplicate entity items, keep one canonical
// representative per cluster, and rewrite relation endpoints through an
// alias map that lives only for the duration of one pass.

// DefaultSimilarityThreshold is the minimum name similarity for two entities
// to land in the same cluster.
const DefaultSimilarityThreshold = 0.7

const containmentScale = 0.9

// ClusterStrategy groups entity indexes into clusters given a pairwise
// similarity function. Implementations receive entities in input order.
type ClusterStrategy interface {
	Cluster(names []string, sim func(a, b string) float64, threshold float64) [][]int
}

// GreedyClusterer is single-pass, single-linkage clustering seeded in input
// order: the first unassigned entity opens a cluster and absorbs every later
// unassigned entity similar enough to the seed.
//
// The similarity relation is not transitive, so results depend on input
// order and can under- or over-merge relative to a full transitive
// partition. This matches the established behavior; use
// ComponentsClusterer for the order-independent variant.
type GreedyClusterer struct{}

// Cluster implements ClusterStrategy.
func (GreedyClusterer) Cluster(names []string, sim func(a, b string) float64, threshold float64) [][]int {
	var clusters [][]int
	assigned := make([]bool, len(names))

	for i := range names {
		if assigned[i] {
			continue
		}
		cluster := []int{i}
		assigned[i] = true
		for j := i + 1; j < len(names); j++ {
			if assigned[j] {
				continue
			}
			if sim(names[i], names[j]) >= threshold {
				cluster = append(cluster, j)
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// ComponentsClusterer clusters by connected components of the pairwise
// similarity graph. Unlike GreedyClusterer it is order-independent, at the
// cost of merging chains of pairwise-similar names whose extremes are not
// similar to each other.
type ComponentsClusterer struct{}

// Cluster implements ClusterStrategy via union-find over similar pairs.
func (ComponentsClusterer) Cluster(names []string, sim func(a, b string) float64, threshold float64) [][]int {
	parent := make([]int, len(names))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if rb < ra {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if sim(names[i], names[j]) >= threshold {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	var order []int
	for i := range names {
		r := find(i)
		if _, ok := byRoot[r]; !ok {
			order = append(order, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}

	clusters := make([][]int, 0, len(order))
	for _, r := range order {
		clusters = append(clusters, byRoot[r])
	}
	return clusters
}

// Resolver merges near-duplicate entity items and rewrites relation
// endpoints to the canonical name of each cluster.
type Resolver struct {
	Threshold float64
	Strategy  ClusterStrategy
}

// NewResolver creates a resolver with the greedy clustering strategy.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Resolver{Threshold: threshold, Strategy: GreedyClusterer{}}
}

// Process merges entity clusters down to one representative each and
// rewrites relation from/to fields through the alias map. Non-entity items
// keep their relative positions. With one entity or fewer this is a no-op.
func (r *Resolver) Process(items []*Item) []*Item {
	var entities []*Item
	for _, it := range items {
		if it.Type == TypeEntity {
			entities = append(entities, it)
		}
	}
	if len(entities) <= 1 {
		return items
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Text
	}

	strategy := r.Strategy
	if strategy == nil {
		strategy = GreedyClusterer{}
	}
	clusters := strategy.Cluster(names, NameSimilarity, r.Threshold)

	// Pick the canonical member of each cluster and map every other member's
	// name to it. The alias map is discarded after this pass.
	aliases := make(map[string]string)
	canonical := make(map[string]struct{})
	for _, cluster := range clusters {
		best := cluster[0]
		for _, idx := range cluster[1:] {
			if canonicalBetter(names[idx], names[best]) {
				best = idx
			}
		}
		canonical[names[best]] = struct{}{}
		for _, idx := range cluster {
			if names[idx] != names[best] {
				aliases[names[idx]] = names[best]
			}
		}
	}

	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it.Type == TypeEntity {
			if _, ok := canonical[it.Text]; ok {
				out = append(out, it)
			}
			continue
		}
		if it.Type == TypeRelation {
			if from, ok := aliases[it.From]; ok {
				it = patchEndpoints(it, from, it.To)
			}
			if to, ok := aliases[it.To]; ok {
				it = patchEndpoints(it, it.From, to)
			}
		}
		out = append(out, it)
	}
	return out
}

func patchEndpoints(it *Item, from, to string) *Item {
	cp := it.Clone()
	cp.From = from
	cp.To = to
	return cp
}

// NameSimilarity scores two entity names in [0,1]: identical names score
// 1.0, containment scores 0.9 scaled by the length ratio, everything else
// falls back to the matching-blocks edit similarity. Symmetric.
func NameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		la, lb := len([]rune(a)), len([]rune(b))
		shorter, longer := min(la, lb), max(la, lb)
		return containmentScale * float64(shorter) / float64(longer)
	}
	return editSimilarity(a, b)
}

// canonicalBetter prefers identifier-like names (no spaces), then longer
// names, mirroring the (no_space_bonus, length) canonical tuple.
func canonicalBetter(a, b string) bool {
	aSpace, bSpace := hasSpace(a), hasSpace(b)
	if aSpace != bSpace {
		return !aSpace
	}
	return len([]rune(a)) > len([]rune(b))
}

func hasSpace(s string) bool {
	for _, r := range s {
		if r == ' ' {
			return true
		}
	}
	return false
}
