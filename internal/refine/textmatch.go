package refine

// Sequence alignment over rune slices, used by fuzzy grounding and by the
// entity resolver's edit-similarity metric. Offsets are character offsets,
// not byte offsets, so multibyte source documents ground correctly.

// autojunkMinLen is the b-side length at which popular runes are demoted to
// junk. A rune is popular when it accounts for more than 1% of b.
const autojunkMinLen = 200

type matcher struct {
	a, b  []rune
	b2j   map[rune][]int
	bjunk map[rune]struct{}
}

func newMatcher(a, b []rune) *matcher {
	m := &matcher{
		a:     a,
		b:     b,
		b2j:   make(map[rune][]int),
		bjunk: make(map[rune]struct{}),
	}
	for j, r := range b {
		m.b2j[r] = append(m.b2j[r], j)
	}
	if len(b) >= autojunkMinLen {
		ntest := len(b)/100 + 1
		for r, idxs := range m.b2j {
			if len(idxs) > ntest {
				m.bjunk[r] = struct{}{}
			}
		}
		for r := range m.bjunk {
			delete(m.b2j, r)
		}
	}
	return m
}

func (m *matcher) isJunk(r rune) bool {
	_, ok := m.bjunk[r]
	return ok
}

// match is one aligned block: a[ai:ai+size] == b[bi:bi+size].
type match struct {
	ai, bi, size int
}

// longestMatch finds the leftmost longest matching block within
// a[alo:ahi] and b[blo:bhi].
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) match {
	besti, bestj, bestsize := alo, blo, 0
	j2len := make(map[int]int)

	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}

	// Widen over equal non-junk runes first, then over equal junk runes.
	for besti > alo && bestj > blo && !m.isJunk(m.b[bestj-1]) && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi &&
		!m.isJunk(m.b[bestj+bestsize]) && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}
	for besti > alo && bestj > blo && m.isJunk(m.b[bestj-1]) && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi &&
		m.isJunk(m.b[bestj+bestsize]) && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}

	return match{besti, bestj, bestsize}
}

// matchedTotal sums the sizes of all matching blocks.
func (m *matcher) matchedTotal() int {
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	total := 0

	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		mt := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if mt.size == 0 {
			continue
		}
		total += mt.size
		if s.alo < mt.ai && s.blo < mt.bi {
			queue = append(queue, span{s.alo, mt.ai, s.blo, mt.bi})
		}
		if mt.ai+mt.size < s.ahi && mt.bi+mt.size < s.bhi {
			queue = append(queue, span{mt.ai + mt.size, s.ahi, mt.bi + mt.size, s.bhi})
		}
	}
	return total
}

// ratio is the classic matching-blocks similarity: 2M / (len(a)+len(b)).
func (m *matcher) ratio() float64 {
	la, lb := len(m.a), len(m.b)
	if la+lb == 0 {
		return 1.0
	}
	return 2.0 * float64(m.matchedTotal()) / float64(la+lb)
}

// editSimilarity computes the matching-blocks ratio of two strings.
func editSimilarity(a, b string) float64 {
	return newMatcher([]rune(a), []rune(b)).ratio()
}
