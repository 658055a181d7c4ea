package refine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Grounding match confidences per tier. Fuzzy confidence scales with the
// fraction of the query that matched.
const (
	exactConfidence      = 1.0
	normalizedConfidence = 0.85
	fuzzyScale           = 0.8
	noneConfidence       = 0.1

	// fuzzyMinRatio is the minimum fraction of the query that must match
	// contiguously for a fuzzy hit to be accepted.
	fuzzyMinRatio = 0.3
)

// Grounder aligns extraction text onto character offsets in one immutable
// source document. The normalized form (all whitespace removed) and the
// normalized-to-real offset index are built once and belong to this grounder;
// build a new one per source text.
type Grounder struct {
	source     string
	sourceRune []rune
	normalized string
	normToReal []int // real rune offset of each normalized rune, in order
}

// NewGrounder indexes the source text for alignment.
func NewGrounder(source string) *Grounder {
	g := &Grounder{
		source:     source,
		sourceRune: []rune(source),
	}

	var norm strings.Builder
	for realPos, r := range g.sourceRune {
		if unicode.IsSpace(r) {
			continue
		}
		norm.WriteRune(r)
		g.normToReal = append(g.normToReal, realPos)
	}
	g.normalized = norm.String()
	return g
}

// Process adds a source_location to every item that carries text. Items
// without text pass through unchanged. The input list is not mutated.
func (g *Grounder) Process(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it.Text == "" {
			out = append(out, it)
			continue
		}
		cp := it.Clone()
		cp.Location = g.Align(it.Text)
		out = append(out, cp)
	}
	return out
}

// Align locates a text fragment in the source, trying exact, then
// whitespace-normalized, then fuzzy alignment. First success wins.
func (g *Grounder) Align(query string) *Location {
	// Tier 1: literal substring.
	if idx := strings.Index(g.source, query); idx >= 0 {
		start := utf8.RuneCountInString(g.source[:idx])
		end := start + utf8.RuneCountInString(query)
		return g.location(start, end, MatchExact, exactConfidence)
	}

	// Tier 2: whitespace-insensitive substring, mapped back to real offsets.
	normQuery := stripSpace(query)
	if normQuery != "" {
		if idx := strings.Index(g.normalized, normQuery); idx >= 0 {
			normStart := utf8.RuneCountInString(g.normalized[:idx])
			normLen := utf8.RuneCountInString(normQuery)
			start := g.realOffset(normStart)
			end := g.realOffset(normStart + normLen)
			return g.location(start, end, MatchNormalized, normalizedConfidence)
		}
	}

	// Tier 3: longest common contiguous run, accepted at >=30% of the query.
	queryRunes := []rune(query)
	m := newMatcher(queryRunes, g.sourceRune)
	best := m.longestMatch(0, len(queryRunes), 0, len(g.sourceRune))
	if best.size > 0 {
		ratio := float64(best.size) / float64(len(queryRunes))
		if ratio >= fuzzyMinRatio {
			return g.location(best.bi, best.bi+best.size, MatchFuzzy, ratio*fuzzyScale)
		}
	}

	return &Location{MatchType: MatchNone, Confidence: noneConfidence}
}

// realOffset maps an offset in the normalized text back to the source.
// Offsets past the end clamp to the source length.
func (g *Grounder) realOffset(norm int) int {
	if norm < 0 {
		return 0
	}
	if norm >= len(g.normToReal) {
		return len(g.sourceRune)
	}
	return g.normToReal[norm]
}

func (g *Grounder) location(start, end int, mt MatchType, conf float64) *Location {
	line := 1
	for _, r := range g.sourceRune[:start] {
		if r == '\n' {
			line++
		}
	}
	s, e, l := start, end, line
	return &Location{
		CharStart:  &s,
		CharEnd:    &e,
		Line:       &l,
		MatchType:  mt,
		Confidence: conf,
	}
}

func stripSpace(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
