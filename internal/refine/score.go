package refine

import "math"

// Composite confidence weights. They sum to 1.0 so the composite stays in
// [0,1] without rescaling.
const (
	weightMatchQuality     = 0.35
	weightAttrCompleteness = 0.25
	weightTextSpecificity  = 0.20
	weightTypeConsistency  = 0.20
)

// matchQualityScores maps each grounding tier to its quality sub-score.
// Unknown or missing tiers score like "none".
var matchQualityScores = map[MatchType]float64{
	MatchExact:      1.0,
	MatchNormalized: 0.85,
	MatchFuzzy:      0.6,
	MatchNone:       0.1,
}

// canonicalTypes is the closed set of type tags that score full type
// consistency. Anything else is open-ended: present-but-unknown tags score
// lower, a missing tag lower still.
var canonicalTypes = map[string]struct{}{
	TypeEntity:     {},
	TypeRule:       {},
	TypeConstraint: {},
	TypeEvent:      {},
	TypeState:      {},
	TypeRelation:   {},
}

// descriptiveAttrs are the designated attributes that count toward
// completeness alongside the summary.
var descriptiveAttrs = []string{"trigger_context", "consequence", "reason", "related_entities"}

// Scorer computes one weighted composite confidence per item.
type Scorer struct{}

// NewScorer creates a confidence scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Process sets Confidence on a copy of every item. Deterministic: the same
// input always produces the same scores.
func (s *Scorer) Process(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		cp := it.Clone()
		cp.Confidence = round3(s.Score(it))
		out = append(out, cp)
	}
	return out
}

// Score computes the unrounded composite confidence for one item,
// clamped to [0,1].
func (s *Scorer) Score(it *Item) float64 {
	matchType := MatchNone
	if it.Location != nil {
		matchType = it.Location.MatchType
	}
	matchQuality, ok := matchQualityScores[matchType]
	if !ok {
		matchQuality = matchQualityScores[MatchNone]
	}

	score := weightMatchQuality*matchQuality +
		weightAttrCompleteness*attrCompleteness(it) +
		weightTextSpecificity*textSpecificity(it.Text) +
		weightTypeConsistency*typeConsistency(it.Type)

	return math.Min(1.0, math.Max(0.0, score))
}

// attrCompleteness rewards a summary plus up to two descriptive attributes;
// the ideal item carries all three points.
func attrCompleteness(it *Item) float64 {
	total := 0
	if it.Summary != "" {
		total++
	}
	for _, key := range descriptiveAttrs {
		if it.Attributes != nil && truthy(it.Attributes[key]) {
			total++
		}
	}
	return math.Min(1.0, float64(total)/3.0)
}

// textSpecificity scores text length: 10-200 characters is ideal, shorter
// ramps up linearly, longer decays linearly to a 0.3 floor.
func textSpecificity(text string) float64 {
	length := len([]rune(text))
	switch {
	case length == 0:
		return 0.0
	case length >= 10 && length <= 200:
		return 1.0
	case length < 10:
		return float64(length) / 10.0
	default:
		return math.Max(0.3, 1.0-float64(length-200)/800.0)
	}
}

func typeConsistency(typ string) float64 {
	if typ == "" {
		return 0.5
	}
	if _, ok := canonicalTypes[typ]; ok {
		return 0.9
	}
	return 0.7
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
