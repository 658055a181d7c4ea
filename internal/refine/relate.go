package refine

// Relation inference: synthesize relations linking every root record to the
// dependent sub-records around it, driven by a swappable rule table instead
// of hard-coded type checks.

// relationDiscount is applied to a sub-item's confidence when deriving an
// inferred relation from it; inference is always weaker than extraction.
const relationDiscount = 0.85

// defaultRelationConfidence stands in for sub-items that were never scored.
const defaultRelationConfidence = 0.7

// DefaultRelationScope labels relations inferred within one document batch.
const DefaultRelationScope = "resume"

// RelationRule maps an extraction type to the relation it implies and the
// attribute that names the relation target.
type RelationRule struct {
	RelationType string
	NameAttr     string
}

// DefaultRelationRules returns the built-in rule table for resume batches:
// the candidate is the root, and experiences, educations, skills and
// certifications hang off it.
func DefaultRelationRules() map[string]RelationRule {
	return map[string]RelationRule{
		"experience":    {RelationType: "worked_at", NameAttr: "company"},
		"education":     {RelationType: "studied_at", NameAttr: "school"},
		"skill":         {RelationType: "has_skill", NameAttr: "name"},
		"certification": {RelationType: "certified_by", NameAttr: "name"},
	}
}

// Inferrer derives implicit relations between root records and their
// dependent sub-records.
type Inferrer struct {
	RootType string
	Rules    map[string]RelationRule
	Scope    string
}

// NewInferrer creates an inferrer with the default root type and rule table.
func NewInferrer() *Inferrer {
	return &Inferrer{
		RootType: TypeCandidate,
		Rules:    DefaultRelationRules(),
		Scope:    DefaultRelationScope,
	}
}

// Process returns the input list unchanged plus, for every root item and
// every rule-matched sub-item, one inferred relation. A batch without a root
// yields no relations, not an error.
func (inf *Inferrer) Process(items []*Item) ([]*Item, []Relation) {
	var roots []*Item
	for _, it := range items {
		if it.Type == inf.RootType {
			roots = append(roots, it)
		}
	}
	if len(roots) == 0 {
		return items, []Relation{}
	}

	relations := make([]Relation, 0)
	for _, root := range roots {
		for _, it := range items {
			rule, ok := inf.Rules[it.Type]
			if !ok {
				continue
			}
			relations = append(relations, Relation{
				From:       root.ID,
				To:         it.ID,
				Type:       rule.RelationType,
				TargetName: targetName(it, rule.NameAttr),
				Scope:      inf.Scope,
				Confidence: round3(it.confidenceOr(defaultRelationConfidence) * relationDiscount),
				Inferred:   true,
			})
		}
	}
	return items, relations
}

// targetName resolves the relation target's display name from the rule's
// attribute, falling back to the item summary, then its raw text.
func targetName(it *Item, attr string) string {
	if name := it.Attr(attr); name != "" {
		return name
	}
	if it.Summary != "" {
		return it.Summary
	}
	return it.Text
}
