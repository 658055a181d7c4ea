package refine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultConfidenceThreshold gates which items and relations make it into
// the knowledge-graph output.
const DefaultConfidenceThreshold = 0.3

// kgNameLimit caps entity display names.
const kgNameLimit = 50

// kgTextLimit caps the raw-text observation emitted for summary-less items.
const kgTextLimit = 100

// entityLikeTypes are the extraction types that become KG entities.
var entityLikeTypes = map[string]struct{}{
	TypeEntity:     {},
	TypeRule:       {},
	TypeConstraint: {},
	TypeEvent:      {},
	TypeState:      {},
}

// Entity is one node in the consumer-agnostic graph output.
type Entity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

// Edge is one relation in the graph output.
type Edge struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// Graph is the two-list entity/relation representation handed to external
// graph consumers.
type Graph struct {
	Entities  []Entity `json:"entities"`
	Relations []Edge   `json:"relations"`
}

// Injector reshapes high-confidence items and relations into a Graph.
type Injector struct {
	Threshold float64
}

// NewInjector creates an injector with the given confidence threshold.
func NewInjector(threshold float64) *Injector {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Injector{Threshold: threshold}
}

// Convert filters items and relations by the confidence threshold and
// reshapes the survivors. Inputs are not mutated. Nothing below the
// threshold ever reaches the output.
func (inj *Injector) Convert(items []*Item, relations []Relation) *Graph {
	g := &Graph{Entities: []Entity{}, Relations: []Edge{}}

	for _, it := range items {
		if it.Confidence < inj.Threshold {
			continue
		}
		if _, ok := entityLikeTypes[it.Type]; ok {
			g.Entities = append(g.Entities, convertEntity(it))
		}
		if it.Type == TypeRelation {
			relType := it.RelationType
			if relType == "" {
				relType = "relates_to"
			}
			g.Relations = append(g.Relations, Edge{From: it.From, To: it.To, RelationType: relType})
		}
	}

	for _, rel := range relations {
		if rel.Confidence < inj.Threshold {
			continue
		}
		relType := rel.Type
		if relType == "" {
			relType = "relates_to"
		}
		g.Relations = append(g.Relations, Edge{From: rel.From, To: rel.To, RelationType: relType})
	}

	return g
}

func convertEntity(it *Item) Entity {
	entityType := it.Type
	if entityType == "" {
		entityType = TypeEntity
	}

	observations := make([]string, 0, 4)
	if it.Summary != "" {
		observations = append(observations, it.Summary)
	}
	if it.Location != nil && it.Location.Line != nil {
		source := it.SourceFile
		if source == "" {
			source = "unknown"
		}
		observations = append(observations, fmt.Sprintf("Source: %s:%d", source, *it.Location.Line))
	}
	observations = append(observations, fmt.Sprintf("Confidence: %.2f", it.Confidence))
	for _, key := range []string{"trigger_context", "consequence", "reason"} {
		if v := it.Attr(key); v != "" {
			observations = append(observations, fmt.Sprintf("%s: %s", key, v))
		}
	}
	if it.Summary == "" {
		if text := truncateRunes(it.Text, kgTextLimit); text != "" {
			observations = append(observations, "Text: "+text)
		}
	}

	return Entity{
		Name:         entityName(it),
		EntityType:   entityType,
		Observations: observations,
	}
}

// entityName prefers the summary, then whitespace-collapsed text, then a
// synthetic unique placeholder, all capped at 50 characters.
func entityName(it *Item) string {
	if it.Summary != "" {
		return truncateRunes(it.Summary, kgNameLimit)
	}
	if it.Text != "" {
		return truncateRunes(strings.Join(strings.Fields(it.Text), " "), kgNameLimit)
	}
	return "Entity_" + uuid.NewString()[:8]
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
