package refine

import "fmt"

// Config toggles pipeline stages and carries the numeric thresholds the
// stages consume. Decode preset files onto DefaultConfig() so absent keys
// keep their defaults.
type Config struct {
	TimeNormalization bool `json:"time_normalization" yaml:"time_normalization"`
	SourceGrounding   bool `json:"source_grounding" yaml:"source_grounding"`
	OverlapDedup      bool `json:"overlap_dedup" yaml:"overlap_dedup"`
	ConfidenceScoring bool `json:"confidence_scoring" yaml:"confidence_scoring"`
	EntityResolution  bool `json:"entity_resolution" yaml:"entity_resolution"`
	RelationInference bool `json:"relation_inference" yaml:"relation_inference"`
	KGInjection       bool `json:"kg_injection" yaml:"kg_injection"`

	ConfidenceThreshold       float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	OverlapThreshold          float64 `json:"overlap_threshold" yaml:"overlap_threshold"`
	EntitySimilarityThreshold float64 `json:"entity_similarity_threshold" yaml:"entity_similarity_threshold"`
	TypeAwareDedup            bool    `json:"type_aware_dedup" yaml:"type_aware_dedup"`
}

// DefaultConfig returns the stock pipeline configuration: every refinement
// stage on, KG injection off (callers opt in to the graph output).
func DefaultConfig() Config {
	return Config{
		TimeNormalization:         true,
		SourceGrounding:           true,
		OverlapDedup:              true,
		ConfidenceScoring:         true,
		EntityResolution:          true,
		RelationInference:         true,
		KGInjection:               false,
		ConfidenceThreshold:       DefaultConfidenceThreshold,
		OverlapThreshold:          DefaultOverlapThreshold,
		EntitySimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Pipeline runs the refinement stages in a fixed order, each individually
// toggleable. A pipeline is bound to one source text; it is stateless across
// Process calls apart from that binding and the configuration.
type Pipeline struct {
	cfg        Config
	sourceFile string

	normalizer *TimeNormalizer
	grounder   *Grounder
	dedup      *Deduplicator
	scorer     *Scorer
	resolver   *Resolver
	inferrer   *Inferrer
	injector   *Injector

	// ProgressFn, when set, receives a short line per completed stage.
	ProgressFn func(stage, detail string)
}

// New builds a pipeline over one source text. sourceFile is the display name
// stamped onto items for provenance; it may be empty.
func New(sourceText string, cfg Config, sourceFile string) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		sourceFile: sourceFile,
		normalizer: NewTimeNormalizer(),
		grounder:   NewGrounder(sourceText),
		dedup:      NewDeduplicator(cfg.OverlapThreshold, cfg.TypeAwareDedup),
		scorer:     NewScorer(),
		resolver:   NewResolver(cfg.EntitySimilarityThreshold),
		inferrer:   NewInferrer(),
		injector:   NewInjector(cfg.ConfidenceThreshold),
	}
}

// Process runs the enabled stages over one batch and returns the refined
// items, inferred relations, the optional KG graph, and summary statistics.
func (p *Pipeline) Process(raw []*Item) *Result {
	items := raw
	relations := []Relation{}

	if p.cfg.TimeNormalization {
		items = p.normalizer.Process(items)
		p.progress("time_normalization", fmt.Sprintf("%d items", len(items)))
	}

	if p.cfg.SourceGrounding {
		items = p.grounder.Process(items)
		matched := 0
		for _, it := range items {
			if it.Location != nil && it.Location.MatchType != MatchNone {
				matched++
			}
		}
		p.progress("source_grounding", fmt.Sprintf("%d/%d matched", matched, len(items)))
	}

	// Provenance tag for KG output. This is the one sanctioned in-place
	// mutation; it runs before dedup so no later stage can double-tag.
	if p.sourceFile != "" {
		for _, it := range items {
			if it.SourceFile == "" {
				it.SourceFile = p.sourceFile
			}
		}
	}

	if p.cfg.OverlapDedup {
		before := len(items)
		items = p.dedup.Process(items)
		p.progress("overlap_dedup", fmt.Sprintf("removed %d, remaining %d", before-len(items), len(items)))
	}

	if p.cfg.ConfidenceScoring {
		items = p.scorer.Process(items)
		p.progress("confidence_scoring", fmt.Sprintf("avg %.3f", averageConfidence(items)))
	}

	if p.cfg.EntityResolution {
		before := countType(items, TypeEntity)
		items = p.resolver.Process(items)
		p.progress("entity_resolution", fmt.Sprintf("merged %d similar entities", before-countType(items, TypeEntity)))
	}

	if p.cfg.RelationInference {
		items, relations = p.inferrer.Process(items)
		p.progress("relation_inference", fmt.Sprintf("inferred %d relations", len(relations)))
	}

	var graph *Graph
	if p.cfg.KGInjection {
		graph = p.injector.Convert(items, relations)
		p.progress("kg_injection", fmt.Sprintf("%d entities, %d relations", len(graph.Entities), len(graph.Relations)))
	}

	return &Result{
		Extractions:       items,
		InferredRelations: relations,
		KGFormat:          graph,
		Stats:             computeStats(items, relations),
	}
}

func (p *Pipeline) progress(stage, detail string) {
	if p.ProgressFn != nil {
		p.ProgressFn(stage, detail)
	}
}

func countType(items []*Item, typ string) int {
	n := 0
	for _, it := range items {
		if it.Type == typ {
			n++
		}
	}
	return n
}

func averageConfidence(items []*Item) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, it := range items {
		sum += it.Confidence
	}
	return sum / float64(len(items))
}

func computeStats(items []*Item, relations []Relation) Stats {
	byType := make(map[string]int)
	matchQuality := make(map[string]int)
	var dist Distribution

	for _, it := range items {
		typ := it.Type
		if typ == "" {
			typ = "unknown"
		}
		byType[typ]++

		mt := MatchNone
		if it.Location != nil && it.Location.MatchType != "" {
			mt = it.Location.MatchType
		}
		matchQuality[string(mt)]++

		switch {
		case it.Confidence >= 0.7:
			dist.High++
		case it.Confidence >= 0.3:
			dist.Medium++
		default:
			dist.Low++
		}
	}

	return Stats{
		TotalExtractions:       len(items),
		ByType:                 byType,
		AvgConfidence:          round3(averageConfidence(items)),
		ConfidenceDistribution: dist,
		MatchQuality:           matchQuality,
		InferredRelations:      len(relations),
	}
}
