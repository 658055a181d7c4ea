package refine

import (
	"encoding/json"
	"strings"
	"testing"
)

const resumeSource = `姓名：张三
工作经历：ByteDance 2020/07 - 至今，高级开发工程师
教育背景：Peking University 计算机科学 本科
技能：Python, Java, MySQL
证书：AWS SAA
`

func resumeItems() []*Item {
	return []*Item{
		{
			ID: "ext_001", Type: TypeCandidate, Text: "张三",
			Summary:    "张三，Python 开发",
			Attributes: map[string]any{"name": "张三", "city": "北京"},
		},
		{
			ID: "ext_002", Type: "experience", Text: "ByteDance 2020/07 - 至今",
			Attributes: map[string]any{"company": "ByteDance", "period_start": "2020/07", "period_end": "至今"},
		},
		{
			ID: "ext_003", Type: "education", Text: "Peking University 计算机科学 本科",
			Attributes: map[string]any{"school": "Peking University", "degree": "本科"},
		},
		{ID: "ext_004", Type: "skill", Text: "Python", Attributes: map[string]any{"name": "Python"}},
		{ID: "ext_005", Type: "skill", Text: "Java", Attributes: map[string]any{"name": "Java"}},
		{ID: "ext_006", Type: "certification", Text: "AWS SAA", Attributes: map[string]any{"name": "AWS SAA"}},
	}
}

func TestPipelineFullRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KGInjection = true
	p := New(resumeSource, cfg, "zhangsan.txt")

	var stages []string
	p.ProgressFn = func(stage, detail string) { stages = append(stages, stage) }

	result := p.Process(resumeItems())

	if result.Stats.TotalExtractions != len(result.Extractions) {
		t.Fatalf("stats total %d != %d extractions", result.Stats.TotalExtractions, len(result.Extractions))
	}
	if result.Stats.TotalExtractions == 0 {
		t.Fatal("pipeline dropped everything")
	}
	if result.Stats.AvgConfidence <= 0 {
		t.Fatal("expected a positive average confidence")
	}
	if result.Stats.ByType[TypeCandidate] != 1 {
		t.Fatalf("by_type missing candidate: %v", result.Stats.ByType)
	}
	if result.Stats.InferredRelations != len(result.InferredRelations) {
		t.Fatal("stats inferred_relations out of sync")
	}
	if len(result.InferredRelations) != 5 {
		t.Fatalf("expected 5 inferred relations, got %d", len(result.InferredRelations))
	}
	if result.KGFormat == nil {
		t.Fatal("kg_injection enabled but no graph returned")
	}

	// Every item grounded against this source and tagged with its file.
	matched := 0
	for _, it := range result.Extractions {
		if it.SourceFile != "zhangsan.txt" {
			t.Fatalf("item %s missing source_file tag", it.ID)
		}
		if it.Confidence <= 0 || it.Confidence > 1 {
			t.Fatalf("item %s confidence %f out of range", it.ID, it.Confidence)
		}
		if it.Location != nil && it.Location.MatchType != MatchNone {
			matched++
		}
	}
	if matched == 0 {
		t.Fatal("no extraction grounded against the source")
	}

	// Dates normalized before storage-facing output.
	for _, it := range result.Extractions {
		if it.Type == "experience" && it.Attributes["period_start"] != "2020.07" {
			t.Fatalf("period_start not normalized: %v", it.Attributes["period_start"])
		}
	}

	wantStages := []string{
		"time_normalization", "source_grounding", "overlap_dedup",
		"confidence_scoring", "entity_resolution", "relation_inference", "kg_injection",
	}
	if strings.Join(stages, ",") != strings.Join(wantStages, ",") {
		t.Fatalf("stage order %v, want %v", stages, wantStages)
	}
}

func TestPipelineStageToggles(t *testing.T) {
	cfg := Config{} // everything off
	p := New(resumeSource, cfg, "")

	raw := resumeItems()
	result := p.Process(raw)

	if len(result.Extractions) != len(raw) {
		t.Fatalf("disabled pipeline changed item count: %d", len(result.Extractions))
	}
	if result.KGFormat != nil {
		t.Fatal("kg disabled but graph present")
	}
	if len(result.InferredRelations) != 0 {
		t.Fatal("inference disabled but relations present")
	}
	for i, it := range result.Extractions {
		if it != raw[i] {
			t.Fatalf("disabled pipeline must pass items through untouched")
		}
	}
}

func TestPipelineDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	a := New(resumeSource, cfg, "r.txt").Process(resumeItems())
	b := New(resumeSource, cfg, "r.txt").Process(resumeItems())

	aj, _ := json.Marshal(a.Stats)
	bj, _ := json.Marshal(b.Stats)
	if string(aj) != string(bj) {
		t.Fatalf("re-running the pipeline changed stats:\n%s\n%s", aj, bj)
	}
}

func TestPipelineResultRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KGInjection = true
	result := New(resumeSource, cfg, "r.txt").Process(resumeItems())

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded.Extractions) != len(result.Extractions) {
		t.Fatalf("round trip changed item count: %d -> %d", len(result.Extractions), len(decoded.Extractions))
	}
	if decoded.Stats.TotalExtractions != result.Stats.TotalExtractions {
		t.Fatalf("round trip changed total_extractions: %d -> %d",
			result.Stats.TotalExtractions, decoded.Stats.TotalExtractions)
	}
	for i, it := range decoded.Extractions {
		orig := result.Extractions[i]
		if orig.Location == nil {
			continue
		}
		os, oe, ook := orig.Location.Interval()
		ds, de, dok := it.Location.Interval()
		if ook != dok || os != ds || oe != de {
			t.Fatalf("round trip changed interval of item %d", i)
		}
	}
}

func TestPipelineConfidenceBands(t *testing.T) {
	stats := computeStats([]*Item{
		{Confidence: 0.9},
		{Confidence: 0.7},
		{Confidence: 0.5},
		{Confidence: 0.3},
		{Confidence: 0.1},
	}, nil)

	if stats.ConfidenceDistribution.High != 2 {
		t.Fatalf("high = %d, want 2", stats.ConfidenceDistribution.High)
	}
	if stats.ConfidenceDistribution.Medium != 2 {
		t.Fatalf("medium = %d, want 2", stats.ConfidenceDistribution.Medium)
	}
	if stats.ConfidenceDistribution.Low != 1 {
		t.Fatalf("low = %d, want 1", stats.ConfidenceDistribution.Low)
	}
}
