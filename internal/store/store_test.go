package store

import (
	"context"
	"errors"
	"testing"

	"github.com/hurttlocker/refinery/internal/refine"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewStore(StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResume() []*refine.Item {
	return []*refine.Item{
		{
			Type: "candidate",
			Text: "张三",
			Attributes: map[string]any{
				"name":            "张三",
				"gender":          "男",
				"age":             float64(29),
				"phone":           "13800138000",
				"city":            "北京",
				"education_level": "本科",
			},
		},
		{
			Type: "experience",
			Attributes: map[string]any{
				"company":         "字节跳动",
				"title":           "高级开发工程师",
				"period_start":    "2020-01",
				"period_end":      "2023-06",
				"duration_months": float64(42),
			},
		},
		{
			Type: "education",
			Attributes: map[string]any{
				"school":       "北京大学",
				"major":        "计算机科学",
				"degree":       "本科",
				"period_start": "2014-09",
				"period_end":   "2018-06",
			},
		},
		{
			Type: "skill",
			Text: "Python",
			Attributes: map[string]any{
				"name":     "Python",
				"category": "programming",
				"years":    float64(5),
			},
		},
		{
			Type: "job_intention",
			Attributes: map[string]any{
				"position":   "后端工程师",
				"city":       "北京",
				"salary_min": float64(30),
				"salary_max": float64(45),
			},
		},
		{
			Type: "self_evaluation",
			Text: "责任心强，学习能力突出",
			Attributes: map[string]any{
				"traits": []any{"责任心强", "学习能力突出"},
			},
		},
		{
			Type: "certification",
			Attributes: map[string]any{
				"name":   "PMP",
				"issuer": "PMI",
				"date":   "2022-03",
			},
		},
	}
}

func TestImportExtractions_FullResume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.ImportExtractions(ctx, sampleResume(), "张三_北京.pdf")
	if err != nil {
		t.Fatalf("ImportExtractions: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero candidate ID")
	}

	detail, err := s.GetCandidate(ctx, id)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if detail.Name != "张三" || detail.City != "北京" {
		t.Fatalf("unexpected candidate: %+v", detail.Candidate)
	}
	if detail.Age == nil || *detail.Age != 29 {
		t.Fatalf("expected age 29, got %v", detail.Age)
	}
	if detail.SourceFile != "张三_北京.pdf" {
		t.Fatalf("unexpected source file %q", detail.SourceFile)
	}
	if len(detail.Experiences) != 1 {
		t.Fatalf("expected 1 experience, got %d", len(detail.Experiences))
	}
	exp := detail.Experiences[0]
	if exp.Company != "字节跳动" || exp.StartDate != "2020-01" || exp.EndDate != "2023-06" {
		t.Fatalf("unexpected experience: %+v", exp)
	}
	if exp.DurationMonths == nil || *exp.DurationMonths != 42 {
		t.Fatalf("expected duration 42 months, got %v", exp.DurationMonths)
	}
	if len(detail.Educations) != 1 || detail.Educations[0].School != "北京大学" {
		t.Fatalf("unexpected educations: %+v", detail.Educations)
	}
	if len(detail.Skills) != 1 || detail.Skills[0].Name != "Python" {
		t.Fatalf("unexpected skills: %+v", detail.Skills)
	}
	if detail.Skills[0].Years == nil || *detail.Skills[0].Years != 5 {
		t.Fatalf("expected 5 skill years, got %v", detail.Skills[0].Years)
	}
	if len(detail.JobIntentions) != 1 || detail.JobIntentions[0].Position != "后端工程师" {
		t.Fatalf("unexpected job intentions: %+v", detail.JobIntentions)
	}
	if len(detail.SelfEvaluations) != 1 {
		t.Fatalf("expected 1 self evaluation, got %d", len(detail.SelfEvaluations))
	}
	if detail.SelfEvaluations[0].Text != "责任心强，学习能力突出" {
		t.Fatalf("unexpected self evaluation text %q", detail.SelfEvaluations[0].Text)
	}
	if len(detail.Certifications) != 1 || detail.Certifications[0].Issuer != "PMI" {
		t.Fatalf("unexpected certifications: %+v", detail.Certifications)
	}
	if detail.RawJSON == "" {
		t.Fatalf("expected raw_json to be stored")
	}
}

func TestImportExtractions_NoCandidate(t *testing.T) {
	s := newTestStore(t)
	items := []*refine.Item{{Type: "skill", Text: "Go"}}
	if _, err := s.ImportExtractions(context.Background(), items, "x.pdf"); !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
}

func TestImportExtractions_LegacyDateKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []*refine.Item{
		{Type: "candidate", Text: "李四", Attributes: map[string]any{"name": "李四"}},
		{Type: "experience", Attributes: map[string]any{
			"company": "Moonshot", "start_date": "2021-03", "end_date": "2024-01",
		}},
	}
	id, err := s.ImportExtractions(ctx, items, "")
	if err != nil {
		t.Fatalf("ImportExtractions: %v", err)
	}
	detail, err := s.GetCandidate(ctx, id)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if detail.Experiences[0].StartDate != "2021-03" || detail.Experiences[0].EndDate != "2024-01" {
		t.Fatalf("legacy date keys not honored: %+v", detail.Experiences[0])
	}
}

func TestSkillsDedupedAcrossCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(name string) []*refine.Item {
		return []*refine.Item{
			{Type: "candidate", Attributes: map[string]any{"name": name}},
			{Type: "skill", Attributes: map[string]any{"name": "Go", "category": "programming"}},
		}
	}
	if _, err := s.ImportExtractions(ctx, mk("甲"), ""); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := s.ImportExtractions(ctx, mk("乙"), ""); err != nil {
		t.Fatalf("second import: %v", err)
	}

	stats, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCandidates != 2 {
		t.Fatalf("expected 2 candidates, got %d", stats.TotalCandidates)
	}
	if stats.TotalSkills != 1 {
		t.Fatalf("expected shared skill row, got %d", stats.TotalSkills)
	}
}

func TestGetCandidate_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetCandidate(context.Background(), 999); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}

func TestDeleteCandidate_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.ImportExtractions(ctx, sampleResume(), "")
	if err != nil {
		t.Fatalf("ImportExtractions: %v", err)
	}
	if err := s.DeleteCandidate(ctx, id); err != nil {
		t.Fatalf("DeleteCandidate: %v", err)
	}
	if _, err := s.GetCandidate(ctx, id); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected candidate gone, got %v", err)
	}

	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM experiences").Scan(&n); err != nil {
		t.Fatalf("counting experiences: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected cascade delete of experiences, got %d rows", n)
	}

	if err := s.DeleteCandidate(ctx, id); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound on second delete, got %v", err)
	}
}
