package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/hurttlocker/refinery/internal/refine"
)

func seedCandidates(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	resumes := [][]*refine.Item{
		{
			{Type: "candidate", Attributes: map[string]any{
				"name": "张三", "city": "北京", "education_level": "本科",
			}},
			{Type: "skill", Attributes: map[string]any{"name": "Python"}},
			{Type: "experience", Attributes: map[string]any{
				"company": "字节跳动", "duration_months": float64(48),
			}},
		},
		{
			{Type: "candidate", Attributes: map[string]any{
				"name": "李四", "city": "上海", "education_level": "硕士",
			}},
			{Type: "skill", Attributes: map[string]any{"name": "Go"}},
			{Type: "experience", Attributes: map[string]any{
				"company": "蚂蚁集团", "duration_months": float64(24),
			}},
		},
		{
			{Type: "candidate", Attributes: map[string]any{
				"name": "王五", "city": "北京", "education_level": "硕士",
			}},
			{Type: "skill", Attributes: map[string]any{"name": "Python"}},
		},
	}
	for i, items := range resumes {
		if _, err := s.ImportExtractions(ctx, items, ""); err != nil {
			t.Fatalf("seeding resume %d: %v", i, err)
		}
	}
}

func names(cs []*Candidate) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestSearchCandidates_Filters(t *testing.T) {
	s := newTestStore(t)
	seedCandidates(t, s)
	ctx := context.Background()

	tests := []struct {
		name string
		q    SearchQuery
		want []string
	}{
		{"by skill", SearchQuery{Skill: "Python"}, []string{"王五", "张三"}},
		{"by city", SearchQuery{City: "北京"}, []string{"王五", "张三"}},
		{"by education", SearchQuery{Education: "硕士"}, []string{"王五", "李四"}},
		{"skill and city", SearchQuery{Skill: "Python", City: "上海"}, nil},
		{"min years met", SearchQuery{MinYears: 3}, []string{"张三"}},
		{"min years excludes all", SearchQuery{MinYears: 10}, nil},
		{"keyword query", SearchQuery{Query: "Go"}, []string{"李四"}},
		{"keyword with stop words", SearchQuery{Query: "3 years of Python in 北京"}, []string{"王五", "张三"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchCandidates(ctx, tt.q)
			if err != nil {
				t.Fatalf("SearchCandidates: %v", err)
			}
			if !reflect.DeepEqual(names(got), tt.want) {
				t.Fatalf("got %v, want %v", names(got), tt.want)
			}
		})
	}
}

func TestListCandidates_Counts(t *testing.T) {
	s := newTestStore(t)
	seedCandidates(t, s)

	listings, err := s.ListCandidates(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}
	// Newest first: 王五 has a skill but no experience.
	first := listings[0]
	if first.Name != "王五" || first.ExpCount != 0 || first.SkillCount != 1 {
		t.Fatalf("unexpected first listing: %+v", first)
	}
	last := listings[2]
	if last.Name != "张三" || last.ExpCount != 1 || last.SkillCount != 1 {
		t.Fatalf("unexpected last listing: %+v", last)
	}
}

func TestListCandidates_Pagination(t *testing.T) {
	s := newTestStore(t)
	seedCandidates(t, s)

	page, err := s.ListCandidates(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(page) != 1 || page[0].Name != "李四" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestStats_Grouped(t *testing.T) {
	s := newTestStore(t)
	seedCandidates(t, s)
	ctx := context.Background()

	bySkill, err := s.Stats(ctx, "skill")
	if err != nil {
		t.Fatalf("Stats(skill): %v", err)
	}
	if len(bySkill.BySkill) != 2 {
		t.Fatalf("expected 2 skill groups, got %d", len(bySkill.BySkill))
	}
	if bySkill.BySkill[0].Name != "Python" || bySkill.BySkill[0].Count != 2 {
		t.Fatalf("unexpected top skill: %+v", bySkill.BySkill[0])
	}

	byCity, err := s.Stats(ctx, "city")
	if err != nil {
		t.Fatalf("Stats(city): %v", err)
	}
	if byCity.ByCity[0].Name != "北京" || byCity.ByCity[0].Count != 2 {
		t.Fatalf("unexpected top city: %+v", byCity.ByCity[0])
	}

	byEdu, err := s.Stats(ctx, "education")
	if err != nil {
		t.Fatalf("Stats(education): %v", err)
	}
	if byEdu.ByEducation[0].Name != "硕士" || byEdu.ByEducation[0].Count != 2 {
		t.Fatalf("unexpected top education: %+v", byEdu.ByEducation[0])
	}

	if _, err := s.Stats(ctx, "shoe_size"); err == nil {
		t.Fatalf("expected error for unknown dimension")
	}
}

func TestStats_Overview(t *testing.T) {
	s := newTestStore(t)
	seedCandidates(t, s)

	stats, err := s.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCandidates != 3 || stats.TotalExperiences != 2 || stats.TotalSkills != 2 {
		t.Fatalf("unexpected overview: %+v", stats)
	}
	// Two candidates have experiences, one each.
	if stats.AvgExperiences != 1.0 {
		t.Fatalf("expected avg 1.0, got %v", stats.AvgExperiences)
	}
}

func TestQueryKeywords(t *testing.T) {
	got := queryKeywords("3 years of Python, 北京/backend")
	want := []string{"Python", "北京", "backend"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("queryKeywords = %v, want %v", got, want)
	}
	if queryKeywords("") != nil {
		t.Fatalf("empty query should yield nil")
	}
}
