package ingest

import (
	"strings"
	"testing"
)

func TestParseFilenameFull(t *testing.T) {
	meta := ParseFilename("【高级Web后端开发工程师_成都 18-25K】唐双 6年.pdf")

	if meta.Position != "高级Web后端开发工程师" {
		t.Errorf("position = %q", meta.Position)
	}
	if meta.City != "成都" {
		t.Errorf("city = %q", meta.City)
	}
	if meta.SalaryText != "18-25K" || meta.SalaryMin != 18000 || meta.SalaryMax != 25000 {
		t.Errorf("salary = %q %d-%d", meta.SalaryText, meta.SalaryMin, meta.SalaryMax)
	}
	if meta.CandidateName != "唐双" {
		t.Errorf("candidate = %q", meta.CandidateName)
	}
	if meta.Years != 6 {
		t.Errorf("years = %d", meta.Years)
	}
}

func TestParseFilenameNestedTag(t *testing.T) {
	meta := ParseFilename("【【2026秋招】游戏算法工程师_成都 15-16K】姚智强 26年应届生.pdf")

	if len(meta.Tags) != 1 || meta.Tags[0] != "2026秋招" {
		t.Errorf("tags = %v", meta.Tags)
	}
	if meta.Position != "游戏算法工程师" {
		t.Errorf("position = %q", meta.Position)
	}
	if meta.GraduateYear != 2026 {
		t.Errorf("graduate year = %d", meta.GraduateYear)
	}
	if meta.Years != 0 {
		t.Errorf("fresh graduate should not carry years of experience, got %d", meta.Years)
	}
}

func TestParseFilenamePositionOnly(t *testing.T) {
	meta := ParseFilename("/tmp/resumes/【测试工程师_上海】王五.docx")
	if meta.Position != "测试工程师" || meta.City != "上海" {
		t.Errorf("position/city = %q/%q", meta.Position, meta.City)
	}
	if meta.CandidateName != "王五" {
		t.Errorf("candidate = %q", meta.CandidateName)
	}
	if meta.SalaryText != "" {
		t.Errorf("unexpected salary %q", meta.SalaryText)
	}
}

func TestParseFilenameUnstructured(t *testing.T) {
	meta := ParseFilename("plain_resume.txt")
	if meta.Position != "" || meta.CandidateName != "" || meta.Tags != nil {
		t.Errorf("expected empty meta, got %+v", meta)
	}
	if meta.ContextHints() != "" {
		t.Errorf("expected no hints, got %q", meta.ContextHints())
	}
}

func TestContextHints(t *testing.T) {
	meta := ParseFilename("【高级Web后端开发工程师_成都 18-25K】唐双 6年.pdf")
	hints := meta.ContextHints()

	for _, want := range []string{
		"Candidate name: 唐双",
		"Applied position: 高级Web后端开发工程师",
		"Target city: 成都",
		"Salary range: 18-25K",
		"Years of experience: 6",
	} {
		if !strings.Contains(hints, want) {
			t.Errorf("hints missing %q:\n%s", want, hints)
		}
	}
}
