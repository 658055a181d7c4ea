package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Recruiting platforms encode metadata into resume filenames:
//
//	【岗位_城市 薪资K】姓名 年限
//	【【2026秋招】游戏算法工程师_成都 15-16K】姚智强 26年应届生
//	【高级Web后端开发工程师_成都 18-25K】唐双 6年
//
// FilenameMeta recovers that metadata so it can seed context hints for the
// upstream extractor and provenance for storage.

// FilenameMeta holds whatever could be recovered from a resume filename.
// Zero fields mean the segment was absent or unparseable.
type FilenameMeta struct {
	Position      string   `json:"position,omitempty"`
	City          string   `json:"city,omitempty"`
	SalaryText    string   `json:"salary_text,omitempty"`
	SalaryMin     int      `json:"salary_min,omitempty"`
	SalaryMax     int      `json:"salary_max,omitempty"`
	CandidateName string   `json:"candidate_name,omitempty"`
	YearsText     string   `json:"years_text,omitempty"`
	Years         int      `json:"years_of_experience,omitempty"`
	GraduateYear  int      `json:"graduate_year,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

var (
	reBracket     = regexp.MustCompile(`[【\[](.+)[】\]]([^【\[]*)`)
	reNested      = regexp.MustCompile(`^[【\[]([^】\]]+)[】\]]\s*(.*)`)
	rePositionSal = regexp.MustCompile(`^(.+?)_(.+?)\s+(\d+(?:-\d+)?K)`)
	rePositionStr = regexp.MustCompile(`^(.+?)_(.+)`)
	reSalaryRange = regexp.MustCompile(`^(\d+)-(\d+)K`)
	reSalaryFlat  = regexp.MustCompile(`^(\d+)K`)
	reNameYears   = regexp.MustCompile(`^(\S+)\s*(.*)`)
	reYears       = regexp.MustCompile(`^(\d+)年`)
)

// ParseFilename extracts recruiting metadata from a resume filename. The
// path and extension are ignored. An empty result means the filename does
// not follow the bracketed platform convention.
func ParseFilename(filename string) FilenameMeta {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var meta FilenameMeta
	m := reBracket.FindStringSubmatch(stem)
	if m == nil {
		return meta
	}
	inner := strings.TrimSpace(m[1])
	outer := strings.TrimSpace(m[2])

	// Nested bracket: a campaign tag before the position segment.
	if n := reNested.FindStringSubmatch(inner); n != nil {
		meta.Tags = []string{strings.TrimSpace(n[1])}
		inner = strings.TrimSpace(n[2])
	}

	if p := rePositionSal.FindStringSubmatch(inner); p != nil {
		meta.Position = strings.TrimSpace(p[1])
		meta.City = strings.TrimSpace(p[2])
		meta.SalaryText = p[3]
		if r := reSalaryRange.FindStringSubmatch(p[3]); r != nil {
			meta.SalaryMin = mustAtoi(r[1]) * 1000
			meta.SalaryMax = mustAtoi(r[2]) * 1000
		} else if f := reSalaryFlat.FindStringSubmatch(p[3]); f != nil {
			meta.SalaryMin = mustAtoi(f[1]) * 1000
		}
	} else if p := rePositionStr.FindStringSubmatch(inner); p != nil {
		meta.Position = strings.TrimSpace(p[1])
		meta.City = strings.TrimSpace(p[2])
	}

	if outer != "" {
		if n := reNameYears.FindStringSubmatch(outer); n != nil {
			meta.CandidateName = strings.TrimSpace(n[1])
			yearsPart := strings.TrimSpace(n[2])
			if yearsPart != "" {
				if y := reYears.FindStringSubmatch(yearsPart); y != nil {
					meta.YearsText = yearsPart
					yr := mustAtoi(y[1])
					if strings.Contains(yearsPart, "应届") {
						if yr < 100 {
							yr += 2000
						}
						meta.GraduateYear = yr
					} else {
						meta.Years = yr
					}
				}
			}
		}
	}

	return meta
}

// ContextHints renders the metadata as a human-readable hint block for the
// upstream extractor. Empty when nothing was recovered.
func (m FilenameMeta) ContextHints() string {
	var hints []string
	if m.CandidateName != "" {
		hints = append(hints, "Candidate name: "+m.CandidateName)
	}
	if m.Position != "" {
		hints = append(hints, "Applied position: "+m.Position)
	}
	if m.City != "" {
		hints = append(hints, "Target city: "+m.City)
	}
	if m.SalaryText != "" {
		hints = append(hints, "Salary range: "+m.SalaryText)
	}
	if m.Years > 0 {
		hints = append(hints, fmt.Sprintf("Years of experience: %d", m.Years))
	}
	if m.GraduateYear > 0 {
		hints = append(hints, fmt.Sprintf("Graduate year: %d (fresh graduate)", m.GraduateYear))
	}
	if len(m.Tags) > 0 {
		hints = append(hints, "Tags: "+strings.Join(m.Tags, ", "))
	}
	return strings.Join(hints, "\n")
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
