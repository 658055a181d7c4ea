// Package store provides the SQLite storage layer for refined resume
// extractions.
//
// One database file holds every imported resume, structured into the seven
// extraction types: candidate basics, work experiences, education history,
// a globally deduplicated skill table with per-candidate links, job
// intentions, self evaluations and certifications.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.refinery/resumes.db"

// Candidate is one imported resume's basic record.
type Candidate struct {
	ID             int64
	Name           string
	Gender         string
	Age            *int64
	Phone          string
	Email          string
	City           string
	EducationLevel string
	SourceFile     string
	RawJSON        string
	CreatedAt      time.Time
}

// Experience is one work history entry.
type Experience struct {
	ID             int64
	CandidateID    int64
	Company        string
	Title          string
	StartDate      string
	EndDate        string
	DurationMonths *int64
	Description    string
	ProjectsJSON   string
}

// Education is one schooling entry.
type Education struct {
	ID          int64
	CandidateID int64
	School      string
	Major       string
	Degree      string
	StartDate   string
	EndDate     string
	GPA         string
}

// Skill is a candidate's link to a globally shared skill row.
type Skill struct {
	Name     string
	Category string
	Level    string
	Years    *int64
}

// JobIntention is one stated target position.
type JobIntention struct {
	ID          int64
	CandidateID int64
	Position    string
	Industry    string
	City        string
	SalaryMin   *int64
	SalaryMax   *int64
	EntryDate   string
}

// SelfEvaluation is the candidate's own summary text plus extracted traits.
type SelfEvaluation struct {
	ID          int64
	CandidateID int64
	Text        string
	TraitsJSON  string
}

// Certification is one credential entry.
type Certification struct {
	ID          int64
	CandidateID int64
	Name        string
	Issuer      string
	Date        string
	Expiry      string
}

// CandidateDetail is a candidate with every associated table joined in.
type CandidateDetail struct {
	Candidate
	Experiences     []*Experience
	Educations      []*Education
	Skills          []*Skill
	JobIntentions   []*JobIntention
	SelfEvaluations []*SelfEvaluation
	Certifications  []*Certification
}

// CandidateListing is one row of the `list` view with per-table counts.
type CandidateListing struct {
	ID             int64
	Name           string
	City           string
	EducationLevel string
	SourceFile     string
	CreatedAt      time.Time
	ExpCount       int64
	EduCount       int64
	SkillCount     int64
}

// SearchQuery combines the supported candidate filters. All set fields must
// match; Query is split into keywords each matched against name, city,
// education level and skill names.
type SearchQuery struct {
	Query     string
	Skill     string
	City      string
	Education string
	MinYears  int
}

// GroupCount is one bucket of a grouped statistic.
type GroupCount struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Count    int64  `json:"count"`
}

// DBStats summarizes the database, optionally grouped by one dimension.
type DBStats struct {
	TotalCandidates     int64         `json:"total_candidates"`
	TotalExperiences    int64         `json:"total_experiences,omitempty"`
	TotalEducations     int64         `json:"total_educations,omitempty"`
	TotalSkills         int64         `json:"total_skills,omitempty"`
	TotalCertifications int64         `json:"total_certifications,omitempty"`
	AvgExperiences      float64       `json:"avg_experiences_per_candidate,omitempty"`
	BySkill             []*GroupCount `json:"by_skill,omitempty"`
	ByEducation         []*GroupCount `json:"by_education,omitempty"`
	ByCity              []*GroupCount `json:"by_city,omitempty"`
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// SQLiteStore is the SQLite-backed resume store.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the resume database.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only, never auto-vacuum.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
