package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hurttlocker/refinery/internal/refine"
)

// ErrNoCandidate is returned when an extraction batch has no candidate item
// to anchor the resume record.
var ErrNoCandidate = errors.New("extractions must contain at least one candidate item")

// ImportExtractions stores one refined resume. Items are grouped by type;
// exactly one candidates row anchors the import and every other supported
// type attaches to it. Returns the new candidate's row ID.
func (s *SQLiteStore) ImportExtractions(ctx context.Context, items []*refine.Item, sourceFile string) (int64, error) {
	byType := map[string][]*refine.Item{}
	for _, it := range items {
		t := it.Type
		if t == "" {
			t = "unknown"
		}
		byType[t] = append(byType[t], it)
	}

	candidates := byType["candidate"]
	if len(candidates) == 0 {
		return 0, ErrNoCandidate
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	candidateID, err := insertCandidate(ctx, tx, candidates[0], sourceFile)
	if err != nil {
		return 0, err
	}

	for _, it := range byType["experience"] {
		if err := insertExperience(ctx, tx, candidateID, it); err != nil {
			return 0, err
		}
	}
	for _, it := range byType["education"] {
		if err := insertEducation(ctx, tx, candidateID, it); err != nil {
			return 0, err
		}
	}
	for _, it := range byType["skill"] {
		if err := insertSkill(ctx, tx, candidateID, it); err != nil {
			return 0, err
		}
	}
	for _, it := range byType["self_evaluation"] {
		if err := insertSelfEvaluation(ctx, tx, candidateID, it); err != nil {
			return 0, err
		}
	}
	for _, it := range byType["job_intention"] {
		if err := insertJobIntention(ctx, tx, candidateID, it); err != nil {
			return 0, err
		}
	}
	for _, it := range byType["certification"] {
		if err := insertCertification(ctx, tx, candidateID, it); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return candidateID, nil
}

func insertCandidate(ctx context.Context, tx *sql.Tx, it *refine.Item, sourceFile string) (int64, error) {
	name := it.Attr("name")
	if name == "" {
		name = it.Text
	}
	raw, err := json.Marshal(it)
	if err != nil {
		return 0, fmt.Errorf("marshaling candidate: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO candidates
		 (name, gender, age, phone, email, city, education_level, source_file, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name,
		nullStr(it.Attr("gender")),
		nullInt(attrInt(it, "age")),
		nullStr(it.Attr("phone")),
		nullStr(it.Attr("email")),
		nullStr(it.Attr("city")),
		nullStr(it.Attr("education_level")),
		sourceFile,
		string(raw),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting candidate: %w", err)
	}
	return res.LastInsertId()
}

func insertExperience(ctx context.Context, tx *sql.Tx, candidateID int64, it *refine.Item) error {
	var projects any
	if p, ok := it.Attributes["projects"]; ok && p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshaling projects: %w", err)
		}
		projects = string(b)
	}
	// period_start/period_end is the canonical key pair; start_date/end_date
	// accepted from older extractors.
	start := firstAttr(it, "period_start", "start_date")
	end := firstAttr(it, "period_end", "end_date")

	_, err := tx.ExecContext(ctx,
		`INSERT INTO experiences
		 (candidate_id, company, title, start_date, end_date, duration_months, description, projects)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		candidateID,
		nullStr(it.Attr("company")),
		nullStr(it.Attr("title")),
		nullStr(start),
		nullStr(end),
		nullInt(attrInt(it, "duration_months")),
		nullStr(it.Attr("description")),
		projects,
	)
	if err != nil {
		return fmt.Errorf("inserting experience: %w", err)
	}
	return nil
}

func insertEducation(ctx context.Context, tx *sql.Tx, candidateID int64, it *refine.Item) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO educations
		 (candidate_id, school, major, degree, start_date, end_date, gpa)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		candidateID,
		nullStr(it.Attr("school")),
		nullStr(it.Attr("major")),
		nullStr(it.Attr("degree")),
		nullStr(firstAttr(it, "period_start", "start_date")),
		nullStr(firstAttr(it, "period_end", "end_date")),
		nullStr(it.Attr("gpa")),
	)
	if err != nil {
		return fmt.Errorf("inserting education: %w", err)
	}
	return nil
}

func insertSkill(ctx context.Context, tx *sql.Tx, candidateID int64, it *refine.Item) error {
	name := it.Attr("name")
	if name == "" {
		name = it.Text
	}
	if name == "" {
		return nil
	}
	category := it.Attr("category")

	var skillID int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM skills WHERE name = ? AND category IS ?",
		name, nullStr(category),
	).Scan(&skillID)
	if errors.Is(err, sql.ErrNoRows) {
		res, insErr := tx.ExecContext(ctx,
			"INSERT INTO skills (name, category) VALUES (?, ?)",
			name, nullStr(category),
		)
		if insErr != nil {
			return fmt.Errorf("inserting skill: %w", insErr)
		}
		skillID, err = res.LastInsertId()
	}
	if err != nil {
		return fmt.Errorf("resolving skill %q: %w", name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO candidate_skills (candidate_id, skill_id, level, years)
		 VALUES (?, ?, ?, ?)`,
		candidateID, skillID,
		nullStr(it.Attr("level")),
		nullInt(attrInt(it, "years")),
	)
	if err != nil {
		return fmt.Errorf("linking skill %q: %w", name, err)
	}
	return nil
}

func insertSelfEvaluation(ctx context.Context, tx *sql.Tx, candidateID int64, it *refine.Item) error {
	var traits any
	if tr, ok := it.Attributes["traits"]; ok && tr != nil {
		b, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("marshaling traits: %w", err)
		}
		traits = string(b)
	}
	text := it.Attr("text")
	if text == "" {
		text = it.Text
	}

	_, err := tx.ExecContext(ctx,
		"INSERT INTO self_evaluations (candidate_id, text, traits) VALUES (?, ?, ?)",
		candidateID, nullStr(text), traits,
	)
	if err != nil {
		return fmt.Errorf("inserting self evaluation: %w", err)
	}
	return nil
}

func insertJobIntention(ctx context.Context, tx *sql.Tx, candidateID int64, it *refine.Item) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO job_intentions
		 (candidate_id, position, industry, city, salary_min, salary_max, entry_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		candidateID,
		nullStr(it.Attr("position")),
		nullStr(it.Attr("industry")),
		nullStr(it.Attr("city")),
		nullInt(attrInt(it, "salary_min")),
		nullInt(attrInt(it, "salary_max")),
		nullStr(it.Attr("entry_date")),
	)
	if err != nil {
		return fmt.Errorf("inserting job intention: %w", err)
	}
	return nil
}

func insertCertification(ctx context.Context, tx *sql.Tx, candidateID int64, it *refine.Item) error {
	name := it.Attr("name")
	if name == "" {
		name = it.Text
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO certifications (candidate_id, name, issuer, date, expiry)
		 VALUES (?, ?, ?, ?, ?)`,
		candidateID,
		nullStr(name),
		nullStr(it.Attr("issuer")),
		nullStr(it.Attr("date")),
		nullStr(it.Attr("expiry")),
	)
	if err != nil {
		return fmt.Errorf("inserting certification: %w", err)
	}
	return nil
}

// firstAttr returns the first non-empty attribute among keys.
func firstAttr(it *refine.Item, keys ...string) string {
	for _, k := range keys {
		if v := it.Attr(k); v != "" {
			return v
		}
	}
	return ""
}

// attrInt reads an attribute as an integer, tolerating float64 (JSON
// numbers) and numeric strings. Returns nil when absent or unparseable.
func attrInt(it *refine.Item, key string) *int64 {
	if it.Attributes == nil {
		return nil
	}
	v, ok := it.Attributes[key]
	if !ok || v == nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		n := int64(x)
		return &n
	case int:
		n := int64(x)
		return &n
	case int64:
		return &x
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
