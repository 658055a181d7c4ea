package store

import "fmt"

// migrate creates all tables and indexes if they don't exist. The schema is
// small enough that idempotent DDL replaces versioned migrations.
func (s *SQLiteStore) migrate() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			gender TEXT,
			age INTEGER,
			phone TEXT,
			email TEXT,
			city TEXT,
			education_level TEXT,
			source_file TEXT,
			raw_json TEXT,
			created_at TEXT DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS experiences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id INTEGER NOT NULL,
			company TEXT,
			title TEXT,
			start_date TEXT,
			end_date TEXT,
			duration_months INTEGER,
			description TEXT,
			projects TEXT,
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS educations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id INTEGER NOT NULL,
			school TEXT,
			major TEXT,
			degree TEXT,
			start_date TEXT,
			end_date TEXT,
			gpa TEXT,
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS skills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category TEXT,
			UNIQUE(name, category)
		)`,
		`CREATE TABLE IF NOT EXISTS candidate_skills (
			candidate_id INTEGER NOT NULL,
			skill_id INTEGER NOT NULL,
			level TEXT,
			years INTEGER,
			PRIMARY KEY (candidate_id, skill_id),
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE,
			FOREIGN KEY (skill_id) REFERENCES skills(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS job_intentions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id INTEGER NOT NULL,
			position TEXT,
			industry TEXT,
			city TEXT,
			salary_min INTEGER,
			salary_max INTEGER,
			entry_date TEXT,
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS self_evaluations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id INTEGER NOT NULL,
			text TEXT,
			traits TEXT,
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS certifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id INTEGER NOT NULL,
			name TEXT,
			issuer TEXT,
			date TEXT,
			expiry TEXT,
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exp_candidate ON experiences(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edu_candidate ON educations(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cs_candidate ON candidate_skills(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ji_candidate ON job_intentions(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_se_candidate ON self_evaluations(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cert_candidate ON certifications(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_city ON candidates(city)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_edu ON candidates(education_level)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}
	return nil
}
