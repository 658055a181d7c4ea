package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrCandidateNotFound is returned when a candidate ID has no row.
var ErrCandidateNotFound = errors.New("candidate not found")

// stopWords are filtered out of natural-language search queries.
var stopWords = map[string]struct{}{
	"year": {}, "years": {}, "the": {}, "a": {}, "an": {}, "in": {},
	"at": {}, "of": {}, "and": {}, "or": {}, "with": {}, "to": {},
	"for": {}, "is": {}, "are": {},
}

// SearchCandidates returns candidate summaries matching every filter in q.
func (s *SQLiteStore) SearchCandidates(ctx context.Context, q SearchQuery) ([]*Candidate, error) {
	var (
		joins      []string
		conditions []string
		params     []any
	)

	if q.Skill != "" {
		joins = append(joins,
			`JOIN candidate_skills cs_filter ON c.id = cs_filter.candidate_id
			 JOIN skills s_filter ON cs_filter.skill_id = s_filter.id`)
		conditions = append(conditions, "s_filter.name LIKE ?")
		params = append(params, "%"+q.Skill+"%")
	}
	if q.City != "" {
		conditions = append(conditions, "c.city LIKE ?")
		params = append(params, "%"+q.City+"%")
	}
	if q.Education != "" {
		conditions = append(conditions, "c.education_level LIKE ?")
		params = append(params, "%"+q.Education+"%")
	}
	if q.MinYears > 0 {
		// Estimated from the per-candidate sum of experience durations.
		joins = append(joins,
			`LEFT JOIN (
				SELECT candidate_id, SUM(duration_months) as total_months
				FROM experiences GROUP BY candidate_id
			 ) exp_sum ON c.id = exp_sum.candidate_id`)
		conditions = append(conditions, "COALESCE(exp_sum.total_months, 0) >= ?")
		params = append(params, q.MinYears*12)
	}

	for _, kw := range queryKeywords(q.Query) {
		conditions = append(conditions,
			`(c.name LIKE ? OR c.city LIKE ? OR c.education_level LIKE ?
			  OR c.id IN (
				SELECT cs2.candidate_id FROM candidate_skills cs2
				JOIN skills s2 ON cs2.skill_id = s2.id
				WHERE s2.name LIKE ?
			  ))`)
		like := "%" + kw + "%"
		params = append(params, like, like, like, like)
	}

	sqlText := `SELECT DISTINCT c.id, c.name, c.gender, c.age, c.phone, c.email,
			c.city, c.education_level, c.source_file, c.created_at
		FROM candidates c ` + strings.Join(joins, " ")
	if len(conditions) > 0 {
		sqlText += " WHERE " + strings.Join(conditions, " AND ")
	}
	sqlText += " ORDER BY c.id DESC"

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("searching candidates: %w", err)
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCandidate returns a candidate with every associated table loaded,
// or ErrCandidateNotFound.
func (s *SQLiteStore) GetCandidate(ctx context.Context, id int64) (*CandidateDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, gender, age, phone, email, city, education_level,
			source_file, created_at, raw_json
		 FROM candidates WHERE id = ?`, id)

	var (
		c       Candidate
		gender  sql.NullString
		age     sql.NullInt64
		phone   sql.NullString
		email   sql.NullString
		city    sql.NullString
		edu     sql.NullString
		source  sql.NullString
		created sql.NullString
		rawJSON sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &gender, &age, &phone, &email, &city, &edu, &source, &created, &rawJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading candidate %d: %w", id, err)
	}
	c.Gender = gender.String
	if age.Valid {
		c.Age = &age.Int64
	}
	c.Phone = phone.String
	c.Email = email.String
	c.City = city.String
	c.EducationLevel = edu.String
	c.SourceFile = source.String
	c.CreatedAt = parseSQLiteTime(created.String)
	c.RawJSON = rawJSON.String

	detail := &CandidateDetail{Candidate: c}

	if detail.Experiences, err = s.candidateExperiences(ctx, id); err != nil {
		return nil, err
	}
	if detail.Educations, err = s.candidateEducations(ctx, id); err != nil {
		return nil, err
	}
	if detail.Skills, err = s.candidateSkills(ctx, id); err != nil {
		return nil, err
	}
	if detail.JobIntentions, err = s.candidateJobIntentions(ctx, id); err != nil {
		return nil, err
	}
	if detail.SelfEvaluations, err = s.candidateSelfEvaluations(ctx, id); err != nil {
		return nil, err
	}
	if detail.Certifications, err = s.candidateCertifications(ctx, id); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListCandidates returns candidate summaries with per-table counts, newest
// first.
func (s *SQLiteStore) ListCandidates(ctx context.Context, limit, offset int) ([]*CandidateListing, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.city, c.education_level, c.source_file, c.created_at,
			COUNT(DISTINCT e.id) as exp_count,
			COUNT(DISTINCT ed.id) as edu_count,
			COUNT(DISTINCT cs.skill_id) as skill_count
		 FROM candidates c
		 LEFT JOIN experiences e ON c.id = e.candidate_id
		 LEFT JOIN educations ed ON c.id = ed.candidate_id
		 LEFT JOIN candidate_skills cs ON c.id = cs.candidate_id
		 GROUP BY c.id
		 ORDER BY c.id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	var out []*CandidateListing
	for rows.Next() {
		var (
			l       CandidateListing
			city    sql.NullString
			edu     sql.NullString
			source  sql.NullString
			created sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &city, &edu, &source, &created,
			&l.ExpCount, &l.EduCount, &l.SkillCount); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		l.City = city.String
		l.EducationLevel = edu.String
		l.SourceFile = source.String
		l.CreatedAt = parseSQLiteTime(created.String)
		out = append(out, &l)
	}
	return out, rows.Err()
}

// Stats summarizes the database. groupBy may be "skill", "education",
// "city" or "" for the overview.
func (s *SQLiteStore) Stats(ctx context.Context, groupBy string) (*DBStats, error) {
	out := &DBStats{}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM candidates").Scan(&out.TotalCandidates); err != nil {
		return nil, fmt.Errorf("counting candidates: %w", err)
	}

	switch groupBy {
	case "skill":
		rows, err := s.db.QueryContext(ctx,
			`SELECT s.name, s.category, COUNT(cs.candidate_id) as count
			 FROM skills s
			 JOIN candidate_skills cs ON s.id = cs.skill_id
			 GROUP BY s.id
			 ORDER BY count DESC`)
		if err != nil {
			return nil, fmt.Errorf("grouping by skill: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				g   GroupCount
				cat sql.NullString
			)
			if err := rows.Scan(&g.Name, &cat, &g.Count); err != nil {
				return nil, fmt.Errorf("scanning skill group: %w", err)
			}
			g.Category = cat.String
			out.BySkill = append(out.BySkill, &g)
		}
		return out, rows.Err()

	case "education":
		groups, err := s.groupCandidates(ctx, "education_level")
		if err != nil {
			return nil, err
		}
		out.ByEducation = groups
		return out, nil

	case "city":
		groups, err := s.groupCandidates(ctx, "city")
		if err != nil {
			return nil, err
		}
		out.ByCity = groups
		return out, nil

	case "":
		for _, c := range []struct {
			table string
			dst   *int64
		}{
			{"experiences", &out.TotalExperiences},
			{"educations", &out.TotalEducations},
			{"skills", &out.TotalSkills},
			{"certifications", &out.TotalCertifications},
		} {
			if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
				return nil, fmt.Errorf("counting %s: %w", c.table, err)
			}
		}

		var avg sql.NullFloat64
		err := s.db.QueryRowContext(ctx,
			`SELECT AVG(cnt) FROM (
				SELECT COUNT(*) as cnt FROM experiences GROUP BY candidate_id
			 )`).Scan(&avg)
		if err != nil {
			return nil, fmt.Errorf("averaging experiences: %w", err)
		}
		if avg.Valid {
			out.AvgExperiences = math.Round(avg.Float64*10) / 10
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown stats dimension %q", groupBy)
	}
}

// DeleteCandidate removes a candidate and, via cascade, every associated
// row. Returns ErrCandidateNotFound when the ID has no row.
func (s *SQLiteStore) DeleteCandidate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM candidates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting candidate %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCandidateNotFound
	}
	return nil
}

func (s *SQLiteStore) groupCandidates(ctx context.Context, column string) ([]*GroupCount, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %[1]s, COUNT(*) as count FROM candidates
			WHERE %[1]s IS NOT NULL GROUP BY %[1]s ORDER BY count DESC`, column))
	if err != nil {
		return nil, fmt.Errorf("grouping by %s: %w", column, err)
	}
	defer rows.Close()

	var out []*GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Name, &g.Count); err != nil {
			return nil, fmt.Errorf("scanning %s group: %w", column, err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) candidateExperiences(ctx context.Context, id int64) ([]*Experience, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, company, title, start_date, end_date,
			duration_months, description, projects
		 FROM experiences WHERE candidate_id = ? ORDER BY start_date DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("loading experiences: %w", err)
	}
	defer rows.Close()

	var out []*Experience
	for rows.Next() {
		var (
			e                          Experience
			company, title, start, end sql.NullString
			months                     sql.NullInt64
			description, projects      sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CandidateID, &company, &title, &start, &end,
			&months, &description, &projects); err != nil {
			return nil, fmt.Errorf("scanning experience: %w", err)
		}
		e.Company = company.String
		e.Title = title.String
		e.StartDate = start.String
		e.EndDate = end.String
		if months.Valid {
			e.DurationMonths = &months.Int64
		}
		e.Description = description.String
		e.ProjectsJSON = projects.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) candidateEducations(ctx context.Context, id int64) ([]*Education, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, school, major, degree, start_date, end_date, gpa
		 FROM educations WHERE candidate_id = ? ORDER BY start_date DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("loading educations: %w", err)
	}
	defer rows.Close()

	var out []*Education
	for rows.Next() {
		var (
			e                                 Education
			school, major, degree, start, end sql.NullString
			gpa                               sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CandidateID, &school, &major, &degree, &start, &end, &gpa); err != nil {
			return nil, fmt.Errorf("scanning education: %w", err)
		}
		e.School = school.String
		e.Major = major.String
		e.Degree = degree.String
		e.StartDate = start.String
		e.EndDate = end.String
		e.GPA = gpa.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) candidateSkills(ctx context.Context, id int64) ([]*Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.name, s.category, cs.level, cs.years
		 FROM candidate_skills cs
		 JOIN skills s ON cs.skill_id = s.id
		 WHERE cs.candidate_id = ?
		 ORDER BY s.name`, id)
	if err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}
	defer rows.Close()

	var out []*Skill
	for rows.Next() {
		var (
			sk              Skill
			category, level sql.NullString
			years           sql.NullInt64
		)
		if err := rows.Scan(&sk.Name, &category, &level, &years); err != nil {
			return nil, fmt.Errorf("scanning skill: %w", err)
		}
		sk.Category = category.String
		sk.Level = level.String
		if years.Valid {
			sk.Years = &years.Int64
		}
		out = append(out, &sk)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) candidateJobIntentions(ctx context.Context, id int64) ([]*JobIntention, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, position, industry, city, salary_min, salary_max, entry_date
		 FROM job_intentions WHERE candidate_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("loading job intentions: %w", err)
	}
	defer rows.Close()

	var out []*JobIntention
	for rows.Next() {
		var (
			ji                              JobIntention
			position, industry, city, entry sql.NullString
			salaryMin, salaryMax            sql.NullInt64
		)
		if err := rows.Scan(&ji.ID, &ji.CandidateID, &position, &industry, &city,
			&salaryMin, &salaryMax, &entry); err != nil {
			return nil, fmt.Errorf("scanning job intention: %w", err)
		}
		ji.Position = position.String
		ji.Industry = industry.String
		ji.City = city.String
		if salaryMin.Valid {
			ji.SalaryMin = &salaryMin.Int64
		}
		if salaryMax.Valid {
			ji.SalaryMax = &salaryMax.Int64
		}
		ji.EntryDate = entry.String
		out = append(out, &ji)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) candidateSelfEvaluations(ctx context.Context, id int64) ([]*SelfEvaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, candidate_id, text, traits FROM self_evaluations WHERE candidate_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("loading self evaluations: %w", err)
	}
	defer rows.Close()

	var out []*SelfEvaluation
	for rows.Next() {
		var (
			se           SelfEvaluation
			text, traits sql.NullString
		)
		if err := rows.Scan(&se.ID, &se.CandidateID, &text, &traits); err != nil {
			return nil, fmt.Errorf("scanning self evaluation: %w", err)
		}
		se.Text = text.String
		se.TraitsJSON = traits.String
		out = append(out, &se)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) candidateCertifications(ctx context.Context, id int64) ([]*Certification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, name, issuer, date, expiry
		 FROM certifications WHERE candidate_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("loading certifications: %w", err)
	}
	defer rows.Close()

	var out []*Certification
	for rows.Next() {
		var (
			c                          Certification
			name, issuer, date, expiry sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.CandidateID, &name, &issuer, &date, &expiry); err != nil {
			return nil, fmt.Errorf("scanning certification: %w", err)
		}
		c.Name = name.String
		c.Issuer = issuer.String
		c.Date = date.String
		c.Expiry = expiry.String
		out = append(out, &c)
	}
	return out, rows.Err()
}

// scanCandidate scans the summary column set shared by search queries.
func scanCandidate(rows *sql.Rows) (*Candidate, error) {
	var (
		c                          Candidate
		gender, phone, email, city sql.NullString
		edu, source, created       sql.NullString
		age                        sql.NullInt64
	)
	if err := rows.Scan(&c.ID, &c.Name, &gender, &age, &phone, &email,
		&city, &edu, &source, &created); err != nil {
		return nil, fmt.Errorf("scanning candidate: %w", err)
	}
	c.Gender = gender.String
	if age.Valid {
		c.Age = &age.Int64
	}
	c.Phone = phone.String
	c.Email = email.String
	c.City = city.String
	c.EducationLevel = edu.String
	c.SourceFile = source.String
	c.CreatedAt = parseSQLiteTime(created.String)
	return &c, nil
}

// queryKeywords splits a natural-language query into LIKE-able keywords,
// dropping stop words and bare numbers.
func queryKeywords(query string) []string {
	if query == "" {
		return nil
	}
	cleaned := strings.NewReplacer(",", " ", "/", " ").Replace(query)

	var keywords []string
	for _, token := range strings.Fields(cleaned) {
		if isDigits(token) {
			continue
		}
		if _, stop := stopWords[strings.ToLower(token)]; stop {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseSQLiteTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
