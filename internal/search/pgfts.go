package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across the four content tables using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultExperience {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'experience'::text AS type, w.id,
				w.title || ' at ' || w.company AS title,
				ts_headline('english', coalesce(w.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				TRUE AS approved,
				ts_rank(w.fts, %s) AS rank
			FROM work_experience w
			WHERE w.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultEducation {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'education'::text AS type, e.id,
				e.degree || ', ' || e.institution AS title,
				ts_headline('english', coalesce(e.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				TRUE AS approved,
				ts_rank(e.fts, %s) AS rank
			FROM education e
			WHERE e.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultProject {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'project'::text AS type, pr.id, pr.title,
				ts_headline('english', coalesce(pr.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				TRUE AS approved,
				ts_rank(pr.fts, %s) AS rank
			FROM projects pr
			WHERE pr.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultTestimonial {
		testimonialWhere := "t.fts @@ " + tsQuery
		if !q.IncludeUnapproved {
			testimonialWhere += " AND t.is_approved"
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'testimonial'::text AS type, t.id, t.name AS title,
				ts_headline('english', coalesce(t.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.is_approved AS approved,
				ts_rank(t.fts, %s) AS rank
			FROM testimonials t
			WHERE %s`, tsQuery, tsQuery, testimonialWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, approved
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Approved); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ExperienceRecord, []EducationRecord, []ProjectRecord, []TestimonialRecord, error) {
	expRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, company, description
		FROM work_experience
	`)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load work experience: %w", err)
	}
	defer expRows.Close()

	experiences := make([]ExperienceRecord, 0)
	for expRows.Next() {
		var r ExperienceRecord
		if err := expRows.Scan(&r.ID, &r.Title, &r.Company, &r.Description); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("scan work experience: %w", err)
		}
		experiences = append(experiences, r)
	}
	if err := expRows.Err(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("iterate work experience: %w", err)
	}

	eduRows, err := p.db.QueryContext(ctx, `
		SELECT id, degree, field, institution, description
		FROM education
	`)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load education: %w", err)
	}
	defer eduRows.Close()

	educations := make([]EducationRecord, 0)
	for eduRows.Next() {
		var r EducationRecord
		if err := eduRows.Scan(&r.ID, &r.Degree, &r.Field, &r.Institution, &r.Description); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("scan education: %w", err)
		}
		educations = append(educations, r)
	}
	if err := eduRows.Err(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("iterate education: %w", err)
	}

	projRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description
		FROM projects
	`)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load projects: %w", err)
	}
	defer projRows.Close()

	projects := make([]ProjectRecord, 0)
	for projRows.Next() {
		var r ProjectRecord
		if err := projRows.Scan(&r.ID, &r.Title, &r.Description); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, r)
	}
	if err := projRows.Err(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("iterate projects: %w", err)
	}

	testRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, company, content, is_approved
		FROM testimonials
	`)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load testimonials: %w", err)
	}
	defer testRows.Close()

	testimonials := make([]TestimonialRecord, 0)
	for testRows.Next() {
		var r TestimonialRecord
		if err := testRows.Scan(&r.ID, &r.Name, &r.Company, &r.Content, &r.Approved); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("scan testimonial: %w", err)
		}
		testimonials = append(testimonials, r)
	}
	if err := testRows.Err(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("iterate testimonials: %w", err)
	}

	return experiences, educations, projects, testimonials, nil
}
