package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// resourceTable describes how one content kind maps onto its table. The
// generic helpers below build the SQL from this descriptor so that all four
// kinds share a single code path for list, get, insert, update and delete.
type resourceTable[T any] struct {
	name    string
	columns []string
	scan    func(rowScanner) (T, error)
	id      func(T) string
	sort    func(T) int
	args    func(T) ([]any, error)
}

func (t resourceTable[T]) selectColumns() string {
	return "id, " + strings.Join(t.columns, ", ") + ", sort_order, created_at, updated_at"
}

func listResources[T any](ctx context.Context, db *sql.DB, tbl resourceTable[T], where string, whereArgs ...any) ([]T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, tbl.selectColumns(), tbl.name)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY sort_order ASC, created_at DESC"

	rows, err := db.QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tbl.name, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := tbl.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", tbl.name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", tbl.name, err)
	}
	return items, nil
}

func getResource[T any](ctx context.Context, db *sql.DB, tbl resourceTable[T], id string) (T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, tbl.selectColumns(), tbl.name)
	return tbl.scan(db.QueryRowContext(ctx, query, id))
}

func insertResource[T any](ctx context.Context, db *sql.DB, tbl resourceTable[T], item T) error {
	values, err := tbl.args(item)
	if err != nil {
		return fmt.Errorf("encode %s: %w", tbl.name, err)
	}
	placeholders := make([]string, 0, len(values)+2)
	for i := 0; i < len(values)+2; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (id, %s, sort_order) VALUES (%s)`,
		tbl.name, strings.Join(tbl.columns, ", "), strings.Join(placeholders, ", "),
	)
	args := append([]any{tbl.id(item)}, values...)
	args = append(args, tbl.sort(item))
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", tbl.name, err)
	}
	return nil
}

func updateResource[T any](ctx context.Context, db *sql.DB, tbl resourceTable[T], item T) error {
	values, err := tbl.args(item)
	if err != nil {
		return fmt.Errorf("encode %s: %w", tbl.name, err)
	}
	assignments := make([]string, 0, len(tbl.columns)+1)
	for i, column := range tbl.columns {
		assignments = append(assignments, fmt.Sprintf("%s=$%d", column, i+2))
	}
	assignments = append(assignments, fmt.Sprintf("sort_order=$%d", len(tbl.columns)+2))
	query := fmt.Sprintf(
		`UPDATE %s SET %s, updated_at=NOW() WHERE id=$1`,
		tbl.name, strings.Join(assignments, ", "),
	)
	args := append([]any{tbl.id(item)}, values...)
	args = append(args, tbl.sort(item))
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", tbl.name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s rows: %w", tbl.name, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func deleteResource(ctx context.Context, db *sql.DB, table, id string) error {
	result, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// encodeStrings marshals a string slice for a JSONB column, mapping nil to
// an empty array so the column never holds JSON null.
func encodeStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func decodeStrings(raw []byte, dest *[]string) error {
	if len(raw) == 0 {
		*dest = []string{}
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	if *dest == nil {
		*dest = []string{}
	}
	return nil
}

func workExperienceTable() resourceTable[WorkExperience] {
	return resourceTable[WorkExperience]{
		name:    "work_experience",
		columns: []string{"title", "company", "location", "duration", "description", "technologies", "achievements"},
		scan: func(r rowScanner) (WorkExperience, error) {
			var item WorkExperience
			var technologies, achievements []byte
			err := r.Scan(
				&item.ID, &item.Title, &item.Company, &item.Location, &item.Duration, &item.Description,
				&technologies, &achievements, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
			)
			if err != nil {
				return WorkExperience{}, err
			}
			if err := decodeStrings(technologies, &item.Technologies); err != nil {
				return WorkExperience{}, err
			}
			if err := decodeStrings(achievements, &item.Achievements); err != nil {
				return WorkExperience{}, err
			}
			return item, nil
		},
		id:   func(item WorkExperience) string { return item.ID },
		sort: func(item WorkExperience) int { return item.SortOrder },
		args: func(item WorkExperience) ([]any, error) {
			technologies, err := encodeStrings(item.Technologies)
			if err != nil {
				return nil, err
			}
			achievements, err := encodeStrings(item.Achievements)
			if err != nil {
				return nil, err
			}
			return []any{item.Title, item.Company, item.Location, item.Duration, item.Description, technologies, achievements}, nil
		},
	}
}

func educationTable() resourceTable[Education] {
	return resourceTable[Education]{
		name:    "education",
		columns: []string{"degree", "field", "institution", "location", "duration", "description", "gpa", "coursework", "achievements"},
		scan: func(r rowScanner) (Education, error) {
			var item Education
			var gpa sql.NullString
			var coursework, achievements []byte
			err := r.Scan(
				&item.ID, &item.Degree, &item.Field, &item.Institution, &item.Location, &item.Duration,
				&item.Description, &gpa, &coursework, &achievements, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
			)
			if err != nil {
				return Education{}, err
			}
			item.GPA = gpa.String
			if err := decodeStrings(coursework, &item.Coursework); err != nil {
				return Education{}, err
			}
			if err := decodeStrings(achievements, &item.Achievements); err != nil {
				return Education{}, err
			}
			return item, nil
		},
		id:   func(item Education) string { return item.ID },
		sort: func(item Education) int { return item.SortOrder },
		args: func(item Education) ([]any, error) {
			coursework, err := encodeStrings(item.Coursework)
			if err != nil {
				return nil, err
			}
			achievements, err := encodeStrings(item.Achievements)
			if err != nil {
				return nil, err
			}
			return []any{item.Degree, item.Field, item.Institution, item.Location, item.Duration, item.Description, item.GPA, coursework, achievements}, nil
		},
	}
}

func projectTable() resourceTable[Project] {
	return resourceTable[Project]{
		name:    "projects",
		columns: []string{"title", "description", "technologies", "duration", "github_url", "live_url", "highlights"},
		scan: func(r rowScanner) (Project, error) {
			var item Project
			var githubURL, liveURL sql.NullString
			var technologies, highlights []byte
			err := r.Scan(
				&item.ID, &item.Title, &item.Description, &technologies, &item.Duration,
				&githubURL, &liveURL, &highlights, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
			)
			if err != nil {
				return Project{}, err
			}
			item.GithubURL = githubURL.String
			item.LiveURL = liveURL.String
			if err := decodeStrings(technologies, &item.Technologies); err != nil {
				return Project{}, err
			}
			if err := decodeStrings(highlights, &item.Highlights); err != nil {
				return Project{}, err
			}
			return item, nil
		},
		id:   func(item Project) string { return item.ID },
		sort: func(item Project) int { return item.SortOrder },
		args: func(item Project) ([]any, error) {
			technologies, err := encodeStrings(item.Technologies)
			if err != nil {
				return nil, err
			}
			highlights, err := encodeStrings(item.Highlights)
			if err != nil {
				return nil, err
			}
			return []any{item.Title, item.Description, technologies, item.Duration, item.GithubURL, item.LiveURL, highlights}, nil
		},
	}
}

func testimonialTable() resourceTable[Testimonial] {
	return resourceTable[Testimonial]{
		name:    "testimonials",
		columns: []string{"name", "role", "company", "content", "avatar", "proof_url", "is_approved", "is_user_submitted"},
		scan: func(r rowScanner) (Testimonial, error) {
			var item Testimonial
			var avatar, proofURL sql.NullString
			err := r.Scan(
				&item.ID, &item.Name, &item.Role, &item.Company, &item.Content,
				&avatar, &proofURL, &item.IsApproved, &item.IsUserSubmitted,
				&item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
			)
			if err != nil {
				return Testimonial{}, err
			}
			item.Avatar = avatar.String
			item.ProofURL = proofURL.String
			return item, nil
		},
		id:   func(item Testimonial) string { return item.ID },
		sort: func(item Testimonial) int { return item.SortOrder },
		args: func(item Testimonial) ([]any, error) {
			return []any{item.Name, item.Role, item.Company, item.Content, item.Avatar, item.ProofURL, item.IsApproved, item.IsUserSubmitted}, nil
		},
	}
}

func (s *PostgresStore) ListWorkExperience(ctx context.Context) ([]WorkExperience, error) {
	return listResources(ctx, s.db, workExperienceTable(), "")
}

func (s *PostgresStore) GetWorkExperience(ctx context.Context, id string) (WorkExperience, error) {
	return getResource(ctx, s.db, workExperienceTable(), id)
}

func (s *PostgresStore) InsertWorkExperience(ctx context.Context, item WorkExperience) error {
	return insertResource(ctx, s.db, workExperienceTable(), item)
}

func (s *PostgresStore) UpdateWorkExperience(ctx context.Context, item WorkExperience) error {
	return updateResource(ctx, s.db, workExperienceTable(), item)
}

func (s *PostgresStore) DeleteWorkExperience(ctx context.Context, id string) error {
	return deleteResource(ctx, s.db, "work_experience", id)
}

func (s *PostgresStore) WorkExperienceKeyExists(ctx context.Context, company, title, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM work_experience WHERE company=$1 AND title=$2 AND id<>$3)
	`, company, title, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check work experience key: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListEducation(ctx context.Context) ([]Education, error) {
	return listResources(ctx, s.db, educationTable(), "")
}

func (s *PostgresStore) GetEducation(ctx context.Context, id string) (Education, error) {
	return getResource(ctx, s.db, educationTable(), id)
}

func (s *PostgresStore) InsertEducation(ctx context.Context, item Education) error {
	return insertResource(ctx, s.db, educationTable(), item)
}

func (s *PostgresStore) UpdateEducation(ctx context.Context, item Education) error {
	return updateResource(ctx, s.db, educationTable(), item)
}

func (s *PostgresStore) DeleteEducation(ctx context.Context, id string) error {
	return deleteResource(ctx, s.db, "education", id)
}

func (s *PostgresStore) EducationKeyExists(ctx context.Context, degree, field, institution, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM education WHERE degree=$1 AND field=$2 AND institution=$3 AND id<>$4)
	`, degree, field, institution, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check education key: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]Project, error) {
	return listResources(ctx, s.db, projectTable(), "")
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (Project, error) {
	return getResource(ctx, s.db, projectTable(), id)
}

func (s *PostgresStore) InsertProject(ctx context.Context, item Project) error {
	return insertResource(ctx, s.db, projectTable(), item)
}

func (s *PostgresStore) UpdateProject(ctx context.Context, item Project) error {
	return updateResource(ctx, s.db, projectTable(), item)
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	return deleteResource(ctx, s.db, "projects", id)
}

func (s *PostgresStore) ProjectKeyExists(ctx context.Context, title, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM projects WHERE title=$1 AND id<>$2)
	`, title, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check project key: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListTestimonials(ctx context.Context, includeUnapproved bool) ([]Testimonial, error) {
	if includeUnapproved {
		return listResources(ctx, s.db, testimonialTable(), "")
	}
	return listResources(ctx, s.db, testimonialTable(), "is_approved = TRUE")
}

func (s *PostgresStore) GetTestimonial(ctx context.Context, id string) (Testimonial, error) {
	return getResource(ctx, s.db, testimonialTable(), id)
}

func (s *PostgresStore) InsertTestimonial(ctx context.Context, item Testimonial) error {
	return insertResource(ctx, s.db, testimonialTable(), item)
}

func (s *PostgresStore) UpdateTestimonial(ctx context.Context, item Testimonial) error {
	return updateResource(ctx, s.db, testimonialTable(), item)
}

func (s *PostgresStore) DeleteTestimonial(ctx context.Context, id string) error {
	return deleteResource(ctx, s.db, "testimonials", id)
}

func (s *PostgresStore) SetTestimonialApproval(ctx context.Context, id string, approved bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE testimonials SET is_approved=$2, updated_at=NOW() WHERE id=$1
	`, id, approved)
	if err != nil {
		return fmt.Errorf("set testimonial approval: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set testimonial approval rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
