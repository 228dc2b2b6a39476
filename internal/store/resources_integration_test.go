package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"portfolio/api/internal/util"
)

// These tests exercise the real database constraints and therefore need a
// reachable Postgres. They skip in short mode and fall back to local
// development defaults when no TEST_DATABASE_URL is set.

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := Open(ctx, getTestDatabaseURL(t))
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func TestWorkExperienceRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := WorkExperience{
		ID:           util.NewRowID(),
		Title:        "Backend Engineer",
		Company:      "RoundTrip Labs",
		Location:     "Remote",
		Duration:     "2021 - 2023",
		Description:  "Built APIs",
		Technologies: []string{"Go", "Postgres"},
		Achievements: []string{"Shipped v1"},
		SortOrder:    3,
	}
	if err := s.InsertWorkExperience(ctx, item); err != nil {
		t.Fatalf("InsertWorkExperience() error = %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteWorkExperience(ctx, item.ID) })

	got, err := s.GetWorkExperience(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetWorkExperience() error = %v", err)
	}
	if got.Company != item.Company || got.SortOrder != 3 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if len(got.Technologies) != 2 || got.Technologies[0] != "Go" {
		t.Fatalf("unexpected technologies: %v", got.Technologies)
	}

	got.Description = "Built and operated APIs"
	if err := s.UpdateWorkExperience(ctx, got); err != nil {
		t.Fatalf("UpdateWorkExperience() error = %v", err)
	}
}

// TestWorkExperienceUniqueConstraintUnderConcurrency verifies that the
// database constraint, not the application pre-check, is what ultimately
// prevents duplicate (company, title) rows when two writers race.
func TestWorkExperienceUniqueConstraintUnderConcurrency(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := WorkExperience{
		Title:        "Platform Engineer",
		Company:      "Race Systems",
		Location:     "Berlin",
		Duration:     "2020 - 2022",
		Description:  "Infra work",
		Technologies: []string{},
		Achievements: []string{},
	}
	t.Cleanup(func() {
		_, _ = s.DB().ExecContext(ctx, `DELETE FROM work_experience WHERE company=$1 AND title=$2`, base.Company, base.Title)
	})

	const writers = 2
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item := base
			item.ID = util.NewRowID()
			errs[i] = s.InsertWorkExperience(ctx, item)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	conflicted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case IsUniqueViolation(err):
			conflicted++
		default:
			t.Fatalf("unexpected insert error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d conflicts", succeeded, conflicted)
	}
}

func TestListTestimonialsFiltersUnapproved(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	approved := Testimonial{
		ID: util.NewRowID(), Name: "Approved Reviewer", Role: "CTO", Company: "Filter Co",
		Content: "Great work", IsApproved: true, IsUserSubmitted: true,
	}
	pending := Testimonial{
		ID: util.NewRowID(), Name: "Pending Reviewer", Role: "PM", Company: "Filter Co",
		Content: "Awaiting review", IsApproved: false, IsUserSubmitted: true,
	}
	for _, item := range []Testimonial{approved, pending} {
		if err := s.InsertTestimonial(ctx, item); err != nil {
			t.Fatalf("InsertTestimonial() error = %v", err)
		}
	}
	t.Cleanup(func() {
		_ = s.DeleteTestimonial(ctx, approved.ID)
		_ = s.DeleteTestimonial(ctx, pending.ID)
	})

	public, err := s.ListTestimonials(ctx, false)
	if err != nil {
		t.Fatalf("ListTestimonials(false) error = %v", err)
	}
	for _, item := range public {
		if !item.IsApproved {
			t.Fatalf("unapproved testimonial %s leaked into public listing", item.ID)
		}
	}

	all, err := s.ListTestimonials(ctx, true)
	if err != nil {
		t.Fatalf("ListTestimonials(true) error = %v", err)
	}
	found := false
	for _, item := range all {
		if item.ID == pending.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected moderation listing to include the pending testimonial")
	}
}

// getTestDatabaseURL returns the database URL for integration tests,
// preferring TEST_DATABASE_URL and falling back to local defaults.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()

	if url := getenv("TEST_DATABASE_URL", ""); url != "" {
		return url
	}

	host := getenv("POSTGRES_HOST", "localhost")
	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "portfolio")
	pass := getenv("POSTGRES_PASSWORD", "portfolio")
	dbname := getenv("POSTGRES_DB", "portfolio_test")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + dbname + "?sslmode=disable"
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
