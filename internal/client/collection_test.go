package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serveError(w http.ResponseWriter, status int, code, message string) {
	serveJSON(w, status, map[string]string{"code": code, "error": message})
}

func TestFetchReplacesLocalList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveJSON(w, http.StatusOK, []Project{
			{ID: "prj_1", Title: "First", Order: 1},
			{ID: "prj_2", Title: "Second", Order: 2},
		})
	}))
	defer srv.Close()

	col := NewProjects(New(srv.URL))
	if err := col.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	items := col.Items()
	if len(items) != 2 || items[0].ID != "prj_1" || items[1].ID != "prj_2" {
		t.Fatalf("unexpected items %+v", items)
	}
	if col.Err() != nil {
		t.Fatalf("expected nil error, got %v", col.Err())
	}
}

func TestCreateInsertsAtSortedPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			serveJSON(w, http.StatusCreated, Project{ID: "prj_new", Title: "Newest", Order: 1})
			return
		}
		serveJSON(w, http.StatusOK, []Project{
			{ID: "prj_old", Title: "Oldest", Order: 5},
		})
	}))
	defer srv.Close()

	col := NewProjects(New(srv.URL))
	if err := col.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	created, err := col.Create(context.Background(), map[string]any{"title": "Newest"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "prj_new" {
		t.Fatalf("expected server id, got %q", created.ID)
	}
	items := col.Items()
	if len(items) != 2 || items[0].ID != "prj_new" || items[1].ID != "prj_old" {
		t.Fatalf("expected created item sorted first, got %+v", items)
	}
}

func TestUpdateResortsAfterOrderChange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			serveJSON(w, http.StatusOK, Education{ID: "edu_b", Degree: "MSc", Order: 0})
			return
		}
		serveJSON(w, http.StatusOK, []Education{
			{ID: "edu_a", Degree: "BSc", Order: 1},
			{ID: "edu_b", Degree: "MSc", Order: 2},
		})
	}))
	defer srv.Close()

	col := NewEducation(New(srv.URL))
	if err := col.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := col.Update(context.Background(), "edu_b", map[string]any{"order": 0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	items := col.Items()
	if items[0].ID != "edu_b" || items[1].ID != "edu_a" {
		t.Fatalf("expected updated entry sorted first, got %+v", items)
	}
}

func TestDeleteRemovesWithoutResort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			serveJSON(w, http.StatusOK, map[string]string{"message": "Entry deleted"})
			return
		}
		serveJSON(w, http.StatusOK, []WorkExperience{
			{ID: "exp_a", Title: "A", Order: 1},
			{ID: "exp_b", Title: "B", Order: 2},
			{ID: "exp_c", Title: "C", Order: 3},
		})
	}))
	defer srv.Close()

	col := NewWorkExperiences(New(srv.URL))
	if err := col.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := col.Delete(context.Background(), "exp_b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	items := col.Items()
	if len(items) != 2 || items[0].ID != "exp_a" || items[1].ID != "exp_c" {
		t.Fatalf("expected exp_b removed with order kept, got %+v", items)
	}
}

func TestFailedMutationLeavesListUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			serveError(w, http.StatusConflict, "CONFLICT", "A project with this title already exists")
		case http.MethodDelete:
			serveError(w, http.StatusNotFound, "NOT_FOUND", "Entry not found")
		default:
			serveJSON(w, http.StatusOK, []Project{
				{ID: "prj_1", Title: "Kept", Order: 1},
			})
		}
	}))
	defer srv.Close()

	col := NewProjects(New(srv.URL))
	if err := col.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if _, err := col.Create(context.Background(), map[string]any{"title": "Kept"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := col.Delete(context.Background(), "prj_gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	items := col.Items()
	if len(items) != 1 || items[0].ID != "prj_1" {
		t.Fatalf("local list changed after failed calls: %+v", items)
	}
	if col.Err() == nil {
		t.Fatal("expected last error to be recorded")
	}
}

func TestErrorKindsCarryServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}))
	defer srv.Close()

	col := NewProjects(New(srv.URL))
	_, err := col.Create(context.Background(), map[string]any{"title": "x"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != "UNAUTHORIZED" || !strings.Contains(apiErr.Error(), "Authentication required") {
		t.Fatalf("unexpected error detail: %+v", apiErr)
	}
}

func TestModeratorFetchRequestsUnapproved(t *testing.T) {
	var sawQuery, sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			serveJSON(w, http.StatusOK, Testimonial{ID: "tst_1", Name: "Dana", IsApproved: true, Order: 1})
			return
		}
		sawQuery = r.URL.RawQuery
		sawAuth = r.Header.Get("Authorization")
		serveJSON(w, http.StatusOK, []Testimonial{
			{ID: "tst_1", Name: "Dana", IsApproved: false, Order: 1},
		})
	}))
	defer srv.Close()

	api := New(srv.URL)
	api.SetToken("admin-token")
	col := NewTestimonials(api, true)
	if err := col.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if sawQuery != "includeUnapproved=true" {
		t.Fatalf("expected includeUnapproved query, got %q", sawQuery)
	}
	if sawAuth != "Bearer admin-token" {
		t.Fatalf("expected bearer header, got %q", sawAuth)
	}

	approved, err := col.Approve(context.Background(), "tst_1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.IsApproved {
		t.Fatal("expected approved testimonial back")
	}
	items := col.Items()
	if len(items) != 1 || !items[0].IsApproved {
		t.Fatalf("expected local copy updated, got %+v", items)
	}
}
