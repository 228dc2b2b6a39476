package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfolio/api/internal/auth"
	"portfolio/api/internal/store"
)

func issueTestToken(t *testing.T, svc *Service, userID, role string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(svc.cfg.JWTSecret), auth.Claims{
		Sub:   userID,
		Email: userID + "@example.com",
		Role:  role,
		JTI:   "jti-" + userID,
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// userDirectory makes the fake store resolve sessions for the given users.
func userDirectory(fs *fakeStore, users map[string]store.User) {
	fs.getUserByIDFn = func(_ context.Context, id string) (store.User, error) {
		if user, ok := users[id]; ok {
			return user, nil
		}
		return store.User{}, sql.ErrNoRows
	}
}

func TestListWorkExperienceIsPublicAndOrdered(t *testing.T) {
	now := time.Now()
	fs := &fakeStore{
		listWorkExperienceFn: func(context.Context) ([]store.WorkExperience, error) {
			return []store.WorkExperience{
				{ID: "w1", Title: "Engineer", Company: "Acme", SortOrder: 0, CreatedAt: now, UpdatedAt: now},
				{ID: "w2", Title: "Lead", Company: "Beta", SortOrder: 1, CreatedAt: now, UpdatedAt: now},
			}, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/work-experience", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var items []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(items) != 2 || items[0]["id"] != "w1" || items[1]["id"] != "w2" {
		t.Fatalf("unexpected list payload: %v", items)
	}
	if _, ok := items[0]["technologies"].([]any); !ok {
		t.Fatalf("array fields must serialize as arrays, got %T", items[0]["technologies"])
	}
}

func TestCreateWorkExperienceWithoutSessionIs401AndStoreUntouched(t *testing.T) {
	inserted := false
	fs := &fakeStore{
		insertWorkExperienceFn: func(context.Context, store.WorkExperience) error {
			inserted = true
			return nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")

	body := `{"title":"Engineer","company":"Acme","location":"Remote","duration":"2020","description":"Built"}`
	req := httptest.NewRequest(http.MethodPost, "/api/work-experience", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var payload map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED code, got %v", payload["code"])
	}
	if inserted {
		t.Fatalf("store must not be touched when the gate denies")
	}
}

func TestCreateWorkExperienceWithNonAdminSessionIs403(t *testing.T) {
	inserted := false
	fs := &fakeStore{
		insertWorkExperienceFn: func(context.Context, store.WorkExperience) error {
			inserted = true
			return nil
		},
	}
	userDirectory(fs, map[string]store.User{
		"u1": {ID: "u1", Email: "u1@example.com", Role: "user"},
	})
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := `{"title":"Engineer","company":"Acme","location":"Remote","duration":"2020","description":"Built"}`
	req := httptest.NewRequest(http.MethodPost, "/api/work-experience", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, svc, "u1", "user"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	if inserted {
		t.Fatalf("store must not be touched when the gate denies")
	}
}

func TestCreateWorkExperienceAsAdminReturns201(t *testing.T) {
	var inserted store.WorkExperience
	fs := &fakeStore{
		insertWorkExperienceFn: func(_ context.Context, item store.WorkExperience) error {
			inserted = item
			return nil
		},
	}
	fs.getWorkExperienceFn = func(_ context.Context, id string) (store.WorkExperience, error) {
		item := inserted
		item.CreatedAt = time.Now()
		item.UpdatedAt = item.CreatedAt
		return item, nil
	}
	userDirectory(fs, map[string]store.User{
		"admin-1": {ID: "admin-1", Email: "admin@example.com", Role: "admin"},
	})
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := `{"title":"Engineer","company":"Acme","location":"Remote","duration":"2020 - 2023","description":"Built things","technologies":["Go"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/work-experience", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, svc, "admin-1", "admin"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if inserted.ID == "" {
		t.Fatalf("expected server-generated id")
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["company"] != "Acme" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["achievements"] == nil {
		t.Fatalf("omitted array field must default to empty, not null")
	}
}

func TestCreateProjectConflictMapsTo409(t *testing.T) {
	fs := &fakeStore{
		projectKeyExistsFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}
	userDirectory(fs, map[string]store.User{
		"admin-1": {ID: "admin-1", Role: "admin"},
	})
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := `{"title":"Tracker","description":"A tracker","duration":"2022"}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, svc, "admin-1", "admin"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "CONFLICT" {
		t.Fatalf("expected CONFLICT code, got %v", payload["code"])
	}
}

func TestUpdateMissingEducationReturns404(t *testing.T) {
	fs := &fakeStore{}
	userDirectory(fs, map[string]store.User{
		"admin-1": {ID: "admin-1", Role: "admin"},
	})
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	body := `{"degree":"BSc","field":"CS","institution":"MIT","location":"Cambridge","duration":"2018","description":"x"}`
	req := httptest.NewRequest(http.MethodPut, "/api/education/missing-id", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, svc, "admin-1", "admin"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDeleteProjectReturnsMessage(t *testing.T) {
	deleted := ""
	fs := &fakeStore{
		deleteProjectFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	userDirectory(fs, map[string]store.User{
		"admin-1": {ID: "admin-1", Role: "admin"},
	})
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodDelete, "/api/projects/p1", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, svc, "admin-1", "admin"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if deleted != "p1" {
		t.Fatalf("expected delete of p1, got %q", deleted)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["message"] == "" {
		t.Fatalf("expected message body on delete")
	}
}

func TestRevokedAccessTokenIsUnauthorized(t *testing.T) {
	fs := &fakeStore{
		isAccessTokenRevokedFn: func(context.Context, string) (bool, error) {
			return true, nil
		},
	}
	userDirectory(fs, map[string]store.User{
		"admin-1": {ID: "admin-1", Role: "admin"},
	})
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodDelete, "/api/projects/p1", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, svc, "admin-1", "admin"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rr.Code)
	}
}

func TestValidationErrorMapsTo400(t *testing.T) {
	fs := &fakeStore{}
	userDirectory(fs, map[string]store.User{
		"admin-1": {ID: "admin-1", Role: "admin"},
	})
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPost, "/api/education", bytes.NewBufferString(`{"degree":"BSc"}`))
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, svc, "admin-1", "admin"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", payload["code"])
	}
	details, _ := payload["details"].(map[string]any)
	if details == nil || details["fields"] == nil {
		t.Fatalf("expected missing-field details, got %v", payload["details"])
	}
}
