package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegisterUser(t *testing.T) {
	app, ms := newTestApplication(t)
	handler := composeRoutes(app)

	body := `{"username": "alice", "email": "alice@example.com", "password": "secret123"}`
	r := httptest.NewRequest(http.MethodPost, "/auth/register/", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	checkStatus(t, w.Code, http.StatusCreated)

	var got user
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID == 0 {
		t.Error("expected a server-assigned id")
	}
	if got.Username != "alice" || got.Email != "alice@example.com" {
		t.Errorf("unexpected public representation: %+v", got)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("response must not echo the password or its hash")
	}
	if ms.userCount() != 1 {
		t.Fatalf("expected 1 user record, got %d", ms.userCount())
	}
}

func TestRegisterUserShortPassword(t *testing.T) {
	app, ms := newTestApplication(t)
	handler := composeRoutes(app)

	body := `{"username": "alice", "password": "abc12"}`
	r := httptest.NewRequest(http.MethodPost, "/auth/register/", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	checkStatus(t, w.Code, http.StatusBadRequest)
	if !strings.Contains(w.Body.String(), "password") {
		t.Errorf("expected a field-level password error, got %s", w.Body.String())
	}
	if ms.userCount() != 0 {
		t.Fatalf("validation failure must not create a user, got %d records", ms.userCount())
	}
}

func TestRegisterUserMissingUsername(t *testing.T) {
	app, ms := newTestApplication(t)
	handler := composeRoutes(app)

	r := httptest.NewRequest(http.MethodPost, "/auth/register/", strings.NewReader(`{"password": "secret123"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	checkStatus(t, w.Code, http.StatusBadRequest)
	if ms.userCount() != 0 {
		t.Fatalf("validation failure must not create a user, got %d records", ms.userCount())
	}
}

func TestRegisterUserDuplicateUsername(t *testing.T) {
	app, ms := newTestApplication(t)
	handler := composeRoutes(app)

	body := `{"username": "alice", "password": "secret123"}`
	for i, wantStatus := range []int{http.StatusCreated, http.StatusUnprocessableEntity} {
		r := httptest.NewRequest(http.MethodPost, "/auth/register/", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != wantStatus {
			t.Fatalf("registration %d: got status %d want %d", i+1, w.Code, wantStatus)
		}
	}
	if ms.userCount() != 1 {
		t.Fatalf("expected exactly one user record, got %d", ms.userCount())
	}
}

func TestRegisterUserInvalidEmail(t *testing.T) {
	app, _ := newTestApplication(t)
	handler := composeRoutes(app)

	body := `{"username": "alice", "email": "not-an-email", "password": "secret123"}`
	r := httptest.NewRequest(http.MethodPost, "/auth/register/", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	checkStatus(t, w.Code, http.StatusBadRequest)
}

func TestCreateToken(t *testing.T) {
	app, ms := newTestApplication(t)
	handler := composeRoutes(app)
	createTestUser(t, ms, "alice")

	r := httptest.NewRequest(http.MethodPost, "/auth/token/", strings.NewReader(`{"username": "alice", "password": "password123"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	checkStatus(t, w.Code, http.StatusOK)

	var got struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Access == "" {
		t.Fatal("expected an access token")
	}

	// The issued token must verify.
	verify := httptest.NewRequest(http.MethodPost, "/auth/token/verify/", strings.NewReader(`{"token": "`+got.Access+`"}`))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, verify)
	checkStatus(t, w.Code, http.StatusOK)
}

func TestCreateTokenWrongPassword(t *testing.T) {
	app, ms := newTestApplication(t)
	handler := composeRoutes(app)
	createTestUser(t, ms, "alice")

	r := httptest.NewRequest(http.MethodPost, "/auth/token/", strings.NewReader(`{"username": "alice", "password": "wrong-password"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	checkStatus(t, w.Code, http.StatusUnauthorized)
}

func TestCreateTokenUnknownUser(t *testing.T) {
	app, _ := newTestApplication(t)
	handler := composeRoutes(app)

	r := httptest.NewRequest(http.MethodPost, "/auth/token/", strings.NewReader(`{"username": "ghost", "password": "password123"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	checkStatus(t, w.Code, http.StatusUnauthorized)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	app, _ := newTestApplication(t)
	handler := composeRoutes(app)

	for name, body := range map[string]string{
		"malformed":  `{"token": "not-a-jwt"}`,
		"wrongKey":   `{"token": "eyJhbGciOiJIUzI1NiJ9.eyJ1c2VyX2lkIjoxfQ.bad"}`,
		"missing":    `{}`,
		"emptyToken": `{"token": ""}`,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/auth/token/verify/", strings.NewReader(body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != http.StatusUnauthorized && w.Code != http.StatusBadRequest {
				t.Fatalf("expected rejection, got status %d", w.Code)
			}
		})
	}
}
