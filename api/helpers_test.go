package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// memoryStore is an in-process store double for handler tests. It mirrors
// the postgres implementation's contract: owner-scoped task lookups return
// (nil, nil) for foreign and missing tasks alike, and duplicate usernames
// fail with errDuplicateUsername.
type memoryStore struct {
	mu         sync.Mutex
	users      map[int]*user
	tasks      map[int]*task
	nextUserID int
	nextTaskID int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      make(map[int]*user),
		tasks:      make(map[int]*task),
		nextUserID: 1,
		nextTaskID: 1,
	}
}

func (s *memoryStore) getUserByID(id int) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memoryStore) getUserByUsername(username string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) insertUser(u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return errDuplicateUsername
		}
	}
	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memoryStore) insertTask(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextTaskID
	s.nextTaskID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *memoryStore) getTasksForUser(userID int) ([]task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := []task{}
	for _, t := range s.tasks {
		if t.UserID == userID {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
	return tasks, nil
}

func (s *memoryStore) getTaskForUser(id, userID int) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *memoryStore) updateTask(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return nil
	}
	cp := *t
	cp.CreatedAt = existing.CreatedAt
	s.tasks[t.ID] = &cp
	return nil
}

func (s *memoryStore) deleteTaskForUser(id, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *memoryStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func newTestApplication(t *testing.T) (*application, *memoryStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var cfg config
	cfg.env = "testing"
	cfg.jwtSecret = "test-signing-secret"
	cfg.upstream.weatherAPIKey = "test-weather-key"

	ms := newMemoryStore()
	app := &application{
		config:   cfg,
		logger:   logger,
		storage:  ms,
		upstream: newUpstreamClient(cfg),
	}
	return app, ms
}

// createTestUser inserts a user directly into the store and returns it.
func createTestUser(t *testing.T, ms *memoryStore, username string) *user {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &user{Username: username, PasswordHash: hash}
	if err := ms.insertUser(u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return u
}

// bearerToken signs a token for the given user the way createTokenHandler
// does.
func bearerToken(t *testing.T, app *application, userID int) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(app.config.jwtSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func authedRequest(t *testing.T, app *application, method, target string, body io.Reader, userID int) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, body)
	r.Header.Set("Authorization", bearerToken(t, app, userID))
	return r
}

func checkStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("unexpected status: got %d want %d", got, want)
	}
}
