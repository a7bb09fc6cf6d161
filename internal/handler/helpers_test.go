package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/clubportal-go/internal/auth"
	"github.com/olegiv/clubportal-go/internal/cache"
	"github.com/olegiv/clubportal-go/internal/middleware"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/store"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "clubportal-handler-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	})

	return db
}

// createTestUser inserts a user with a real password hash so login flows
// can be exercised end to end.
func createTestUser(t *testing.T, db *sql.DB, email, password, role string) model.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         "Test User",
		GradYear:     2026,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

// spyInvalidator records the invalidation scopes a handler emits.
type spyInvalidator struct {
	scopes []cache.Scope
}

func (s *spyInvalidator) MarkStale(_ context.Context, scope cache.Scope) {
	s.scopes = append(s.scopes, scope)
}

// withUser places a signed-in user into the request context, bypassing
// the session layer. Gate behavior itself is covered by the middleware
// package tests.
func withUser(r *http.Request, user model.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, user))
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeSuccess decodes a {success:true,data:...} envelope into dst.
func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("response claims failure: %s", rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("decoding data: %v", err)
		}
	}
}

// decodeError decodes a {success:false,error:...} envelope and returns
// the message.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if envelope.Success {
		t.Error("error response claims success")
	}
	return envelope.Error
}

// sessionStack wraps a handler in scs session management so handlers that
// mutate session state (login, logout) behave as in production.
func sessionStack(sm *scs.SessionManager, db *sql.DB, h http.Handler) http.Handler {
	return sm.LoadAndSave(middleware.LoadUser(sm, db)(h))
}

// sessionCookie extracts the session cookie issued by a response, or nil.
func sessionCookie(sm *scs.SessionManager, rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sm.Cookie.Name {
			return c
		}
	}
	return nil
}
