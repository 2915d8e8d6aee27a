package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

func TestAuthRateLimitKeepsBodyForHandler(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 2, EmailLimit: 2}
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"estimator@example.com"`) {
			t.Fatalf("unexpected body: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("estimator@example.com", "10.0.0.1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitEmailLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, EmailLimit: 2}
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		// case and whitespace differences count against the same address
		email := "Blocked@Example.com"
		if i == 1 {
			email = " blocked@example.com"
		}
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0."+string(rune('1'+i))))
		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected success, got %d", i, rec.Code)
		}
		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if code := errorCode(t, rec); code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code %s", code)
			}
			if rec.Header().Get("Retry-After") != "60" {
				t.Fatalf("missing Retry-After header")
			}
		}
	}
	for scope := range store.counts {
		if strings.Contains(scope, "example.com") {
			t.Fatalf("raw email leaked into scope %q", scope)
		}
	}
}

func TestAuthRateLimitIPLimitUsesForwardedFor(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "register", Window: time.Minute, IPLimit: 1}
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := loginRequest("a@example.com", "10.0.0.1")
	first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	second := loginRequest("b@example.com", "10.0.0.2")
	second.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestAuthRateLimitStoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 5}
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "10.0.0.1"))
	if code := errorCode(t, rec); code != string(pkgerrors.CodeDependency) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(AuthRateLimitPolicy{Name: "login"}, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "10.0.0.1"))
	if rec.Code != http.StatusNoContent || len(store.counts) != 0 {
		t.Fatalf("disabled policy should not count, got %d %v", rec.Code, store.counts)
	}
}

func TestRateLimitPoliciesFromConfig(t *testing.T) {
	cfg := config.AuthRateLimitConfig{
		LoginWindow:        time.Minute,
		LoginEmailLimit:    5,
		LoginIPLimit:       20,
		RegisterWindow:     5 * time.Minute,
		RegisterEmailLimit: 3,
		RegisterIPLimit:    10,
	}
	login := LoginRateLimitPolicy(cfg)
	if login.Name != "login" || login.EmailLimit != 5 || login.IPLimit != 20 || login.Window != time.Minute {
		t.Fatalf("unexpected login policy %+v", login)
	}
	register := RegisterRateLimitPolicy(cfg)
	if register.scope("ip", "1.1.1.1") != "auth:register:ip:1.1.1.1" {
		t.Fatalf("unexpected scope %s", register.scope("ip", "1.1.1.1"))
	}
}
