package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	fail error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memStore) GetDel(ctx context.Context, key string) (string, error) {
	v, err := m.Get(ctx, key)
	if err == nil {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
	}
	return v, err
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) AccessSessionKey(accessID string) string {
	return "rq:session:" + accessID
}

func newTestManager(store Store) *Manager {
	return &Manager{store: store, ttl: time.Hour}
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	store := newMemStore()
	token, err := newTestManager(store).Generate(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stored := store.data["rq:session:jti-1"]
	if stored == token || strings.Contains(stored, token) {
		t.Fatalf("raw refresh token persisted")
	}
	if stored != digest(token) {
		t.Fatalf("expected digest %q, got %q", digest(token), stored)
	}
}

func TestRotateIssuesNewSessionOnce(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "jti-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	newID, newToken, err := manager.Rotate(ctx, "jti-1", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newID == "jti-1" || newToken == token {
		t.Fatalf("rotation must mint a fresh pair")
	}
	if _, ok := store.data["rq:session:jti-1"]; ok {
		t.Fatalf("old session left behind")
	}
	if ok, _ := manager.HasSession(ctx, newID); !ok {
		t.Fatalf("new session not active")
	}

	if _, _, err := manager.Rotate(ctx, "jti-1", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replayed refresh token accepted: %v", err)
	}
}

func TestRotateWithWrongTokenEndsSession(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, _ := manager.Generate(ctx, "jti-1")
	if _, _, err := manager.Rotate(ctx, "jti-1", "guess"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, "jti-1", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("session should be gone after a mismatched rotation, got %v", err)
	}
}

func TestRotateSurfacesStoreFailure(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection reset")
	_, _, err := newTestManager(store).Rotate(context.Background(), "jti-1", "token")
	if err == nil || errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestRevokeAndHasSession(t *testing.T) {
	manager := newTestManager(newMemStore())
	ctx := context.Background()
	accessID := NewAccessID()

	if _, err := manager.Generate(ctx, accessID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ok, err := manager.HasSession(ctx, accessID); err != nil || !ok {
		t.Fatalf("expected active session, ok=%v err=%v", ok, err)
	}
	if err := manager.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := manager.HasSession(ctx, accessID); err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
	if _, err := manager.HasSession(ctx, " "); err == nil {
		t.Fatalf("blank access id should be rejected")
	}
}

func TestNewManagerValidatesTTL(t *testing.T) {
	store := newMemStore()
	if _, err := NewManager(nil, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}); err == nil {
		t.Fatal("expected nil store to be rejected")
	}
	if _, err := NewManager(store, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}); err == nil {
		t.Fatal("expected refresh ttl shorter than access ttl to be rejected")
	}
	manager, err := NewManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manager.TTL() != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", manager.TTL())
	}
}
