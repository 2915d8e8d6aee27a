package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeLockStore struct {
	values map[string]string
	ttl    time.Duration
	setErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttl = ttl
	return true, nil
}

func (f *fakeLockStore) ReleaseLock(_ context.Context, key, owner string) (bool, error) {
	if f.values[key] != owner {
		return false, nil
	}
	delete(f.values, key)
	return true, nil
}

func (f *fakeLockStore) QuoteLockKey(quoteID string) string {
	return "rq:lock:quote:" + quoteID
}

func TestRedisDraftLockerExcludesConcurrentEdits(t *testing.T) {
	store := newFakeLockStore()
	locker, err := NewRedisDraftLocker(store, 0)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	ctx := context.Background()
	id := uuid.New()

	release, err := locker.Acquire(ctx, id)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if store.ttl != defaultDraftLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttl)
	}
	if _, err := locker.Acquire(ctx, id); !errors.Is(err, ErrQuoteLocked) {
		t.Fatalf("expected ErrQuoteLocked, got %v", err)
	}
	if _, err := locker.Acquire(ctx, uuid.New()); err != nil {
		t.Fatalf("other quotes must stay editable: %v", err)
	}

	release()
	if _, ok := store.values[store.QuoteLockKey(id.String())]; ok {
		t.Fatalf("release should drop the key")
	}
}

func TestRedisDraftLockerKeepsForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	locker, _ := NewRedisDraftLocker(store, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	release, err := locker.Acquire(ctx, id)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// lock expired and someone else took it
	key := store.QuoteLockKey(id.String())
	store.values[key] = "someone-else"

	release()
	if store.values[key] != "someone-else" {
		t.Fatalf("release must not delete a lock it no longer owns")
	}
}

func TestRedisDraftLockerStoreFailure(t *testing.T) {
	store := newFakeLockStore()
	store.setErr = errors.New("connection refused")
	locker, _ := NewRedisDraftLocker(store, time.Minute)

	_, err := locker.Acquire(context.Background(), uuid.New())
	if err == nil || errors.Is(err, ErrQuoteLocked) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestNewRedisDraftLockerRequiresStore(t *testing.T) {
	if _, err := NewRedisDraftLocker(nil, time.Second); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
