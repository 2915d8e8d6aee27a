package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultDraftLockTTL = 30 * time.Second

// ErrQuoteLocked is returned when another edit already holds the quote.
var ErrQuoteLocked = errors.New("quote is locked by another edit")

// DraftLocker serializes edits of a single quote.
type DraftLocker interface {
	Acquire(ctx context.Context, quoteID uuid.UUID) (release func(), err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
	QuoteLockKey(quoteID string) string
}

// RedisDraftLocker holds a per-quote SETNX key for the duration of an edit.
// The TTL bounds how long a crashed editor can block the quote.
type RedisDraftLocker struct {
	store lockStore
	ttl   time.Duration
}

// NewRedisDraftLocker builds a draft locker on the shared Redis client.
func NewRedisDraftLocker(store lockStore, ttl time.Duration) (*RedisDraftLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for draft lock")
	}
	if ttl <= 0 {
		ttl = defaultDraftLockTTL
	}
	return &RedisDraftLocker{store: store, ttl: ttl}, nil
}

// Acquire claims the quote or returns ErrQuoteLocked.
func (l *RedisDraftLocker) Acquire(ctx context.Context, quoteID uuid.UUID) (func(), error) {
	key := l.store.QuoteLockKey(quoteID.String())
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, ErrQuoteLocked
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, owner)
	}
	return release, nil
}

// release leaves an expired lock re-acquired by someone else alone.
func (l *RedisDraftLocker) release(ctx context.Context, key, owner string) error {
	_, err := l.store.ReleaseLock(ctx, key, owner)
	return err
}
