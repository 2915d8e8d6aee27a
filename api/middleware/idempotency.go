package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/rentquote-backend/api/responses"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/rentquote-backend/pkg/redis"
)

const defaultIdempotencyTTL = 24 * time.Hour

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
}

// Create endpoints that require an Idempotency-Key header.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/api/v1/auth/register")},
	{method: http.MethodPost, matcher: matchExact("/api/v1/clients")},
	{method: http.MethodPost, matcher: matchExact("/api/v1/quotes")},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/quotes/", "/lines")},
	{method: http.MethodPost, matcher: matchExact("/api/admin/v1/categories")},
	{method: http.MethodPost, matcher: matchExact("/api/admin/v1/equipment")},
	{method: http.MethodPost, matcher: matchExact("/api/admin/v1/ratecards")},
}

// idempotencyRecord is the JSON stored under a key. A pending record marks a
// first request that is still running.
type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

var errKeyInFlight = pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress")

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the create endpoints. A key is reserved while its first request runs and
// released again when that request fails with a 5xx.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !requiresIdempotency(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+strings.TrimSuffix(r.URL.Path, "/"), clientKey)

			stored, err := loadRecord(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if stored == nil {
				stored, err = reserve(ctx, store, key, hash, ttl)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
			}
			if stored != nil {
				replay(w, r, logg, stored, hash)
				return
			}

			tee := &teeWriter{recorder: newRecorder(w)}
			next.ServeHTTP(tee, r)
			complete(context.WithoutCancel(ctx), logg, store, key, ttl, idempotencyRecord{
				Status:      tee.Status(),
				ContentType: tee.Header().Get("Content-Type"),
				Body:        tee.body.Bytes(),
				RequestHash: hash,
			})
		})
	}
}

// loadRecord returns nil when the key has never been seen.
func loadRecord(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*idempotencyRecord, error) {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &rec, nil
}

// reserve claims key for this request. Losing the race returns the
// winner's record instead.
func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string, ttl time.Duration) (*idempotencyRecord, error) {
	pending, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: hash})
	ok, err := store.SetNX(ctx, key, string(pending), ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	if ok {
		return nil, nil
	}
	return &idempotencyRecord{Pending: true, RequestHash: hash}, nil
}

// complete swaps the reservation for the final response. Server errors only
// release the key so the client can retry.
func complete(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key string, ttl time.Duration, rec idempotencyRecord) {
	if err := store.Del(ctx, key); err != nil {
		logError(ctx, logg, "release idempotency reservation", err)
		return
	}
	if rec.Status >= http.StatusInternalServerError {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		logError(ctx, logg, "marshal idempotency record", err)
		return
	}
	if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil {
		logError(ctx, logg, "persist idempotency record", err)
	}
}

func replay(w http.ResponseWriter, r *http.Request, logg *logger.Logger, rec *idempotencyRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case rec.Pending:
		responses.WriteError(r.Context(), logg, w, errKeyInFlight)
	default:
		if rec.ContentType != "" {
			w.Header().Set("Content-Type", rec.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

func requiresIdempotency(method, path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.matcher(path) {
			return true
		}
	}
	return false
}

func matchExact(want string) routeMatcher {
	return func(path string) bool {
		return path == want
	}
}

// matchPrefixSuffix matches exactly one path segment between prefix and suffix.
func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(path string) bool {
		if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
			return false
		}
		middle := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
		return middle != "" && !strings.Contains(middle, "/")
	}
}

// teeWriter keeps a copy of the body for the idempotency record.
type teeWriter struct {
	*recorder
	body bytes.Buffer
}

func (t *teeWriter) Write(b []byte) (int, error) {
	n, err := t.recorder.Write(b)
	t.body.Write(b[:n])
	return n, err
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
