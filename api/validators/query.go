package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
)

// CleanText trims s and caps it at maxRunes runes. A non-positive cap keeps
// the whole string.
func CleanText(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes]))
}

// QueryText reads a free-text search parameter.
func QueryText(r *http.Request, key string, maxRunes int) string {
	return CleanText(r.URL.Query().Get(key), maxRunes)
}

// QueryInt reads an optional integer parameter bounded by [lo, hi].
func QueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be a whole number").
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if n < lo || n > hi {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, lo, hi).
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return n, nil
}
