package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestPublicHidesInternalDetail(t *testing.T) {
	status, msg, details := New(CodeStateConflict, "sent quotes cannot be edited").
		WithDetails(map[string]any{"status": "sent"}).Public()
	if status != http.StatusUnprocessableEntity || msg != "sent quotes cannot be edited" || details == nil {
		t.Fatalf("unexpected state conflict rendering %d %q %v", status, msg, details)
	}

	status, msg, details = Wrap(CodeInternal, stdErrors.New("dial tcp"), "load quote").
		WithDetails(map[string]any{"query": "select"}).Public()
	if status != http.StatusInternalServerError || msg != "internal server error" || details != nil {
		t.Fatalf("internal error leaked %d %q %v", status, msg, details)
	}

	if _, msg, _ = New(CodeNotFound, "").Public(); msg != "resource not found" {
		t.Fatalf("empty message should fall back, got %q", msg)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(New(CodeValidation, "bad")) {
		t.Fatalf("validation errors are final")
	}
	if !Retryable(fmt.Errorf("ping: %w", New(CodeDependency, "redis down"))) {
		t.Fatalf("dependency errors are retryable")
	}
	if !Retryable(stdErrors.New("unknown")) {
		t.Fatalf("untyped errors are treated as internal")
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := Newf(CodeStateConflict, "quote %s is %s", "Q-1", "sent")
	if inner.Message() != "quote Q-1 is sent" {
		t.Fatalf("unexpected message %q", inner.Message())
	}
	outer := fmt.Errorf("update line: %w", inner)
	if !IsCode(outer, CodeStateConflict) {
		t.Fatalf("expected wrapped state conflict to be detected")
	}
	if IsCode(outer, CodeConflict) {
		t.Fatalf("expected conflict code mismatch")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pq.Error{Code: "23505", Constraint: "quotes_quote_number_key", Table: "quotes", Message: "duplicate key"}
	err := Wrap(CodeConflict, pgErr, "insert quote")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.DBCode != "23505" || dump.DBConstraint != "quotes_quote_number_key" || dump.DBTable != "quotes" {
		t.Fatalf("unexpected postgres fields %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
}

func TestDumpExtractsSQLiteConstraint(t *testing.T) {
	err := Wrap(CodeConflict, fmt.Errorf("create user: %w", stdErrors.New("UNIQUE constraint failed: users.email")), "register")
	dump := Dump(err)
	if dump.DBCode != "sqlite_unique" || dump.DBTable != "users" || dump.DBColumn != "email" {
		t.Fatalf("unexpected sqlite fields %+v", dump)
	}
	if dump.LogFields()["db_table"] != "users" {
		t.Fatalf("log fields missing table: %v", dump.LogFields())
	}

	check := Dump(stdErrors.New("CHECK constraint failed: quantity_positive"))
	if check.DBCode != "sqlite_check" || check.DBConstraint != "quantity_positive" {
		t.Fatalf("unexpected check fields %+v", check)
	}

	if plain := Dump(stdErrors.New("boom")); plain.HasDBError() || plain.LogFields() != nil {
		t.Fatalf("plain errors carry no db fields: %+v", plain)
	}
}

func TestDumpNil(t *testing.T) {
	if dump := Dump(nil); dump.TopMessage != "" || dump.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", dump)
	}
}
