package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain and any database error inside it for
// structured logs. Postgres errors come from either pgx or lib/pq; SQLite
// only reports constraint failures in the message text.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	DBCode       string `json:"db_code,omitempty"`
	DBConstraint string `json:"db_constraint,omitempty"`
	DBTable      string `json:"db_table,omitempty"`
	DBColumn     string `json:"db_column,omitempty"`
	DBDetail     string `json:"db_detail,omitempty"`
	DBMessage    string `json:"db_message,omitempty"`
}

// HasDBError reports whether a database error was found in the chain.
func (d ErrorDump) HasDBError() bool {
	return d.DBCode != ""
}

// LogFields returns the database fields keyed for the request logger.
func (d ErrorDump) LogFields() map[string]any {
	if !d.HasDBError() {
		return nil
	}
	return map[string]any{
		"db_code":       d.DBCode,
		"db_constraint": d.DBConstraint,
		"db_table":      d.DBTable,
		"db_column":     d.DBColumn,
		"db_detail":     d.DBDetail,
		"db_message":    d.DBMessage,
	}
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBColumn = pgxErr.ColumnName
		d.DBDetail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBColumn = pqErr.Column
		d.DBDetail = pqErr.Detail
		d.DBMessage = pqErr.Message
		return d
	}

	dumpSQLite(&d, err)
	return d
}

var sqliteConstraints = []struct {
	prefix string
	code   string
}{
	{"UNIQUE constraint failed", "sqlite_unique"},
	{"FOREIGN KEY constraint failed", "sqlite_foreign_key"},
	{"CHECK constraint failed", "sqlite_check"},
	{"NOT NULL constraint failed", "sqlite_not_null"},
}

// dumpSQLite reads messages such as "UNIQUE constraint failed: users.email".
func dumpSQLite(d *ErrorDump, err error) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		for _, c := range sqliteConstraints {
			idx := strings.Index(msg, c.prefix)
			if idx < 0 {
				continue
			}
			d.DBCode = c.code
			d.DBMessage = msg[idx:]
			target := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(c.prefix):], ":"))
			if first, _, ok := strings.Cut(target, ","); ok {
				target = first
			}
			if table, column, ok := strings.Cut(target, "."); ok {
				d.DBTable, d.DBColumn = table, column
			} else {
				d.DBConstraint = target
			}
			return
		}
	}
}
