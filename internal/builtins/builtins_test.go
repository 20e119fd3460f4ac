package builtins

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/interp"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// TestDBOpenExecQueryClose exercises db_open/db_exec/db_query/db_close
// end to end against an in-memory database, using the pure-Go "sqlite"
// driver (modernc.org/sqlite) so the test has no cgo toolchain dependency.
func TestDBOpenExecQueryClose(t *testing.T) {
	m := interp.New(interp.DefaultOptions())
	Register(m)

	open := m.Natives["db_open"]
	handle, err := open([]value.Value{
		value.StrVal("sqlite"),
		value.StrVal("file::memory:?cache=shared"),
	})
	if err != nil {
		t.Fatalf("db_open: %v", err)
	}

	exec := m.Natives["db_exec"]
	if _, err := exec([]value.Value{handle, value.StrVal("CREATE TABLE widgets (id INTEGER, name TEXT)")}); err != nil {
		t.Fatalf("db_exec create: %v", err)
	}
	affected, err := exec([]value.Value{handle, value.StrVal("INSERT INTO widgets (id, name) VALUES (1, 'bolt'), (2, 'nut')")})
	if err != nil {
		t.Fatalf("db_exec insert: %v", err)
	}
	if affected.AsI64() != 2 {
		t.Fatalf("expected 2 rows affected, got %d", affected.AsI64())
	}

	query := m.Natives["db_query"]
	rowsVal, err := query([]value.Value{handle, value.StrVal("SELECT id, name FROM widgets ORDER BY id")})
	if err != nil {
		t.Fatalf("db_query: %v", err)
	}
	rows := rowsVal.AsObj().Payload.(*value.ArrayObj).Elements
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0].AsObj().Payload.(*value.ArrayObj).Elements
	if first[0].AsI64() != 1 || first[1].AsStr() != "bolt" {
		t.Fatalf("unexpected first row: %v", first)
	}

	closeFn := m.Natives["db_close"]
	if _, err := closeFn([]value.Value{handle}); err != nil {
		t.Fatalf("db_close: %v", err)
	}
	if _, err := closeFn([]value.Value{handle}); err != nil {
		t.Fatalf("db_close should be idempotent, got error: %v", err)
	}
}
