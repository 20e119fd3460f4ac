// Package builtins implements the intrinsic signature table and native
// function bodies of spec component C10: "The compiler only ever sees
// {symbol, arity, argTypes, returnType}; the VM resolves at runtime to a
// NativeFn." The database intrinsics below are the concrete home
// SPEC_FULL.md §11 gives the corpus's SQL driver dependencies: the opcode
// handlers never import database/sql directly, only this package does.
package builtins

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb" // driver: sqlserver
	_ "github.com/go-sql-driver/mysql"   // driver: mysql
	_ "github.com/lib/pq"                // driver: postgres
	_ "github.com/mattn/go-sqlite3"      // driver: sqlite3
	_ "modernc.org/sqlite"               // driver: sqlite (pure Go)

	"github.com/pkg/errors"

	"github.com/jordyorel/orus-lang-sub009/internal/interp"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// Signature is one intrinsic's {symbol, arity, argTypes, returnType} entry,
// the shape spec §6 hands to the compiler ahead of emission so a CALL to a
// native can be arity-checked without inspecting NativeFn itself.
type Signature struct {
	Symbol     string
	Arity      int
	ArgTypes   []value.Tag
	ReturnType value.Tag
}

// Table lists every intrinsic this package registers, for a compiler or
// linker stage to validate call sites against ahead of running the
// program.
func Table() []Signature {
	return []Signature{
		{Symbol: "db_open", Arity: 2, ArgTypes: []value.Tag{value.Str, value.Str}, ReturnType: value.Object},
		{Symbol: "db_exec", Arity: 2, ArgTypes: []value.Tag{value.Object, value.Str}, ReturnType: value.I64},
		{Symbol: "db_query", Arity: 2, ArgTypes: []value.Tag{value.Object, value.Str}, ReturnType: value.Object},
		{Symbol: "db_close", Arity: 1, ArgTypes: []value.Tag{value.Object}, ReturnType: value.Nil},
	}
}

// Register installs every intrinsic's NativeFn body under its symbol, the
// same resolve-by-name step Machine.RegisterNative exists for.
func Register(m *interp.Machine) {
	m.RegisterNative("db_open", dbOpen)
	m.RegisterNative("db_exec", dbExec)
	m.RegisterNative("db_query", dbQuery)
	m.RegisterNative("db_close", dbClose)
}

// dbHandle recovers the *sql.DB a db_* call was given, rejecting anything
// that isn't an open connection handle returned by db_open.
func dbHandle(v value.Value) (*sql.DB, *value.FileHandleObj, error) {
	obj := v.AsObj()
	if obj == nil || obj.Kind != value.KindFileHandle {
		return nil, nil, fmt.Errorf("expected a database handle, got %s", v.Tag)
	}
	fh := obj.Payload.(*value.FileHandleObj)
	if fh.Closed {
		return nil, fh, fmt.Errorf("database handle already closed")
	}
	db, ok := fh.Handle.(*sql.DB)
	if !ok {
		return nil, fh, fmt.Errorf("handle is not a database connection")
	}
	return db, fh, nil
}

// dbOpen implements db_open(driver, dsn): opens a connection through
// database/sql and verifies it with Ping before handing back a handle, so
// a bad DSN surfaces as an error at the call site rather than on first
// query.
func dbOpen(args []value.Value) (value.Value, error) {
	driver := args[0].AsStr()
	dsn := args[1].AsStr()

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return value.NilValue, errors.Wrapf(err, "db_open: %s", driver)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return value.NilValue, errors.Wrapf(err, "db_open: %s ping", driver)
	}
	handle := value.NewFileHandle(driver+"://"+dsn, db, true)
	return value.ObjVal(handle), nil
}

// dbExec implements db_exec(handle, statement) for DDL/DML that returns
// no rows, the database/sql counterpart to dbQuery's Query call.
func dbExec(args []value.Value) (value.Value, error) {
	db, _, err := dbHandle(args[0])
	if err != nil {
		return value.NilValue, err
	}
	result, err := db.Exec(args[1].AsStr())
	if err != nil {
		return value.NilValue, errors.Wrap(err, "db_exec")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return value.NilValue, errors.Wrap(err, "db_exec: rows affected")
	}
	return value.I64Val(affected), nil
}

// dbQuery implements db_query(handle, query): runs a SELECT and returns an
// array of row arrays, each cell converted from its driver-native Go type
// to the nearest Value tag.
func dbQuery(args []value.Value) (value.Value, error) {
	db, _, err := dbHandle(args[0])
	if err != nil {
		return value.NilValue, err
	}

	rows, err := db.Query(args[1].AsStr())
	if err != nil {
		return value.NilValue, errors.Wrap(err, "db_query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return value.NilValue, errors.Wrap(err, "db_query: columns")
	}

	var out []value.Value
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return value.NilValue, errors.Wrap(err, "db_query: scan")
		}
		rowVals := make([]value.Value, len(cols))
		for i, cell := range raw {
			rowVals[i] = cellToValue(cell)
		}
		out = append(out, value.ObjVal(value.NewArray(rowVals)))
	}
	if err := rows.Err(); err != nil {
		return value.NilValue, errors.Wrap(err, "db_query: rows")
	}
	return value.ObjVal(value.NewArray(out)), nil
}

// cellToValue converts one database/sql scanned cell to the nearest Value
// tag; drivers hand back a small fixed set of Go types for an interface{}
// scan target (spec §7's numeric tags are never inferred beyond this).
func cellToValue(cell interface{}) value.Value {
	switch v := cell.(type) {
	case nil:
		return value.NilValue
	case int64:
		return value.I64Val(v)
	case float64:
		return value.F64Val(v)
	case bool:
		return value.Boolean(v)
	case []byte:
		return value.StrVal(string(v))
	case string:
		return value.StrVal(v)
	default:
		return value.StrVal(fmt.Sprintf("%v", v))
	}
}

// dbClose implements db_close(handle): idempotent, matching spec §5's
// file-handle close contract reused here for database connections.
func dbClose(args []value.Value) (value.Value, error) {
	db, fh, err := dbHandle(args[0])
	if err != nil {
		if fh != nil && fh.Closed {
			return value.NilValue, nil
		}
		return value.NilValue, err
	}
	if err := db.Close(); err != nil {
		return value.NilValue, errors.Wrap(err, "db_close")
	}
	fh.Closed = true
	return value.NilValue, nil
}
