package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (records table)
// 1 - Added (entity, seq) index for change scans
const currentSchemaVersion = 1

// SQLite is an Engine backed by a SQLite database file.
// Uses WAL mode so reads for watch refreshes do not block on writers.
type SQLite struct {
	db       *sql.DB
	compiler *querysql.SQLCompiler
	hub      *hub
	seq      atomic.Int64
	closed   atomic.Bool
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLite{db: db, compiler: querysql.NewSQLCompiler()}
	s.hub = newHub(s.fetch)

	var maxSeq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM records").Scan(&maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read write clock: %w", err)
	}
	s.seq.Store(maxSeq.Int64)

	return s, nil
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - writes made through it are not seen by watches.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes live watches and the database connection.
func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.hub.closeAll()
	return s.db.Close()
}

// Watches returns the number of live watches.
func (s *SQLite) Watches() int {
	return s.hub.count()
}

// Watch implements Engine.
func (s *SQLite) Watch(ctx context.Context, q query.Query, fn WatchFunc) (Subscription, error) {
	if s.closed.Load() {
		return nil, readError(q.Entity(), ErrClosed)
	}
	return s.hub.watch(ctx, q, fn)
}

// fetch runs the compiled query and decodes each document.
// Returns an empty slice (not nil) when nothing matches.
func (s *SQLite) fetch(ctx context.Context, q query.Query) ([]ir.Object, error) {
	sqlText, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.Object{}
	for rows.Next() {
		var id int64
		var doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var obj ir.Object
		if err := obj.UnmarshalJSON([]byte(doc)); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", id, err)
		}
		records = append(records, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Upsert implements Engine. Records whose content is unchanged are not
// rewritten, keep their seq and do not trigger a watch refresh.
func (s *SQLite) Upsert(ctx context.Context, entity string, records []ir.Object) error {
	if s.closed.Load() {
		return writeError(entity, ErrClosed)
	}
	if err := query.Validate(query.New(entity)); err != nil {
		return writeError(entity, err)
	}

	type row struct {
		id     int64
		doc    []byte
		digest string
	}
	rows := make([]row, len(records))
	for i, r := range records {
		id, ok := RecordID(r)
		if !ok {
			return writeError(entity, fmt.Errorf("record %d: %w", i, ErrMissingID))
		}
		doc, err := r.MarshalJSON()
		if err != nil {
			return writeError(entity, fmt.Errorf("encode record %d: %w", id, err))
		}
		digest, err := ir.RecordDigest(r)
		if err != nil {
			return writeError(entity, fmt.Errorf("digest record %d: %w", id, err))
		}
		rows[i] = row{id: id, doc: doc, digest: digest}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeError(entity, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (entity, id, doc, digest, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity, id) DO UPDATE SET
			doc = excluded.doc,
			digest = excluded.digest,
			seq = excluded.seq
		WHERE records.digest != excluded.digest
	`)
	if err != nil {
		return writeError(entity, fmt.Errorf("prepare upsert: %w", err))
	}
	defer stmt.Close()

	var changed int64
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx, entity, r.id, string(r.doc), r.digest, s.seq.Add(1))
		if err != nil {
			return writeError(entity, fmt.Errorf("upsert record %d: %w", r.id, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return writeError(entity, fmt.Errorf("upsert record %d: %w", r.id, err))
		}
		changed += n
	}

	if err := tx.Commit(); err != nil {
		return writeError(entity, fmt.Errorf("commit: %w", err))
	}

	if changed > 0 {
		s.hub.refresh(ctx, entity)
	}
	return nil
}

// Delete implements Engine. The target set is the query's full result,
// window included.
func (s *SQLite) Delete(ctx context.Context, q query.Query) error {
	if s.closed.Load() {
		return writeError(q.Entity(), ErrClosed)
	}

	idSQL, params, err := s.compiler.CompileIDs(q)
	if err != nil {
		return writeError(q.Entity(), err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeError(q.Entity(), fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	ids, err := scanIDs(ctx, tx, idSQL, params)
	if err != nil {
		return writeError(q.Entity(), err)
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM records WHERE entity = ? AND id = ?", q.Entity(), id); err != nil {
			return writeError(q.Entity(), fmt.Errorf("delete record %d: %w", id, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return writeError(q.Entity(), fmt.Errorf("commit: %w", err))
	}

	if len(ids) > 0 {
		s.hub.refresh(ctx, q.Entity())
	}
	return nil
}

func scanIDs(ctx context.Context, tx *sql.Tx, sqlText string, params []any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("select ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the (entity, seq) index for existing databases.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_entity_seq
		ON records(entity, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	q := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(q).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
