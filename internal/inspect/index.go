// Package inspect builds a read-only, queryable index over a
// TransactionLog for offline diagnosis: given a log file, it replays
// every record once into a SQLite database so an operator can look up
// a transaction by zxid, dump a range, or spot a gap without a second
// implementation of the on-disk record format. It never opens the log
// for append and never mutates the log file itself.
package inspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/kavih/zabcore/internal/fsx"
	"github.com/kavih/zabcore/internal/txnlog"
	"github.com/kavih/zabcore/internal/zxid"
)

// schemaVersion guards against opening an index built by an
// incompatible version of this package against the same sqlite file.
const schemaVersion = 1

// Index is a SQLite-backed catalog of every record in one
// TransactionLog, keyed by (epoch, xid).
type Index struct {
	db *sql.DB
}

// Record is one cataloged transaction: its identity, wire type, body
// length, and byte offset within the log file.
type Record struct {
	Epoch  int64 `json:"epoch" yaml:"epoch"`
	Xid    int64 `json:"xid" yaml:"xid"`
	Type   int32 `json:"type" yaml:"type"`
	Offset int64 `json:"offset" yaml:"offset"`
	Length int64 `json:"length" yaml:"length"`
}

// Build opens log at logPath read-only, replays it fully, and writes
// the resulting catalog to indexPath (a fresh SQLite database; Build
// fails if indexPath already exists and is non-empty, since an index
// is a point-in-time snapshot, not something Build merges into).
func Build(ctx context.Context, fsys fsx.FS, logPath, indexPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", indexPath)
	if err != nil {
		return nil, fmt.Errorf("inspect: open index %q: %w", indexPath, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: ping index %q: %w", indexPath, err)
	}

	var objects int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&objects); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: check index %q: %w", indexPath, err)
	}

	if objects > 0 {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: index %q already exists and is not empty", indexPath)
	}

	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log, err := txnlog.Open(fsys, logPath, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: open log %q: %w", logPath, err)
	}
	defer func() { _ = log.Close() }()

	it, err := log.GetIterator(zxid.NotExist)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: iterate %q: %w", logPath, err)
	}
	defer func() { _ = it.Close() }()

	if err := populate(ctx, db, it); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Index{db: db}, nil
}

// Open opens a previously Built index at indexPath for querying.
func Open(ctx context.Context, indexPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", indexPath)
	if err != nil {
		return nil, fmt.Errorf("inspect: open index %q: %w", indexPath, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: ping index %q: %w", indexPath, err)
	}

	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: read schema version of %q: %w", indexPath, err)
	}

	if version != schemaVersion {
		_ = db.Close()
		return nil, fmt.Errorf("inspect: index %q has schema version %d, want %d", indexPath, version, schemaVersion)
	}

	return &Index{db: db}, nil
}

// Close releases the underlying SQLite handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Lookup returns the cataloged Record for z, or false if no record
// with that exact zxid was indexed.
func (idx *Index) Lookup(ctx context.Context, z zxid.Zxid) (Record, bool, error) {
	row := idx.db.QueryRowContext(ctx,
		`SELECT epoch, xid, type, offset, length FROM records WHERE epoch = ? AND xid = ?`,
		z.Epoch, z.Xid)

	var r Record

	err := row.Scan(&r.Epoch, &r.Xid, &r.Type, &r.Offset, &r.Length)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}

	if err != nil {
		return Record{}, false, fmt.Errorf("inspect: lookup %s: %w", z, err)
	}

	return r, true, nil
}

// Range returns every cataloged record with zxid in [from, to],
// ordered by (epoch, xid) ascending.
func (idx *Index) Range(ctx context.Context, from, to zxid.Zxid) ([]Record, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT epoch, xid, type, offset, length FROM records
		 WHERE (epoch, xid) >= (?, ?) AND (epoch, xid) <= (?, ?)
		 ORDER BY epoch, xid`,
		from.Epoch, from.Xid, to.Epoch, to.Xid)
	if err != nil {
		return nil, fmt.Errorf("inspect: range query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record

	for rows.Next() {
		var r Record

		if err := rows.Scan(&r.Epoch, &r.Xid, &r.Type, &r.Offset, &r.Length); err != nil {
			return nil, fmt.Errorf("inspect: scan range row: %w", err)
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inspect: range rows: %w", err)
	}

	return out, nil
}

// Count returns the total number of records cataloged.
func (idx *Index) Count(ctx context.Context) (int64, error) {
	var n int64

	err := idx.db.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("inspect: count: %w", err)
	}

	return n, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
		`CREATE TABLE IF NOT EXISTS records (
			epoch  INTEGER NOT NULL,
			xid    INTEGER NOT NULL,
			type   INTEGER NOT NULL,
			offset INTEGER NOT NULL,
			length INTEGER NOT NULL,
			PRIMARY KEY (epoch, xid)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("inspect: schema: %w", err)
		}
	}

	return nil
}

// populate walks it to completion, inserting one row per record
// inside a single transaction so a crash mid-build never leaves a
// partially indexed catalog behind.
func populate(ctx context.Context, db *sql.DB, it *txnlog.Iterator) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("inspect: begin populate: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (epoch, xid, type, offset, length) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("inspect: prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var offset int64

	for it.HasNext() {
		t, err := it.Next()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inspect: read record at offset %d: %w", offset, err)
		}

		length := t.RecordLen()

		if _, err := stmt.ExecContext(ctx, t.Zxid.Epoch, t.Zxid.Xid, t.Type, offset, length); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inspect: insert record %s: %w", t.Zxid, err)
		}

		offset += length
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("inspect: commit populate: %w", err)
	}

	return nil
}
