package snapshotstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

const (
	report_sql_load = "sql.load"
	report_sql_save = "sql.save"
)

// OpenSQLite opens (and creates if needed) a local sqlite database with the
// snapshot schema applied.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a sqlite path was not specified")
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0o755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single writer per cycle, sqlite does not benefit from more connections.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenLibsql connects to a remote libsql (turso) database, url is of the
// form libsql://<db>.turso.io?authToken=<token>.
func OpenLibsql(ctx context.Context, url string) (*sql.DB, error) {
	if !strings.HasPrefix(url, "libsql://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil, fmt.Errorf("unsupported libsql url %q", url)
	}
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx, Schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SQLStore keeps the snapshot as rows of a sqlite/libsql database, every
// save replaces all rows within one transaction.
type SQLStore struct {
	db   *sql.DB
	name string
	time chrono.TimeAPI
	tel  telemetry.API
}

func NewSQLStore(db *sql.DB, name string, time chrono.TimeAPI, tel telemetry.API) *SQLStore {
	assert.NotNil(db)
	assert.NotNil(time)
	assert.NotNil(tel)

	return &SQLStore{
		db:   db,
		name: name,
		time: time,
		tel:  telemetry.NewScopedAPI("snapshot_store", tel),
	}
}

func (s *SQLStore) backend() string {
	return fmt.Sprintf("sql %s", s.name)
}

func (s *SQLStore) Load(ctx context.Context) (grades.Snapshot, bool, error) {
	snapshot, found, err := s.load(ctx)
	if err != nil {
		s.tel.ReportDebug(report_sql_load, err)
		return nil, false, &StorageError{Op: "load", Backend: s.backend(), Err: err}
	}
	return snapshot, found, nil
}

func (s *SQLStore) load(ctx context.Context) (grades.Snapshot, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var expected int
	err = tx.QueryRowContext(ctx, "select record_count from snapshot_meta where id = 1").Scan(&expected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := tx.QueryContext(ctx, "select subject, grade, status from snapshot_records order by position")
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	snapshot := grades.Snapshot{}
	for rows.Next() {
		var r grades.Record
		err = rows.Scan(&r.Subject, &r.Grade, &r.Status)
		if err != nil {
			return nil, false, err
		}
		snapshot = append(snapshot, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, false, err
	}

	if len(snapshot) != expected {
		return nil, false, fmt.Errorf("%w: expected %d records, found %d", ErrCorrupt, expected, len(snapshot))
	}
	err = snapshot.Validate()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return snapshot, true, nil
}

func (s *SQLStore) Save(ctx context.Context, snapshot grades.Snapshot) error {
	err := s.save(ctx, snapshot)
	if err != nil {
		s.tel.ReportDebug(report_sql_save, err)
		return &StorageError{Op: "save", Backend: s.backend(), Err: err}
	}
	return nil
}

func (s *SQLStore) save(ctx context.Context, snapshot grades.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from snapshot_records")
	if err != nil {
		return err
	}
	for i, r := range snapshot {
		_, err = tx.ExecContext(
			ctx,
			"insert into snapshot_records(position, subject, grade, status) values (?, ?, ?, ?)",
			i, r.Subject, r.Grade, r.Status,
		)
		if err != nil {
			return fmt.Errorf("insert %q: %w", r.Subject, err)
		}
	}
	_, err = tx.ExecContext(
		ctx,
		`insert into snapshot_meta(id, saved_at, record_count) values (1, ?, ?)
		on conflict(id) do update set saved_at = excluded.saved_at, record_count = excluded.record_count`,
		s.time.Now().Unix(), len(snapshot),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
