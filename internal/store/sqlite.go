package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS address_book (
	id           TEXT PRIMARY KEY,
	address_id   TEXT NOT NULL,
	street       TEXT NOT NULL DEFAULT '',
	house_number TEXT NOT NULL DEFAULT '',
	postcode     TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	first_name   TEXT NOT NULL,
	last_name    TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_address_book_postcode ON address_book(postcode);
CREATE INDEX IF NOT EXISTS idx_address_book_created_at ON address_book(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteInsertEntry = `INSERT INTO address_book
	(id, address_id, street, house_number, postcode, city, first_name, last_name, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) Add(ctx context.Context, rec model.PersonAddress) (*model.Entry, error) {
	e := newEntry(rec)
	_, err := s.db.ExecContext(ctx, sqliteInsertEntry, entryArgs(e)...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert entry")
	}
	return &e, nil
}

func (s *SQLiteStore) AddMany(ctx context.Context, recs []model.PersonAddress) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertEntry)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, rec := range recs {
		if _, err := stmt.ExecContext(ctx, entryArgs(newEntry(rec))...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert entry %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return len(recs), nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]model.Entry, error) {
	query := `SELECT id, address_id, street, house_number, postcode, city, first_name, last_name, created_at
		FROM address_book WHERE 1=1`
	var args []any

	if filter.Postcode != "" {
		query += ` AND postcode = ?`
		args = append(args, filter.Postcode)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entries")
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list entries iterate")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM address_book`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count entries")
	}
	return n, nil
}

func newEntry(rec model.PersonAddress) model.Entry {
	return model.Entry{
		EntryID:       uuid.New().String(),
		PersonAddress: rec,
		CreatedAt:     time.Now().UTC(),
	}
}

func entryArgs(e model.Entry) []any {
	return []any{
		e.EntryID, e.ID, e.Street, e.HouseNumber, e.Postcode, e.City,
		e.FirstName, e.LastName, e.CreatedAt,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*model.Entry, error) {
	var e model.Entry
	err := row.Scan(
		&e.EntryID, &e.ID, &e.Street, &e.HouseNumber, &e.Postcode, &e.City,
		&e.FirstName, &e.LastName, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
