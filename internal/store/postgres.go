package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/addressbook-cli/internal/db"
	"github.com/sells-group/addressbook-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS address_book (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address_id   TEXT NOT NULL,
	street       TEXT NOT NULL DEFAULT '',
	house_number TEXT NOT NULL DEFAULT '',
	postcode     TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	first_name   TEXT NOT NULL,
	last_name    TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_address_book_postcode ON address_book(postcode);
CREATE INDEX IF NOT EXISTS idx_address_book_created_at ON address_book(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const postgresInsertEntry = `INSERT INTO address_book
	(id, address_id, street, house_number, postcode, city, first_name, last_name, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// entryColumns is the column order shared by inserts and COPY.
var entryColumns = []string{
	"id", "address_id", "street", "house_number", "postcode", "city",
	"first_name", "last_name", "created_at",
}

func (s *PostgresStore) Add(ctx context.Context, rec model.PersonAddress) (*model.Entry, error) {
	e := newEntry(rec)
	if _, err := s.pool.Exec(ctx, postgresInsertEntry, entryArgs(e)...); err != nil {
		return nil, eris.Wrap(err, "postgres: insert entry")
	}
	return &e, nil
}

// AddMany bulk-loads recs with COPY.
func (s *PostgresStore) AddMany(ctx context.Context, recs []model.PersonAddress) (int, error) {
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, entryArgs(newEntry(rec)))
	}
	n, err := db.CopyFrom(ctx, s.pool, "address_book", entryColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: add many")
	}
	return int(n), nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]model.Entry, error) {
	query := `SELECT id, address_id, street, house_number, postcode, city, first_name, last_name, created_at
		FROM address_book WHERE 1=1`
	var args []any

	if filter.Postcode != "" {
		args = append(args, filter.Postcode)
		query += ` AND postcode = $1`
	}
	args = append(args, filter.limit())
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entries")
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list entries iterate")
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM address_book`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count entries")
	}
	return n, nil
}
