// Package store talks to the remote libsql database: idempotent schema
// provisioning, visit recording, and single-pass result reads.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/visitmap/visitmap/internal/model"
	"github.com/visitmap/visitmap/internal/observability"
)

const (
	createCounterSQL     = `CREATE TABLE IF NOT EXISTS counter(country TEXT, city TEXT, value, PRIMARY KEY(country, city))`
	createCoordinatesSQL = `CREATE TABLE IF NOT EXISTS coordinates(lat, long, airport TEXT, PRIMARY KEY(lat, long))`

	seedCounterSQL    = `INSERT OR IGNORE INTO counter VALUES (?, ?, 0)`
	incrementSQL      = `UPDATE counter SET value = value + 1 WHERE country = ? AND city = ?`
	seedCoordinateSQL = `INSERT OR IGNORE INTO coordinates VALUES (?, ?, ?)`
	selectCounterSQL  = `SELECT * FROM counter`
	selectCoordsSQL   = `SELECT airport, lat, long FROM coordinates`
	selectUsersSQL    = `select * from example_users`
	insertUserSQL     = `insert into example_users values (?)`
)

type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	opTimeout time.Duration
	seeded    *lru.Cache[string, struct{}]
}

// Open connects to a libsql endpoint. The auth token is carried in the
// DSN, which therefore must never be logged.
func Open(url, token string, logger *slog.Logger, opTimeout time.Duration) (*Store, error) {
	dsn := url
	if token != "" {
		dsn = url + "?authToken=" + token
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	return New(db, logger, opTimeout), nil
}

// New wraps an existing connection pool. Tests use this seam with an
// in-memory SQLite database.
func New(db *sql.DB, logger *slog.Logger, opTimeout time.Duration) *Store {
	seeded, _ := lru.New[string, struct{}](4096)
	return &Store{db: db, logger: logger, opTimeout: opTimeout, seeded: seeded}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// EnsureSchema creates the counter and coordinates tables if absent,
// inside one transaction. A no-op when the tables already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	start := time.Now()
	err := s.ensureSchema(ctx)
	observability.ObserveDBOp("schema", err, time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "schema creation failed", "err", err)
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, stmt := range []string{createCounterSQL, createCoordinatesSQL} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecordVisit runs the visit pipeline: ensure schema, seed the counter
// row, increment it, and seed the coordinate row. Steps are strictly
// sequential; the first failure aborts the rest and is surfaced. The
// returned flag reports whether a brand-new coordinate row landed.
func (s *Store) RecordVisit(ctx context.Context, loc model.Location) (bool, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return false, err
	}

	counterKey := fmt.Sprintf("counter:%s:%s", loc.Country, loc.City)
	if _, ok := s.seeded.Get(counterKey); ok {
		observability.IncSeedSkip("counter")
	} else {
		if _, err := s.exec(ctx, "seed_counter", seedCounterSQL, loc.Country, loc.City); err != nil {
			return false, err
		}
		s.seeded.Add(counterKey, struct{}{})
	}

	if _, err := s.exec(ctx, "increment", incrementSQL, loc.Country, loc.City); err != nil {
		return false, err
	}

	newCoord := false
	coordKey := fmt.Sprintf("coord:%v:%v", loc.Lat, loc.Lon)
	if _, ok := s.seeded.Get(coordKey); ok {
		observability.IncSeedSkip("coordinates")
	} else {
		affected, err := s.exec(ctx, "seed_coordinate", seedCoordinateSQL, loc.Lat, loc.Lon, loc.Airport)
		if err != nil {
			return false, err
		}
		s.seeded.Add(coordKey, struct{}{})
		newCoord = affected > 0
	}

	observability.IncVisit(loc.Country)
	s.logger.DebugContext(ctx, "visit recorded",
		"airport", loc.Airport, "country", loc.Country, "city", loc.City)
	return newCoord, nil
}

// Counter reads back the full counter table.
func (s *Store) Counter(ctx context.Context) (model.ResultSet, error) {
	return s.query(ctx, "query_counter", selectCounterSQL)
}

// Coordinates reads back the coordinates table projected to
// (airport, lat, long), the column order the map canvas expects.
func (s *Store) Coordinates(ctx context.Context) (model.ResultSet, error) {
	return s.query(ctx, "query_coordinates", selectCoordsSQL)
}

// Users lists the user table. The table is assumed to pre-exist; no
// schema creation happens on this path.
func (s *Store) Users(ctx context.Context) (model.ResultSet, error) {
	return s.query(ctx, "query_users", selectUsersSQL)
}

func (s *Store) AddUser(ctx context.Context, email string) error {
	_, err := s.exec(ctx, "add_user", insertUserSQL, email)
	return err
}

func (s *Store) exec(ctx context.Context, op, stmt string, args ...any) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := s.db.ExecContext(ctx, stmt, args...)
	observability.ObserveDBOp(op, err, time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "exec failed", "op", op, "err", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// query runs a statement and wraps the rows in a forward-only,
// single-pass ResultSet. The sql.Rows is closed when the stream is
// drained or faults.
func (s *Store) query(ctx context.Context, op, stmt string, args ...any) (model.ResultSet, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	observability.ObserveDBOp(op, err, time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "query failed", "op", op, "err", err)
		return model.ResultSet{}, fmt.Errorf("%s: %w", op, err)
	}

	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return model.ResultSet{}, fmt.Errorf("%s columns: %w", op, err)
	}

	n := len(cols)
	next := func() (model.Row, error) {
		if !rows.Next() {
			err := rows.Err()
			_ = rows.Close()
			if err != nil {
				return nil, fmt.Errorf("%s rows: %w", op, err)
			}
			return nil, nil
		}
		raw := make([]any, n)
		ptrs := make([]any, n)
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		row := make(model.Row, n)
		for i, v := range raw {
			row[i] = model.CellOf(v)
		}
		return row, nil
	}

	return model.ResultSet{Columns: cols, Next: next}, nil
}
