package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jgoulah/meterbook/pkg/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no reading has the requested id
var ErrNotFound = errors.New("reading not found")

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, creating its directory and schema if needed
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serializes writers; one connection keeps pragmas consistent
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		unit INTEGER NOT NULL CHECK(unit IN (1, 2)),
		utility TEXT NOT NULL CHECK(utility IN ('gas', 'water', 'electricity')),
		value REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_readings_lookup ON readings(unit, utility, date);
	`

	_, err := db.conn.Exec(schema)
	return err
}

const selectReadings = `SELECT id, date, unit, utility, value, created_at FROM readings`

// ListAll retrieves every reading ordered by date, unit and utility
func (db *DB) ListAll(ctx context.Context) ([]models.Reading, error) {
	return db.query(ctx, selectReadings+` ORDER BY date ASC, unit ASC, utility ASC, id ASC`)
}

// ListFiltered retrieves the readings of a unit and/or utility ordered by date.
// A zero unit or empty utility does not filter.
func (db *DB) ListFiltered(ctx context.Context, unit models.Unit, utility models.Utility) ([]models.Reading, error) {
	var where []string
	var args []any

	if unit != 0 {
		where = append(where, "unit = ?")
		args = append(args, int(unit))
	}
	if utility != "" {
		where = append(where, "utility = ?")
		args = append(args, string(utility))
	}

	query := selectReadings
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, id ASC"

	return db.query(ctx, query, args...)
}

// Get retrieves a single reading
func (db *DB) Get(ctx context.Context, id int64) (*models.Reading, error) {
	row := db.conn.QueryRowContext(ctx, selectReadings+` WHERE id = ?`, id)

	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying reading %d: %w", id, err)
	}
	return r, nil
}

// Create inserts a reading and returns it with its assigned id
func (db *DB) Create(ctx context.Context, input models.ReadingInput) (*models.Reading, error) {
	id, err := insertReading(ctx, db.conn, input)
	if err != nil {
		return nil, err
	}
	return db.Get(ctx, id)
}

// CreateBatch inserts all inputs in a single transaction
func (db *DB) CreateBatch(ctx context.Context, inputs []models.ReadingInput) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, input := range inputs {
		if _, err := insertReading(ctx, tx, input); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing readings: %w", err)
	}
	return len(inputs), nil
}

// Update replaces all fields of a reading
func (db *DB) Update(ctx context.Context, id int64, input models.ReadingInput) (*models.Reading, error) {
	query := `UPDATE readings SET date = ?, unit = ?, utility = ?, value = ? WHERE id = ?`
	res, err := db.conn.ExecContext(ctx, query, input.Date, int(input.Unit), string(input.Utility), input.Value, id)
	if err != nil {
		return nil, fmt.Errorf("updating reading %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating reading %d: %w", id, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	return db.Get(ctx, id)
}

// Delete removes a reading, reporting whether it existed
func (db *DB) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting reading %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting reading %d: %w", id, err)
	}
	return n > 0, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertReading(ctx context.Context, ex execer, input models.ReadingInput) (int64, error) {
	query := `
	INSERT INTO readings (date, unit, utility, value, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	createdAt := time.Now().UTC().Format("2006-01-02 15:04:05")
	res, err := ex.ExecContext(ctx, query, input.Date, int(input.Unit), string(input.Utility), input.Value, createdAt)
	if err != nil {
		return 0, fmt.Errorf("inserting reading: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

func (db *DB) query(ctx context.Context, query string, args ...any) ([]models.Reading, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	results := []models.Reading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *r)
	}

	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (*models.Reading, error) {
	var r models.Reading
	var unit int
	var utility string

	if err := s.Scan(&r.ID, &r.Date, &unit, &utility, &r.Value, &r.CreatedAt); err != nil {
		return nil, err
	}

	r.Unit = models.Unit(unit)
	r.Utility = models.Utility(utility)
	return &r, nil
}
