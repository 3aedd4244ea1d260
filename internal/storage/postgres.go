// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/time/rate"
)

const defaultDataset = "default"

const schema = `
	CREATE TABLE IF NOT EXISTS library_datasets (
		name TEXT PRIMARY KEY,
		saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS library_books (
		dataset TEXT NOT NULL REFERENCES library_datasets(name) ON DELETE CASCADE,
		position INT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL,
		available BOOLEAN NOT NULL,
		borrower_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (dataset, position)
	);
	CREATE TABLE IF NOT EXISTS library_members (
		dataset TEXT NOT NULL REFERENCES library_datasets(name) ON DELETE CASCADE,
		position INT NOT NULL,
		name TEXT NOT NULL,
		member_id TEXT NOT NULL,
		PRIMARY KEY (dataset, position)
	);
`

// OpenPostgres connects to dsn and pings until the server answers or
// attempts run out. Pings are paced by a rate limiter.
func OpenPostgres(ctx context.Context, dsn string, attempts int, interval time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for i := 0; i < attempts; i++ {
		if err = limiter.Wait(ctx); err != nil {
			break
		}
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
	}
	db.Close()
	return nil, fmt.Errorf("failed to connect to database: %w", err)
}

// PostgresStore keeps snapshots in PostgreSQL, one dataset per save name.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func datasetName(name string) string {
	if strings.TrimSpace(name) == "" {
		return defaultDataset
	}
	return name
}

// Save replaces the dataset named target in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, target string, snap Snapshot) error {
	dataset := datasetName(target)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM library_datasets WHERE name = $1`, dataset); err != nil {
		return fmt.Errorf("clear dataset %s: %w", dataset, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO library_datasets (name, saved_at) VALUES ($1, NOW())`, dataset); err != nil {
		return fmt.Errorf("create dataset %s: %w", dataset, err)
	}

	bookRows := make([][]interface{}, 0, len(snap.Books))
	for i, b := range snap.Books {
		bookRows = append(bookRows, []interface{}{dataset, i, b.Title, b.Author, b.ISBN, b.Available, b.BorrowerID})
	}
	if err := copyRows(ctx, tx, "library_books", []string{"dataset", "position", "title", "author", "isbn", "available", "borrower_id"}, bookRows); err != nil {
		return err
	}

	memberRows := make([][]interface{}, 0, len(snap.Members))
	for i, m := range snap.Members {
		memberRows = append(memberRows, []interface{}{dataset, i, m.Name, m.ID})
	}
	if err := copyRows(ctx, tx, "library_members", []string{"dataset", "position", "name", "member_id"}, memberRows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]interface{}) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("copy row %d into %s: %w", i, table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy into %s: %w", table, err)
	}
	return nil
}

// Load reads the dataset named source.
func (s *PostgresStore) Load(ctx context.Context, source string) (Snapshot, error) {
	dataset := datasetName(source)

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM library_datasets WHERE name = $1)`, dataset).Scan(&exists)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "42P01" {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSourceNotFound, dataset)
		}
		return Snapshot{}, fmt.Errorf("query dataset %s: %w", dataset, err)
	}
	if !exists {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSourceNotFound, dataset)
	}

	var snap Snapshot

	rows, err := s.db.QueryContext(ctx, `
		SELECT title, author, isbn, available, borrower_id
		FROM library_books
		WHERE dataset = $1
		ORDER BY position ASC
	`, dataset)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b BookRecord
		if err := rows.Scan(&b.Title, &b.Author, &b.ISBN, &b.Available, &b.BorrowerID); err != nil {
			return Snapshot{}, fmt.Errorf("scan book: %w", err)
		}
		snap.Books = append(snap.Books, b)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate books: %w", err)
	}

	memberRows, err := s.db.QueryContext(ctx, `
		SELECT name, member_id
		FROM library_members
		WHERE dataset = $1
		ORDER BY position ASC
	`, dataset)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query members: %w", err)
	}
	defer memberRows.Close()
	for memberRows.Next() {
		var m MemberRecord
		if err := memberRows.Scan(&m.Name, &m.ID); err != nil {
			return Snapshot{}, fmt.Errorf("scan member: %w", err)
		}
		snap.Members = append(snap.Members, m)
	}
	if err := memberRows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate members: %w", err)
	}

	return snap, nil
}
