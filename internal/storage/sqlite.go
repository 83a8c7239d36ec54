package storage

import (
	"context"
	"database/sql"
	"fmt"

	"protobook/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS symbols (
			fqsl TEXT PRIMARY KEY,
			package TEXT,
			name TEXT,
			property TEXT,
			page TEXT,
			href TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS backlinks (
			target TEXT,
			seq INTEGER,
			kind TEXT,
			href TEXT,
			label TEXT,
			PRIMARY KEY (target, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS pages (
			path TEXT PRIMARY KEY,
			name TEXT,
			citations INTEGER,
			generated INTEGER,
			content_hash TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_package ON symbols(package);`,
		`CREATE INDEX IF NOT EXISTS idx_backlinks_kind ON backlinks(kind);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveGraph stores a snapshot of g. Rows of earlier exports are removed.
func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{"DELETE FROM backlinks", "DELETE FROM symbols"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear previous export: %w", err)
		}
	}

	// 1. Save Symbols
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (fqsl, package, name, property, page, href)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fqsl) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	// 2. Save Backlinks
	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backlinks (target, seq, kind, href, label) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, link := range g.Symbols() {
		fqsl := link.FQSL()
		if _, err := stmt.ExecContext(ctx, fqsl, link.Package(), link.Symbol, link.Property, link.Page(), link.Href()); err != nil {
			return fmt.Errorf("failed to save symbol %s: %w", fqsl, err)
		}
		for i, b := range g.Usages(link) {
			if _, err := edgeStmt.ExecContext(ctx, fqsl, i, string(b.Kind), b.Href(), b.Label()); err != nil {
				return fmt.Errorf("failed to save backlink of %s: %w", fqsl, err)
			}
		}
	}

	return tx.Commit()
}

// SavePages stores a snapshot of the page list.
func (s *SQLiteStore) SavePages(ctx context.Context, pages []PageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages"); err != nil {
		return fmt.Errorf("failed to clear previous export: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (path, name, citations, generated, content_hash) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name=excluded.name,
			citations=excluded.citations,
			generated=excluded.generated,
			content_hash=excluded.content_hash
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range pages {
		if _, err := stmt.ExecContext(ctx, p.Path, p.Name, p.Citations, p.Generated, p.ContentHash); err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.Path, err)
		}
	}

	return tx.Commit()
}
