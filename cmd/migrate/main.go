package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

// schema_migrations records which files have run, so re-running the
// migrator is safe and each file executes exactly once.
const trackingTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("migrate: DATABASE_URL is required")
		os.Exit(1)
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migrate: connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("migrate: database unreachable", "error", err)
		os.Exit(1)
	}
	if _, err := db.Exec(trackingTable); err != nil {
		logger.Error("migrate: failed to ensure tracking table", "error", err)
		os.Exit(1)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		logger.Error("migrate: failed to read applied migrations", "error", err)
		os.Exit(1)
	}

	if listOnly {
		names := make([]string, 0, len(applied))
		for f := range applied {
			names = append(names, f)
		}
		sort.Strings(names)
		for _, f := range names {
			fmt.Printf("%s  applied %s\n", f, applied[f])
		}
		fmt.Printf("Total: %d applied\n", len(names))
		return
	}

	files, err := pendingFiles(dir, applied)
	if err != nil {
		logger.Error("migrate: failed to read migrations dir", "dir", dir, "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		logger.Info("migrate: nothing to apply", "applied", len(applied))
		return
	}

	for _, f := range files {
		if err := apply(db, dir, f); err != nil {
			logger.Error("migrate: migration failed, stopping", "file", f, "error", err)
			os.Exit(1)
		}
		logger.Info("migrate: applied", "file", f)
	}
	logger.Info("migrate: complete", "applied", len(files), "skipped", len(applied))
}

func appliedMigrations(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT filename, applied_at::text FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, at string
		if err := rows.Scan(&name, &at); err != nil {
			return nil, err
		}
		out[name] = at
	}
	return out, rows.Err()
}

// pendingFiles returns the .sql files in dir not yet applied, in sorted
// (apply) order.
func pendingFiles(dir string, applied map[string]string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		if _, done := applied[e.Name()]; done {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// apply runs one migration file and its tracking insert in a single
// transaction, so a failed migration leaves no partial state behind.
func apply(db *sql.DB, dir, file string) error {
	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("%s is empty", file)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(data)); err != nil {
		return fmt.Errorf("exec %s: %w", file, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, file); err != nil {
		return fmt.Errorf("track %s: %w", file, err)
	}
	return tx.Commit()
}
