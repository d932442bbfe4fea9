package ingest

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// StreamTable iterates over every row of table, calling fn with the row as a
// column → value record. Only one row is alive at a time.
func StreamTable(dbPath, table string, fn func(rec map[string]any) error) error {
	db, err := openExisting(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT * FROM " + quoteIdent(table))
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns of %s: %w", table, err)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			rec[c] = vals[i]
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadTable reads every row of table into memory.
func LoadTable(dbPath, table string) ([]map[string]any, error) {
	var recs []map[string]any
	err := StreamTable(dbPath, table, func(rec map[string]any) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// HasTables reports whether dbPath is a SQLite database holding every one of
// tables.
func HasTables(dbPath string, tables ...string) (bool, error) {
	db, err := openExisting(dbPath)
	if err != nil {
		return false, err
	}
	defer func() { _ = db.Close() }() // safe to ignore

	for _, t := range tables {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, t).Scan(&n)
		if err != nil {
			return false, fmt.Errorf("inspect %s: %w", dbPath, err)
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}

// openExisting opens dbPath without creating it.
func openExisting(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return db, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
