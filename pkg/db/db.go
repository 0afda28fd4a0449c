package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite" // Register driver

	"opintel/pkg/geo"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DB wraps the sql.DB connection of a layer store. Each table holds one
// layer: a WKB geometry and a JSON object of attributes per row.
type DB struct {
	*sql.DB
}

// Open opens an existing layer store read-only.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return &DB{db}, nil
}

// Create opens (creating if needed) a writable layer store.
func Create(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	// Rollback journal, not WAL: stores are later opened with mode=ro, which
	// cannot recover a WAL database without its -shm file.
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enforce single connection to avoid SQLITE_BUSY errors during writes
	db.SetMaxOpenConns(1)
	return &DB{db}, nil
}

// WriteLayer replaces the contents of table with the given features.
func (d *DB) WriteLayer(ctx context.Context, table string, features []geo.Feature) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table),
		fmt.Sprintf(`CREATE TABLE %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			geom BLOB NOT NULL,
			props TEXT
		)`, table),
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (geom, props) VALUES (?, ?)`, table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for i, f := range features {
		g, err := wkb.Marshal(f.Geometry)
		if err != nil {
			return fmt.Errorf("feature %d: encode geometry: %w", i, err)
		}
		props, err := json.Marshal(f.Attributes)
		if err != nil {
			return fmt.Errorf("feature %d: encode attributes: %w", i, err)
		}
		if _, err := insert.ExecContext(ctx, g, string(props)); err != nil {
			return fmt.Errorf("feature %d: insert: %w", i, err)
		}
	}

	return tx.Commit()
}

// ReadLayer returns the features of table in insertion order. Rows whose
// geometry or attributes cannot be decoded are skipped and counted.
func (d *DB) ReadLayer(ctx context.Context, table string) (features []geo.Feature, skipped int, err error) {
	if !tableName.MatchString(table) {
		return nil, 0, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := d.QueryContext(ctx, fmt.Sprintf(`SELECT geom, props FROM %s ORDER BY rowid`, table))
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		var props sql.NullString
		if err := rows.Scan(&blob, &props); err != nil {
			return nil, skipped, fmt.Errorf("scan %s: %w", table, err)
		}

		g, err := wkb.Unmarshal(blob)
		if err != nil {
			skipped++
			continue
		}

		attrs := geo.Attributes{}
		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &attrs); err != nil {
				skipped++
				continue
			}
		}
		features = append(features, geo.Feature{Geometry: g, Attributes: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, skipped, fmt.Errorf("iterate %s: %w", table, err)
	}
	return features, skipped, nil
}
