package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jchantrell/eblextract/internal/export"
)

const manifestSchema = `
CREATE TABLE IF NOT EXISTS files (
	id           INTEGER PRIMARY KEY,
	archive      TEXT    NOT NULL,
	path         TEXT    NOT NULL,
	output       TEXT    NOT NULL,
	name_hash    INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	encrypted    INTEGER NOT NULL DEFAULT 0,
	unknown      INTEGER NOT NULL DEFAULT 0,
	decompressed INTEGER NOT NULL DEFAULT 0,
	digest       TEXT    NOT NULL,
	UNIQUE (archive, name_hash)
);
CREATE INDEX IF NOT EXISTS idx_files_path ON files (path);
`

const insertFileSQL = `INSERT OR REPLACE INTO files
	(archive, path, output, name_hash, size, encrypted, unknown, decompressed, digest)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Manifest records what an extraction wrote.
type Manifest struct {
	db        *Database
	batchSize int
}

// NewManifest returns a manifest over db inserting batchSize rows per transaction.
func NewManifest(db *Database, batchSize int) *Manifest {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Manifest{db: db, batchSize: batchSize}
}

// CreateSchema creates the manifest tables if they do not exist.
func (m *Manifest) CreateSchema(ctx context.Context) error {
	if _, err := m.db.Exec(ctx, manifestSchema); err != nil {
		return fmt.Errorf("creating manifest schema: %w", err)
	}
	return nil
}

// Insert records results for archive. Re-extracting an archive replaces its rows.
func (m *Manifest) Insert(ctx context.Context, archive string, results []export.Result) error {
	if len(results) == 0 {
		slog.Debug("no manifest rows to insert", "archive", archive)
		return nil
	}

	for i := 0; i < len(results); i += m.batchSize {
		end := min(i+m.batchSize, len(results))
		if err := m.insertBatch(ctx, archive, results[i:end]); err != nil {
			return fmt.Errorf("inserting batch %d-%d for archive %s: %w", i, end-1, archive, err)
		}
	}
	return nil
}

func (m *Manifest) insertBatch(ctx context.Context, archive string, batch []export.Result) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertFileSQL)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		// SQLite integers are signed; 64-bit hashes are stored by bit pattern.
		if _, err := stmt.ExecContext(ctx,
			archive, r.Path, r.Output, int64(r.Hash), r.Size,
			r.Encrypted, r.Unknown, r.Decompressed, r.Digest,
		); err != nil {
			return fmt.Errorf("inserting %s: %w", r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CountByArchive returns the number of recorded files per archive.
func (m *Manifest) CountByArchive(ctx context.Context) (map[string]int, error) {
	rows, err := m.db.Query(ctx, `SELECT archive, COUNT(*) FROM files GROUP BY archive`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var archive string
		var n int
		if err := rows.Scan(&archive, &n); err != nil {
			return nil, fmt.Errorf("scanning archive count: %w", err)
		}
		counts[archive] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading archive counts: %w", err)
	}
	return counts, nil
}

// Lookup returns the recorded row for path in archive.
func (m *Manifest) Lookup(ctx context.Context, archive, path string) (export.Result, bool, error) {
	var r export.Result
	var hash int64
	err := m.db.QueryRow(ctx,
		`SELECT path, output, name_hash, size, encrypted, unknown, decompressed, digest
		 FROM files WHERE archive = ? AND path = ?`, archive, path,
	).Scan(&r.Path, &r.Output, &hash, &r.Size, &r.Encrypted, &r.Unknown, &r.Decompressed, &r.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, fmt.Errorf("looking up %s: %w", path, err)
	}
	r.Hash = uint64(hash)
	return r, true, nil
}
