package manifest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
)

// Build statuses stored in the builds table.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Output actions stored in the build_outputs table.
const (
	ActionRender = "render"
	ActionCopy   = "copy"
)

// SetupSchema creates the manifest tables. It is idempotent and safe to call
// on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaBuilds = `
CREATE TABLE IF NOT EXISTS builds (
    build_id INTEGER PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    source_dir TEXT NOT NULL,
    target_dir TEXT NOT NULL,
    status TEXT NOT NULL,
    file_count INTEGER NOT NULL DEFAULT 0
);
`
		schemaOutputs = `
CREATE TABLE IF NOT EXISTS build_outputs (
    build_id INTEGER NOT NULL,
    source_path TEXT NOT NULL,
    target_path TEXT NOT NULL,
    action TEXT NOT NULL,
    size INTEGER NOT NULL,
    sha256 TEXT NOT NULL,
    PRIMARY KEY (build_id, target_path)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return eris.Wrap(err, "could not begin transaction")
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaBuilds); err != nil {
		return eris.Wrap(err, "could not create builds schema")
	}
	if _, err = tx.Exec(schemaOutputs); err != nil {
		return eris.Wrap(err, "could not create outputs schema")
	}

	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "could not commit transaction")
	}
	return nil
}

// BuildInfo is one row of the builds table.
type BuildInfo struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	SourceDir  string
	TargetDir  string
	Status     string
	FileCount  int
}

// Output is one file produced by a build.
type Output struct {
	SourcePath string
	TargetPath string
	Action     string
	Size       int64
	SHA256     string
}

// Store reads and writes build records.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store over db. SetupSchema must have been called on db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// BeginBuild inserts a running build and returns its ID.
func (s *Store) BeginBuild(ctx context.Context, sourceDir, targetDir string, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (started_at, source_dir, target_dir, status) VALUES (?, ?, ?, ?)",
		startedAt.UnixMilli(), sourceDir, targetDir, StatusRunning)
	if err != nil {
		return 0, eris.Wrap(err, "could not insert build")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "could not read build id")
	}
	return id, nil
}

// RecordOutput stores one output of a build.
func (s *Store) RecordOutput(ctx context.Context, buildID int64, out Output) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO build_outputs (build_id, source_path, target_path, action, size, sha256)
VALUES (?, ?, ?, ?, ?, ?)`,
		buildID, out.SourcePath, out.TargetPath, out.Action, out.Size, out.SHA256)
	if err != nil {
		return eris.Wrapf(err, "could not record output %s", out.TargetPath)
	}
	return nil
}

// FinishBuild marks a build as done with the given status.
func (s *Store) FinishBuild(ctx context.Context, buildID int64, status string, fileCount int, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE builds SET status = ?, file_count = ?, finished_at = ? WHERE build_id = ?",
		status, fileCount, finishedAt.UnixMilli(), buildID)
	if err != nil {
		return eris.Wrapf(err, "could not finish build %d", buildID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return eris.Wrapf(sql.ErrNoRows, "build %d does not exist", buildID)
	}
	return nil
}

// Builds returns the most recent builds, newest first. A limit <= 0 returns all of them.
func (s *Store) Builds(ctx context.Context, limit int) ([]BuildInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id, started_at, finished_at, source_dir, target_dir, status, file_count
FROM builds ORDER BY build_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "could not query builds")
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	builds := []BuildInfo{}
	for rows.Next() {
		var b BuildInfo
		var started int64
		var finished sql.NullInt64
		if err = rows.Scan(&b.ID, &started, &finished, &b.SourceDir, &b.TargetDir, &b.Status, &b.FileCount); err != nil {
			return nil, eris.Wrap(err, "could not scan build")
		}
		b.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			b.FinishedAt = time.UnixMilli(finished.Int64)
		}
		builds = append(builds, b)
	}
	if err = rows.Err(); err != nil {
		return nil, eris.Wrap(err, "could not iterate builds")
	}
	return builds, nil
}

// Outputs returns the outputs recorded for a build, ordered by target path.
func (s *Store) Outputs(ctx context.Context, buildID int64) ([]Output, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, target_path, action, size, sha256
FROM build_outputs WHERE build_id = ? ORDER BY target_path`, buildID)
	if err != nil {
		return nil, eris.Wrapf(err, "could not query outputs of build %d", buildID)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	outputs := []Output{}
	for rows.Next() {
		var o Output
		if err = rows.Scan(&o.SourcePath, &o.TargetPath, &o.Action, &o.Size, &o.SHA256); err != nil {
			return nil, eris.Wrap(err, "could not scan output")
		}
		outputs = append(outputs, o)
	}
	if err = rows.Err(); err != nil {
		return nil, eris.Wrap(err, "could not iterate outputs")
	}
	return outputs, nil
}

// HashFile returns the size and hex SHA-256 of the file at path.
func HashFile(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", eris.Wrapf(err, "could not open %s", path)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", eris.Wrapf(err, "could not hash %s", path)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
