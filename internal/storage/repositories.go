package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed-width UTC so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Run is one recorded coverage run.
type Run struct {
	ID              string    `json:"id"`
	Root            string    `json:"root"`
	CreatedAt       time.Time `json:"created_at"`
	FilesScanned    int       `json:"files_scanned"`
	TotalFunctions  int       `json:"total_functions"`
	DocumentedCount int       `json:"documented_count"`
	CoveragePercent float64   `json:"coverage_percent"`
	MeetsThreshold  bool      `json:"meets_threshold"`
	Files           []RunFile `json:"files,omitempty"`
}

// RunFile is the per-file row of a run.
type RunFile struct {
	Path            string  `json:"file_path"`
	ContentHash     string  `json:"content_hash"`
	TotalFunctions  int     `json:"total_functions"`
	DocumentedCount int     `json:"documented_count"`
	CoveragePercent float64 `json:"coverage_percent"`
}

// RunRepository provides access to the runs and run_files tables
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run and its files in one transaction
func (r *RunRepository) Create(run *Run) error {
	return r.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, root, created_at, files_scanned, total_functions,
			                  documented_count, coverage_percent, meets_threshold)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.Root, formatTime(run.CreatedAt), run.FilesScanned, run.TotalFunctions,
			run.DocumentedCount, run.CoveragePercent, boolToInt(run.MeetsThreshold))
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO run_files (run_id, file_path, content_hash, total_functions,
			                       documented_count, coverage_percent)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare run file insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range run.Files {
			if _, err := stmt.Exec(run.ID, f.Path, f.ContentHash, f.TotalFunctions,
				f.DocumentedCount, f.CoveragePercent); err != nil {
				return fmt.Errorf("failed to insert run file %s: %w", f.Path, err)
			}
		}
		return nil
	})
}

// Get retrieves a run with its files. Returns nil if not found.
func (r *RunRepository) Get(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(runColumns+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	files, err := r.files(id)
	if err != nil {
		return nil, err
	}
	run.Files = files
	return run, nil
}

// Latest returns the most recent run for root, without files. Returns nil if
// root has no runs.
func (r *RunRepository) Latest(root string) (*Run, error) {
	runs, err := r.List(root, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return r.Get(runs[0].ID)
}

// List returns runs newest first, without files. An empty root lists every
// root; a limit <= 0 means no limit.
func (r *RunRepository) List(root string, limit int) ([]*Run, error) {
	query := runColumns
	var args []any
	if root != "" {
		query += " WHERE root = ?"
		args = append(args, root)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune keeps the newest keep runs of root and deletes the rest.
// Returns the number of runs deleted.
func (r *RunRepository) Prune(root string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	result, err := r.db.Exec(`
		DELETE FROM runs
		WHERE root = ? AND id NOT IN (
			SELECT id FROM runs WHERE root = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, root, root, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}

func (r *RunRepository) files(runID string) ([]RunFile, error) {
	rows, err := r.db.Query(`
		SELECT file_path, content_hash, total_functions, documented_count, coverage_percent
		FROM run_files
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}
	defer rows.Close()

	files := []RunFile{}
	for rows.Next() {
		var f RunFile
		if err := rows.Scan(&f.Path, &f.ContentHash, &f.TotalFunctions, &f.DocumentedCount, &f.CoveragePercent); err != nil {
			return nil, fmt.Errorf("failed to scan run file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

const runColumns = `
	SELECT id, root, created_at, files_scanned, total_functions,
	       documented_count, coverage_percent, meets_threshold
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt string
	var meets int
	if err := row.Scan(&run.ID, &run.Root, &createdAt, &run.FilesScanned, &run.TotalFunctions,
		&run.DocumentedCount, &run.CoveragePercent, &meets); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at format: %w", err)
	}
	run.CreatedAt = t
	run.MeetsThreshold = meets != 0
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
