// Package history records coverage runs in the repository database and
// serves the parse cache that lets unchanged files skip re-parsing.
package history

import (
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"doccov/internal/analyzer"
	"doccov/internal/coverage"
	"doccov/internal/errors"
	"doccov/internal/storage"
)

// Store records and queries coverage runs.
type Store struct {
	db     *storage.DB
	runs   *storage.RunRepository
	cache  *storage.ParseCache
	logger *slog.Logger
	keep   int
	now    func() time.Time
}

// Open opens the history database of repoRoot. keep bounds how many runs are
// retained per root; zero keeps everything.
func Open(repoRoot string, keep int, logger *slog.Logger) (*Store, error) {
	db, err := storage.Open(repoRoot, logger)
	if err != nil {
		return nil, errors.New(errors.StorageFailed, "cannot open history database", err)
	}
	return New(db, keep, logger), nil
}

// New wraps an open database.
func New(db *storage.DB, keep int, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		runs:   storage.NewRunRepository(db),
		cache:  storage.NewParseCache(db),
		logger: logger,
		keep:   keep,
		now:    time.Now,
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fingerprint returns the hex BLAKE2b-256 digest of content.
func Fingerprint(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Record stores one coverage run of root and prunes runs beyond the
// retention limit. Files are re-read for their fingerprints; a file that
// disappeared since the scan is stored with an empty hash.
func (s *Store) Record(ctx context.Context, root string, scan *analyzer.ScanResult, report *coverage.Report) (*storage.Run, error) {
	run := &storage.Run{
		ID:              uuid.New().String(),
		Root:            root,
		CreatedAt:       s.now(),
		TotalFunctions:  report.Aggregate.TotalFunctions,
		DocumentedCount: report.Aggregate.DocumentedCount,
		CoveragePercent: float64(report.Aggregate.CoveragePercent),
		MeetsThreshold:  report.Aggregate.MeetsThreshold,
		Files:           make([]storage.RunFile, 0, len(report.Files)),
	}
	if scan != nil {
		run.FilesScanned = scan.FilesScanned
	}

	for _, f := range report.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var hash string
		if data, err := os.ReadFile(f.Path); err == nil {
			hash = Fingerprint(data)
		}
		run.Files = append(run.Files, storage.RunFile{
			Path:            f.Path,
			ContentHash:     hash,
			TotalFunctions:  f.TotalFunctions,
			DocumentedCount: f.DocumentedCount,
			CoveragePercent: float64(f.CoveragePercent),
		})
	}

	if err := s.runs.Create(run); err != nil {
		return nil, errors.New(errors.StorageFailed, "cannot record run", err)
	}
	s.logger.Debug("Recorded coverage run", "id", run.ID, "root", root, "files", len(run.Files))

	if s.keep > 0 {
		pruned, err := s.runs.Prune(root, s.keep)
		if err != nil {
			s.logger.Warn("Failed to prune history", "error", err.Error())
		} else if pruned > 0 {
			s.logger.Debug("Pruned old runs", "root", root, "count", pruned)
		}
	}
	return run, nil
}

// List returns up to limit runs of root, newest first. An empty root lists
// every root.
func (s *Store) List(root string, limit int) ([]*storage.Run, error) {
	runs, err := s.runs.List(root, limit)
	if err != nil {
		return nil, errors.New(errors.StorageFailed, "cannot list runs", err)
	}
	return runs, nil
}

// Latest returns the newest run of root with its files, or nil.
func (s *Store) Latest(root string) (*storage.Run, error) {
	run, err := s.runs.Latest(root)
	if err != nil {
		return nil, errors.New(errors.StorageFailed, "cannot load latest run", err)
	}
	return run, nil
}

// Get returns a run by id with its files, or nil.
func (s *Store) Get(id string) (*storage.Run, error) {
	run, err := s.runs.Get(id)
	if err != nil {
		return nil, errors.New(errors.StorageFailed, "cannot load run", err)
	}
	return run, nil
}

// ClearCache drops every cached parse result.
func (s *Store) ClearCache() (int64, error) {
	n, err := s.cache.Clear()
	if err != nil {
		return 0, errors.New(errors.StorageFailed, "cannot clear parse cache", err)
	}
	return n, nil
}
