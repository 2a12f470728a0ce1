package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// ParseCache stores serialized file reports keyed by path. An entry is only
// served for the content hash and extractor it was stored with.
type ParseCache struct {
	db *DB
}

// NewParseCache creates a new parse cache
func NewParseCache(db *DB) *ParseCache {
	return &ParseCache{db: db}
}

// Get returns the cached report for path if its stored hash and extractor match.
func (c *ParseCache) Get(path, contentHash, extractor string) (string, bool, error) {
	var reportJSON, storedHash, storedExtractor string
	err := c.db.QueryRow(`
		SELECT report_json, content_hash, extractor
		FROM parse_cache
		WHERE file_path = ?
	`, path).Scan(&reportJSON, &storedHash, &storedExtractor)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("parse cache lookup failed: %w", err)
	}
	if storedHash != contentHash || storedExtractor != extractor {
		return "", false, nil
	}
	return reportJSON, true, nil
}

// Set stores a report for path, replacing any older entry
func (c *ParseCache) Set(path, contentHash, extractor, reportJSON string) error {
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO parse_cache (file_path, content_hash, extractor, report_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, path, contentHash, extractor, reportJSON, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to set parse cache: %w", err)
	}
	return nil
}

// Clear removes every cached report
func (c *ParseCache) Clear() (int64, error) {
	result, err := c.db.Exec("DELETE FROM parse_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear parse cache: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of cached reports
func (c *ParseCache) Count() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM parse_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count parse cache: %w", err)
	}
	return n, nil
}
