package history

import (
	"encoding/json"
	"strconv"

	"doccov/internal/analyzer"
	"doccov/internal/version"
)

// extractorKey identifies the code that produced a cached report. Reports
// of another doccov release or extractor revision are never served.
var extractorKey = strconv.Itoa(analyzer.ExtractorVersion) + "/" + version.Version

// parseCache adapts the parse_cache table to analyzer.Cache. Failures are
// logged and treated as misses.
type parseCache struct {
	store *Store
}

// ParseCache returns an analyzer cache backed by the database.
func (s *Store) ParseCache() analyzer.Cache {
	return &parseCache{store: s}
}

func (c *parseCache) Lookup(path string, content []byte) (analyzer.FileReport, bool) {
	raw, ok, err := c.store.cache.Get(path, Fingerprint(content), extractorKey)
	if err != nil {
		c.store.logger.Debug("Parse cache lookup failed", "path", path, "error", err.Error())
		return analyzer.FileReport{}, false
	}
	if !ok {
		return analyzer.FileReport{}, false
	}

	var report analyzer.FileReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		c.store.logger.Debug("Discarding corrupt cache entry", "path", path, "error", err.Error())
		return analyzer.FileReport{}, false
	}
	if report.Functions == nil {
		report.Functions = []analyzer.FunctionRecord{}
	}
	return report, true
}

func (c *parseCache) Store(path string, content []byte, report analyzer.FileReport) {
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.store.cache.Set(path, Fingerprint(content), extractorKey, string(raw)); err != nil {
		c.store.logger.Debug("Parse cache store failed", "path", path, "error", err.Error())
	}
}
