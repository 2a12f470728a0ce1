package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	tmpDir := t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	return db, tmpDir
}

func TestDatabaseInitialization(t *testing.T) {
	db, tmpDir := setupTestDB(t)

	dbPath := filepath.Join(tmpDir, ".doccov", "doccov.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := NewRunRepository(db).Create(testRun("run-1", "/repo", time.Now())); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = db.Close()

	db, err = Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	run, err := NewRunRepository(db).Get("run-1")
	if err != nil || run == nil {
		t.Fatalf("Get after reopen = %v, %v", run, err)
	}
}

func TestMigrateFromV1(t *testing.T) {
	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Exec("DROP TABLE parse_cache"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 1"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	_ = db.Close()

	db, err = Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("version = %d, want %d", version, currentSchemaVersion)
	}
	if err := NewParseCache(db).Set("a.py", "h", "x", "{}"); err != nil {
		t.Errorf("parse_cache missing after migration: %v", err)
	}
}

func TestNewerSchemaRejected(t *testing.T) {
	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if db, err := Open(tmpDir, logger); err == nil {
		_ = db.Close()
		t.Fatal("expected error for newer schema")
	}
}

func testRun(id, root string, at time.Time) *Run {
	return &Run{
		ID:              id,
		Root:            root,
		CreatedAt:       at,
		FilesScanned:    3,
		TotalFunctions:  7,
		DocumentedCount: 5,
		CoveragePercent: 71.4,
		MeetsThreshold:  false,
		Files: []RunFile{
			{Path: "a.py", ContentHash: "aa", TotalFunctions: 4, DocumentedCount: 4, CoveragePercent: 100},
			{Path: "b.py", ContentHash: "bb", TotalFunctions: 3, DocumentedCount: 1, CoveragePercent: 33.3},
		},
	}
}

func TestRunRepository(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewRunRepository(db)

	created := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	if err := repo.Create(testRun("run-1", "/repo", created)); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	run, err := repo.Get("run-1")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run == nil {
		t.Fatal("Expected run, got nil")
	}
	if !run.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", run.CreatedAt, created)
	}
	if run.TotalFunctions != 7 || run.DocumentedCount != 5 || run.CoveragePercent != 71.4 {
		t.Errorf("aggregate mismatch: %+v", run)
	}
	if run.MeetsThreshold {
		t.Error("MeetsThreshold should be false")
	}
	if len(run.Files) != 2 || run.Files[0].Path != "a.py" || run.Files[1].ContentHash != "bb" {
		t.Errorf("files = %+v", run.Files)
	}

	missing, err := repo.Get("nope")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing run")
	}
}

func TestRunRepositoryDuplicateIDRollsBack(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewRunRepository(db)

	run := testRun("run-1", "/repo", time.Now())
	if err := repo.Create(run); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(run); err == nil {
		t.Fatal("expected duplicate id error")
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM run_files").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("run_files rows = %d, want 2", n)
	}
}

func TestRunRepositoryListAndLatest(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewRunRepository(db)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := repo.Create(testRun(id, "/repo", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Create(testRun("other", "/other", base.Add(10*time.Hour))); err != nil {
		t.Fatal(err)
	}

	runs, err := repo.List("/repo", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != "r3" || runs[2].ID != "r1" {
		t.Errorf("List order wrong: %v", ids(runs))
	}
	if runs[0].Files != nil {
		t.Error("List should not load files")
	}

	limited, err := repo.List("/repo", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored: %v", ids(limited))
	}

	all, err := repo.List("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 || all[0].ID != "other" {
		t.Errorf("List all = %v", ids(all))
	}

	latest, err := repo.Latest("/repo")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != "r3" || len(latest.Files) != 2 {
		t.Errorf("Latest = %+v", latest)
	}

	none, err := repo.Latest("/empty")
	if err != nil || none != nil {
		t.Errorf("Latest(empty) = %v, %v", none, err)
	}
}

func TestRunRepositoryPrune(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewRunRepository(db)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if err := repo.Create(testRun(id, "/repo", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Create(testRun("keep-other", "/other", base)); err != nil {
		t.Fatal(err)
	}

	deleted, err := repo.Prune("/repo", 2)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	runs, _ := repo.List("/repo", 0)
	if len(runs) != 2 || runs[0].ID != "e" || runs[1].ID != "d" {
		t.Errorf("remaining = %v", ids(runs))
	}

	other, _ := repo.List("/other", 0)
	if len(other) != 1 {
		t.Error("Prune touched another root")
	}

	var orphans int
	if err := db.QueryRow("SELECT COUNT(*) FROM run_files WHERE run_id NOT IN (SELECT id FROM runs)").Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("orphan run_files = %d", orphans)
	}

	if n, err := repo.Prune("/repo", 0); err != nil || n != 0 {
		t.Errorf("Prune(keep=0) = %d, %v", n, err)
	}
}

func TestParseCache(t *testing.T) {
	db, _ := setupTestDB(t)
	cache := NewParseCache(db)

	if _, ok, err := cache.Get("a.py", "h1", "3/1.0"); err != nil || ok {
		t.Fatalf("empty cache hit: ok=%v err=%v", ok, err)
	}

	if err := cache.Set("a.py", "h1", "3/1.0", `{"file_path":"a.py"}`); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Get("a.py", "h1", "3/1.0")
	if err != nil || !ok || got != `{"file_path":"a.py"}` {
		t.Errorf("Get = %q, %v, %v", got, ok, err)
	}

	if _, ok, _ := cache.Get("a.py", "h2", "3/1.0"); ok {
		t.Error("stale hash should miss")
	}
	if _, ok, _ := cache.Get("a.py", "h1", "3/1.1"); ok {
		t.Error("entry of another extractor should miss")
	}

	if err := cache.Set("a.py", "h2", "3/1.1", `{}`); err != nil {
		t.Fatal(err)
	}
	if n, _ := cache.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	removed, err := cache.Clear()
	if err != nil || removed != 1 {
		t.Errorf("Clear = %d, %v", removed, err)
	}
}

func TestMigrateFromV2DropsParseCache(t *testing.T) {
	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	stmts := []string{
		"DROP TABLE parse_cache",
		`CREATE TABLE parse_cache (file_path TEXT PRIMARY KEY, content_hash TEXT NOT NULL,
			report_json TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`INSERT INTO parse_cache VALUES ('a.py', 'h', '{}', '2026-01-01T00:00:00.000000000Z')`,
		"UPDATE schema_version SET version = 2",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	_ = db.Close()

	db, err = Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	cache := NewParseCache(db)
	if n, err := cache.Count(); err != nil || n != 0 {
		t.Errorf("Count after migration = %d, %v; want 0", n, err)
	}
	if err := cache.Set("a.py", "h", "3/1.0", "{}"); err != nil {
		t.Errorf("Set after migration: %v", err)
	}
}

func ids(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
