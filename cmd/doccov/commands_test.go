package main

import (
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"doccov/internal/analyzer"
	"doccov/internal/complexity"
	"doccov/internal/config"
	"doccov/internal/coverage"
	"doccov/internal/errors"
	"doccov/internal/review"
	"doccov/internal/slogutil"
)

const googleDoc = "Load a file.\n\nArgs:\n    path: Where to read."

func sampleFunctions() []analyzer.FunctionRecord {
	return []analyzer.FunctionRecord{
		{Name: "load", StartLine: 1, HasDoc: true, DocText: strPtr(googleDoc)},
		{Name: "save", StartLine: 5},
		{Name: "load", StartLine: 9, HasDoc: true, DocText: strPtr("short")},
	}
}

func TestPickFunctions(t *testing.T) {
	fns := sampleFunctions()

	t.Run("incomplete by default", func(t *testing.T) {
		got, err := pickFunctions(fns, nil, false, review.StyleGoogle)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].StartLine != 5 || got[1].StartLine != 9 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("all", func(t *testing.T) {
		got, err := pickFunctions(fns, nil, true, review.StyleGoogle)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Errorf("got %d functions, want 3", len(got))
		}
	})

	t.Run("by name keeps duplicates", func(t *testing.T) {
		got, err := pickFunctions(fns, []string{"load"}, false, review.StyleGoogle)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].StartLine != 1 || got[1].StartLine != 9 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, err := pickFunctions(fns, []string{"load", "missing"}, false, review.StyleGoogle); err == nil {
			t.Error("expected error for unknown function")
		}
	})
}

func TestBuildListResponse(t *testing.T) {
	reports := []analyzer.FileReport{
		{Path: "a.py", Functions: sampleFunctions(), Status: analyzer.StatusOK},
		{Path: "b.py", Functions: []analyzer.FunctionRecord{
			{Name: "done", StartLine: 1, HasDoc: true, DocText: strPtr(googleDoc)},
		}, Status: analyzer.StatusOK},
	}

	resp := buildListResponse(reports, "", review.StatusNeedsFix, review.StyleGoogle)
	if resp.Summary.Files != 2 || resp.Summary.Functions != 4 || resp.Summary.Documented != 3 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if len(resp.Files) != 1 || resp.Files[0].Path != "a.py" {
		t.Fatalf("files = %+v", resp.Files)
	}
	if n := len(resp.Files[0].Functions); n != 2 {
		t.Errorf("needs-fix functions = %d, want 2", n)
	}

	resp = buildListResponse(reports, "DON", review.StatusAll, review.StyleGoogle)
	if len(resp.Files) != 1 || resp.Files[0].Path != "b.py" {
		t.Fatalf("search files = %+v", resp.Files)
	}
	fn := resp.Files[0].Functions[0]
	if !fn.Complete || fn.DetectedStyle != "google" {
		t.Errorf("function = %+v", fn)
	}

	resp = buildListResponse(reports, "nothing", review.StatusAll, review.StyleGoogle)
	if resp.Files == nil || len(resp.Files) != 0 {
		t.Errorf("no match should give an empty, non-nil list: %+v", resp.Files)
	}
}

func TestBelowThreshold(t *testing.T) {
	rep := &coverage.Report{Aggregate: coverage.Aggregate{CoveragePercent: 79.9}}
	if !belowThreshold(rep, coverage.Threshold) {
		t.Error("79.9 should be below 80")
	}
	rep.Aggregate.CoveragePercent = 80
	if belowThreshold(rep, coverage.Threshold) {
		t.Error("80.0 meets the threshold")
	}
}

func TestFailUnderDefault(t *testing.T) {
	flag := coverageCmd.Flags().Lookup("fail-under")
	if flag == nil {
		t.Fatal("fail-under flag not registered")
	}
	if flag.NoOptDefVal != "80" {
		t.Errorf("NoOptDefVal = %q, want 80", flag.NoOptDefVal)
	}
}

func TestReportPath(t *testing.T) {
	a := &app{root: "/proj", cfg: config.DefaultConfig()}

	if got := a.reportPath("", false); got != "" {
		t.Errorf("no flags: got %q", got)
	}
	if got := a.reportPath("out.yaml", false); got != "out.yaml" {
		t.Errorf("explicit output: got %q", got)
	}
	want := filepath.Join("/proj", "storage", "coverage_report.json")
	if got := a.reportPath("", true); got != want {
		t.Errorf("configured output: got %q, want %q", got, want)
	}
}

func TestGeneratorMode(t *testing.T) {
	a := &app{cfg: config.DefaultConfig(), logger: slogutil.NewDiscardLogger()}

	g, err := a.generator("placeholder")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name() != "placeholder" {
		t.Errorf("generator = %s", g.Name())
	}

	if _, err := a.generator("bogus"); !errors.HasCode(err, errors.ConfigInvalid) {
		t.Errorf("unknown mode: err = %v", err)
	}
	if _, err := a.generator("chat"); !errors.HasCode(err, errors.ConfigInvalid) {
		t.Errorf("chat without key: err = %v", err)
	}

	a.cfg.Generator.APIKey = "secret"
	g, err = a.generator("chat")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name() != "chat:"+a.cfg.Generator.Model {
		t.Errorf("generator = %s", g.Name())
	}
}

func TestComputeDiffAndFlatten(t *testing.T) {
	current := map[string]interface{}{
		"version": 1.0,
		"scan":    map[string]interface{}{"workers": 4.0, "exclude": []interface{}{"venv"}},
		"review":  map[string]interface{}{"style": "google"},
	}
	defaults := map[string]interface{}{
		"version": 1.0,
		"scan":    map[string]interface{}{"workers": 0.0, "exclude": []interface{}{"venv"}},
		"review":  map[string]interface{}{"style": "google"},
	}

	diff := computeDiff(current, defaults)
	lines := flatten("", diff)
	if len(lines) != 1 || lines[0] != "scan.workers: 4" {
		t.Errorf("lines = %q", lines)
	}

	all := flatten("", current)
	if len(all) != 4 || all[0] != "review.style: google" {
		t.Errorf("all = %q", all)
	}
}

func TestConvertMetricsResponse(t *testing.T) {
	oldSort, oldLimit, oldInclude := metricsSortBy, metricsLimit, metricsIncludeFunctions
	defer func() { metricsSortBy, metricsLimit, metricsIncludeFunctions = oldSort, oldLimit, oldInclude }()

	files := []*complexity.FileComplexity{
		{
			Path: "a.py",
			Functions: []complexity.FunctionComplexity{
				{Name: "simple", Cyclomatic: 1, Cognitive: 0},
				{Name: "branchy", Cyclomatic: 12, Cognitive: 40},
				{Name: "middle", Cyclomatic: 6, Cognitive: 2},
			},
			FunctionCount:   3,
			MaxCyclomatic:   12,
			MaxCognitive:    40,
			Maintainability: 60,
		},
		{Path: "b.py", Maintainability: 81},
		{Path: "c.py", Error: "boom"},
	}

	metricsSortBy, metricsLimit, metricsIncludeFunctions = "cyclomatic", 2, true
	resp := convertMetricsResponse(files)

	if resp.Summary.FunctionCount != 3 || resp.Summary.MaxCyclomatic != 12 || resp.Summary.MaxCognitive != 40 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.Summary.AverageMaintainability != 70.5 {
		t.Errorf("average maintainability = %v, want 70.5", resp.Summary.AverageMaintainability)
	}

	fns := resp.Files[0].Functions
	if len(fns) != 2 || fns[0].Name != "branchy" || fns[1].Name != "middle" {
		t.Fatalf("functions = %+v", fns)
	}
	if fns[0].Risk != "high" || fns[0].Rank != "C" {
		t.Errorf("branchy = %+v", fns[0])
	}
	if fns[1].Risk != "low" || fns[1].Rank != "B" {
		t.Errorf("middle = %+v", fns[1])
	}
	if resp.Files[2].Error != "boom" {
		t.Errorf("error not carried: %+v", resp.Files[2])
	}

	metricsSortBy, metricsLimit = "name", 0
	fns = convertMetricsResponse(files).Files[0].Functions
	if fns[0].Name != "branchy" || fns[2].Name != "simple" {
		t.Errorf("name sort = %+v", fns)
	}

	metricsIncludeFunctions = false
	if fns := convertMetricsResponse(files).Files[0].Functions; fns != nil {
		t.Errorf("functions should be omitted: %+v", fns)
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", stderrors.New("boom"), 1},
		{"coded", errors.Newf(errors.ConfigInvalid, "bad"), 1},
		{"exit code", &exitError{code: 2, err: stderrors.New("below threshold")}, 2},
		{"silent exit", &exitError{code: 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reportError(tt.err); got != tt.want {
				t.Errorf("reportError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWatchLine(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local)
	before := &coverage.Report{Aggregate: coverage.Aggregate{TotalFunctions: 4, DocumentedCount: 3, CoveragePercent: 75}}
	after := &coverage.Report{Aggregate: coverage.Aggregate{TotalFunctions: 4, DocumentedCount: 4, CoveragePercent: 100, MeetsThreshold: true}}

	if got, want := watchLine(now, nil, before, 0), "15:04:05 coverage 75.0% (3/4) [below threshold]"; got != want {
		t.Errorf("first line = %q, want %q", got, want)
	}
	if got, want := watchLine(now, before, after, 2), "15:04:05 coverage 100.0% (4/4) +25.0, 2 file(s) changed"; got != want {
		t.Errorf("rescan line = %q, want %q", got, want)
	}
}
