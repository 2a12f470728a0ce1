//go:build cgo

package analyzer

import (
	"context"
	"testing"

	"doccov/internal/testutil"
)

func TestGolden_ScanPython(t *testing.T) {
	fixture := testutil.LoadFixture(t, "python")

	for _, workers := range []int{1, 4} {
		opts := DefaultOptions()
		opts.Workers = workers
		result, err := NewAnalyzer(opts, nil).Scan(context.Background(), fixture.Root)
		if err != nil {
			t.Fatalf("Scan(workers=%d) failed: %v", workers, err)
		}
		testutil.CompareGolden(t, fixture, "scan", result)
	}
}

func TestGolden_ParseFileMatchesScan(t *testing.T) {
	fixture := testutil.LoadFixture(t, "python")
	a := NewAnalyzer(DefaultOptions(), nil)

	report := a.ParseFile(context.Background(), fixture.Path("pkg/models.py"))
	if report.Status != StatusOK {
		t.Fatalf("status = %s, want ok (%s)", report.Status, report.Error)
	}
	got := make([]string, 0, len(report.Functions))
	for _, fn := range report.Functions {
		got = append(got, fn.Name)
	}
	want := []string{"helper", "__init__", "load"}
	if len(got) != len(want) {
		t.Fatalf("functions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("functions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
