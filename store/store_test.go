package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/bictech/transcheck/catalog"
	"github.com/bictech/transcheck/verify"
)

// openMemory opens an in-memory store pinned to one connection so all
// queries hit the same database.
func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRunLifecycle(t *testing.T) {
	// WHAT: Start a run, queue mismatches, finish, read it back.
	s := openMemory(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	expected := "ស្នើសុំ"
	stats := verify.NewRunStatistics(0)
	stats.Record(verify.ComparisonResult{
		Page: "transfers", Locator: `//*[@id="submit-btn"]`,
		Language: catalog.Khmer, Actual: "ស្នើ", Expected: &expected, Key: "k1",
	})
	stats.Record(verify.ComparisonResult{
		Page: "transfers", Locator: "/html/body/p",
		Language: catalog.English, Actual: "Unknown",
	})
	stats.Record(verify.ComparisonResult{
		Page: "transfers", Language: catalog.English, Actual: "Submit", Matched: true,
	})
	for _, m := range stats.Mismatches {
		s.RecordAsync(runID, m)
	}

	if err := s.FinishRun(ctx, runID, stats); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	detail, ok, err := s.Run(ctx, runID)
	if err != nil || !ok {
		t.Fatalf("Run: %v, %v", ok, err)
	}
	if detail.Total != 3 || detail.Passed || !detail.Finished {
		t.Errorf("summary = %+v", detail.RunSummary)
	}
	if got := detail.ByLanguage[catalog.Khmer]; got == nil || got.Mismatched != 1 {
		t.Errorf("kh counters = %+v", got)
	}
	if len(detail.Mismatches) != 2 {
		t.Fatalf("mismatches = %d, want 2", len(detail.Mismatches))
	}
	first := detail.Mismatches[0]
	if first.Expected == nil || *first.Expected != "ស្នើសុំ" || first.Key != "k1" {
		t.Errorf("first mismatch = %+v", first)
	}
	second := detail.Mismatches[1]
	if second.Expected != nil {
		t.Errorf("unresolved reference must round-trip as nil, got %q", *second.Expected)
	}
}

func TestStoreRunNotFound(t *testing.T) {
	// WHAT: An unknown id reports absence, not an error.
	s := openMemory(t)
	_, ok, err := s.Run(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false")
	}
}

func TestStoreLastRun(t *testing.T) {
	// WHAT: LastRun returns the newest run; empty stores report none.
	s := openMemory(t)
	ctx := context.Background()

	if _, ok, err := s.LastRun(ctx); err != nil || ok {
		t.Fatalf("LastRun on empty store = %v, %v", ok, err)
	}

	first, err := s.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("run ids must be unique")
	}

	last, ok, err := s.LastRun(ctx)
	if err != nil || !ok {
		t.Fatalf("LastRun: %v, %v", ok, err)
	}
	if last.ID != second {
		t.Errorf("LastRun = %s, want %s", last.ID, second)
	}
}

func TestStorePassedRun(t *testing.T) {
	// WHAT: A clean run persists a passing verdict.
	s := openMemory(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	stats := verify.NewRunStatistics(0)
	stats.Record(verify.ComparisonResult{Language: catalog.English, Actual: "Submit", Matched: true})
	stats.PagesOK = 1
	if err := s.FinishRun(ctx, runID, stats); err != nil {
		t.Fatal(err)
	}

	runs, err := s.Runs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || !runs[0].Passed {
		t.Errorf("runs = %+v", runs)
	}
}
