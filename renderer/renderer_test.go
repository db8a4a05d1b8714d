package renderer

import (
	"strings"
	"testing"

	"github.com/etnz/backtest"
)

func testHistory(t *testing.T) *backtest.History {
	t.Helper()
	table := backtest.NewSignalTable()
	rows := []backtest.SignalRow{
		{Security: "AAA", Date: backtest.MustParseDate("2025-01-02"), Action: backtest.Buy, Price: backtest.M(10, "MYR")},
		{Security: "AAA", Date: backtest.MustParseDate("2025-01-03"), Action: backtest.Hold, Price: backtest.M(11, "MYR")},
	}
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	cfg := backtest.Config{InitialCapital: 1000, Currency: "MYR", StockCapRatio: 1}
	sim, err := backtest.NewSimulation(cfg, table, backtest.NewCalendar(table.Dates()...), nil)
	if err != nil {
		t.Fatalf("NewSimulation() error = %v", err)
	}
	h, err := sim.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return h
}

func TestRenderReport(t *testing.T) {
	t.Setenv("BACKTEST_TESTING_NOW", "2025-02-01 09:00:00")

	h := testHistory(t)
	review, err := backtest.NewReview(h, nil, 0)
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	report := NewReport("momentum", review, h)
	md := RenderReport(report, ReportRenderOptions{})

	for _, want := range []string{
		"# Backtest Report for momentum",
		"2025-01-02 to 2025-01-03 (2 days), generated 2025-02-01 09:00:00",
		"## Summary",
		"## Final Positions",
		"## Day by Day",
		"| AAA |",
		"| 2025-01-03 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
	// No benchmark series: the benchmark section is absent.
	if strings.Contains(md, "## Benchmark") {
		t.Errorf("report contains a benchmark section without a benchmark:\n%s", md)
	}
}

func TestRenderReportSkipsSections(t *testing.T) {
	h := testHistory(t)
	review, err := backtest.NewReview(h, nil, 0)
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	report := NewReport("", review, h)
	md := RenderReport(report, ReportRenderOptions{SkipDays: true, SkipPositions: true})

	if strings.Contains(md, "## Day by Day") || strings.Contains(md, "## Final Positions") {
		t.Errorf("skipped sections still rendered:\n%s", md)
	}
	if !strings.Contains(md, "## Summary") {
		t.Errorf("summary missing:\n%s", md)
	}
}
