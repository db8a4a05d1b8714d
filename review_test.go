package backtest

import (
	"math"
	"testing"
)

func reviewHistory(t *testing.T, values ...float64) *History {
	t.Helper()
	h := NewHistory()
	on := MustParseDate("2025-01-02")
	for i, v := range values {
		rec := record(on.Add(i).String())
		rec.Value = MYR(v)
		rec.Cash = MYR(v)
		rec.Cost = MYR(0)
		if err := h.Append(rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return h
}

func TestNewReviewReturnsAndDrawdown(t *testing.T) {
	h := reviewHistory(t, 100, 110, 99)
	r, err := NewReview(h, nil, 0)
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	if !r.TotalReturn.Equal(Percent(-1)) {
		t.Errorf("TotalReturn = %s, want -1.00%%", r.TotalReturn)
	}
	// Largest peak-to-trough loss: 110 down to 99.
	if !r.MaxDrawdown.Equal(Percent(-10)) {
		t.Errorf("MaxDrawdown = %s, want -10.00%%", r.MaxDrawdown)
	}
	if r.Days != 3 {
		t.Errorf("Days = %d, want 3", r.Days)
	}
	if r.HasBenchmark {
		t.Error("HasBenchmark = true without a benchmark series")
	}
}

func TestNewReviewBenchmarkComparison(t *testing.T) {
	h := reviewHistory(t, 100, 110)
	benchmark := new(Series).
		Append(MustParseDate("2025-01-02"), 1000).
		Append(MustParseDate("2025-01-03"), 1050)

	r, err := NewReview(h, benchmark, 0)
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	if !r.HasBenchmark {
		t.Fatal("HasBenchmark = false")
	}
	if !r.BenchmarkReturn.Equal(Percent(5)) {
		t.Errorf("BenchmarkReturn = %s, want 5.00%%", r.BenchmarkReturn)
	}
	if !r.ExcessReturn.Equal(Percent(5)) {
		t.Errorf("ExcessReturn = %s, want 5.00%%", r.ExcessReturn)
	}
}

func TestNewReviewAggregatesCostsAndRebalances(t *testing.T) {
	h := NewHistory()
	on := MustParseDate("2025-01-02")
	for i, rec := range []HistoryRecord{
		{Value: MYR(100), Cost: MYR(0)},
		{Value: MYR(101), Cost: MYR(2), Rebalanced: true},
		{Value: MYR(102), Cost: MYR(3), Rebalanced: true},
	} {
		rec.Date = on.Add(i)
		rec.Portfolio = NewPortfolio()
		if err := h.Append(rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	r, err := NewReview(h, nil, 0)
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	if !r.TotalCost.Equal(MYR(5)) {
		t.Errorf("TotalCost = %s, want 5", r.TotalCost)
	}
	if r.Rebalances != 2 {
		t.Errorf("Rebalances = %d, want 2", r.Rebalances)
	}
}

func TestNewReviewEmptyHistory(t *testing.T) {
	if _, err := NewReview(NewHistory(), nil, 0); err == nil {
		t.Error("NewReview() on empty history: error = nil, want error")
	}
}

func TestAnnualizeAndSharpe(t *testing.T) {
	// A constant daily return has zero volatility and an undefined Sharpe,
	// reported as zero.
	flat := []float64{0.01, 0.01, 0.01}
	if vol := annualizeVolatility(flat, tradingDaysPerYear); vol != 0 {
		t.Errorf("annualizeVolatility(flat) = %v, want 0", vol)
	}
	if sr := sharpeRatio(flat, 0, tradingDaysPerYear); sr != 0 {
		t.Errorf("sharpeRatio(flat) = %v, want 0 on zero volatility", sr)
	}

	// One 1% day annualizes to (1.01)^252 - 1.
	got := annualizeReturns([]float64{0.01}, tradingDaysPerYear)
	want := math.Pow(1.01, tradingDaysPerYear) - 1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("annualizeReturns() = %v, want %v", got, want)
	}

	if got := maxDrawdown([]float64{100, 120, 90, 110, 80}); math.Abs(got-(80-120)/120.0) > 1e-12 {
		t.Errorf("maxDrawdown() = %v, want %v", got, (80-120)/120.0)
	}
}
