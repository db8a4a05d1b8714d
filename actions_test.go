package backtest

import (
	"slices"
	"testing"
)

func dayOf(rows ...SignalRow) map[string]SignalRow {
	day := make(map[string]SignalRow, len(rows))
	for _, r := range rows {
		day[r.Security] = r
	}
	return day
}

func TestResolveDayFirstDayHoldBecomesBuy(t *testing.T) {
	day := dayOf(
		row("2025-01-02", "AAA", "hold", 10, 0),
		row("2025-01-02", "BBB", "buy", 20, 0),
		row("2025-01-02", "CCC", "na", 30, 0),
	)
	acts := resolveDay(0, day, NewPortfolio(), nil, true)
	var buys []string
	for _, r := range acts.buys {
		buys = append(buys, r.Security)
	}
	if want := []string{"AAA", "BBB"}; !slices.Equal(buys, want) {
		t.Errorf("buys = %v, want %v", buys, want)
	}
	if len(acts.sells) != 0 || len(acts.holds) != 0 {
		t.Errorf("sells = %d holds = %d, want none on an empty portfolio", len(acts.sells), len(acts.holds))
	}
}

func TestResolveDaySellRepricesToToday(t *testing.T) {
	pdf := NewPortfolio()
	pdf.Set(Position{Security: "AAA", Units: Q(100), Price: MYR(10), Value: MYR(1000)})

	day := dayOf(row("2025-01-03", "AAA", "sell", 12, 500))
	acts := resolveDay(1, day, pdf, nil, true)
	if len(acts.sells) != 1 {
		t.Fatalf("sells = %d, want 1", len(acts.sells))
	}
	s := acts.sells[0]
	if !s.Price.Equal(MYR(12)) {
		t.Errorf("sell price = %s, want today's 12", s.Price)
	}
	if !s.Volume.Equal(Q(500)) {
		t.Errorf("sell volume = %s, want 500", s.Volume)
	}
	if !acts.soldSet()("AAA") {
		t.Error("soldSet() does not contain the sold security")
	}
}

func TestResolveDaySellAbsent(t *testing.T) {
	pdf := NewPortfolio()
	pdf.Set(Position{Security: "AAA", Units: Q(100), Price: MYR(10), Value: MYR(1000)})
	pdf.Set(Position{Security: "BBB", Units: Q(50), Price: MYR(20), Value: MYR(1000)})

	day := dayOf(row("2025-01-03", "AAA", "hold", 11, 0))

	// The basic engine exits positions that dropped out of coverage.
	acts := resolveDay(1, day, pdf, nil, true)
	if len(acts.sells) != 1 || acts.sells[0].Security != "BBB" {
		t.Errorf("sells = %v, want the uncovered BBB", acts.sells)
	}
	// An uncovered sell has no row: it keeps the last known price.
	if !acts.sells[0].Price.Equal(MYR(20)) {
		t.Errorf("uncovered sell price = %s, want last known 20", acts.sells[0].Price)
	}

	// The liquidity-aware engines keep uncovered positions.
	acts = resolveDay(1, day, pdf, nil, false)
	if len(acts.sells) != 0 {
		t.Errorf("sells = %v, want none when uncovered positions are kept", acts.sells)
	}
	if want := []string{"AAA", "BBB"}; !slices.Equal(acts.holds, want) {
		t.Errorf("holds = %v, want %v", acts.holds, want)
	}
}

func TestResolveDayContinueSelling(t *testing.T) {
	pdf := NewPortfolio()
	pdf.Set(Position{Security: "AAA", Units: Q(90), Price: MYR(10), Value: MYR(900)})
	pdf.Set(Position{Security: "BBB", Units: Q(40), Price: MYR(20), Value: MYR(800)})

	day := dayOf(
		row("2025-01-03", "AAA", "na", 10, 100),
		row("2025-01-03", "BBB", "buy", 20, 100),
	)
	// AAA's liquidation continues; BBB's flipped back to buy and is kept.
	acts := resolveDay(1, day, pdf, []string{"AAA", "BBB"}, false)
	if len(acts.sells) != 1 || acts.sells[0].Security != "AAA" {
		t.Errorf("sells = %v, want only AAA", acts.sells)
	}
	if want := []string{"BBB"}; !slices.Equal(acts.holds, want) {
		t.Errorf("holds = %v, want %v", acts.holds, want)
	}
}
