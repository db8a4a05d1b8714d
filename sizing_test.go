package backtest

import (
	"testing"
)

func TestInvestValue(t *testing.T) {
	tests := []struct {
		name           string
		portfolioValue float64
		cash           float64
		n              int
		reserve        float64
		stockCap       float64
		want           float64
	}{
		// cap per stock: (pv+cash)*(1-reserve)*stockCap, split: cash*(1-reserve)/n
		{name: "cap binds", portfolioValue: 0, cash: 1_000_000, n: 5, reserve: 0.05, stockCap: 0.1, want: 95_000},
		{name: "split binds", portfolioValue: 0, cash: 1000, n: 4, reserve: 0, stockCap: 0.5, want: 250},
		{name: "single candidate", portfolioValue: 0, cash: 1000, n: 1, reserve: 0, stockCap: 1, want: 1000},
		{name: "existing positions raise the cap", portfolioValue: 9000, cash: 1000, n: 1, reserve: 0, stockCap: 0.5, want: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := investValue(MYR(tt.portfolioValue), MYR(tt.cash), tt.n, tt.reserve, tt.stockCap)
			if !got.Equal(MYR(tt.want)) {
				t.Errorf("investValue() = %s, want %v", got, tt.want)
			}
		})
	}
}

func TestUniformSizingDropsBelowMinNotional(t *testing.T) {
	s := UniformSizing{StockCap: 1, MinNotional: MYR(100)}
	buys := []SignalRow{
		row("2025-01-02", "AAA", "buy", 10, 0),
	}
	day := dayOf(buys...)
	on := MustParseDate("2025-01-02")

	orders, _ := s.Size(MYR(50), on, buys, day, NewLeftoverBook())
	if len(orders) != 0 {
		t.Errorf("orders = %v, want none below the minimum notional", orders)
	}
	orders, _ = s.Size(MYR(500), on, buys, day, NewLeftoverBook())
	if len(orders) != 1 || !orders[0].BuyValue.Equal(MYR(500)) {
		t.Errorf("orders = %v, want one 500 order", orders)
	}
}

func TestLiquiditySizingCapsAndDefers(t *testing.T) {
	s := LiquiditySizing{StockCap: 1, LiquidityFraction: 0.1, TTL: 3}
	buys := []SignalRow{row("2025-01-02", "AAA", "buy", 10, 1000)}
	day := dayOf(buys...)
	on := MustParseDate("2025-01-02")

	// Value cap: 10 * 1000 * 0.1 = 1000 of the allocated 95000.
	orders, after := s.Size(MYR(95_000), on, buys, day, NewLeftoverBook())
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if !orders[0].BuyValue.Equal(MYR(1000)) {
		t.Errorf("buy value = %s, want the 1000 liquidity cap", orders[0].BuyValue)
	}
	entry, ok := after.Get("AAA")
	if !ok {
		t.Fatal("no leftover entry for the unfilled demand")
	}
	if !entry.Unfilled.Equal(MYR(94_000)) {
		t.Errorf("unfilled = %s, want 94000", entry.Unfilled)
	}
	// TTL counts the creation day: a fresh entry has TTL-1 retries left.
	if entry.DaysLeft != 2 {
		t.Errorf("days left = %d, want 2", entry.DaysLeft)
	}
}

func TestLiquiditySizingRetriesLeftover(t *testing.T) {
	s := LiquiditySizing{StockCap: 1, LiquidityFraction: 0.1, TTL: 3}
	on := MustParseDate("2025-01-03")
	book := NewLeftoverBook()
	book.Set(LeftoverEntry{Security: "AAA", Unfilled: MYR(500), DaysLeft: 2})

	// The retry allocation never exceeds the outstanding unfilled amount.
	day := dayOf(row("2025-01-03", "AAA", "na", 10, 10_000))
	orders, after := s.Size(MYR(2000), on, nil, day, book)
	if len(orders) != 1 || !orders[0].BuyValue.Equal(MYR(500)) {
		t.Fatalf("orders = %v, want one 500 order", orders)
	}
	// Fully filled: the entry is gone.
	if _, ok := after.Get("AAA"); ok {
		t.Error("entry still live after a full fill")
	}
	// The input book is never mutated by sizing.
	if _, ok := book.Get("AAA"); !ok {
		t.Error("Size() mutated the caller's book")
	}
}

func TestLiquiditySizingDecaysWithoutRow(t *testing.T) {
	s := LiquiditySizing{StockCap: 1, LiquidityFraction: 0.1, TTL: 3}
	book := NewLeftoverBook()
	book.Set(LeftoverEntry{Security: "AAA", Unfilled: MYR(500), DaysLeft: 2})

	// No observation today: the demand survives but its time-to-live decays.
	orders, after := s.Size(MYR(2000), MustParseDate("2025-01-03"), nil, nil, book)
	if len(orders) != 0 {
		t.Errorf("orders = %v, want none without a row", orders)
	}
	entry, ok := after.Get("AAA")
	if !ok {
		t.Fatal("entry dropped instead of surviving")
	}
	if entry.DaysLeft != 1 {
		t.Errorf("days left = %d, want 1", entry.DaysLeft)
	}
	if !entry.Unfilled.Equal(MYR(500)) {
		t.Errorf("unfilled = %s, want unchanged 500", entry.Unfilled)
	}
}

func TestLiquiditySizingDemand(t *testing.T) {
	s := LiquiditySizing{}
	book := NewLeftoverBook()
	book.Set(LeftoverEntry{Security: "AAA", Unfilled: MYR(500), DaysLeft: 2})
	book.Set(LeftoverEntry{Security: "BBB", Unfilled: MYR(300), DaysLeft: 1})

	buys := []SignalRow{
		row("2025-01-03", "AAA", "buy", 10, 100), // already deferred, counts once
		row("2025-01-03", "CCC", "buy", 20, 100),
	}
	if got := s.Demand(buys, book); got != 3 {
		t.Errorf("Demand() = %d, want 3", got)
	}
}

func TestLeftoverBookCarryForward(t *testing.T) {
	book := NewLeftoverBook()
	book.Set(LeftoverEntry{Security: "AAA", Unfilled: MYR(500), DaysLeft: 0})
	book.Set(LeftoverEntry{Security: "BBB", Unfilled: MYR(300), DaysLeft: 2})
	book.Set(LeftoverEntry{Security: "CCC", Unfilled: MYR(100), DaysLeft: 3})

	sold := func(s string) bool { return s == "CCC" }
	book.CarryForward(sold)

	if _, ok := book.Get("AAA"); ok {
		t.Error("expired entry survived")
	}
	if _, ok := book.Get("CCC"); ok {
		t.Error("entry for a sold security survived")
	}
	if _, ok := book.Get("BBB"); !ok {
		t.Error("live entry dropped")
	}
}
