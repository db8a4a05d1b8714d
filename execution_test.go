package backtest

import "testing"

func TestBuyFloorsUnitsAndSpendsFullValue(t *testing.T) {
	pdf := NewPortfolio()
	on := MustParseDate("2025-01-02")
	cash := buy(pdf, []Order{
		{Security: "AAA", Date: on, Price: MYR(3), BuyValue: MYR(1000)},
	}, MYR(1000))

	// 333 whole units; the full 1000 leaves the cash balance either way.
	pos, _ := pdf.Get("AAA")
	if !pos.Units.Equal(Q(333)) {
		t.Errorf("units = %s, want 333", pos.Units)
	}
	if !pos.Value.Equal(MYR(1000)) {
		t.Errorf("value = %s, want the 1000 spent", pos.Value)
	}
	if !cash.Equal(MYR(0)) {
		t.Errorf("cash = %s, want 0", cash)
	}
}

func TestBuyAccumulatesExistingPosition(t *testing.T) {
	pdf := NewPortfolio()
	on := MustParseDate("2025-01-02")
	order := Order{Security: "AAA", Date: on, Price: MYR(10), BuyValue: MYR(100)}

	cash := buy(pdf, []Order{order, order}, MYR(1000))
	pos, _ := pdf.Get("AAA")
	if !pos.Units.Equal(Q(20)) {
		t.Errorf("units = %s, want 20", pos.Units)
	}
	if !pos.Value.Equal(MYR(200)) {
		t.Errorf("value = %s, want 200", pos.Value)
	}
	if !cash.Equal(MYR(800)) {
		t.Errorf("cash = %s, want 800", cash)
	}
}

func TestFullSellRemovesPosition(t *testing.T) {
	pdf := NewPortfolio()
	pdf.Set(Position{Security: "AAA", Units: Q(100), Price: MYR(10), Value: MYR(1000)})

	sells := []sellOrder{{
		Position: Position{Security: "AAA", Units: Q(100), Price: MYR(12)},
	}}
	cash, remaining := FullSell{}.Sell(pdf, sells, MYR(0))
	if pdf.Has("AAA") {
		t.Error("position not removed")
	}
	if !cash.Equal(MYR(1200)) {
		t.Errorf("cash = %s, want 1200", cash)
	}
	if remaining != nil {
		t.Errorf("remaining = %v, want none", remaining)
	}
}

func TestCappedSellKeepsRemainder(t *testing.T) {
	pdf := NewPortfolio()
	pdf.Set(Position{Security: "AAA", Units: Q(100), Price: MYR(10), Value: MYR(1000)})

	// Volume cap: 10 * 50 * 0.1 = 50, so only 5 units may leave today.
	sells := []sellOrder{{
		Position: Position{Security: "AAA", Units: Q(100), Price: MYR(10)},
		Volume:   Q(50),
	}}
	cash, remaining := CappedSell{LiquidityFraction: 0.1}.Sell(pdf, sells, MYR(0))
	if !cash.Equal(MYR(50)) {
		t.Errorf("cash = %s, want 50", cash)
	}
	pos, ok := pdf.Get("AAA")
	if !ok {
		t.Fatal("remainder position removed")
	}
	if !pos.Units.Equal(Q(95)) {
		t.Errorf("remaining units = %s, want 95", pos.Units)
	}
	if len(remaining) != 1 || remaining[0] != "AAA" {
		t.Errorf("remaining = %v, want [AAA]", remaining)
	}
}

func TestCappedSellCompletesSmallPosition(t *testing.T) {
	pdf := NewPortfolio()
	pdf.Set(Position{Security: "AAA", Units: Q(3), Price: MYR(10), Value: MYR(30)})

	// Position value 30 is under the 100 volume cap: a complete exit.
	sells := []sellOrder{{
		Position: Position{Security: "AAA", Units: Q(3), Price: MYR(10)},
		Volume:   Q(100),
	}}
	cash, remaining := CappedSell{LiquidityFraction: 0.1}.Sell(pdf, sells, MYR(0))
	if pdf.Has("AAA") {
		t.Error("position not removed")
	}
	if !cash.Equal(MYR(30)) {
		t.Errorf("cash = %s, want 30", cash)
	}
	if remaining != nil {
		t.Errorf("remaining = %v, want none", remaining)
	}
}
