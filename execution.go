package backtest

// buy applies sized orders to the portfolio. Units are the floor of
// BuyValue/Price; a security already held accumulates units and value rather
// than being overwritten. Cash decreases by the full BuyValue of every order.
//
// buy deliberately does not enforce a floor on cash: the caller detects a
// negative balance afterwards and triggers a full rebalance.
func buy(pdf *Portfolio, orders []Order, cash Money) Money {
	for _, o := range orders {
		units := o.BuyValue.Units(o.Price)
		value := o.BuyValue
		cash = cash.Sub(o.BuyValue)
		if prev, ok := pdf.Get(o.Security); ok {
			units = prev.Units.Add(units)
			value = prev.Value.Add(value)
		}
		pdf.Set(Position{
			Security: o.Security,
			Units:    units,
			Date:     o.Date,
			Price:    o.Price,
			Value:    value,
		})
	}
	return cash
}

// SellPolicy liquidates the day's sell set. Both implementations are no-ops
// on an empty set. The returned slice lists securities whose liquidation is
// incomplete and must continue on subsequent days.
type SellPolicy interface {
	Sell(pdf *Portfolio, sells []sellOrder, cash Money) (newCash Money, remaining []string)
}

// FullSell is the baseline policy: every position in the sell set is removed
// entirely and its full value, at the day's price, is credited to cash.
type FullSell struct{}

func (FullSell) Sell(pdf *Portfolio, sells []sellOrder, cash Money) (Money, []string) {
	for _, s := range sells {
		pdf.Remove(s.Security)
		cash = cash.Add(s.Price.Mul(s.Units))
	}
	return cash, nil
}

// CappedSell only liquidates up to a fraction of the day's traded volume. The
// unsold remainder stays in the portfolio as a continuing position, to be
// liquidated further on subsequent days.
type CappedSell struct {
	LiquidityFraction float64
}

func (p CappedSell) Sell(pdf *Portfolio, sells []sellOrder, cash Money) (Money, []string) {
	var remaining []string
	for _, s := range sells {
		positionValue := s.Price.Mul(s.Units)
		volumeCap := s.Price.Mul(s.Volume).Scale(p.LiquidityFraction)
		unitCap := positionValue.Min(volumeCap).Units(s.Price)

		if s.Units.GreaterThan(unitCap) {
			left := s.Units.Sub(unitCap)
			pdf.Set(Position{
				Security: s.Security,
				Units:    left,
				Date:     s.Date,
				Price:    s.Price,
				Value:    s.Price.Mul(left),
			})
			remaining = append(remaining, s.Security)
			cash = cash.Add(s.Price.Mul(unitCap))
			continue
		}
		pdf.Remove(s.Security)
		cash = cash.Add(s.Price.Mul(s.Units))
	}
	return cash, remaining
}

// liquidate sells positions at their carried price regardless of volume, for
// the full-rebalance step. It returns the cash credited.
func liquidate(positions []Position, cash Money) Money {
	for _, pos := range positions {
		cash = cash.Add(pos.Price.Mul(pos.Units))
	}
	return cash
}

var _ SellPolicy = FullSell{}
var _ SellPolicy = CappedSell{}
