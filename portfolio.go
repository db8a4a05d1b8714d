package backtest

import (
	"iter"
	"maps"
	"slices"
)

// Position is one open holding: a whole number of units of a security, the
// date it was last traded, the last known price and the position's carrying
// value. The carrying value is the amount of cash actually spent, then marked
// to market at every close.
type Position struct {
	Security string
	Units    Quantity
	Date     Date // date the position was entered or last traded
	Price    Money
	Value    Money
}

// Portfolio is the set of open positions, at most one per security. It is
// exclusively owned and mutated by a single simulation run; history records
// receive copies.
type Portfolio struct {
	positions map[string]Position
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{positions: make(map[string]Position)}
}

// Len returns the number of open positions.
func (p *Portfolio) Len() int { return len(p.positions) }

// Has reports whether a position is open for this security.
func (p *Portfolio) Has(security string) bool {
	_, ok := p.positions[security]
	return ok
}

// Get returns the position for a security.
func (p *Portfolio) Get(security string) (Position, bool) {
	pos, ok := p.positions[security]
	return pos, ok
}

// Set inserts or replaces a position.
func (p *Portfolio) Set(pos Position) { p.positions[pos.Security] = pos }

// Remove closes a position.
func (p *Portfolio) Remove(security string) { delete(p.positions, security) }

// Securities returns the held securities in a deterministic (sorted) order.
func (p *Portfolio) Securities() []string {
	securities := slices.Collect(maps.Keys(p.positions))
	slices.Sort(securities)
	return securities
}

// Positions returns an iterator over the open positions in sorted security
// order.
func (p *Portfolio) Positions() iter.Seq[Position] {
	return func(yield func(Position) bool) {
		for _, s := range p.Securities() {
			if !yield(p.positions[s]) {
				return
			}
		}
	}
}

// Value returns the sum of all position values.
func (p *Portfolio) Value(currency string) Money {
	total := M(0, currency)
	for _, s := range p.Securities() {
		total = total.Add(p.positions[s].Value)
	}
	return total
}

// Clone returns an independent copy of the portfolio, for history snapshots.
func (p *Portfolio) Clone() *Portfolio {
	return &Portfolio{positions: maps.Clone(p.positions)}
}

// MarkToMarket revalues every held position at the day's last price, without
// trading. Securities with no row today keep their last known price.
func (p *Portfolio) MarkToMarket(day map[string]SignalRow) {
	for s, pos := range p.positions {
		if row, ok := day[s]; ok {
			pos.Price = row.Price
		}
		pos.Value = pos.Price.Mul(pos.Units)
		p.positions[s] = pos
	}
}
