package backtest

import "slices"

// sellOrder is a position leaving the portfolio, re-priced to the current
// day. The day's volume rides along for the liquidity-capped sell policy.
type sellOrder struct {
	Position
	Volume Quantity
}

// dayActions is the disjoint partition of today's universe: positions kept,
// new buy demand, and positions being exited. Leftover demand lives in the
// LeftoverBook and is filtered separately.
type dayActions struct {
	holds []string    // securities kept in the portfolio
	buys  []SignalRow // buy candidates, with the fields sizing needs
	sells []sellOrder // positions to liquidate, re-priced to today
}

// resolveDay partitions today's signal rows against the current portfolio.
//
// A held security flagged sell moves to the sell set, re-priced to today's
// last price. When sellAbsent is set (the basic engine), a held security with
// no row at all today (dropped from coverage) is also sold, at its last known
// price. On the first simulated day the portfolio is empty and raw 'hold'
// signals are treated as initial buys.
//
// continueSelling lists securities whose liquidation is still in progress
// from a prior day's capped sell; they rejoin the sell set unless flagged buy
// today.
func resolveDay(k int, day map[string]SignalRow, pdf *Portfolio, continueSelling []string, sellAbsent bool) dayActions {
	var acts dayActions

	selling := make(map[string]bool)
	for s, row := range day {
		if row.Action == Sell && pdf.Has(s) {
			selling[s] = true
		}
	}
	for _, s := range continueSelling {
		if !pdf.Has(s) {
			continue
		}
		if row, ok := day[s]; ok && row.Action == Buy {
			continue // demand flipped back to buy, keep the remainder
		}
		selling[s] = true
	}
	if sellAbsent {
		for _, s := range pdf.Securities() {
			if _, ok := day[s]; !ok {
				selling[s] = true
			}
		}
	}

	for pos := range pdf.Positions() {
		if !selling[pos.Security] {
			acts.holds = append(acts.holds, pos.Security)
			continue
		}
		order := sellOrder{Position: pos}
		if row, ok := day[pos.Security]; ok {
			order.Price = row.Price // re-price to the day of the sale
			order.Volume = row.Volume
		}
		acts.sells = append(acts.sells, order)
	}

	securities := make([]string, 0, len(day))
	for s := range day {
		securities = append(securities, s)
	}
	slices.Sort(securities)
	for _, s := range securities {
		row := day[s]
		switch {
		case row.Action == Buy:
			acts.buys = append(acts.buys, row)
		case row.Action == Hold && k == 0:
			// The portfolio starts empty: a pre-existing "hold" opinion on
			// day zero is an instruction to own the security.
			acts.buys = append(acts.buys, row)
		}
	}
	return acts
}

// soldSet returns a predicate over the securities in the sell set.
func (a dayActions) soldSet() func(string) bool {
	sold := make(map[string]bool, len(a.sells))
	for _, s := range a.sells {
		sold[s.Security] = true
	}
	return func(security string) bool { return sold[security] }
}
