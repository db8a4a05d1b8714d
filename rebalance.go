package backtest

import "slices"

// fullRebalance liquidates every non-retained position, recomputes a uniform
// per-position target across retained and new candidates, and re-invests.
//
// The sizing base is the post-sell cash together with the pre-sell total
// value: liquidating the retained set turns its market value into cash, so
// sizing against the liquidation proceeds caps already-held positions at the
// same target as new buys.
//
// It returns the rebuilt portfolio, the new cash balance, the leftover book
// after re-sizing, and whether a rebalance actually took place (an empty
// retained+buy set is a no-op).
func (s *Simulation) fullRebalance(on Date, acts dayActions, day map[string]SignalRow, pdf *Portfolio, book *LeftoverBook, cash Money) (*Portfolio, Money, *LeftoverBook, bool) {
	if len(acts.holds)+len(acts.buys) == 0 {
		return pdf, cash, book, false
	}

	// Retained positions, re-priced to today where a row exists.
	holds := make([]Position, 0, len(acts.holds))
	for _, security := range acts.holds {
		pos, _ := pdf.Get(security)
		if row, ok := day[security]; ok {
			pos.Price = row.Price
		}
		pos.Value = pos.Price.Mul(pos.Units)
		holds = append(holds, pos)
	}

	// Positions neither retained nor bought: the in-progress remainders of a
	// capped sell. They ride through the rebalance untouched.
	retained := make(map[string]bool, len(holds))
	for _, p := range holds {
		retained[p.Security] = true
	}
	var remainders []Position
	for pos := range pdf.Positions() {
		if !retained[pos.Security] {
			remainders = append(remainders, pos)
		}
	}

	// Step 1: liquidate the retained set; nav is the pre-sell total value.
	nav := liquidate(holds, cash)

	// Step 2: one uniform target across retained + new candidates.
	n := len(holds)
	for _, row := range acts.buys {
		if !retained[row.Security] {
			n++
		}
	}
	iv := s.sizing.InvestValue(M(0, s.cfg.Currency), nav, n)

	rebuilt := NewPortfolio()
	var newCash Money

	if !s.sizing.Leftovers() {
		// Basic variant: everything, retained or new, is re-bought at the
		// uniform target.
		orders := make([]Order, 0, n)
		for _, pos := range holds {
			orders = append(orders, Order{Security: pos.Security, Date: on, Price: pos.Price, BuyValue: iv})
		}
		for _, row := range acts.buys {
			if retained[row.Security] {
				continue
			}
			orders = append(orders, Order{Security: row.Security, Date: on, Price: row.Price, BuyValue: iv})
		}
		newCash = buy(rebuilt, orders, nav)
	} else {
		rebuilt, newCash, book = s.rebalanceWithLeftovers(on, holds, acts.buys, day, book, nav, iv)
	}

	for _, pos := range remainders {
		rebuilt.Set(pos)
	}
	return rebuilt, newCash, book, true
}

// rebalanceWithLeftovers is the liquidity-aware redistribution: retained
// positions above the uniform target are trimmed to it (freeing cash), those
// below it raise top-up demand that flows through the leftover book so the
// liquidity cap still applies, and new buys are sized normally.
func (s *Simulation) rebalanceWithLeftovers(on Date, holds []Position, buys []SignalRow, day map[string]SignalRow, book *LeftoverBook, nav, iv Money) (*Portfolio, Money, *LeftoverBook) {
	held := make(map[string]bool, len(holds))
	for _, p := range holds {
		held[p.Security] = true
	}

	// New buy candidates only; a buy signal on a retained security is already
	// served by the retained position plus its top-up.
	newBuys := make([]SignalRow, 0, len(buys))
	for _, row := range buys {
		if !held[row.Security] {
			newBuys = append(newBuys, row)
		}
	}

	// Raise top-up demand for retained positions below the target, then trim
	// every retained value to the target.
	working := book.clone()
	for i, pos := range holds {
		if pos.Value.LessThan(iv) {
			if _, deferred := working.Get(pos.Security); !deferred {
				// One extra day so that today's sizing decay lands the fresh
				// entry on the configured TTL.
				working.Set(LeftoverEntry{
					Security: pos.Security,
					Date:     on,
					Unfilled: iv.Sub(pos.Value),
					DaysLeft: s.cfg.LeftoverTTL,
				})
			}
		} else {
			holds[i].Value = iv // trim above target, freeing cash
		}
	}

	rebuilt := NewPortfolio()

	if len(newBuys)+working.Len() == 0 {
		// Nothing to size: just re-floor the retained positions at their
		// capped values.
		spent := M(0, s.cfg.Currency)
		for _, pos := range holds {
			pos.Units = pos.Value.Units(pos.Price)
			rebuilt.Set(pos)
			spent = spent.Add(pos.Value)
		}
		return rebuilt, nav.Sub(spent), working
	}

	orders, after := s.sizing.Size(iv, on, newBuys, day, working)

	// Re-buy the retained set at its capped value, merged with the sized
	// orders, summing buy values for securities present in both.
	merged := make([]Order, 0, len(holds)+len(orders))
	for _, pos := range holds {
		merged = append(merged, Order{Security: pos.Security, Date: on, Price: pos.Price, BuyValue: pos.Value})
	}
	merged = append(merged, orders...)
	slices.SortStableFunc(merged, func(a, b Order) int {
		switch {
		case a.Security < b.Security:
			return -1
		case a.Security > b.Security:
			return 1
		default:
			return 0
		}
	})
	cash := buy(rebuilt, merged, nav)
	return rebuilt, cash, after
}
