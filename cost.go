package backtest

// transactionCost prices the turnover between the two most recent completed
// days: the outer join of both portfolios by security, the absolute unit
// difference (missing positions count as zero units) at the most recently
// known price, times the fee rate. The caller defines the cost of the first
// two simulated days as zero, there being insufficient history.
func transactionCost(t1, t2 HistoryRecord, feeRate float64, currency string) Money {
	cost := M(0, currency)

	seen := make(map[string]bool)
	join := make([]string, 0, t1.Portfolio.Len()+t2.Portfolio.Len())
	for _, s := range t1.Portfolio.Securities() {
		join = append(join, s)
		seen[s] = true
	}
	for _, s := range t2.Portfolio.Securities() {
		if !seen[s] {
			join = append(join, s)
		}
	}

	for _, s := range join {
		p1, ok1 := t1.Portfolio.Get(s)
		p2, ok2 := t2.Portfolio.Get(s)

		units := Q(0)
		if ok1 {
			units = units.Add(p1.Units)
		}
		if ok2 {
			units = units.Sub(p2.Units)
		}
		if units.IsNegative() {
			units = Q(0).Sub(units)
		}

		price := p1.Price
		if !ok1 {
			price = p2.Price
		}
		cost = cost.Add(price.Mul(units).Scale(feeRate))
	}
	return cost
}
