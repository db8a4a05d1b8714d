package backtest

// Order is a sized buy: spend BuyValue on Security at Price. The number of
// units actually bought is the floor of BuyValue/Price; the whole BuyValue
// leaves the cash balance either way.
type Order struct {
	Security string
	Date     Date
	Price    Money
	BuyValue Money
}

// SizingPolicy allocates an investable amount across the day's buy
// candidates. Implementations must never be called with zero candidates;
// that is a caller invariant, enforced upstream by the simulation.
type SizingPolicy interface {
	// InvestValue computes the uniform per-candidate amount:
	// min(capPerStock, usable cash split equally across n candidates), where
	// capPerStock bounds any single position to a fraction of total capital.
	InvestValue(portfolioValue, cash Money, n int) Money

	// Demand counts the candidates the policy would size today: the buy set,
	// plus outstanding leftover demand if the policy carries any.
	Demand(buys []SignalRow, book *LeftoverBook) int

	// Size turns the per-candidate invest value into concrete orders. It does
	// not mutate 'book': the returned book is the state after this sizing
	// (leftovers created, retried, filled or decayed), which the caller
	// commits only if it executes the orders.
	Size(iv Money, on Date, buys []SignalRow, day map[string]SignalRow, book *LeftoverBook) ([]Order, *LeftoverBook)

	// Leftovers reports whether the policy defers unfilled demand.
	Leftovers() bool
}

// investValue is the shared sizing formula of both policies.
func investValue(portfolioValue, cash Money, n int, cashReserve, stockCap float64) Money {
	capPerStock := portfolioValue.Add(cash).Scale(1 - cashReserve).Scale(stockCap)
	split := cash.Scale(1 - cashReserve).Div(Q(n))
	return capPerStock.Min(split)
}

// UniformSizing is the simple policy: every candidate receives the same
// invest value, with no liquidity consideration and no carry-forward of
// unfilled demand.
type UniformSizing struct {
	CashReserve float64 // fraction of total value kept out of new investment
	StockCap    float64 // max fraction of total capital per single position
	MinNotional Money   // orders below this are dropped
}

func (s UniformSizing) InvestValue(portfolioValue, cash Money, n int) Money {
	return investValue(portfolioValue, cash, n, s.CashReserve, s.StockCap)
}

func (s UniformSizing) Demand(buys []SignalRow, _ *LeftoverBook) int { return len(buys) }

func (s UniformSizing) Leftovers() bool { return false }

func (s UniformSizing) Size(iv Money, on Date, buys []SignalRow, _ map[string]SignalRow, book *LeftoverBook) ([]Order, *LeftoverBook) {
	orders := make([]Order, 0, len(buys))
	for _, row := range buys {
		if !s.MinNotional.IsZero() && iv.LessThan(s.MinNotional) {
			continue
		}
		orders = append(orders, Order{Security: row.Security, Date: on, Price: row.Price, BuyValue: iv})
	}
	return orders, book
}

// LiquiditySizing is the liquidity-aware policy: each candidate's fill is
// additionally capped at a fraction of the day's traded volume, and the
// shortfall is deferred into the leftover book with a finite time-to-live.
type LiquiditySizing struct {
	CashReserve       float64
	StockCap          float64
	LiquidityFraction float64 // fraction of traded volume a fill may consume
	TTL               int     // days an unfilled remainder stays live, counting its creation day
	MinNotional       Money
}

func (s LiquiditySizing) InvestValue(portfolioValue, cash Money, n int) Money {
	return investValue(portfolioValue, cash, n, s.CashReserve, s.StockCap)
}

func (s LiquiditySizing) Leftovers() bool { return true }

// Demand counts the union of today's buy candidates and the live leftover
// entries. A buy candidate that also has a live entry counts once.
func (s LiquiditySizing) Demand(buys []SignalRow, book *LeftoverBook) int {
	n := book.Len()
	for _, row := range buys {
		if _, ok := book.Get(row.Security); !ok {
			n++
		}
	}
	return n
}

func (s LiquiditySizing) Size(iv Money, on Date, buys []SignalRow, day map[string]SignalRow, book *LeftoverBook) ([]Order, *LeftoverBook) {
	after := &LeftoverBook{entries: make(map[string]LeftoverEntry, book.Len())}
	for e := range book.Entries() {
		after.Set(e)
	}

	var orders []Order

	sizeOne := func(security string, row SignalRow, hadRow bool) {
		entry, deferred := after.Get(security)

		// invest_value_allocated never grows while demand survives: it is the
		// invest value, further bounded by the outstanding unmet amount.
		allocated := iv
		if deferred {
			allocated = allocated.Min(entry.Unfilled)
		}

		if !hadRow {
			// No observation today: the demand cannot trade. It survives,
			// but its time-to-live still decays.
			if deferred {
				entry.DaysLeft--
				after.Set(entry)
			}
			return
		}

		valueCap := row.Price.Mul(row.Volume).Scale(s.LiquidityFraction)
		buyValue := allocated.Min(valueCap)

		if !s.MinNotional.IsZero() && buyValue.LessThan(s.MinNotional) {
			// Too small to trade: the demand is dropped, not deferred.
			after.Remove(security)
			return
		}

		if buyValue.IsPositive() {
			orders = append(orders, Order{Security: security, Date: on, Price: row.Price, BuyValue: buyValue})
		}

		if valueCap.LessThan(allocated) {
			// The liquidity cap bound the fill: defer the shortfall. TTL
			// counts the day of creation, so a fresh entry has TTL-1 retries
			// left.
			days := s.TTL - 1
			if deferred {
				days = entry.DaysLeft - 1
			}
			after.Set(LeftoverEntry{
				Security:  security,
				Date:      on,
				Allocated: allocated,
				ValueCap:  valueCap,
				Unfilled:  allocated.Sub(valueCap),
				DaysLeft:  days,
			})
		} else if deferred {
			after.Remove(security) // fully filled
		}
	}

	seen := make(map[string]bool, len(buys))
	for _, row := range buys {
		seen[row.Security] = true
		sizeOne(row.Security, row, true)
	}
	// Retry live leftover demand that has no buy signal today. The day's row,
	// when present, supplies the price and volume.
	for _, security := range book.Securities() {
		if seen[security] {
			continue
		}
		row, ok := day[security]
		sizeOne(security, row, ok)
	}
	return orders, after
}

// compile time checks
var _ SizingPolicy = UniformSizing{}
var _ SizingPolicy = LiquiditySizing{}
