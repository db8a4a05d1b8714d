package backtest

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Config holds the knobs of a simulation run. All fields are fixed for the
// duration of the run.
type Config struct {
	InitialCapital   float64
	Currency         string  // reporting currency, e.g. "MYR"
	CashReserveRatio float64 // [0,1) fraction of total value kept uninvested
	FeeRate          float64 // [0,1) per-trade fee as a fraction of traded notional
	StockCapRatio    float64 // (0,1] max fraction of total capital per position

	// Liquidity-aware variant.
	UseLeftovers      bool    // defer liquidity-capped buy demand across days
	CappedSells       bool    // liquidity-capped partial sells
	LiquidityFraction float64 // (0,1] fraction of traded volume a fill may consume
	LeftoverTTL       int     // days deferred demand stays live, counting its creation day
	MinNotional       float64 // orders below this notional are dropped

	// AnnualReset scales the portfolio back to the initial capital on the
	// first January trading date of each year, compounding the return.
	AnnualReset bool

	// ReserveOnPreSellValue nets the cash reserve against the total value
	// before the day's sells instead of after them.
	ReserveOnPreSellValue bool

	// Logger receives one structured event per simulated day. Nil disables
	// logging.
	Logger *zerolog.Logger
}

// Validate reports configuration errors. It is called before the simulation
// starts; a run never begins with an invalid configuration.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("config: initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.CashReserveRatio < 0 || c.CashReserveRatio >= 1 {
		return fmt.Errorf("config: cash reserve ratio must be in [0,1), got %v", c.CashReserveRatio)
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return fmt.Errorf("config: fee rate must be in [0,1), got %v", c.FeeRate)
	}
	if c.StockCapRatio <= 0 || c.StockCapRatio > 1 {
		return fmt.Errorf("config: stock cap ratio must be in (0,1], got %v", c.StockCapRatio)
	}
	if c.MinNotional < 0 {
		return fmt.Errorf("config: minimum notional must not be negative, got %v", c.MinNotional)
	}
	if c.UseLeftovers || c.CappedSells {
		if c.LiquidityFraction <= 0 || c.LiquidityFraction > 1 {
			return fmt.Errorf("config: liquidity fraction must be in (0,1], got %v", c.LiquidityFraction)
		}
	}
	if c.UseLeftovers && c.LeftoverTTL < 1 {
		return fmt.Errorf("config: leftover TTL must be at least 1 day, got %d", c.LeftoverTTL)
	}
	return nil
}

// policies builds the sizing and sell policies the configuration selects.
func (c Config) policies() (SizingPolicy, SellPolicy) {
	var sizing SizingPolicy
	if c.UseLeftovers {
		sizing = LiquiditySizing{
			CashReserve:       c.CashReserveRatio,
			StockCap:          c.StockCapRatio,
			LiquidityFraction: c.LiquidityFraction,
			TTL:               c.LeftoverTTL,
			MinNotional:       M(c.MinNotional, c.Currency),
		}
	} else {
		sizing = UniformSizing{
			CashReserve: c.CashReserveRatio,
			StockCap:    c.StockCapRatio,
			MinNotional: M(c.MinNotional, c.Currency),
		}
	}
	var selling SellPolicy = FullSell{}
	if c.CappedSells {
		selling = CappedSell{LiquidityFraction: c.LiquidityFraction}
	}
	return sizing, selling
}

// Simulation replays the signal table day by day, maintaining the portfolio,
// the cash balance and the leftover book, and committing one history record
// per trading date.
//
// A Simulation is single-use and strictly sequential: day t+1 only starts
// once day t is committed, because every sizing and rebalancing decision
// depends on the prior day's committed state. Concurrent runs must each use
// their own Simulation.
type Simulation struct {
	cfg       Config
	signals   *SignalTable
	calendar  *Calendar
	benchmark *Series

	sizing  SizingPolicy
	selling SellPolicy
	log     zerolog.Logger

	pdf             *Portfolio
	cash            Money
	book            *LeftoverBook
	history         *History
	continueSelling []string
	accum           decimal.Decimal // compounded return factor of the annual reset
	baseIndex       float64
}

// NewSimulation validates the configuration and assembles a run over the
// given signal table, trading calendar and benchmark series. The benchmark
// may be nil; it only feeds reporting, never trading decisions.
func NewSimulation(cfg Config, signals *SignalTable, calendar *Calendar, benchmark *Series) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if calendar == nil || calendar.Len() == 0 {
		return nil, fmt.Errorf("config: trading calendar is empty")
	}
	if signals == nil {
		return nil, fmt.Errorf("config: signal table is nil")
	}
	sizing, selling := cfg.policies()
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	s := &Simulation{
		cfg:       cfg,
		signals:   signals,
		calendar:  calendar,
		benchmark: benchmark,
		sizing:    sizing,
		selling:   selling,
		log:       log,
		pdf:       NewPortfolio(),
		cash:      M(cfg.InitialCapital, cfg.Currency),
		book:      NewLeftoverBook(),
		history:   NewHistory(),
		accum:     decimal.NewFromInt(1),
	}
	if benchmark != nil {
		s.baseIndex, _ = benchmark.Get(calendar.At(0))
	}
	return s, nil
}

// History returns the records committed so far. After an aborted run it holds
// every day up to the failure point.
func (s *Simulation) History() *History { return s.history }

// AccumulatedReturn returns the compounded return factor maintained by the
// annual reset policy (1 when the policy is off).
func (s *Simulation) AccumulatedReturn() float64 { return s.accum.InexactFloat64() }

// Run replays every trading date in order. It either commits a history record
// for every date of the calendar or returns an error identifying the date and
// the violated invariant, leaving the partial history available.
func (s *Simulation) Run() (*History, error) {
	for k, on := range s.calendar.Days() {
		if err := s.step(k, on); err != nil {
			return s.history, err
		}
	}
	return s.history, nil
}

// step simulates one trading date and commits its record.
func (s *Simulation) step(k int, on Date) error {
	day := s.signals.Day(on)

	acts := resolveDay(k, day, s.pdf, s.continueSelling, !s.cfg.UseLeftovers && !s.cfg.CappedSells)
	s.continueSelling = nil
	if s.sizing.Leftovers() {
		s.book.CarryForward(acts.soldSet())
	}

	// The day opens by paying yesterday's turnover. The first two days have
	// insufficient history and cost nothing.
	cost := M(0, s.cfg.Currency)
	if k >= 2 {
		t1 := s.history.At(s.history.Len() - 1)
		t2 := s.history.At(s.history.Len() - 2)
		cost = transactionCost(t1, t2, s.cfg.FeeRate, s.cfg.Currency)
	}
	s.cash = s.cash.Sub(cost)

	rebalanced := false
	if k == 0 {
		// The portfolio starts empty: day zero degenerates to a plain buy of
		// all candidates.
		if len(acts.buys) > 0 {
			n := s.sizing.Demand(acts.buys, s.book)
			iv := s.sizing.InvestValue(s.pdf.Value(s.cfg.Currency), s.cash, n)
			orders, after := s.sizing.Size(iv, on, acts.buys, day, s.book)
			s.cash = buy(s.pdf, orders, s.cash)
			s.book = after
		}
	} else {
		preSellValue := s.pdf.Value(s.cfg.Currency)
		if len(acts.sells) > 0 {
			s.cash, s.continueSelling = s.selling.Sell(s.pdf, acts.sells, s.cash)
		}

		reserveBase := s.pdf.Value(s.cfg.Currency)
		if s.cfg.ReserveOnPreSellValue {
			reserveBase = preSellValue
		}
		usable := s.cash.Sub(reserveBase.Add(s.cash).Scale(s.cfg.CashReserveRatio))

		final := k+1 == s.calendar.Len()
		demand := s.sizing.Demand(acts.buys, s.book)

		switch {
		case s.cash.IsNegative() || final || usable.IsNegative():
			s.pdf, s.cash, s.book, rebalanced = s.fullRebalance(on, acts, day, s.pdf, s.book, s.cash)
		case demand > 0:
			iv := s.sizing.InvestValue(s.pdf.Value(s.cfg.Currency), s.cash, demand)
			orders, after := s.sizing.Size(iv, on, acts.buys, day, s.book)
			total := M(0, s.cfg.Currency)
			for _, o := range orders {
				total = total.Add(o.BuyValue)
			}
			if usable.GreaterThan(total) {
				s.cash = buy(s.pdf, orders, s.cash)
				s.book = after
			} else {
				// Usable cash does not cover the sized demand: liquidate and
				// redistribute instead. The trial sizing is discarded; the
				// rebalance re-sizes from the untouched book.
				s.pdf, s.cash, s.book, rebalanced = s.fullRebalance(on, acts, day, s.pdf, s.book, s.cash)
			}
		}

		if rebalanced && s.cash.IsNegative() {
			return fmt.Errorf("simulation on %s: cash %s still negative after rebalance", on, s.cash)
		}
	}

	s.pdf.MarkToMarket(day)

	if s.cfg.AnnualReset && k > 0 && s.calendar.FirstOfYear(on) {
		s.applyReset()
	}

	value := s.pdf.Value(s.cfg.Currency).Add(s.cash)
	rec := HistoryRecord{
		Date:       on,
		Portfolio:  s.pdf.Clone(),
		Cash:       s.cash,
		Value:      value,
		Cost:       cost,
		Rebalanced: rebalanced,
		Leftovers:  s.book.Snapshot(),
	}
	if err := s.history.Append(rec); err != nil {
		return fmt.Errorf("simulation on %s: %w", on, err)
	}
	s.logDay(k, on, acts, rec)
	return nil
}

// applyReset is the annual reset: the return since the last reset is
// compounded into the accumulated factor and the book value is scaled back to
// the initial capital, keeping the current weights.
func (s *Simulation) applyReset() {
	initial := M(s.cfg.InitialCapital, s.cfg.Currency)
	value := s.pdf.Value(s.cfg.Currency).Add(s.cash)
	s.accum = s.accum.Mul(value.value.Div(initial.value).Round(2))

	resetAmount := initial.Scale(1 - s.cfg.CashReserveRatio)
	invested := s.pdf.Value(s.cfg.Currency)

	if invested.GreaterThan(resetAmount) {
		reserve := initial.Scale(s.cfg.CashReserveRatio)
		if s.cash.GreaterThan(reserve) {
			s.cash = reserve
		}
		for pos := range s.pdf.Positions() {
			target := pos.Value.Div(Q(invested.value)).Mul(Q(resetAmount.value))
			pos.Units = target.Units(pos.Price)
			pos.Value = pos.Price.Mul(pos.Units)
			s.pdf.Set(pos)
		}
	} else {
		s.cash = initial.Sub(invested)
	}
}

// logDay emits the day's structured narration, mirroring the per-day console
// line of a live run: benchmark vs model return, signal counts, portfolio
// size, cash and nav.
func (s *Simulation) logDay(k int, on Date, acts dayActions, rec HistoryRecord) {
	e := s.log.Info().
		Stringer("date", on).
		Str("nav", rec.Value.String()).
		Str("cash", rec.Cash.String()).
		Int("positions", rec.Portfolio.Len()).
		Int("hold", len(acts.holds)).
		Int("buy", len(acts.buys)).
		Int("sell", len(acts.sells)).
		Bool("rebalanced", rec.Rebalanced)
	if len(rec.Leftovers) > 0 {
		e = e.Int("leftovers", len(rec.Leftovers))
	}
	if rec.Value.IsPositive() {
		cashPct := rec.Cash.AsFloat() / rec.Value.AsFloat() * 100
		e = e.Float64("cash_pct", cashPct)
	}
	modelPct := rec.Value.AsFloat() / s.cfg.InitialCapital * s.accum.InexactFloat64() * 100
	e = e.Float64("model_pct", modelPct)
	if s.benchmark != nil && s.baseIndex > 0 {
		if level, ok := s.benchmark.Get(on); ok {
			e = e.Float64("index_pct", level/s.baseIndex*100)
		}
	}
	e.Msg("day closed")
}
