package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// runCmd holds the flags for the 'run' subcommand.
type runCmd struct {
	capital     float64
	currency    string
	reserve     float64
	fee         float64
	stockCap    float64
	leftovers   bool
	cappedSells bool
	liquidity   float64
	ttl         int
	minNotional float64
	annualReset bool
	preSellBase bool
	verbose     bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run a backtest over a signals file" }
func (*runCmd) Usage() string {
	return `bt run [-capital <amount>] [-reserve <ratio>] [-leftovers] ...

  Replay the signals file day by day and write the run history.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.capital, "capital", 1_000_000, "initial capital")
	f.StringVar(&c.currency, "currency", "MYR", "reporting currency")
	f.Float64Var(&c.reserve, "reserve", 0.05, "fraction of total value kept as cash reserve")
	f.Float64Var(&c.fee, "fee", 0.001, "per-trade fee as a fraction of traded notional")
	f.Float64Var(&c.stockCap, "stock-cap", 0.1, "max fraction of total capital per position")
	f.BoolVar(&c.leftovers, "leftovers", false, "carry liquidity-capped buy demand across days")
	f.BoolVar(&c.cappedSells, "capped-sells", false, "cap sells by traded volume")
	f.Float64Var(&c.liquidity, "liquidity", 0.1, "fraction of traded volume a fill may consume")
	f.IntVar(&c.ttl, "ttl", 5, "days deferred buy demand stays live, counting its creation day")
	f.Float64Var(&c.minNotional, "min-notional", 0, "drop orders below this notional")
	f.BoolVar(&c.annualReset, "annual-reset", false, "scale back to initial capital every January, compounding the return")
	f.BoolVar(&c.preSellBase, "reserve-pre-sell", false, "net the cash reserve against the value before the day's sells")
	f.BoolVar(&c.verbose, "v", false, "narrate every simulated day on stderr")
}

func (c *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	signals, err := DecodeSignals()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	benchmark, err := DecodeBenchmark()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	cfg := backtest.Config{
		InitialCapital:        c.capital,
		Currency:              c.currency,
		CashReserveRatio:      c.reserve,
		FeeRate:               c.fee,
		StockCapRatio:         c.stockCap,
		UseLeftovers:          c.leftovers,
		CappedSells:           c.cappedSells,
		LiquidityFraction:     c.liquidity,
		LeftoverTTL:           c.ttl,
		MinNotional:           c.minNotional,
		AnnualReset:           c.annualReset,
		ReserveOnPreSellValue: c.preSellBase,
	}
	if c.verbose {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		cfg.Logger = &log
	}

	calendar := backtest.NewCalendar(signals.Dates()...)
	sim, err := backtest.NewSimulation(cfg, signals, calendar, benchmark)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	history, runErr := sim.Run()
	// The partial history of an aborted run is still worth keeping.
	if err := EncodeHistory(history); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return subcommands.ExitFailure
	}

	last := history.At(history.Len() - 1)
	fmt.Printf("Simulated %d days, final value %s (cash %s), history written to %s\n",
		history.Len(), last.Value, last.Cash, *historyFile)
	return subcommands.ExitSuccess
}
