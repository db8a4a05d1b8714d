package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

// reviewCmd holds the flags for the 'review' subcommand.
type reviewCmd struct {
	name      string
	riskFree  float64
	skipDays  bool
	positions bool
}

func (*reviewCmd) Name() string     { return "review" }
func (*reviewCmd) Synopsis() string { return "review a completed run" }
func (*reviewCmd) Usage() string {
	return `bt review [-name <label>] [-risk-free <rate>]

  Compute and render the performance report of the run history.
`
}

func (c *reviewCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "label of the run in the report title")
	f.Float64Var(&c.riskFree, "risk-free", 0.03, "annual risk-free rate for the Sharpe ratio")
	f.BoolVar(&c.skipDays, "no-days", false, "skip the day-by-day section")
	f.BoolVar(&c.positions, "no-positions", false, "skip the final positions section")
}

func (c *reviewCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	history, err := DecodeHistory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	benchmark, err := DecodeBenchmark()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	review, err := backtest.NewReview(history, benchmark, c.riskFree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	report := renderer.NewReport(c.name, review, history)
	md := renderer.RenderReport(report, renderer.ReportRenderOptions{
		SkipDays:      c.skipDays,
		SkipPositions: c.positions,
	})
	printMarkdown(md)
	return subcommands.ExitSuccess
}
