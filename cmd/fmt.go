package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest"
	"github.com/google/subcommands"
)

// fmtCmd holds the flags for the 'fmt' subcommand.
type fmtCmd struct {
	write bool
}

func (*fmtCmd) Name() string     { return "fmt" }
func (*fmtCmd) Synopsis() string { return "canonicalize the signals file" }
func (*fmtCmd) Usage() string {
	return `bt fmt [-w]

  Rewrite the signals file in canonical order (by date then security), with
  one object per line and stable field order. Prints to stdout unless -w.
`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.write, "w", false, "write the result back to the signals file instead of stdout")
}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	signals, err := DecodeSignals()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if !c.write {
		if err := backtest.EncodeSignals(os.Stdout, signals); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	out, err := os.Create(*signalsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating signals file %q: %v\n", *signalsFile, err)
		return subcommands.ExitFailure
	}
	defer out.Close()
	if err := backtest.EncodeSignals(out, signals); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Formatted %s\n", *signalsFile)
	return subcommands.ExitSuccess
}
