package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtest"
	"github.com/google/subcommands"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	file     string
	currency string
	mapping  backtest.ImportMapping
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import signals from a vendor JSON export" }
func (*importCmd) Usage() string {
	return `bt import -f <export.json|url> [-rows <path>] [-price <path>] ...

  Convert a vendor JSON export, local or fetched over HTTP, into the
  canonical signals file. Each -rows,
  -security, ... flag is a JSONPath expression; the row paths are evaluated
  against each element selected by -rows.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	m := backtest.DefaultImportMapping()
	f.StringVar(&c.file, "f", "", "vendor JSON export to import (required)")
	f.StringVar(&c.currency, "currency", "MYR", "currency of the imported prices")
	f.StringVar(&c.mapping.Rows, "rows", m.Rows, "path selecting the list of row objects")
	f.StringVar(&c.mapping.Security, "security", m.Security, "path to the security name in a row")
	f.StringVar(&c.mapping.Date, "date", m.Date, "path to the date in a row")
	f.StringVar(&c.mapping.Action, "action", m.Action, "path to the action in a row")
	f.StringVar(&c.mapping.Price, "price", m.Price, "path to the price in a row")
	f.StringVar(&c.mapping.AvgValue, "avg-value", m.AvgValue, "path to the average traded value in a row, empty to skip")
	f.StringVar(&c.mapping.Volume, "volume", m.Volume, "path to the traded volume in a row, empty to skip")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -f is required")
		return subcommands.ExitUsageError
	}

	var signals *backtest.SignalTable
	var err error
	if strings.HasPrefix(c.file, "http://") || strings.HasPrefix(c.file, "https://") {
		signals, err = backtest.FetchSignals(c.file, c.mapping, c.currency)
	} else {
		var in *os.File
		in, err = os.Open(c.file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", c.file, err)
			return subcommands.ExitFailure
		}
		defer in.Close()
		signals, err = backtest.ImportSignals(in, c.mapping, c.currency)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
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
	fmt.Printf("Imported %d days of signals into %s\n", len(signals.Dates()), *signalsFile)
	return subcommands.ExitSuccess
}
