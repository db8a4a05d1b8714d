// Package cmd implements the CLI application to run and inspect backtests.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/backtest"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&runCmd{}, "backtest")
	c.Register(&reviewCmd{}, "backtest")

	c.Register(&fmtCmd{}, "signals")
	c.Register(&importCmd{}, "signals")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var signalsFile = flag.String("signals-file", "signals.jsonl", "Path to the signals file (JSONL format)")
var historyFile = flag.String("history-file", "history.jsonl", "Path to the run history file (JSONL format)")
var benchmarkFile = flag.String("benchmark-file", "", "Path to the benchmark levels file (JSONL format), optional")

// DecodeSignals reads the app signals file.
func DecodeSignals() (*backtest.SignalTable, error) {
	f, err := os.Open(*signalsFile)
	if err != nil {
		return nil, fmt.Errorf("opening signals file %q: %w", *signalsFile, err)
	}
	defer f.Close()
	return backtest.DecodeSignals(*signalsFile, f)
}

// DecodeBenchmark reads the app benchmark file, returning nil when no file
// is configured.
func DecodeBenchmark() (*backtest.Series, error) {
	if *benchmarkFile == "" {
		return nil, nil
	}
	f, err := os.Open(*benchmarkFile)
	if err != nil {
		return nil, fmt.Errorf("opening benchmark file %q: %w", *benchmarkFile, err)
	}
	defer f.Close()
	return backtest.DecodeBenchmark(*benchmarkFile, f)
}

// DecodeHistory reads the app history file.
func DecodeHistory() (*backtest.History, error) {
	f, err := os.Open(*historyFile)
	if err != nil {
		return nil, fmt.Errorf("opening history file %q: %w", *historyFile, err)
	}
	defer f.Close()
	return backtest.DecodeHistory(*historyFile, f)
}

// EncodeHistory writes a run history into the app history file.
func EncodeHistory(h *backtest.History) error {
	f, err := os.Create(*historyFile)
	if err != nil {
		return fmt.Errorf("creating history file %q: %w", *historyFile, err)
	}
	defer f.Close()
	return backtest.EncodeHistory(f, h)
}

// printMarkdown renders markdown for the terminal, falling back to the raw
// text when the terminal renderer cannot be built.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
