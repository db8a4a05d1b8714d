// Package backtest simulates the day-by-day execution of a signal-driven
// portfolio strategy. It is designed to be deterministic and auditable: the
// same signals and configuration always produce byte-identical histories,
// and every cash movement is traceable through the day records.
//
// The core functionalities include:
//   - Signal Tables: Buy, sell and hold signals per security and day, with
//     the prices and traded volumes used to execute them.
//   - Simulation Engine: A daily loop that sells, sizes and buys according
//     to the configured policies, tracks cash and transaction costs, and
//     falls back to a full rebalance when cash runs out.
//   - Sizing Policies: Uniform allocation across candidates, optionally
//     capped by each security's traded volume, carrying unfilled demand
//     forward over a bounded number of days.
//   - Performance Review: Return, volatility, Sharpe and drawdown figures
//     computed from the committed history, with optional benchmark
//     comparison.
//   - Data Persistence: Encoding and decoding of signals, benchmark levels
//     and run histories to human-readable JSONL files.
//
// This package serves as the foundational logic for the `bt` command-line
// tool.
package backtest
