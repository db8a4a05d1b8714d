package backtest

import (
	"fmt"
	"iter"
	"slices"
)

// Action is the pre-computed trading signal attached to one security on one
// date. The engine never infers actions; they come from an external rule
// layer.
type Action int

const (
	// NA means no opinion: the row only carries the day's price and volume.
	NA Action = iota
	Buy
	Sell
	Hold
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Hold:
		return "hold"
	default:
		return "na"
	}
}

// ParseAction parses an action string.
func ParseAction(s string) (Action, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	case "hold":
		return Hold, nil
	case "na", "":
		return NA, nil
	default:
		return NA, fmt.Errorf("unknown action: %q", s)
	}
}

// SignalRow is one security/date observation: the action decided by the
// signal layer plus the market fields the engine needs to size and price
// trades. It is read-only to the engine.
type SignalRow struct {
	Security string
	Date     Date
	Action   Action
	Price    Money    // last price of the day
	AvgValue Money    // rolling average traded value, optional
	Volume   Quantity // traded volume, required by the liquidity-aware policies
}

// Validate checks that the row carries the fields every engine variant needs.
// The engine fails fast on missing data rather than silently defaulting,
// since a defaulted price would corrupt sizing and cost computations.
func (r SignalRow) Validate() error {
	if r.Security == "" {
		return fmt.Errorf("signal row on %s: missing security", r.Date)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("signal row for %q: missing date", r.Security)
	}
	if !r.Price.IsPositive() {
		return fmt.Errorf("signal row for %q on %s: missing or non-positive price", r.Security, r.Date)
	}
	return nil
}

// SignalTable indexes signal rows by date, and by security within a date.
// It is the sole market-data input of a simulation: one row per covered
// security per trading date.
type SignalTable struct {
	byDate map[Date]map[string]SignalRow
}

// NewSignalTable creates an empty signal table.
func NewSignalTable() *SignalTable {
	return &SignalTable{byDate: make(map[Date]map[string]SignalRow)}
}

// Append adds a row to the table after validating it. A second row for the
// same security and date is an error: the engine needs exactly one
// observation per security per day.
func (t *SignalTable) Append(r SignalRow) error {
	if err := r.Validate(); err != nil {
		return err
	}
	day, ok := t.byDate[r.Date]
	if !ok {
		day = make(map[string]SignalRow)
		t.byDate[r.Date] = day
	}
	if _, dup := day[r.Security]; dup {
		return fmt.Errorf("duplicate signal row for %q on %s", r.Security, r.Date)
	}
	day[r.Security] = r
	return nil
}

// Day returns today's rows keyed by security. The returned map is shared;
// callers must not mutate it.
func (t *SignalTable) Day(on Date) map[string]SignalRow {
	return t.byDate[on]
}

// Row returns the row for a security on a date.
func (t *SignalTable) Row(on Date, security string) (SignalRow, bool) {
	r, ok := t.byDate[on][security]
	return r, ok
}

// Dates returns the sorted dates covered by the table.
func (t *SignalTable) Dates() []Date {
	dates := make([]Date, 0, len(t.byDate))
	for on := range t.byDate {
		dates = append(dates, on)
	}
	slices.SortFunc(dates, Date.Compare)
	return dates
}

// Rows returns an iterator over all rows, by date then by security, in a
// deterministic order.
func (t *SignalTable) Rows() iter.Seq[SignalRow] {
	return func(yield func(SignalRow) bool) {
		for _, on := range t.Dates() {
			day := t.byDate[on]
			securities := make([]string, 0, len(day))
			for s := range day {
				securities = append(securities, s)
			}
			slices.Sort(securities)
			for _, s := range securities {
				if !yield(day[s]) {
					return
				}
			}
		}
	}
}
