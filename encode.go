package backtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// This file persists the inputs and outputs of a run as JSONL, one record per
// line, in a human-readable and git-friendly shape: a signal table and a
// benchmark series feed a run, a history file comes out of it. Field order is
// fixed by jsonObjectWriter so identical runs produce byte-identical files.

// jsignal is the object read from a signal file using the json parser.
type jsignal struct {
	Date     Date            `json:"date"`
	Security string          `json:"security"`
	Action   string          `json:"action"`
	Price    decimal.Decimal `json:"price"`
	AvgValue decimal.Decimal `json:"avg_value"`
	Volume   decimal.Decimal `json:"volume"`
}

// DecodeSignals parses a JSONL signal file, one row per line. filename is for
// error messages only.
func DecodeSignals(filename string, r io.Reader) (*SignalTable, error) {
	table := NewSignalTable()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var js jsignal
		if err := json.Unmarshal([]byte(text), &js); err != nil {
			return nil, fmt.Errorf("format error in %q line %d: %w", filename, line, err)
		}
		action, err := ParseAction(js.Action)
		if err != nil {
			return nil, fmt.Errorf("format error in %q line %d: %w", filename, line, err)
		}
		row := SignalRow{
			Security: js.Security,
			Date:     js.Date,
			Action:   action,
			Price:    M(js.Price, ""),
			AvgValue: M(js.AvgValue, ""),
			Volume:   Q(js.Volume),
		}
		if err := table.Append(row); err != nil {
			return nil, fmt.Errorf("format error in %q line %d: %w", filename, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", filename, err)
	}
	return table, nil
}

// EncodeSignals writes the table back in its canonical form: sorted by date
// then security, stable field order.
func EncodeSignals(w io.Writer, t *SignalTable) error {
	for row := range t.Rows() {
		var jw jsonObjectWriter
		jw.Append("date", row.Date)
		jw.Append("security", row.Security)
		jw.Append("action", row.Action.String())
		jw.Append("price", row.Price)
		if !row.AvgValue.IsZero() {
			jw.Append("avg_value", row.AvgValue)
		}
		if !row.Volume.IsZero() {
			jw.Append("volume", row.Volume)
		}
		b, err := jw.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}

// jlevel is one benchmark index observation.
type jlevel struct {
	Date  Date    `json:"date"`
	Level float64 `json:"level"`
}

// DecodeBenchmark parses a JSONL benchmark index file.
func DecodeBenchmark(filename string, r io.Reader) (*Series, error) {
	series := &Series{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var jl jlevel
		if err := json.Unmarshal([]byte(text), &jl); err != nil {
			return nil, fmt.Errorf("format error in %q line %d: %w", filename, line, err)
		}
		series.Append(jl.Date, jl.Level)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", filename, err)
	}
	return series, nil
}

// EncodeBenchmark writes the series in chronological order.
func EncodeBenchmark(w io.Writer, s *Series) error {
	for on, level := range s.Values() {
		var jw jsonObjectWriter
		jw.Append("date", on)
		jw.Append("level", level)
		b, err := jw.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}

// jposition and jleftover mirror the in-memory records for history files.
type jposition struct {
	Security string          `json:"security"`
	Units    decimal.Decimal `json:"units"`
	Date     Date            `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
}

type jleftover struct {
	Security  string          `json:"security"`
	Date      Date            `json:"date"`
	Allocated decimal.Decimal `json:"allocated"`
	ValueCap  decimal.Decimal `json:"value_cap"`
	Unfilled  decimal.Decimal `json:"unfilled"`
	DaysLeft  int             `json:"days_left"`
}

type jrecord struct {
	Date       Date            `json:"date"`
	Cash       decimal.Decimal `json:"cash"`
	Value      decimal.Decimal `json:"value"`
	Cost       decimal.Decimal `json:"cost"`
	Rebalanced bool            `json:"rebalanced"`
	Positions  []jposition     `json:"positions"`
	Leftovers  []jleftover     `json:"leftovers"`
}

// EncodeHistory writes one line per simulated day.
func EncodeHistory(w io.Writer, h *History) error {
	for rec := range h.Records() {
		var jw jsonObjectWriter
		jw.Append("date", rec.Date)
		jw.Append("cash", rec.Cash)
		jw.Append("value", rec.Value)
		jw.Append("cost", rec.Cost)
		if rec.Rebalanced {
			jw.Append("rebalanced", true)
		}
		positions := make([]jposition, 0, rec.Portfolio.Len())
		for pos := range rec.Portfolio.Positions() {
			positions = append(positions, jposition{
				Security: pos.Security,
				Units:    pos.Units.value,
				Date:     pos.Date,
				Price:    pos.Price.value,
				Value:    pos.Value.value,
			})
		}
		jw.Append("positions", positions)
		if len(rec.Leftovers) > 0 {
			leftovers := make([]jleftover, 0, len(rec.Leftovers))
			for _, e := range rec.Leftovers {
				leftovers = append(leftovers, jleftover{
					Security:  e.Security,
					Date:      e.Date,
					Allocated: e.Allocated.value,
					ValueCap:  e.ValueCap.value,
					Unfilled:  e.Unfilled.value,
					DaysLeft:  e.DaysLeft,
				})
			}
			jw.Append("leftovers", leftovers)
		}
		b, err := jw.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}

// DecodeHistory parses a history file back for reporting.
func DecodeHistory(filename string, r io.Reader) (*History, error) {
	h := NewHistory()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var jr jrecord
		if err := json.Unmarshal([]byte(text), &jr); err != nil {
			return nil, fmt.Errorf("format error in %q line %d: %w", filename, line, err)
		}
		pdf := NewPortfolio()
		for _, jp := range jr.Positions {
			pdf.Set(Position{
				Security: jp.Security,
				Units:    Q(jp.Units),
				Date:     jp.Date,
				Price:    M(jp.Price, ""),
				Value:    M(jp.Value, ""),
			})
		}
		leftovers := make([]LeftoverEntry, 0, len(jr.Leftovers))
		for _, jl := range jr.Leftovers {
			leftovers = append(leftovers, LeftoverEntry{
				Security:  jl.Security,
				Date:      jl.Date,
				Allocated: M(jl.Allocated, ""),
				ValueCap:  M(jl.ValueCap, ""),
				Unfilled:  M(jl.Unfilled, ""),
				DaysLeft:  jl.DaysLeft,
			})
		}
		rec := HistoryRecord{
			Date:       jr.Date,
			Portfolio:  pdf,
			Cash:       M(jr.Cash, ""),
			Value:      M(jr.Value, ""),
			Cost:       M(jr.Cost, ""),
			Rebalanced: jr.Rebalanced,
			Leftovers:  leftovers,
		}
		if err := h.Append(rec); err != nil {
			return nil, fmt.Errorf("format error in %q line %d: %w", filename, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", filename, err)
	}
	return h, nil
}
