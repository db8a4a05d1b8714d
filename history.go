package backtest

import (
	"fmt"
	"iter"
)

// HistoryRecord is the immutable end-of-day snapshot of one simulated date.
// The portfolio it holds is a copy: consumers cannot observe or corrupt
// in-progress state.
type HistoryRecord struct {
	Date       Date
	Portfolio  *Portfolio
	Cash       Money
	Value      Money // total value: positions plus cash
	Cost       Money // the day's transaction cost
	Rebalanced bool
	Leftovers  []LeftoverEntry // live leftover demand at the close
}

// History is the append-only, chronological record of a run. It survives an
// aborted run: every day committed before the failure remains available.
type History struct {
	records []HistoryRecord
	index   map[Date]int
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{index: make(map[Date]int)}
}

// Len returns the number of recorded days.
func (h *History) Len() int { return len(h.records) }

// At returns the i-th record in chronological order.
func (h *History) At(i int) HistoryRecord { return h.records[i] }

// Get returns the record for a date.
func (h *History) Get(on Date) (HistoryRecord, bool) {
	i, ok := h.index[on]
	if !ok {
		return HistoryRecord{}, false
	}
	return h.records[i], true
}

// Latest returns the most recent record.
func (h *History) Latest() (HistoryRecord, bool) {
	if len(h.records) == 0 {
		return HistoryRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

// Append commits a day. Days must arrive in strict chronological order.
func (h *History) Append(r HistoryRecord) error {
	if last, ok := h.Latest(); ok && !r.Date.After(last.Date) {
		return fmt.Errorf("history: %s does not follow %s", r.Date, last.Date)
	}
	h.index[r.Date] = len(h.records)
	h.records = append(h.records, r)
	return nil
}

// Records returns an iterator over the records in chronological order.
func (h *History) Records() iter.Seq[HistoryRecord] {
	return func(yield func(HistoryRecord) bool) {
		for _, r := range h.records {
			if !yield(r) {
				return
			}
		}
	}
}
