package backtest

import (
	"iter"
	"maps"
	"slices"
)

// LeftoverEntry is unmet buy demand for one security, deferred when the
// liquidity cap bound the day's fill, and retried on subsequent days until it
// fills or expires.
//
// DaysLeft counts the remaining trading days the entry may still be retried.
// The configured time-to-live includes the day of creation: a fresh entry
// starts with DaysLeft = TTL-1, is decremented on every later day it survives
// unfilled, and is dropped once it reaches zero.
type LeftoverEntry struct {
	Security  string
	Date      Date  // day the demand was deferred or last retried
	Allocated Money // invest value allocated on the last retry
	ValueCap  Money // liquidity cap that bound the fill
	Unfilled  Money // remaining unmet amount
	DaysLeft  int
}

// LeftoverBook holds the live leftover entries of a run, at most one per
// security. Like the portfolio it is owned by a single simulation; history
// records receive copies.
type LeftoverBook struct {
	entries map[string]LeftoverEntry
}

// NewLeftoverBook creates an empty book.
func NewLeftoverBook() *LeftoverBook {
	return &LeftoverBook{entries: make(map[string]LeftoverEntry)}
}

// Len returns the number of live entries.
func (b *LeftoverBook) Len() int { return len(b.entries) }

// Get returns the live entry for a security.
func (b *LeftoverBook) Get(security string) (LeftoverEntry, bool) {
	e, ok := b.entries[security]
	return e, ok
}

// Set inserts or replaces an entry.
func (b *LeftoverBook) Set(e LeftoverEntry) { b.entries[e.Security] = e }

// Remove drops the entry for a security.
func (b *LeftoverBook) Remove(security string) { delete(b.entries, security) }

// Securities returns the securities with live entries in sorted order.
func (b *LeftoverBook) Securities() []string {
	securities := slices.Collect(maps.Keys(b.entries))
	slices.Sort(securities)
	return securities
}

// Entries returns an iterator over live entries in sorted security order.
func (b *LeftoverBook) Entries() iter.Seq[LeftoverEntry] {
	return func(yield func(LeftoverEntry) bool) {
		for _, s := range b.Securities() {
			if !yield(b.entries[s]) {
				return
			}
		}
	}
}

// Snapshot returns the live entries as a sorted slice, for history records.
func (b *LeftoverBook) Snapshot() []LeftoverEntry {
	return slices.Collect(b.Entries())
}

// clone returns an independent copy of the book.
func (b *LeftoverBook) clone() *LeftoverBook {
	return &LeftoverBook{entries: maps.Clone(b.entries)}
}

// CarryForward drops entries whose security was just sold and entries that
// have exhausted their time-to-live. It is called once at the start of each
// simulated day, before sizing.
func (b *LeftoverBook) CarryForward(sold func(security string) bool) {
	for s, e := range b.entries {
		if e.DaysLeft <= 0 || sold(s) {
			delete(b.entries, s)
		}
	}
}
