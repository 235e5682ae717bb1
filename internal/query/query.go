// Package query selects nodes by their metadata and builds date agendas.
package query

import (
	"slices"
	"sort"
	"time"

	"github.com/gerunddev/orgnode/parser"
)

// Filter selects nodes. Empty fields do not constrain; list fields match when
// any value matches.
type Filter struct {
	Tags     []string
	Todo     []string
	Priority []string
	MinLevel int
	MaxLevel int
	// DueBefore keeps nodes with a deadline strictly before it.
	DueBefore time.Time
}

// Match reports whether n satisfies every constraint of f.
func (f Filter) Match(n *parser.Node) bool {
	if f.MinLevel > 0 && n.Level() < f.MinLevel {
		return false
	}
	if f.MaxLevel > 0 && n.Level() > f.MaxLevel {
		return false
	}
	if len(f.Todo) > 0 && !slices.Contains(f.Todo, n.Todo()) {
		return false
	}
	if len(f.Priority) > 0 && !slices.Contains(f.Priority, n.Priority()) {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, n.HasTag) {
		return false
	}
	if !f.DueBefore.IsZero() {
		d, ok := n.Deadline()
		if !ok || !d.Before(f.DueBefore) {
			return false
		}
	}
	return true
}

// Apply returns the nodes matching f, keeping their order.
func (f Filter) Apply(nodes []*parser.Node) []*parser.Node {
	var out []*parser.Node
	for _, n := range nodes {
		if f.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// Kind tells which planning stamp produced an agenda entry.
type Kind string

const (
	Scheduled Kind = "scheduled"
	Deadline  Kind = "deadline"
)

// Entry is one dated line of an agenda.
type Entry struct {
	Node *parser.Node
	Kind Kind
	Date time.Time
	// DaysUntil is negative for overdue entries.
	DaysUntil int
}

// Overdue reports whether the entry's date has passed.
func (e Entry) Overdue() bool {
	return e.DaysUntil < 0
}

// Agenda lists the scheduled and deadline dates falling within horizonDays of
// now. Overdue dates are always listed unless the node is closed. Entries are
// sorted by date, deadlines before scheduled items on the same day.
func Agenda(nodes []*parser.Node, now time.Time, horizonDays int) []Entry {
	today := truncateDay(now)
	var entries []Entry
	add := func(n *parser.Node, kind Kind, d time.Time) {
		days := daysBetween(today, d)
		if days > horizonDays || (days < 0 && n.Closed()) {
			return
		}
		entries = append(entries, Entry{Node: n, Kind: kind, Date: d, DaysUntil: days})
	}

	for _, n := range nodes {
		if d, ok := n.Deadline(); ok {
			add(n, Deadline, d)
		}
		if d, ok := n.Scheduled(); ok {
			add(n, Scheduled, d)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Kind == Deadline && entries[j].Kind != Deadline
	})
	return entries
}

// DaysUntil counts calendar days from now to date; parsed dates sit at UTC
// midnight, so now is reduced to its calendar day first.
func DaysUntil(now, date time.Time) int {
	return daysBetween(truncateDay(now), date)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	to = truncateDay(to)
	return int(to.Sub(from).Hours() / 24)
}
