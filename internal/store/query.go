package store

import (
	"fmt"
	"strings"
)

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends a condition containing a single "?" placeholder for arg.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func snapshotWhere(f SnapshotFilter) *where {
	w := &where{}
	if f.Date != nil {
		w.add("date = ?", f.Date.Time())
	}
	return w
}

func transferWhere(f TransferFilter) *where {
	w := &where{}
	if f.After != nil {
		w.add("date > ?", f.After.Time())
	}
	if f.Through != nil {
		w.add("date <= ?", f.Through.Time())
	}
	return w
}

func priceWhere(f PriceFilter) *where {
	w := &where{}
	if f.UpTo != nil {
		w.add("date <= ?", f.UpTo.Time())
	}
	return w
}
