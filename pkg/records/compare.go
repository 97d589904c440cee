package records

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/matst80/securityapp/pkg/types"
)

// Fold maps s to its case folded form. Labels are ordered and matched on the
// folded form, so "beta" sorts between "Alpha" and "Gamma".
func Fold(s string) string {
	return cases.Fold().String(s)
}

// CompareTime orders records chronologically, records without a timestamp first.
func CompareTime(a, b types.Record) int {
	switch {
	case !a.HasTimestamp() && !b.HasTimestamp():
		return 0
	case !a.HasTimestamp():
		return -1
	case !b.HasTimestamp():
		return 1
	}
	return a.Timestamp.Compare(b.Timestamp)
}

type keyedRecord struct {
	key    string
	record types.Record
}

func sortByLabel(records []types.Record, dir types.Direction) {
	keyed := make([]keyedRecord, len(records))
	for i, r := range records {
		keyed[i] = keyedRecord{key: Fold(r.Label), record: r}
	}
	slices.SortStableFunc(keyed, func(a, b keyedRecord) int {
		if dir == types.Descending {
			return strings.Compare(b.key, a.key)
		}
		return strings.Compare(a.key, b.key)
	})
	for i := range keyed {
		records[i] = keyed[i].record
	}
}

// SortRecords sorts in place. The sort is stable, equal keys keep the order
// they were fetched in.
func SortRecords(records []types.Record, key types.SortKey, dir types.Direction) {
	switch key {
	case types.SortLabel:
		sortByLabel(records, dir)
	case types.SortTime:
		slices.SortStableFunc(records, func(a, b types.Record) int {
			if dir == types.Descending {
				return CompareTime(b, a)
			}
			return CompareTime(a, b)
		})
	}
}
