package types

import (
	"fmt"
)

type SortKey uint8

const (
	SortNone SortKey = iota
	SortTime
	SortLabel
)

func (k SortKey) String() string {
	switch k {
	case SortTime:
		return "time"
	case SortLabel:
		return "label"
	default:
		return "none"
	}
}

type Direction uint8

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Ordering names one of the five precomputed views of an account's records.
type Ordering uint8

const (
	OrderDefault Ordering = iota
	OrderTimeAscending
	OrderTimeDescending
	OrderLabelAscending
	OrderLabelDescending
)

// Orderings lists every view kind, in slot order.
var Orderings = [...]Ordering{
	OrderDefault,
	OrderTimeAscending,
	OrderTimeDescending,
	OrderLabelAscending,
	OrderLabelDescending,
}

const OrderingCount = len(Orderings)

var orderingNames = [...]string{
	OrderDefault:         "default",
	OrderTimeAscending:   "time-asc",
	OrderTimeDescending:  "time-desc",
	OrderLabelAscending:  "label-asc",
	OrderLabelDescending: "label-desc",
}

func (o Ordering) String() string {
	if int(o) < len(orderingNames) {
		return orderingNames[o]
	}
	return fmt.Sprintf("ordering(%d)", o)
}

func (o Ordering) Valid() bool {
	return int(o) < OrderingCount
}

// Key returns the sort key and direction the ordering is fetched with.
func (o Ordering) Key() (SortKey, Direction) {
	switch o {
	case OrderTimeAscending:
		return SortTime, Ascending
	case OrderTimeDescending:
		return SortTime, Descending
	case OrderLabelAscending:
		return SortLabel, Ascending
	case OrderLabelDescending:
		return SortLabel, Descending
	default:
		return SortNone, Ascending
	}
}

// OrderingFor is the inverse of Key.
func OrderingFor(key SortKey, dir Direction) Ordering {
	switch key {
	case SortTime:
		if dir == Descending {
			return OrderTimeDescending
		}
		return OrderTimeAscending
	case SortLabel:
		if dir == Descending {
			return OrderLabelDescending
		}
		return OrderLabelAscending
	default:
		return OrderDefault
	}
}

// ParseOrdering accepts the names printed by String. An empty string is the default ordering.
func ParseOrdering(s string) (Ordering, error) {
	if s == "" {
		return OrderDefault, nil
	}
	for i, name := range orderingNames {
		if name == s {
			return Ordering(i), nil
		}
	}
	return OrderDefault, fmt.Errorf("unknown ordering %q", s)
}

func (o Ordering) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid ordering %d", o)
	}
	return []byte(o.String()), nil
}

func (o *Ordering) UnmarshalText(b []byte) error {
	parsed, err := ParseOrdering(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
