package join

import (
	"errors"
	"fmt"
	"maps"
)

var (
	ErrNonUniqueKey  = errors.New("non-unique join key")
	ErrUnknownColumn = errors.New("unknown column")
)

// NonUniqueKeyError is returned when the join key repeats in the secondary
// table and fan-out was not requested.
type NonUniqueKeyError struct {
	Key   string
	Value any
	Count int
}

func (e *NonUniqueKeyError) Error() string {
	return fmt.Sprintf("join key %q is not unique in secondary table: value %v appears %d times", e.Key, e.Value, e.Count)
}

func (e *NonUniqueKeyError) Is(target error) bool { return target == ErrNonUniqueKey }

type joinConfig struct {
	rightKey string
	suffix   string
	fanOut   bool
}

// JoinOption configures Join.
type JoinOption func(*joinConfig)

// WithFanOut permits a key to match several secondary rows. Each primary row
// is then repeated once per match.
func WithFanOut() JoinOption {
	return func(c *joinConfig) { c.fanOut = true }
}

// WithRightKey joins against a differently named column of the secondary
// table.
func WithRightKey(col string) JoinOption {
	return func(c *joinConfig) { c.rightKey = col }
}

// WithSuffix sets the suffix appended to secondary columns whose name is
// already taken by the primary table. Default "_right".
func WithSuffix(s string) JoinOption {
	return func(c *joinConfig) { c.suffix = s }
}

// Join left-joins secondary onto primary by key. Every primary row is kept,
// in order. Secondary columns of unmatched rows are set to Missing.
func Join(primary, secondary *Table, key string, opts ...JoinOption) (*Table, error) {
	cfg := joinConfig{rightKey: key, suffix: "_right"}
	for _, o := range opts {
		o(&cfg)
	}
	if !primary.HasColumn(key) {
		return nil, fmt.Errorf("primary table: %w %q", ErrUnknownColumn, key)
	}
	if !secondary.HasColumn(cfg.rightKey) {
		return nil, fmt.Errorf("secondary table: %w %q", ErrUnknownColumn, cfg.rightKey)
	}

	index := make(map[any][]int, len(secondary.Rows))
	var order []any
	for i, r := range secondary.Rows {
		k := normalizeKey(r[cfg.rightKey])
		if k == nil {
			continue
		}
		if _, seen := index[k]; !seen {
			order = append(order, k)
		}
		index[k] = append(index[k], i)
	}
	if !cfg.fanOut {
		for _, k := range order {
			if rows := index[k]; len(rows) > 1 {
				return nil, &NonUniqueKeyError{Key: cfg.rightKey, Value: secondary.Rows[rows[0]][cfg.rightKey], Count: len(rows)}
			}
		}
	}

	// secondary column -> output column
	type colMap struct{ from, to string }
	var carried []colMap
	out := NewTable(primary.Columns...)
	for _, c := range secondary.Columns {
		if c == cfg.rightKey && cfg.rightKey == key {
			continue
		}
		to := c
		for out.HasColumn(to) {
			to += cfg.suffix
		}
		out.Columns = append(out.Columns, to)
		carried = append(carried, colMap{from: c, to: to})
	}

	for _, pr := range primary.Rows {
		matches := index[normalizeKey(pr[key])]
		if len(matches) == 0 {
			r := maps.Clone(pr)
			if r == nil {
				r = Row{}
			}
			for _, cm := range carried {
				r[cm.to] = Missing
			}
			out.Rows = append(out.Rows, r)
			continue
		}
		for _, si := range matches {
			r := maps.Clone(pr)
			if r == nil {
				r = Row{}
			}
			sr := secondary.Rows[si]
			for _, cm := range carried {
				v, ok := sr[cm.from]
				if !ok {
					v = Missing
				}
				r[cm.to] = v
			}
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}
