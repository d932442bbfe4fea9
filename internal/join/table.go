// Package join merges attribute tables keyed by segment or point identifier.
package join

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Row is one record of a Table.
type Row map[string]any

// Table is an ordered set of rows sharing a column list.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Append adds a row. Keys not yet in Columns are added in sorted order.
func (t *Table) Append(r Row) {
	var extra []string
	for k := range r {
		if !slices.Contains(t.Columns, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	t.Columns = append(t.Columns, extra...)
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool { return slices.Contains(t.Columns, name) }

// Rename renames column from to to, in place.
func (t *Table) Rename(from, to string) error {
	i := slices.Index(t.Columns, from)
	if i < 0 {
		return fmt.Errorf("%w %q", ErrUnknownColumn, from)
	}
	if from == to {
		return nil
	}
	if t.HasColumn(to) {
		return fmt.Errorf("column %q already exists", to)
	}
	t.Columns[i] = to
	for _, r := range t.Rows {
		if v, ok := r[from]; ok {
			delete(r, from)
			r[to] = v
		}
	}
	return nil
}

// Column returns the values of one column in row order. Absent cells are
// returned as Missing.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		v, ok := r[name]
		if !ok {
			v = Missing
		}
		out[i] = v
	}
	return out
}

// Records returns the rows as plain maps with every column present, Missing
// cells rendered as nil. Used for encoding.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			v, ok := r[c]
			if !ok || IsMissing(v) {
				v = nil
			}
			m[c] = v
		}
		out[i] = m
	}
	return out
}

type missing struct{}

func (missing) String() string { return "<missing>" }

// MarshalJSON renders the marker as null.
func (missing) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// EncodeMsgpack renders the marker as nil.
func (missing) EncodeMsgpack(enc *msgpack.Encoder) error { return enc.EncodeNil() }

// Missing marks a secondary attribute that had no matching row.
var Missing any = missing{}

// IsMissing reports whether v is the Missing marker.
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

// MembershipTable builds a {id, column: true} table from a list of segment
// identifiers, typically a traversal result.
func MembershipTable(ids []int64, column string) *Table {
	t := NewTable("id", column)
	for _, id := range ids {
		t.Rows = append(t.Rows, Row{"id": id, column: true})
	}
	return t
}

// normalizeKey maps equivalent identifiers onto one comparable value so that
// 5, int64(5), float64(5) and "5" match each other. nil means "no key".
func normalizeKey(v any) any {
	switch k := v.(type) {
	case nil, missing:
		return nil
	case int:
		return int64(k)
	case int8:
		return int64(k)
	case int16:
		return int64(k)
	case int32:
		return int64(k)
	case int64:
		return k
	case uint:
		return fromUint(uint64(k))
	case uint8:
		return int64(k)
	case uint16:
		return int64(k)
	case uint32:
		return int64(k)
	case uint64:
		return fromUint(k)
	case float32:
		return fromFloat(float64(k))
	case float64:
		return fromFloat(k)
	case json.Number:
		if i, err := k.Int64(); err == nil {
			return i
		}
		if f, err := k.Float64(); err == nil {
			return fromFloat(f)
		}
		return k.String()
	case string:
		s := strings.TrimSpace(k)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(i, 10) == s {
			return i
		}
		return s
	case []byte:
		return normalizeKey(string(k))
	default:
		return fmt.Sprint(v)
	}
}

func fromUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func fromFloat(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
