package infer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldStats holds statistics about a single field across all sampled records.
type FieldStats struct {
	Count       int // records with a non-null value
	Integral    int // values that are whole numbers
	Numeric     int // values that are numbers (integral included)
	Negative    int // numeric values below zero
	Zero        int // numeric values equal to zero
	Lists       int // array values
	Cardinality int // distinct non-null values
	values      map[string]struct{}
}

// Unique reports whether every non-null value of the field is distinct.
func (fs *FieldStats) Unique() bool { return fs.Count > 0 && fs.Cardinality == fs.Count }

// AllIntegral reports whether every non-null value is a whole number.
func (fs *FieldStats) AllIntegral() bool { return fs.Count > 0 && fs.Integral == fs.Count }

// AllNumeric reports whether every non-null value is a number.
func (fs *FieldStats) AllNumeric() bool { return fs.Count > 0 && fs.Numeric == fs.Count }

// AnalyzeFields examines the top-level fields of every record.
func AnalyzeFields(records []map[string]any) map[string]*FieldStats {
	stats := make(map[string]*FieldStats)
	for _, rec := range records {
		for field, v := range rec {
			fs, ok := stats[field]
			if !ok {
				fs = &FieldStats{values: make(map[string]struct{})}
				stats[field] = fs
			}
			if v == nil {
				continue
			}
			fs.Count++
			fs.values[fmt.Sprint(v)] = struct{}{}

			if _, ok := v.([]any); ok {
				fs.Lists++
				continue
			}
			f, ok := number(v)
			if !ok {
				continue
			}
			fs.Numeric++
			if f == math.Trunc(f) && !math.IsInf(f, 0) {
				fs.Integral++
			}
			if f < 0 {
				fs.Negative++
			}
			if f == 0 {
				fs.Zero++
			}
		}
	}
	for _, fs := range stats {
		fs.Cardinality = len(fs.values)
	}
	return stats
}

// number reads v as a float. Numeric strings count, since SQLite TEXT
// columns and CSV-derived GeoJSON often carry numbers that way.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f)
	case []byte:
		return number(string(x))
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]*FieldStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
