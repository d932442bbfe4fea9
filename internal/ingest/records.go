package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agentic-research/hydronet/api"
	"github.com/agentic-research/hydronet/internal/join"
	"github.com/agentic-research/hydronet/internal/network"
)

// segmentFromRecord maps one record onto a Segment.
func segmentFromRecord(rec map[string]any, f api.SegmentFields) (network.Segment, error) {
	var s network.Segment
	var err error

	if f.ID == "" {
		return s, fmt.Errorf("schema has no id field")
	}
	raw, ok := rec[f.ID]
	if !ok || raw == nil {
		return s, fmt.Errorf("missing %q", f.ID)
	}
	if s.ID, err = toInt64(raw); err != nil {
		return s, fmt.Errorf("field %q: %w", f.ID, err)
	}
	if s.ToID, err = optInt64(rec, f.ToID); err != nil {
		return s, err
	}
	if s.Length, err = optFloat(rec, f.Length); err != nil {
		return s, err
	}
	if s.Area, err = optFloat(rec, f.Area); err != nil {
		return s, err
	}
	div, err := optInt64(rec, f.Divergence)
	if err != nil {
		return s, err
	}
	s.Divergence = network.Divergence(div)
	// an absent order is treated as a headwater; an explicit one is kept
	// as given for BuildNetwork to validate
	s.StreamOrder = 1
	if v, ok := rec[f.StreamOrder]; f.StreamOrder != "" && ok && v != nil {
		order, err := toInt64(v)
		if err != nil {
			return s, fmt.Errorf("field %q: %w", f.StreamOrder, err)
		}
		s.StreamOrder = int(order)
	}
	if f.DivertTo != "" {
		if s.DivertTo, err = toIDList(rec[f.DivertTo]); err != nil {
			return s, fmt.Errorf("field %q: %w", f.DivertTo, err)
		}
	}
	return s, nil
}

// pointTable turns point records into a join table keyed by the point id,
// with the snapped segment id normalised into column "segment_id".
func pointTable(recs []map[string]any, p api.PointSource) (*join.Table, error) {
	t := join.NewTable(p.ID, "segment_id")
	for i, rec := range recs {
		row := make(join.Row, len(rec)+1)
		for k, v := range rec {
			row[k] = v
		}
		if _, ok := rec[p.ID]; !ok {
			return nil, fmt.Errorf("point %d: missing %q", i, p.ID)
		}
		seg, err := optInt64(rec, p.SegmentID)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		if seg != 0 {
			row["segment_id"] = seg
		} else {
			row["segment_id"] = nil
		}
		t.Append(row)
	}
	return t, nil
}

// null values and absent fields both read as zero
func optInt64(rec map[string]any, field string) (int64, error) {
	if field == "" {
		return 0, nil
	}
	v, ok := rec[field]
	if !ok || v == nil {
		return 0, nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return i, nil
}

func optFloat(rec map[string]any, field string) (float64, error) {
	if field == "" {
		return 0, nil
	}
	v, ok := rec[field]
	if !ok || v == nil {
		return 0, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return f, nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		if x >= 1<<63 || x < -(1<<63) {
			return 0, fmt.Errorf("%v is out of range for an identifier", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", x)
		}
		return toInt64(f)
	case []byte:
		return toInt64(string(x))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	case []byte:
		return toFloat(string(x))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// toIDList accepts a JSON array, a JSON-encoded array string or a comma
// separated list.
func toIDList(v any) ([]int64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]int64, 0, len(x))
		for _, e := range x {
			id, err := toInt64(e)
			if err != nil {
				return nil, err
			}
			if id != 0 {
				out = append(out, id)
			}
		}
		return out, nil
	case []byte:
		return toIDList(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return nil, err
			}
			return toIDList(arr)
		}
		parts := strings.Split(s, ",")
		out := make([]int64, 0, len(parts))
		for _, p := range parts {
			id, err := toInt64(p)
			if err != nil {
				return nil, err
			}
			if id != 0 {
				out = append(out, id)
			}
		}
		return out, nil
	default:
		id, err := toInt64(v)
		if err != nil || id == 0 {
			return nil, err
		}
		return []int64{id}, nil
	}
}
