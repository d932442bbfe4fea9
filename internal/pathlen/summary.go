package pathlen

import (
	"slices"

	"github.com/agentic-research/hydronet/internal/join"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises a path-length table.
type Stats struct {
	Count  int     `json:"count" msgpack:"count"`
	Min    float64 `json:"min_km" msgpack:"min_km"`
	Max    float64 `json:"max_km" msgpack:"max_km"`
	Mean   float64 `json:"mean_km" msgpack:"mean_km"`
	StdDev float64 `json:"stddev_km" msgpack:"stddev_km"`
	Median float64 `json:"median_km" msgpack:"median_km"`
}

// Summarize computes descriptive statistics over the distances.
func Summarize(lengths map[int64]float64) Stats {
	if len(lengths) == 0 {
		return Stats{}
	}
	x := make([]float64, 0, len(lengths))
	for _, id := range sortedIDs(lengths) {
		x = append(x, lengths[id])
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}
	sorted := slices.Clone(x)
	slices.Sort(sorted)
	return Stats{
		Count:  len(x),
		Min:    floats.Min(x),
		Max:    floats.Max(x),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

// Table converts a path-length map into a join table with columns id and
// pathlength, ordered by id.
func Table(lengths map[int64]float64) *join.Table {
	t := join.NewTable("id", "pathlength")
	for _, id := range sortedIDs(lengths) {
		t.Append(join.Row{"id": id, "pathlength": lengths[id]})
	}
	return t
}

func sortedIDs(m map[int64]float64) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
