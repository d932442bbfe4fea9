package traverse

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/hydronet/internal/network"
)

// Result is the set of segments reached by one navigation. Members are held
// as a roaring bitmap of arena positions, so set algebra between results of
// the same network is cheap.
type Result struct {
	Start int64
	Mode  Mode

	net  *network.Network
	set  *roaring.Bitmap
	dist map[uint32]float64
}

// Len returns the number of segments reached.
func (r *Result) Len() int { return int(r.set.GetCardinality()) }

// Contains reports whether id was reached.
func (r *Result) Contains(id int64) bool {
	i, ok := r.net.Index(id)
	return ok && r.set.Contains(i)
}

// IDs returns the members in ascending identifier order.
func (r *Result) IDs() []int64 {
	out := make([]int64, 0, r.set.GetCardinality())
	it := r.set.Iterator()
	for it.HasNext() {
		out = append(out, r.net.At(it.Next()).ID)
	}
	return out
}

// Distance returns the cumulative path length, start included, at which id
// was reached.
func (r *Result) Distance(id int64) (float64, bool) {
	i, ok := r.net.Index(id)
	if !ok {
		return 0, false
	}
	d, ok := r.dist[i]
	return d, ok
}

// Distances returns the cumulative path length of every member.
func (r *Result) Distances() map[int64]float64 {
	out := make(map[int64]float64, len(r.dist))
	for i, d := range r.dist {
		out[r.net.At(i).ID] = d
	}
	return out
}

// Bitmap returns a copy of the member set as arena positions.
func (r *Result) Bitmap() *roaring.Bitmap { return r.set.Clone() }

// IsSubsetOf reports whether every member of r is also in o. Both results
// must come from the same network.
func (r *Result) IsSubsetOf(o *Result) bool {
	return r.set.AndCardinality(o.set) == r.set.GetCardinality()
}

// Union merges several results of the same network into one ascending ID list.
func Union(results ...*Result) []int64 {
	if len(results) == 0 {
		return nil
	}
	sets := make([]*roaring.Bitmap, 0, len(results))
	for _, r := range results {
		sets = append(sets, r.set)
	}
	u := roaring.FastOr(sets...)
	n := results[0].net
	out := make([]int64, 0, u.GetCardinality())
	it := u.Iterator()
	for it.HasNext() {
		out = append(out, n.At(it.Next()).ID)
	}
	return out
}
