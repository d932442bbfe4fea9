package traverse

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/hydronet/internal/network"
)

type options struct {
	maxDistance float64
	policy      MainstemPolicy
	diversions  bool
	mainstem    bool
	workers     int
}

func defaults() options {
	return options{
		maxDistance: math.Inf(1),
		policy:      ByOrderAreaID,
		workers:     4,
	}
}

// Option configures a traversal.
type Option func(*options)

// WithMaxDistance bounds the traversal. Cumulative length counts every segment
// on the path, the start included. A segment reaching the bound is kept but
// not expanded further.
func WithMaxDistance(km float64) Option {
	return func(o *options) { o.maxDistance = km }
}

// WithMainstemPolicy replaces the contributor ranking used by UM.
func WithMainstemPolicy(p MainstemPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithDiversions makes an upstream tributary walk also climb into the
// segments that divert flow into a visited segment.
func WithDiversions() Option {
	return func(o *options) { o.diversions = true }
}

// WithMainstem restricts an upstream Traverse to the mainstem.
func WithMainstem() Option {
	return func(o *options) { o.mainstem = true }
}

// WithWorkers sets the fan-out of TraverseMany.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Traverse walks from start in the given direction. Downstream, includeDiversions
// selects DD over DM. Upstream it selects whether diversion contributors are
// climbed too; combine with WithMainstem for UM.
func Traverse(n *network.Network, start int64, dir Direction, includeDiversions bool, opts ...Option) (*Result, error) {
	o := defaults()
	for _, fn := range opts {
		fn(&o)
	}
	var mode Mode
	switch dir {
	case Upstream:
		mode = UpstreamTributaries
		if o.mainstem {
			mode = UpstreamMainstem
		}
		if includeDiversions {
			opts = append(opts[:len(opts):len(opts)], WithDiversions())
		}
	case Downstream:
		mode = DownstreamMainstem
		if includeDiversions {
			mode = DownstreamDiversions
		}
	default:
		return nil, fmt.Errorf("invalid direction %v", dir)
	}
	return Navigate(n, start, mode, opts...)
}

// Navigate runs one navigation mode from start.
func Navigate(n *network.Network, start int64, mode Mode, opts ...Option) (*Result, error) {
	o := defaults()
	for _, fn := range opts {
		fn(&o)
	}
	if math.IsNaN(o.maxDistance) || o.maxDistance < 0 {
		return nil, fmt.Errorf("max distance must be non-negative, got %v", o.maxDistance)
	}

	si, ok := n.Index(start)
	if !ok {
		return nil, &network.UnknownSegmentError{ID: start}
	}

	var next func(i uint32, buf []uint32) []uint32
	admit := func(uint32) bool { return true }

	switch mode {
	case UpstreamTributaries:
		next = func(i uint32, buf []uint32) []uint32 {
			buf = append(buf, n.UpAt(i)...)
			if o.diversions {
				buf = append(buf, n.DivertedFromAt(i)...)
			}
			return buf
		}
	case UpstreamMainstem:
		next = func(i uint32, buf []uint32) []uint32 {
			if c, ok := dominant(n, n.UpAt(i), o.policy); ok {
				buf = append(buf, c)
			}
			return buf
		}
	case DownstreamMainstem:
		next = func(i uint32, buf []uint32) []uint32 {
			if d, ok := n.DownAt(i); ok {
				buf = append(buf, d)
			}
			return buf
		}
		admit = func(j uint32) bool { return !n.At(j).Divergence.IsDiversion() }
	case DownstreamDiversions:
		next = func(i uint32, buf []uint32) []uint32 {
			if d, ok := n.DownAt(i); ok {
				buf = append(buf, d)
			}
			return append(buf, n.DivertAt(i)...)
		}
	default:
		return nil, fmt.Errorf("invalid navigation mode %v", mode)
	}

	set, dist := walk(n, si, next, admit, o.maxDistance)
	return &Result{Start: start, Mode: mode, net: n, set: set, dist: dist}, nil
}

// walk is the shared primitive: best-first expansion by cumulative path
// length, ties broken by arena position (and therefore by identifier). A
// segment is recorded the first time it is popped, which is at its shortest
// cumulative length, and is never expanded twice.
func walk(n *network.Network, start uint32, next func(uint32, []uint32) []uint32, admit func(uint32) bool, limit float64) (*roaring.Bitmap, map[uint32]float64) {
	visited := roaring.New()
	dist := make(map[uint32]float64)

	pq := &frontier{{idx: start, dist: n.At(start).Length}}
	var buf []uint32
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(item)
		if visited.Contains(cur.idx) {
			continue
		}
		visited.Add(cur.idx)
		dist[cur.idx] = cur.dist
		if cur.dist >= limit {
			continue
		}
		buf = next(cur.idx, buf[:0])
		for _, j := range buf {
			if visited.Contains(j) || !admit(j) {
				continue
			}
			heap.Push(pq, item{idx: j, dist: cur.dist + n.At(j).Length})
		}
	}
	return visited, dist
}

type item struct {
	idx  uint32
	dist float64
}

// frontier is a min-heap on (dist, idx).
type frontier []item

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].idx < f[j].idx
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(item)) }
func (f *frontier) Pop() any {
	old := *f
	it := old[len(old)-1]
	*f = old[:len(old)-1]
	return it
}
