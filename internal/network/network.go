package network

import (
	"math"
	"slices"
	"sort"
)

// none marks a missing arena link.
const none = -1

// Network is an immutable flow network. Segments live in an arena ordered by
// ID, so ascending arena index is ascending segment ID. Adjacency is stored as
// arena indices, never as pointers.
type Network struct {
	segs  []Segment
	index map[int64]uint32

	down    []int32    // primary downstream, none for outlets and boundary exits
	up      [][]uint32 // primary contributors, ascending
	divDown [][]uint32 // diversion targets, ascending
	divUp   [][]uint32 // segments diverting into this one, ascending

	exits []int64 // referenced identifiers declared as boundary exits, ascending
}

type buildConfig struct {
	boundary    map[int64]struct{}
	allowAnyExt bool
}

// BuildOption configures BuildNetwork.
type BuildOption func(*buildConfig)

// WithBoundaryExits declares identifiers that are allowed to be referenced as
// downstream targets without being part of the network. Flow leaves the
// modeled area there.
func WithBoundaryExits(ids ...int64) BuildOption {
	return func(c *buildConfig) {
		for _, id := range ids {
			c.boundary[id] = struct{}{}
		}
	}
}

// WithAllowBoundary treats every dangling downstream reference as a boundary
// exit. AOI-clipped extracts usually need this.
func WithAllowBoundary() BuildOption {
	return func(c *buildConfig) { c.allowAnyExt = true }
}

// BuildNetwork indexes segments into a Network. Every fault is collected and
// reported together in a *MalformedNetworkError.
func BuildNetwork(segments []Segment, opts ...BuildOption) (*Network, error) {
	cfg := &buildConfig{boundary: make(map[int64]struct{})}
	for _, o := range opts {
		o(cfg)
	}

	var problems []Problem

	segs := make([]Segment, len(segments))
	copy(segs, segments)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].ID < segs[j].ID })

	index := make(map[int64]uint32, len(segs))
	for i := range segs {
		s := &segs[i]
		if s.ID == 0 {
			problems = append(problems, Problem{Reason: "identifier 0 is reserved for null"})
			continue
		}
		if _, dup := index[s.ID]; dup {
			problems = append(problems, Problem{ID: s.ID, Reason: "duplicate identifier"})
			continue
		}
		index[s.ID] = uint32(i)
		if math.IsNaN(s.Length) || math.IsInf(s.Length, 0) || s.Length < 0 {
			problems = append(problems, Problem{ID: s.ID, Reason: "length must be a finite non-negative number"})
		}
		if s.StreamOrder < 1 {
			problems = append(problems, Problem{ID: s.ID, Reason: "stream order must be positive"})
		}
		if len(s.DivertTo) > 0 {
			s.DivertTo = slices.Clone(s.DivertTo)
		}
	}
	if len(problems) > 0 {
		return nil, &MalformedNetworkError{Problems: problems}
	}

	n := &Network{
		segs:    segs,
		index:   index,
		down:    make([]int32, len(segs)),
		up:      make([][]uint32, len(segs)),
		divDown: make([][]uint32, len(segs)),
		divUp:   make([][]uint32, len(segs)),
	}

	exits := make(map[int64]struct{})
	resolve := func(from, target int64) (uint32, bool) {
		if j, ok := index[target]; ok {
			return j, true
		}
		if _, declared := cfg.boundary[target]; declared || cfg.allowAnyExt {
			exits[target] = struct{}{}
			return 0, false
		}
		problems = append(problems, Problem{ID: from, Target: target, Reason: "dangling downstream reference"})
		return 0, false
	}

	for i := range segs {
		s := &segs[i]
		n.down[i] = none
		if s.ToID != 0 {
			if j, ok := resolve(s.ID, s.ToID); ok {
				n.down[i] = int32(j)
				n.up[j] = append(n.up[j], uint32(i))
			}
		}
		for _, t := range s.DivertTo {
			if t == 0 || t == s.ToID {
				continue
			}
			if j, ok := resolve(s.ID, t); ok {
				if slices.Contains(n.divDown[i], j) {
					continue
				}
				n.divDown[i] = append(n.divDown[i], j)
				n.divUp[j] = append(n.divUp[j], uint32(i))
			}
		}
		slices.Sort(n.divDown[i])
	}
	if len(problems) > 0 {
		return nil, &MalformedNetworkError{Problems: problems}
	}

	// contributors were appended in ascending source order already
	n.exits = make([]int64, 0, len(exits))
	for id := range exits {
		n.exits = append(n.exits, id)
	}
	slices.Sort(n.exits)

	return n, nil
}

// Len returns the number of segments.
func (n *Network) Len() int { return len(n.segs) }

// Has reports whether id is a segment of the network.
func (n *Network) Has(id int64) bool {
	_, ok := n.index[id]
	return ok
}

// Segment returns a copy of the segment with the given id.
func (n *Network) Segment(id int64) (Segment, error) {
	i, ok := n.index[id]
	if !ok {
		return Segment{}, &UnknownSegmentError{ID: id}
	}
	s := n.segs[i]
	s.DivertTo = slices.Clone(s.DivertTo)
	return s, nil
}

// IDs returns every segment identifier in ascending order.
func (n *Network) IDs() []int64 {
	ids := make([]int64, len(n.segs))
	for i := range n.segs {
		ids[i] = n.segs[i].ID
	}
	return ids
}

// Outlets returns the segments with no downstream link inside the network:
// null targets and boundary exits alike.
func (n *Network) Outlets() []int64 {
	var out []int64
	for i, d := range n.down {
		if d == none {
			out = append(out, n.segs[i].ID)
		}
	}
	return out
}

// BoundaryExits returns the external identifiers referenced as downstream
// targets.
func (n *Network) BoundaryExits() []int64 { return slices.Clone(n.exits) }

// Upstream returns the primary contributors of id in ascending order.
func (n *Network) Upstream(id int64) ([]int64, error) {
	i, ok := n.index[id]
	if !ok {
		return nil, &UnknownSegmentError{ID: id}
	}
	return n.idsOf(n.up[i]), nil
}

// Downstream returns the primary downstream segment of id. ok is false for
// outlets and boundary exits.
func (n *Network) Downstream(id int64) (to int64, ok bool, err error) {
	i, found := n.index[id]
	if !found {
		return 0, false, &UnknownSegmentError{ID: id}
	}
	if n.down[i] == none {
		return 0, false, nil
	}
	return n.segs[n.down[i]].ID, true, nil
}

// Diversions returns the diversion targets of id in ascending order.
func (n *Network) Diversions(id int64) ([]int64, error) {
	i, ok := n.index[id]
	if !ok {
		return nil, &UnknownSegmentError{ID: id}
	}
	return n.idsOf(n.divDown[i]), nil
}

func (n *Network) idsOf(idx []uint32) []int64 {
	if len(idx) == 0 {
		return nil
	}
	out := make([]int64, len(idx))
	for k, i := range idx {
		out[k] = n.segs[i].ID
	}
	return out
}

// -----------------------------------------------------------------------------
// Arena access for the traversal and path-length engines
// -----------------------------------------------------------------------------

// Index returns the arena position of id.
func (n *Network) Index(id int64) (uint32, bool) {
	i, ok := n.index[id]
	return i, ok
}

// At returns the segment stored at arena position i. The pointer must not be
// used to modify the segment.
func (n *Network) At(i uint32) *Segment { return &n.segs[i] }

// DownAt returns the primary downstream arena position of i.
func (n *Network) DownAt(i uint32) (uint32, bool) {
	d := n.down[i]
	if d == none {
		return 0, false
	}
	return uint32(d), true
}

// UpAt returns the primary contributors of arena position i.
func (n *Network) UpAt(i uint32) []uint32 { return n.up[i] }

// DivertAt returns the diversion targets of arena position i.
func (n *Network) DivertAt(i uint32) []uint32 { return n.divDown[i] }

// DivertedFromAt returns the segments diverting into arena position i.
func (n *Network) DivertedFromAt(i uint32) []uint32 { return n.divUp[i] }
