// Package pathlen computes the distance from every segment to its outlet.
package pathlen

import (
	"github.com/agentic-research/hydronet/internal/network"
)

const (
	unresolved = iota
	inProgress
	resolved
)

// ComputePathLengths returns, for every segment, the summed length of the
// segments between it and its outlet. Outlets (null target or boundary exit)
// are 0 and for a segment S draining to D, distance(S) = distance(D) +
// length(S). Only primary downstream links are followed, so diversions do
// not change the result.
//
// Segments are resolved in ascending ID order. Each resolution walks
// downstream until it meets an outlet or an already resolved segment; meeting
// a segment still on the current walk means the links form a loop, reported
// as a *network.CyclicNetworkError.
func ComputePathLengths(n *network.Network) (map[int64]float64, error) {
	size := n.Len()
	state := make([]uint8, size)
	dist := make([]float64, size)
	var stack []uint32

	for start := 0; start < size; start++ {
		if state[start] == resolved {
			continue
		}

		stack = stack[:0]
		cur := uint32(start)
		var base float64
		for {
			if state[cur] == resolved {
				base = dist[cur]
				break
			}
			if state[cur] == inProgress {
				return nil, cycleError(n, stack, cur)
			}
			state[cur] = inProgress
			stack = append(stack, cur)
			d, ok := n.DownAt(cur)
			if !ok {
				// outlet: the walk resolves to zero and the outlet itself is
				// popped first below with no length of its own added
				base = 0
				break
			}
			cur = d
		}

		// unwind from the bottom of the walk
		for k := len(stack) - 1; k >= 0; k-- {
			i := stack[k]
			if _, ok := n.DownAt(i); ok {
				base += n.At(i).Length
			}
			dist[i] = base
			state[i] = resolved
		}
	}

	out := make(map[int64]float64, size)
	for i := 0; i < size; i++ {
		out[n.At(uint32(i)).ID] = dist[i]
	}
	return out, nil
}

func cycleError(n *network.Network, stack []uint32, again uint32) error {
	first := 0
	for k, i := range stack {
		if i == again {
			first = k
			break
		}
	}
	cycle := make([]int64, 0, len(stack)-first)
	for _, i := range stack[first:] {
		cycle = append(cycle, n.At(i).ID)
	}
	return &network.CyclicNetworkError{Cycle: cycle}
}
