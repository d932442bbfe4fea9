package traverse

import (
	"context"
	"errors"
	"testing"

	"github.com/agentic-research/hydronet/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	A int64 = 1
	B int64 = 2
	C int64 = 3
	D int64 = 4
	E int64 = 5
)

// chainNet builds A→B→C→D (lengths 2,3,5,1) with tributary E→B.
func chainNet(t *testing.T, orderA, orderE int) *network.Network {
	t.Helper()
	n, err := network.BuildNetwork([]network.Segment{
		{ID: A, ToID: B, Length: 2, StreamOrder: orderA, Area: 10},
		{ID: B, ToID: C, Length: 3, StreamOrder: 2, Area: 15},
		{ID: C, ToID: D, Length: 5, StreamOrder: 2, Area: 16},
		{ID: D, Length: 1, StreamOrder: 2, Area: 17},
		{ID: E, ToID: B, Length: 4, StreamOrder: orderE, Area: 3},
	})
	require.NoError(t, err)
	return n
}

// braidedNet: 10 splits into 11 (main) and 12 (minor). 11→13, 12→14→13, 13→15.
func braidedNet(t *testing.T) *network.Network {
	t.Helper()
	n, err := network.BuildNetwork([]network.Segment{
		{ID: 10, ToID: 11, DivertTo: []int64{12}, Length: 1, StreamOrder: 3, Area: 50},
		{ID: 11, ToID: 13, Length: 2, StreamOrder: 3, Area: 50, Divergence: network.MainPath},
		{ID: 12, ToID: 14, Length: 1, StreamOrder: 1, Area: 1, Divergence: network.MinorPath},
		{ID: 14, ToID: 13, Length: 1, StreamOrder: 1, Area: 1},
		{ID: 13, ToID: 15, Length: 4, StreamOrder: 3, Area: 52},
		{ID: 15, Length: 1, StreamOrder: 3, Area: 53},
	})
	require.NoError(t, err)
	return n
}

func TestUpstreamTributaries(t *testing.T) {
	n := chainNet(t, 2, 1)

	res, err := Navigate(n, C, UpstreamTributaries)
	require.NoError(t, err)
	assert.Equal(t, []int64{A, B, C, E}, res.IDs())
	assert.True(t, res.Contains(C))

	d, ok := res.Distance(A)
	require.True(t, ok)
	assert.Equal(t, 10.0, d, "C(5) + B(3) + A(2)")
}

func TestUpstreamTributaries_AlwaysContainsStart(t *testing.T) {
	n := chainNet(t, 2, 1)
	for _, id := range n.IDs() {
		res, err := Navigate(n, id, UpstreamTributaries)
		require.NoError(t, err)
		assert.True(t, res.Contains(id), "start %d", id)
	}
}

func TestUpstreamMainstem(t *testing.T) {
	t.Run("A has higher order", func(t *testing.T) {
		n := chainNet(t, 2, 1)
		res, err := Navigate(n, C, UpstreamMainstem)
		require.NoError(t, err)
		assert.Equal(t, []int64{A, B, C}, res.IDs())
	})

	t.Run("E has higher order", func(t *testing.T) {
		n := chainNet(t, 1, 2)
		res, err := Navigate(n, C, UpstreamMainstem)
		require.NoError(t, err)
		assert.Equal(t, []int64{B, C, E}, res.IDs())
	})

	t.Run("equal order falls back to area", func(t *testing.T) {
		n := chainNet(t, 1, 1) // A area 10 beats E area 3
		res, err := Navigate(n, C, UpstreamMainstem)
		require.NoError(t, err)
		assert.Equal(t, []int64{A, B, C}, res.IDs())
	})

	t.Run("configurable policy", func(t *testing.T) {
		n := chainNet(t, 1, 2)
		res, err := Navigate(n, C, UpstreamMainstem, WithMainstemPolicy(ByAreaOrderID))
		require.NoError(t, err)
		assert.Equal(t, []int64{A, B, C}, res.IDs(), "area ranks first")
	})
}

func TestUpstreamMainstem_LowestIDBreaksFullTie(t *testing.T) {
	n, err := network.BuildNetwork([]network.Segment{
		{ID: 7, ToID: 9, Length: 1, StreamOrder: 1, Area: 1},
		{ID: 8, ToID: 9, Length: 1, StreamOrder: 1, Area: 1},
		{ID: 9, Length: 1, StreamOrder: 2, Area: 3},
	})
	require.NoError(t, err)

	res, err := Navigate(n, 9, UpstreamMainstem)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, res.IDs())
}

func TestDownstream(t *testing.T) {
	n := braidedNet(t)

	dm, err := Navigate(n, 10, DownstreamMainstem)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 13, 15}, dm.IDs())

	dd, err := Navigate(n, 10, DownstreamDiversions)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12, 13, 14, 15}, dd.IDs())

	assert.True(t, dm.IsSubsetOf(dd))
	assert.False(t, dd.IsSubsetOf(dm))
}

func TestDownstreamMainstem_StopsAtDiversion(t *testing.T) {
	n, err := network.BuildNetwork([]network.Segment{
		{ID: 1, ToID: 2, Length: 1, StreamOrder: 1},
		{ID: 2, ToID: 3, Length: 1, StreamOrder: 1, Divergence: network.MinorPath},
		{ID: 3, Length: 1, StreamOrder: 1},
	})
	require.NoError(t, err)

	res, err := Navigate(n, 1, DownstreamMainstem)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.IDs())

	// a start on the diversion itself is still reported
	res, err = Navigate(n, 2, DownstreamMainstem)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, res.IDs())
}

func TestUpstreamTributaries_WithDiversions(t *testing.T) {
	n := braidedNet(t)

	plain, err := Navigate(n, 14, UpstreamTributaries)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 14}, plain.IDs())

	withDiv, err := Navigate(n, 14, UpstreamTributaries, WithDiversions())
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 12, 14}, withDiv.IDs())
}

func TestTraverse_DirectionMapping(t *testing.T) {
	n := braidedNet(t)
	tests := []struct {
		name string
		dir  Direction
		div  bool
		opts []Option
		mode Mode
	}{
		{"downstream mainstem", Downstream, false, nil, DownstreamMainstem},
		{"downstream diversions", Downstream, true, nil, DownstreamDiversions},
		{"upstream tributaries", Upstream, false, nil, UpstreamTributaries},
		{"upstream mainstem", Upstream, false, []Option{WithMainstem()}, UpstreamMainstem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Traverse(n, 13, tt.dir, tt.div, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, res.Mode)
		})
	}

	_, err := Traverse(n, 13, Direction(9), false)
	assert.Error(t, err)
}

func TestDistanceCutoff(t *testing.T) {
	n := chainNet(t, 2, 1)

	tests := []struct {
		name   string
		cutoff float64
		want   []int64
	}{
		{"zero keeps only start", 0, []int64{C}},
		{"start length reached", 5, []int64{C}},
		{"just past start", 5.5, []int64{B, C}},
		{"boundary segment kept", 8, []int64{B, C}},
		{"into both tributaries", 8.1, []int64{A, B, C, E}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Navigate(n, C, UpstreamTributaries, WithMaxDistance(tt.cutoff))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.IDs())
		})
	}

	_, err := Navigate(n, C, UpstreamTributaries, WithMaxDistance(-1))
	assert.Error(t, err)
}

func TestDistanceCutoff_Monotonic(t *testing.T) {
	n := braidedNet(t)
	for _, mode := range Modes() {
		for _, start := range n.IDs() {
			prev, err := Navigate(n, start, mode, WithMaxDistance(0))
			require.NoError(t, err)
			for _, cutoff := range []float64{0.5, 1, 2, 3, 4.5, 7, 100} {
				cur, err := Navigate(n, start, mode, WithMaxDistance(cutoff))
				require.NoError(t, err)
				assert.True(t, prev.IsSubsetOf(cur), "%s from %d at %v", mode, start, cutoff)
				prev = cur
			}
		}
	}
}

func TestContainmentProperties(t *testing.T) {
	for _, n := range []*network.Network{chainNet(t, 2, 1), chainNet(t, 1, 2), braidedNet(t)} {
		for _, id := range n.IDs() {
			ut, err := Navigate(n, id, UpstreamTributaries)
			require.NoError(t, err)
			um, err := Navigate(n, id, UpstreamMainstem)
			require.NoError(t, err)
			dm, err := Navigate(n, id, DownstreamMainstem)
			require.NoError(t, err)
			dd, err := Navigate(n, id, DownstreamDiversions)
			require.NoError(t, err)

			assert.True(t, um.IsSubsetOf(ut), "UM ⊆ UT from %d", id)
			assert.True(t, dm.IsSubsetOf(dd), "DM ⊆ DD from %d", id)
		}
	}
}

func TestIdempotent(t *testing.T) {
	n := braidedNet(t)
	for _, mode := range Modes() {
		r1, err := Navigate(n, 13, mode)
		require.NoError(t, err)
		r2, err := Navigate(n, 13, mode)
		require.NoError(t, err)
		assert.Equal(t, r1.IDs(), r2.IDs())
		assert.Equal(t, r1.Distances(), r2.Distances())
	}
}

func TestCycleDoesNotLoop(t *testing.T) {
	n, err := network.BuildNetwork([]network.Segment{
		{ID: 1, ToID: 2, Length: 1, StreamOrder: 1},
		{ID: 2, ToID: 3, Length: 1, StreamOrder: 1},
		{ID: 3, ToID: 1, Length: 1, StreamOrder: 1},
	})
	require.NoError(t, err)

	for _, mode := range Modes() {
		res, err := Navigate(n, 1, mode)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, res.IDs(), mode.String())
	}
}

func TestUnknownStart(t *testing.T) {
	n := chainNet(t, 2, 1)
	_, err := Navigate(n, 99, UpstreamTributaries)
	assert.True(t, errors.Is(err, network.ErrUnknownSegment))
}

func TestParseMode(t *testing.T) {
	for _, in := range []string{"UT", "ut", " upstream-tributaries "} {
		m, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, UpstreamTributaries, m)
	}
	m, err := ParseMode("dd")
	require.NoError(t, err)
	assert.Equal(t, DownstreamDiversions, m)
	assert.Equal(t, Downstream, m.Direction())
	assert.Equal(t, "DD", m.Code())

	_, err = ParseMode("sideways")
	assert.Error(t, err)
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = PolicyByName("area-order-id")
	require.NoError(t, err)

	_, err = PolicyByName("widest")
	assert.Error(t, err)
}

func TestTraverseMany(t *testing.T) {
	n := chainNet(t, 2, 1)

	out, err := TraverseMany(context.Background(), n, []int64{C, 99, A}, UpstreamTributaries, WithWorkers(2))
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, C, out[0].Start)
	require.NoError(t, out[0].Err)
	assert.Equal(t, []int64{A, B, C, E}, out[0].Result.IDs())

	assert.ErrorIs(t, out[1].Err, network.ErrUnknownSegment, "bad start is reported, not fatal")
	assert.Nil(t, out[1].Result)

	require.NoError(t, out[2].Err)
	assert.Equal(t, []int64{A}, out[2].Result.IDs())

	assert.Equal(t, []int64{A, B, C, E}, Union(out[0].Result, out[2].Result))
}

func TestTraverseMany_Cancelled(t *testing.T) {
	n := chainNet(t, 2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TraverseMany(ctx, n, []int64{A, B, C}, DownstreamMainstem)
	assert.ErrorIs(t, err, context.Canceled)
}
