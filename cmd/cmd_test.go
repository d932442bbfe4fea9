package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/hydronet/internal/config"
	"github.com/agentic-research/hydronet/internal/join"
	"github.com/agentic-research/hydronet/internal/traverse"
)

// 1 -> 2 -> 3 -> 4 with 5 joining 2 and a diversion from 2 to 6.
const flowlines = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"comid": 1, "tocomid": 2, "lengthkm": 2.0, "streamorde": 2}},
  {"type": "Feature", "properties": {"comid": 2, "tocomid": 3, "lengthkm": 3.0, "streamorde": 2, "divertto": [6]}},
  {"type": "Feature", "properties": {"comid": 3, "tocomid": 4, "lengthkm": 5.0, "streamorde": 3}},
  {"type": "Feature", "properties": {"comid": 4, "tocomid": 0, "lengthkm": 11.0, "streamorde": 3}},
  {"type": "Feature", "properties": {"comid": 5, "tocomid": 2, "lengthkm": 1.5, "streamorde": 1}},
  {"type": "Feature", "properties": {"comid": 6, "tocomid": 0, "lengthkm": 0.5, "streamorde": 1, "divergence": 2}}
]}`

const gages = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"identifier": "USGS-01", "comid": 3}},
  {"type": "Feature", "properties": {"identifier": "USGS-02", "comid": 5}},
  {"type": "Feature", "properties": {"identifier": "USGS-03"}}
]}`

type fixture struct {
	dir       string
	flowlines string
	gages     string
}

func setup(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:       dir,
		flowlines: filepath.Join(dir, "flowlines.geojson"),
		gages:     filepath.Join(dir, "gages.geojson"),
	}
	require.NoError(t, os.WriteFile(f.flowlines, []byte(flowlines), 0o644))
	require.NoError(t, os.WriteFile(f.gages, []byte(gages), 0o644))

	prev := cfg
	cfg = config.Default()
	t.Cleanup(func() { cfg = prev })
	return f
}

func TestLoadNetwork(t *testing.T) {
	f := setup(t)

	n, err := loadNetwork(f.flowlines)
	require.NoError(t, err)
	assert.Equal(t, 6, n.Len())
	assert.Equal(t, []int64{4, 6}, n.Outlets())
}

func TestInspectNetwork(t *testing.T) {
	f := setup(t)
	n, err := loadNetwork(f.flowlines)
	require.NoError(t, err)

	in := inspectNetwork(n, true)
	assert.Equal(t, 6, in.Segments)
	assert.Equal(t, 1, in.Components)
	assert.Equal(t, []int{6}, in.Sizes)
	assert.Equal(t, [][]int64{{1, 2, 3, 4, 5, 6}}, in.Members)
}

func TestJoinPoints(t *testing.T) {
	f := setup(t)
	n, err := loadNetwork(f.flowlines)
	require.NoError(t, err)

	lengths := map[int64]float64{1: 10, 2: 8, 3: 5, 4: 0, 5: 9.5, 6: 0}
	members, err := membershipResults(n, []int64{3}, "UT", false, 0)
	require.NoError(t, err)

	out, err := joinPoints(f.gages, lengths, members)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	assert.Equal(t, []any{5.0, 9.5, join.Missing}, out.Column("pathlength"))
	assert.Equal(t, []any{true, true, join.Missing}, out.Column("ut_3"))
	assert.False(t, out.HasColumn("id"))
}

func TestMembershipResults_UnknownStart(t *testing.T) {
	f := setup(t)
	n, err := loadNetwork(f.flowlines)
	require.NoError(t, err)

	_, err = membershipResults(n, []int64{99}, "UT", false, 0)
	require.Error(t, err)
	_, err = membershipResults(n, []int64{1}, "XX", false, 0)
	require.Error(t, err)
}

func TestSegmentID(t *testing.T) {
	id, err := segmentID(1234)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), id)

	for _, bad := range []float64{0, -1, 2.5} {
		_, err := segmentID(bad)
		require.Error(t, err, "%v", bad)
	}
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolServer(t *testing.T) {
	f := setup(t)
	n, err := loadNetwork(f.flowlines)
	require.NoError(t, err)
	opts, err := traverseOptions()
	require.NoError(t, err)
	ts := newToolServer(f.flowlines, n, opts)
	ctx := context.Background()

	t.Run("navigate mainstem", func(t *testing.T) {
		res, err := ts.handleNavigate(ctx, toolRequest("navigate", map[string]any{"start": 3.0, "mode": "UM"}))
		require.NoError(t, err)
		require.False(t, res.IsError)

		var nav navigation
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &nav))
		assert.Equal(t, []int64{1, 2, 3}, nav.Segments)
		assert.Equal(t, "UM", nav.Mode)
	})

	t.Run("navigate with cutoff", func(t *testing.T) {
		res, err := ts.handleNavigate(ctx, toolRequest("navigate", map[string]any{"start": 1.0, "mode": "DM", "distance": 5.0}))
		require.NoError(t, err)

		var nav navigation
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &nav))
		assert.Equal(t, []int64{1, 2}, nav.Segments)
	})

	t.Run("navigate unknown start", func(t *testing.T) {
		res, err := ts.handleNavigate(ctx, toolRequest("navigate", map[string]any{"start": 99.0}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("navigate missing start", func(t *testing.T) {
		res, err := ts.handleNavigate(ctx, toolRequest("navigate", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("pathlength of one segment", func(t *testing.T) {
		res, err := ts.handlePathLength(ctx, toolRequest("pathlength", map[string]any{"id": 1.0}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": 1, "pathlength": 10}`, resultText(t, res))
	})

	t.Run("pathlength summary", func(t *testing.T) {
		res, err := ts.handlePathLength(ctx, toolRequest("pathlength", nil))
		require.NoError(t, err)

		var stats map[string]any
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &stats))
		assert.Equal(t, 6.0, stats["count"])
		assert.Equal(t, 10.0, stats["max_km"])
	})

	t.Run("inspect", func(t *testing.T) {
		res, err := ts.handleInspect(ctx, toolRequest("inspect", nil))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, res), `"segments":6`)
	})

	t.Run("reload picks up edits", func(t *testing.T) {
		_, err := ts.handlePathLength(ctx, toolRequest("pathlength", nil))
		require.NoError(t, err)
		old := ts.state()

		grown := strings.Replace(flowlines, "\n]}", `,
  {"type": "Feature", "properties": {"comid": 7, "tocomid": 5, "lengthkm": 1.0, "streamorde": 1}}
]}`, 1)
		require.NoError(t, os.WriteFile(f.flowlines, []byte(grown), 0o644))

		res, err := ts.handleReload(ctx, toolRequest("reload", nil))
		require.NoError(t, err)
		require.False(t, res.IsError)
		assert.JSONEq(t, fmt.Sprintf(`{"source": %q, "segments": 7, "previous": 6}`, f.flowlines), resultText(t, res))
		assert.Equal(t, 6, old.net.Len())

		res, err = ts.handlePathLength(ctx, toolRequest("pathlength", map[string]any{"id": 7.0}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": 7, "pathlength": 10.5}`, resultText(t, res))
	})

	t.Run("failed reload keeps network", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.flowlines, []byte(`{"features": [`), 0o644))
		res, err := ts.handleReload(ctx, toolRequest("reload", nil))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, 7, ts.state().net.Len())
	})
}

// resetFlags returns every flag in the tree to its default. pflag keeps
// parsed values between Execute calls, and slice flags append to them, so
// slice flags in this tree all default to empty.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			var vals []string
			if def := strings.Trim(f.DefValue, "[]"); def != "" {
				vals = strings.Split(def, ",")
			}
			_ = sv.Replace(vals)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	require.NoError(t, rootCmd.Execute())
	return out.Bytes()
}

func TestBuildThenNavigateStored(t *testing.T) {
	f := setup(t)
	t.Setenv("HOME", f.dir)
	dbPath := filepath.Join(f.dir, "out.db")

	var built map[string]any
	require.NoError(t, json.Unmarshal(execute(t, "build", f.flowlines, dbPath,
		"--points", f.gages, "--start", "3", "--mode", "UT,DD"), &built))
	assert.NotEmpty(t, built["run_id"])
	assert.Equal(t, 6.0, built["segments"])

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var c int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM traversals WHERE mode = 'UT'`).Scan(&c))
	assert.Equal(t, 4, c)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM traversals WHERE mode = 'DD'`).Scan(&c))
	assert.Equal(t, 2, c)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM gages WHERE ut_3 = 1`).Scan(&c))
	assert.Equal(t, 2, c)

	var nav navigation
	require.NoError(t, json.Unmarshal(execute(t, "navigate", dbPath, "--start", "1", "--mode", "DM"), &nav))
	assert.Equal(t, []int64{1, 2, 3, 4}, nav.Segments)

	_, err = traverse.ParseMode(nav.Mode)
	require.NoError(t, err)
}

func TestInferThenNavigate(t *testing.T) {
	f := setup(t)
	t.Setenv("HOME", f.dir)

	out := execute(t, "infer", f.flowlines)
	assert.Contains(t, string(out), "id: comid")
	assert.Contains(t, string(out), "toid: tocomid")

	schema := filepath.Join(f.dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schema, out, 0o644))

	var nav navigation
	require.NoError(t, json.Unmarshal(execute(t, "navigate", f.flowlines, "--schema", schema, "--start", "3", "--mode", "UM"), &nav))
	assert.Equal(t, []int64{1, 2, 3}, nav.Segments)
}

func TestExecute_FlagsDoNotLeak(t *testing.T) {
	f := setup(t)
	t.Setenv("HOME", f.dir)

	var first, second navigation
	require.NoError(t, json.Unmarshal(execute(t, "navigate", f.flowlines, "--start", "1", "--mode", "DM", "--distance", "5"), &first))
	assert.Equal(t, []int64{1, 2}, first.Segments)

	require.NoError(t, json.Unmarshal(execute(t, "navigate", f.flowlines, "--start", "3", "--mode", "UM"), &second))
	assert.Equal(t, int64(3), second.Start)
	assert.Equal(t, []int64{1, 2, 3}, second.Segments)
}
