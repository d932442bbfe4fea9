package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/agentic-research/hydronet/internal/log"
	"github.com/agentic-research/hydronet/internal/network"
	"github.com/agentic-research/hydronet/internal/pathlen"
	"github.com/agentic-research/hydronet/internal/traverse"
)

const serverVersion = "0.1.0"

// loaded is one network generation. Path lengths are computed on first use
// and shared by later calls against the same generation.
type loaded struct {
	net *network.Network

	once    sync.Once
	lengths map[int64]float64
	err     error
}

func (l *loaded) pathLengths() (map[int64]float64, error) {
	l.once.Do(func() {
		l.lengths, l.err = pathlen.ComputePathLengths(l.net)
	})
	return l.lengths, l.err
}

// toolServer answers MCP tool calls against the current network. reload
// swaps in a freshly loaded source without interrupting calls in flight.
type toolServer struct {
	source string
	opts   []traverse.Option

	mu      sync.RWMutex
	current *loaded
}

func newToolServer(source string, n *network.Network, opts []traverse.Option) *toolServer {
	return &toolServer{source: source, opts: opts, current: &loaded{net: n}}
}

func (ts *toolServer) state() *loaded {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.current
}

// swap replaces the current network. Calls holding the old generation finish
// against it.
func (ts *toolServer) swap(n *network.Network) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.current = &loaded{net: n}
}

func (ts *toolServer) register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("navigate",
		mcp.WithDescription("Trace the flow network from a start segment and list the segments reached."),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Start segment identifier (COMID)")),
		mcp.WithString("mode", mcp.Description("UT, UM, DM or DD"), mcp.Enum(modeList()...)),
		mcp.WithNumber("distance", mcp.Description("Distance cutoff in km")),
		mcp.WithBoolean("distances", mcp.Description("Include the cumulative distance of every segment")),
	), ts.handleNavigate)

	s.AddTool(mcp.NewTool("pathlength",
		mcp.WithDescription("Distance in km from a segment to its outlet. Without an id, summary statistics for the whole network."),
		mcp.WithNumber("id", mcp.Description("Segment identifier")),
	), ts.handlePathLength)

	s.AddTool(mcp.NewTool("inspect",
		mcp.WithDescription("Summarise the loaded flow network: segments, outlets, components and total length."),
	), ts.handleInspect)

	s.AddTool(mcp.NewTool("reload",
		mcp.WithDescription("Re-read the network source, picking up edits made since the server started."),
	), ts.handleReload)
}

func (ts *toolServer) handleNavigate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startArg, err := req.RequireFloat("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := segmentID(startArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := traverse.ParseMode(req.GetString("mode", "UT"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := ts.opts
	if d := req.GetFloat("distance", math.Inf(1)); !math.IsInf(d, 1) {
		opts = append(opts[:len(opts):len(opts)], traverse.WithMaxDistance(d))
	}

	r, err := traverse.Navigate(ts.state().net, start, mode, opts...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debugw("mcp navigate", "start", start, "mode", mode.Code(), "segments", r.Len())
	return jsonResult(newNavigation(r, req.GetBool("distances", false)))
}

func (ts *toolServer) handlePathLength(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lengths, err := ts.state().pathLengths()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idArg := req.GetFloat("id", 0)
	if idArg == 0 {
		return jsonResult(pathlen.Summarize(lengths))
	}
	id, err := segmentID(idArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, ok := lengths[id]
	if !ok {
		return mcp.NewToolResultError((&network.UnknownSegmentError{ID: id}).Error()), nil
	}
	return jsonResult(map[string]any{"id": id, "pathlength": d})
}

func (ts *toolServer) handleInspect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(inspectNetwork(ts.state().net, false))
}

func (ts *toolServer) handleReload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := loadNetwork(ts.source)
	if err != nil {
		log.Warnw("reload failed, keeping current network", "source", ts.source, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	prev := ts.state().net.Len()
	ts.swap(n)
	log.Infow("reloaded network", "source", ts.source, "segments", n.Len(), "previous", prev)
	return jsonResult(map[string]any{"source": ts.source, "segments": n.Len(), "previous": prev})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

// segmentID converts a JSON number argument to an identifier.
func segmentID(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("%v is not a segment identifier", f)
	}
	return int64(f), nil
}

func modeList() []string {
	var out []string
	for _, m := range traverse.Modes() {
		out = append(out, m.Code())
	}
	return out
}

var serveCmd = &cobra.Command{
	Use:   "serve [source]",
	Short: "Serve navigation and path-length tools over MCP stdio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := loadNetwork(args[0])
		if err != nil {
			return err
		}
		opts, err := traverseOptions()
		if err != nil {
			return err
		}

		s := server.NewMCPServer("hydronet", serverVersion, server.WithToolCapabilities(false))
		ts := newToolServer(args[0], n, opts)
		ts.register(s)

		log.Infow("serving MCP on stdio", "source", args[0], "segments", n.Len())
		if err := server.ServeStdio(s); err != nil {
			log.Errorw("MCP server stopped", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
