package ingest

import (
	"github.com/agentic-research/hydronet/internal/join"
	"github.com/agentic-research/hydronet/internal/network"
	"github.com/agentic-research/hydronet/internal/traverse"
)

// Walker selects flat records out of a decoded document. Each record is
// one segment or one point, keyed by field name.
type Walker interface {
	Records(root any, selector string) ([]map[string]any, error)
}

// ResultSink receives the products of one run.
type ResultSink interface {
	WriteSegments(n *network.Network) error
	WritePathLengths(lengths map[int64]float64) error
	WriteTraversal(r *traverse.Result) error
	WriteTable(name string, t *join.Table) error
	Close() error
}
