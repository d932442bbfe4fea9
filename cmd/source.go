package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentic-research/hydronet/api"
	"github.com/agentic-research/hydronet/internal/ingest"
	"github.com/agentic-research/hydronet/internal/log"
	"github.com/agentic-research/hydronet/internal/network"
	"github.com/agentic-research/hydronet/internal/output"
	"github.com/agentic-research/hydronet/internal/traverse"
)

// sourceSchema picks the schema for path. A database written by build is
// read with the stored layout unless a schema was given explicitly.
func sourceSchema(path string) (*api.Schema, error) {
	var schema *api.Schema
	if cfg.Schema != "" {
		s, err := ingest.LoadSchema(cfg.Schema)
		if err != nil {
			return nil, err
		}
		schema = s
	} else {
		schema = api.DefaultSchema()
	}
	if cfg.Schema == "" && isDB(path) && ingest.IsResultDB(path) {
		log.Debugw("reading stored network", "path", path)
		return ingest.StoredSchema(schema.Points), nil
	}
	return schema, nil
}

func isDB(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func buildOptions() []network.BuildOption {
	var opts []network.BuildOption
	if cfg.AllowBoundary {
		opts = append(opts, network.WithAllowBoundary())
	}
	if len(exitIDs) > 0 {
		opts = append(opts, network.WithBoundaryExits(exitIDs...))
	}
	return opts
}

// loadNetwork reads and validates the network in path.
func loadNetwork(path string) (*network.Network, error) {
	schema, err := sourceSchema(path)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	n, err := ingest.NewEngine(schema, buildOptions()...).LoadNetwork(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	log.Infow("network loaded",
		"path", path,
		"segments", n.Len(),
		"outlets", len(n.Outlets()),
		"boundary_exits", len(n.BoundaryExits()),
		"elapsed", time.Since(start))
	return n, nil
}

func traverseOptions() ([]traverse.Option, error) {
	p, err := traverse.PolicyByName(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return []traverse.Option{traverse.WithMainstemPolicy(p), traverse.WithWorkers(cfg.Workers)}, nil
}

func write(w io.Writer, data any) error {
	f, err := output.NewFormatter(cfg.Format)
	if err != nil {
		return err
	}
	return f.Write(w, data)
}
