package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/hydronet/api"
	"github.com/agentic-research/hydronet/internal/join"
	"github.com/agentic-research/hydronet/internal/network"
)

// Engine reads segments and point features from a source file according to
// a Schema.
type Engine struct {
	Schema *api.Schema

	// BuildOptions are passed to network.BuildNetwork by LoadNetwork.
	BuildOptions []network.BuildOption
}

func NewEngine(schema *api.Schema, opts ...network.BuildOption) *Engine {
	if schema == nil {
		schema = api.DefaultSchema()
	}
	return &Engine{
		Schema:       schema,
		BuildOptions: opts,
	}
}

// LoadNetwork loads segments from path and builds the network.
func (e *Engine) LoadNetwork(path string) (*network.Network, error) {
	segs, err := e.LoadSegments(path)
	if err != nil {
		return nil, err
	}
	return network.BuildNetwork(segs, e.BuildOptions...)
}

// LoadSegments reads every segment record in path.
func (e *Engine) LoadSegments(path string) ([]network.Segment, error) {
	src := e.Schema.Segments
	recs, err := e.records(path, src.Selector, src.Table)
	if err != nil {
		return nil, err
	}
	segs := make([]network.Segment, 0, len(recs))
	for i, rec := range recs {
		s, err := segmentFromRecord(rec, src.Fields)
		if err != nil {
			return nil, fmt.Errorf("%s: segment %d: %w", path, i, err)
		}
		segs = append(segs, s)
	}
	return segs, nil
}

// LoadPoints reads point features from path into a table with a normalised
// segment_id column.
func (e *Engine) LoadPoints(path string) (*join.Table, error) {
	src := e.Schema.Points
	recs, err := e.records(path, src.Selector, src.Table)
	if err != nil {
		return nil, err
	}
	t, err := pointTable(recs, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (e *Engine) records(path, selector, table string) ([]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".geojson":
		if selector == "" {
			return nil, fmt.Errorf("schema has no selector for %s", path)
		}
		return ReadJSONRecords(path, selector)
	case ".db", ".sqlite", ".sqlite3":
		if table == "" {
			return nil, fmt.Errorf("schema has no table for %s", path)
		}
		return LoadTable(path, table)
	default:
		return nil, fmt.Errorf("unsupported source %s", path)
	}
}

// ReadJSONRecords decodes the JSON document in path and returns the objects
// matched by selector.
func ReadJSONRecords(path, selector string) ([]map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := oj.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse json %s: %w", path, err)
	}
	return NewJsonWalker().Records(data, selector)
}

// LoadSchema reads a schema from a JSON or YAML file. Fields left out of the
// file keep their DefaultSchema values.
func LoadSchema(path string) (*api.Schema, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	schema := api.DefaultSchema()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, schema)
	default:
		err = json.Unmarshal(content, schema)
	}
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if schema.Segments.Fields.ID == "" {
		return nil, fmt.Errorf("schema %s: segments.fields.id is required", path)
	}
	return schema, nil
}
