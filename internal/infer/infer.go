// Package infer guesses a flowline field mapping from a sample of records.
package infer

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/agentic-research/hydronet/api"
	"github.com/agentic-research/hydronet/internal/ingest"
)

// InferConfig controls the schema inference pipeline.
type InferConfig struct {
	SampleSize int   // max records to sample (default 1000)
	Seed       int64 // random seed for reservoir sampling (0 = deterministic)
}

// DefaultInferConfig returns sensible defaults.
func DefaultInferConfig() InferConfig {
	return InferConfig{SampleSize: 1000}
}

// Inferrer maps record fields onto segment attributes, first by the names
// hydrography products use and then by the shape of the values.
type Inferrer struct {
	Config InferConfig
}

// aliases lists known field names per attribute, most specific first.
// Matching ignores case.
var aliases = struct {
	id, toID, length, divergence, order, area, divertTo []string
}{
	id:         []string{"comid", "nhdplusid", "featureid", "segment_id", "id"},
	toID:       []string{"tocomid", "tonhdplusid", "tonhdpid", "toid", "to_id", "ds_comid"},
	length:     []string{"lengthkm", "length_km", "lengthkm_", "length"},
	divergence: []string{"divergence", "divergenc", "divdasqkm_flag"},
	order:      []string{"streamorde", "streamorder", "stream_order", "strahler", "order"},
	area:       []string{"totdasqkm", "totda", "drainage_area", "areasqkm", "area"},
	divertTo:   []string{"divertto", "divert_to", "diversions"},
}

// InferFromRecords returns the field mapping for records. It fails when no
// identifier field can be found.
func (inf *Inferrer) InferFromRecords(records []map[string]any) (api.SegmentFields, error) {
	var f api.SegmentFields
	if len(records) == 0 {
		return f, fmt.Errorf("no records to infer from")
	}

	sampled := records
	if len(records) > inf.Config.SampleSize && inf.Config.SampleSize > 0 {
		sampled = reservoirSample(records, inf.Config.SampleSize, inf.Config.Seed)
	}
	stats := AnalyzeFields(sampled)
	taken := make(map[string]bool)

	pick := func(names []string, ok func(*FieldStats) bool) string {
		field := byAlias(stats, names, ok, taken)
		if field != "" {
			taken[field] = true
		}
		return field
	}

	f.ID = pick(aliases.id, isIdentifier)
	if f.ID == "" {
		f.ID = byShape(stats, taken, func(name string, fs *FieldStats) bool {
			return isIdentifier(fs) && fs.Count == len(sampled) && strings.Contains(strings.ToLower(name), "id")
		})
		taken[f.ID] = true
	}
	if f.ID == "" {
		return f, fmt.Errorf("no unique integer field among %d sampled records", len(sampled))
	}

	f.ToID = pick(aliases.toID, isReference)
	if f.ToID == "" {
		f.ToID = byShape(stats, taken, func(name string, fs *FieldStats) bool {
			n := strings.ToLower(name)
			return isReference(fs) && (strings.HasPrefix(n, "to") || strings.HasPrefix(n, "ds"))
		})
		taken[f.ToID] = true
	}
	f.Length = pick(aliases.length, isMeasure)
	f.Divergence = pick(aliases.divergence, isDivergence)
	f.StreamOrder = pick(aliases.order, isOrder)
	f.Area = pick(aliases.area, isMeasure)
	f.DivertTo = pick(aliases.divertTo, func(fs *FieldStats) bool { return true })
	return f, nil
}

// InferFromJSON samples the objects selector matches in a JSON document.
func (inf *Inferrer) InferFromJSON(path, selector string) (*api.Schema, error) {
	recs, err := ingest.ReadJSONRecords(path, selector)
	if err != nil {
		return nil, err
	}
	fields, err := inf.InferFromRecords(recs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	schema := api.DefaultSchema()
	schema.Segments.Selector = selector
	schema.Segments.Fields = fields
	return schema, nil
}

// InferFromSQLite infers a schema by streaming rows from table.
// Uses reservoir sampling to keep memory bounded.
func (inf *Inferrer) InferFromSQLite(dbPath, table string) (*api.Schema, error) {
	sampleSize := inf.Config.SampleSize
	if sampleSize <= 0 {
		sampleSize = 1000
	}

	reservoir := make([]map[string]any, 0, sampleSize)
	rng := rand.New(rand.NewSource(inf.Config.Seed))
	count := 0

	err := ingest.StreamTable(dbPath, table, func(rec map[string]any) error {
		if count < sampleSize {
			reservoir = append(reservoir, rec)
		} else {
			j := rng.Intn(count + 1)
			if j < sampleSize {
				reservoir[j] = rec
			}
		}
		count++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sample sqlite: %w", err)
	}

	fields, err := inf.InferFromRecords(reservoir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dbPath, err)
	}
	schema := api.DefaultSchema()
	schema.Segments.Table = table
	schema.Segments.Fields = fields
	return schema, nil
}

// InferFromSource dispatches on the file extension. locator is the JSONPath
// selector for JSON sources and the table name for SQLite sources.
func (inf *Inferrer) InferFromSource(path, locator string) (*api.Schema, error) {
	def := api.DefaultSchema().Segments
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".geojson":
		if locator == "" {
			locator = def.Selector
		}
		return inf.InferFromJSON(path, locator)
	case ".db", ".sqlite", ".sqlite3":
		if locator == "" {
			locator = def.Table
		}
		return inf.InferFromSQLite(path, locator)
	default:
		return nil, fmt.Errorf("unsupported source %s", path)
	}
}

func isIdentifier(fs *FieldStats) bool {
	return fs.AllIntegral() && fs.Unique() && fs.Negative == 0 && fs.Zero == 0
}

// a downstream reference repeats at confluences and is null or 0 at outlets
func isReference(fs *FieldStats) bool {
	return fs.AllIntegral() && fs.Negative == 0
}

func isMeasure(fs *FieldStats) bool {
	return fs.AllNumeric() && fs.Negative == 0
}

func isDivergence(fs *FieldStats) bool {
	return fs.AllIntegral() && fs.Negative == 0 && fs.Cardinality <= 3
}

func isOrder(fs *FieldStats) bool {
	return fs.AllIntegral() && fs.Negative == 0 && fs.Cardinality <= 12
}

func byAlias(stats map[string]*FieldStats, names []string, ok func(*FieldStats) bool, taken map[string]bool) string {
	for _, want := range names {
		for _, field := range sortedKeys(stats) {
			if taken[field] || !strings.EqualFold(field, want) {
				continue
			}
			if ok(stats[field]) {
				return field
			}
		}
	}
	return ""
}

func byShape(stats map[string]*FieldStats, taken map[string]bool, ok func(string, *FieldStats) bool) string {
	for _, field := range sortedKeys(stats) {
		if !taken[field] && ok(field, stats[field]) {
			return field
		}
	}
	return ""
}

// reservoirSample performs reservoir sampling on a slice.
func reservoirSample(records []map[string]any, k int, seed int64) []map[string]any {
	if len(records) <= k {
		return records
	}
	rng := rand.New(rand.NewSource(seed))
	reservoir := make([]map[string]any, k)
	copy(reservoir, records[:k])
	for i := k; i < len(records); i++ {
		j := rng.Intn(i + 1)
		if j < k {
			reservoir[j] = records[i]
		}
	}
	return reservoir
}
