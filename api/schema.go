package api

// Schema describes where segments and point features live in a source and
// how their fields map onto network attributes.
type Schema struct {
	// Version of the hydronet schema.
	Version string `json:"version" yaml:"version"`
	// Segments locates the flowline table.
	Segments SegmentSource `json:"segments" yaml:"segments"`
	// Points locates the point-feature (gage) table.
	Points PointSource `json:"points" yaml:"points"`
}

// SegmentSource selects flowline records.
type SegmentSource struct {
	// Selector is a JSONPath query selecting one object per segment in JSON sources.
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
	// Table is the table holding segments in SQLite sources.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// Fields maps record fields onto segment attributes.
	Fields SegmentFields `json:"fields" yaml:"fields"`
}

// SegmentFields names the record field holding each segment attribute.
// Empty names mean the attribute is absent and takes its zero value.
type SegmentFields struct {
	ID          string `json:"id" yaml:"id"`
	ToID        string `json:"toid" yaml:"toid"`
	Length      string `json:"length,omitempty" yaml:"length,omitempty"`
	Divergence  string `json:"divergence,omitempty" yaml:"divergence,omitempty"`
	StreamOrder string `json:"stream_order,omitempty" yaml:"stream_order,omitempty"`
	Area        string `json:"area,omitempty" yaml:"area,omitempty"`
	// DivertTo holds a list (or comma separated string) of diversion targets.
	DivertTo string `json:"divert_to,omitempty" yaml:"divert_to,omitempty"`
}

// PointSource selects point-feature records, each already snapped to a segment.
type PointSource struct {
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
	Table    string `json:"table,omitempty" yaml:"table,omitempty"`
	// ID is the point identifier field (e.g. a gage site number).
	ID string `json:"id" yaml:"id"`
	// SegmentID is the field holding the snapped segment identifier.
	SegmentID string `json:"segment_id" yaml:"segment_id"`
}

// DefaultSchema matches NHDPlus value-added attribute names inside a GeoJSON
// FeatureCollection, which is what NLDI and most hydrography services return.
func DefaultSchema() *Schema {
	return &Schema{
		Version: "v1",
		Segments: SegmentSource{
			Selector: "$.features[*].properties",
			Table:    "flowlines",
			Fields: SegmentFields{
				ID:          "comid",
				ToID:        "tocomid",
				Length:      "lengthkm",
				Divergence:  "divergence",
				StreamOrder: "streamorde",
				Area:        "totdasqkm",
				DivertTo:    "divertto",
			},
		},
		Points: PointSource{
			Selector:  "$.features[*].properties",
			Table:     "gages",
			ID:        "identifier",
			SegmentID: "comid",
		},
	}
}
