package network

// Divergence classifies a segment's position at a flow split, following the
// NHDPlus DIVERGENCE attribute.
type Divergence int

const (
	// NoDivergence marks a segment that is not part of a split.
	NoDivergence Divergence = 0
	// MainPath marks the primary branch leaving a divergence.
	MainPath Divergence = 1
	// MinorPath marks a diversion branch leaving a divergence.
	MinorPath Divergence = 2
)

// IsDiversion reports whether the segment lies on a diversion branch.
func (d Divergence) IsDiversion() bool { return d == MinorPath }

func (d Divergence) String() string {
	switch d {
	case NoDivergence:
		return "none"
	case MainPath:
		return "main"
	case MinorPath:
		return "minor"
	default:
		return "unknown"
	}
}

// Segment is one directed flowline. A ToID of 0 marks an outlet.
type Segment struct {
	ID          int64      `json:"id" msgpack:"id"`
	ToID        int64      `json:"toid" msgpack:"toid"`
	Length      float64    `json:"length" msgpack:"length"` // km
	Divergence  Divergence `json:"divergence" msgpack:"divergence"`
	StreamOrder int        `json:"stream_order" msgpack:"stream_order"`
	Area        float64    `json:"area" msgpack:"area"` // upstream catchment area, km²

	// DivertTo lists additional downstream targets when flow splits at the
	// bottom of this segment. The primary target is always ToID.
	DivertTo []int64 `json:"divert_to,omitempty" msgpack:"divert_to,omitempty"`
}

// IsOutlet reports whether the segment has no downstream target at all.
func (s *Segment) IsOutlet() bool { return s.ToID == 0 }
