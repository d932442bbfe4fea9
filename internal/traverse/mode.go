package traverse

import (
	"fmt"
	"strings"
)

// Direction is the sense of travel along flow links.
type Direction int

const (
	Upstream Direction = iota + 1
	Downstream
)

func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Mode is a navigation mode. The two-letter codes match the NLDI navigation
// service.
type Mode int

const (
	UpstreamTributaries Mode = iota + 1
	UpstreamMainstem
	DownstreamMainstem
	DownstreamDiversions
)

var modeNames = map[Mode][2]string{
	UpstreamTributaries:  {"UT", "upstream-tributaries"},
	UpstreamMainstem:     {"UM", "upstream-mainstem"},
	DownstreamMainstem:   {"DM", "downstream-mainstem"},
	DownstreamDiversions: {"DD", "downstream-diversions"},
}

// Code returns the two-letter code (UT, UM, DM, DD).
func (m Mode) Code() string {
	if n, ok := modeNames[m]; ok {
		return n[0]
	}
	return "??"
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n[1]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Direction returns the direction the mode travels in.
func (m Mode) Direction() Direction {
	switch m {
	case UpstreamTributaries, UpstreamMainstem:
		return Upstream
	default:
		return Downstream
	}
}

// ParseMode accepts a two-letter code or a long name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for m, n := range modeNames {
		if strings.EqualFold(s, n[0]) || strings.EqualFold(s, n[1]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown navigation mode %q (want UT, UM, DM or DD)", s)
}

// Modes lists every navigation mode in a fixed order.
func Modes() []Mode {
	return []Mode{UpstreamTributaries, UpstreamMainstem, DownstreamMainstem, DownstreamDiversions}
}
