package network

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownSegment   = errors.New("unknown segment")
	ErrMalformedNetwork = errors.New("malformed network")
	ErrCyclicNetwork    = errors.New("cyclic network")
)

// UnknownSegmentError is returned when a query names a segment that is not
// part of the network.
type UnknownSegmentError struct {
	ID int64
}

func (e *UnknownSegmentError) Error() string {
	return fmt.Sprintf("unknown segment %d", e.ID)
}

func (e *UnknownSegmentError) Is(target error) bool { return target == ErrUnknownSegment }

// Problem is a single topology fault found while building a network.
type Problem struct {
	ID     int64  // offending segment
	Target int64  // referenced segment, 0 if not applicable
	Reason string // short description
}

func (p Problem) String() string {
	if p.Target != 0 {
		return fmt.Sprintf("segment %d -> %d: %s", p.ID, p.Target, p.Reason)
	}
	return fmt.Sprintf("segment %d: %s", p.ID, p.Reason)
}

// MalformedNetworkError collects every topology fault found by BuildNetwork.
type MalformedNetworkError struct {
	Problems []Problem
}

func (e *MalformedNetworkError) Error() string {
	const maxShown = 5
	var b strings.Builder
	fmt.Fprintf(&b, "malformed network: %d problem(s)", len(e.Problems))
	for i, p := range e.Problems {
		if i == maxShown {
			fmt.Fprintf(&b, "; and %d more", len(e.Problems)-maxShown)
			break
		}
		b.WriteString("; ")
		b.WriteString(p.String())
	}
	return b.String()
}

func (e *MalformedNetworkError) Is(target error) bool { return target == ErrMalformedNetwork }

// CyclicNetworkError reports a loop along downstream links. Cycle lists the
// members in the order they were walked.
type CyclicNetworkError struct {
	Cycle []int64
}

func (e *CyclicNetworkError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("cyclic network: %s", strings.Join(parts, " -> "))
}

func (e *CyclicNetworkError) Is(target error) bool { return target == ErrCyclicNetwork }
