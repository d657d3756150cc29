package refine

import (
	"errors"
	"fmt"
)

// ErrPrecondition is returned when the input mesh is rejected before any
// refinement phase runs: missing or invalid normals, or structural
// validation errors.
var ErrPrecondition = errors.New("refine: precondition failed")

// ErrTopology signals that quad assembly could not find an edge-point that
// accumulation should have registered. It indicates a bug in edge keying,
// not bad input.
var ErrTopology = errors.New("refine: topology inconsistency")

// TopologyError identifies the face corner whose edge lookup failed.
type TopologyError struct {
	Face   int
	Corner int
	Key    EdgeKey
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("refine: face %d corner %d: no edge-point for edge %s", e.Face, e.Corner, e.Key)
}

// Unwrap lets errors.Is match ErrTopology.
func (e *TopologyError) Unwrap() error {
	return ErrTopology
}
