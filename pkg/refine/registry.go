package refine

import (
	"github.com/chazu/quadsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// WeightIncrement is added to an edge-point's weight on every corner visit.
// It matches the six midpoint copies plus the two corner vertices
// contributed per visit.
const WeightIncrement = 8

// midpointWeight is the multiplier applied to the edge midpoint per visit.
const midpointWeight = 6

// EdgePoint is the registry record for one input edge.
type EdgePoint struct {
	Key    EdgeKey
	Index  int // output vertex index
	Weight int // accumulated weight, WeightIncrement per visit
}

// Visits returns how many corner visits contributed to the point.
func (p EdgePoint) Visits() int {
	return p.Weight / WeightIncrement
}

// EdgeRegistry maps edge keys to the output vertex synthesized for that edge.
// Entries are created on first visit and never removed. The registry also
// holds the per-point weights; they are scratch state that has no meaning
// once the points are normalized.
type EdgeRegistry struct {
	slots      map[EdgeKey]int
	points     []EdgePoint
	normalized bool
}

func newEdgeRegistry(sizeHint int) *EdgeRegistry {
	return &EdgeRegistry{
		slots:  make(map[EdgeKey]int, sizeHint),
		points: make([]EdgePoint, 0, sizeHint),
	}
}

// Lookup returns the edge-point registered for key.
func (r *EdgeRegistry) Lookup(key EdgeKey) (EdgePoint, bool) {
	slot, ok := r.slots[key]
	if !ok {
		return EdgePoint{}, false
	}
	return r.points[slot], true
}

// Len returns the number of distinct edges registered.
func (r *EdgeRegistry) Len() int {
	return len(r.points)
}

// Points returns the registered edge-points in creation order.
func (r *EdgeRegistry) Points() []EdgePoint {
	return append([]EdgePoint(nil), r.points...)
}

// Normalized reports whether Normalize has already run.
func (r *EdgeRegistry) Normalized() bool {
	return r.normalized
}

// accumulate records one corner visit for key: the scaled edge midpoint
// (which creates the output vertex on a miss) plus the extra corner
// positions, and bumps the weight by WeightIncrement.
func (r *EdgeRegistry) accumulate(out *mesh.Mesh, key EdgeKey, mid v3.Vec, extra ...v3.Vec) EdgePoint {
	scaled := mid.MulScalar(midpointWeight)
	slot, ok := r.slots[key]
	if !ok {
		slot = len(r.points)
		r.slots[key] = slot
		r.points = append(r.points, EdgePoint{Key: key, Index: out.AddVertex(scaled)})
	} else {
		idx := r.points[slot].Index
		out.Vertices[idx] = out.Vertices[idx].Add(scaled)
	}
	p := &r.points[slot]
	for _, e := range extra {
		out.Vertices[p.Index] = out.Vertices[p.Index].Add(e)
	}
	p.Weight += WeightIncrement
	return *p
}

// Normalize divides every edge-point position by its weight. Points with a
// zero weight are left as they are. Only the first call has an effect.
func (r *EdgeRegistry) Normalize(out *mesh.Mesh) {
	if r.normalized {
		return
	}
	for _, p := range r.points {
		if p.Weight > 0 {
			out.Vertices[p.Index] = out.Vertices[p.Index].DivScalar(float64(p.Weight))
		}
	}
	r.normalized = true
}

// FaceRegistry maps input face indices to their face-point output vertex.
type FaceRegistry struct {
	index []int
}

// Lookup returns the output vertex of the face-point for input face f.
func (r *FaceRegistry) Lookup(f int) (int, bool) {
	if f < 0 || f >= len(r.index) {
		return 0, false
	}
	return r.index[f], true
}

// Len returns the number of registered faces.
func (r *FaceRegistry) Len() int {
	return len(r.index)
}
