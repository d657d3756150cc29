// Package refine replaces every face of a polygon mesh with one
// quadrilateral per corner. The quads meet at a face-point (the face
// barycenter) and at edge-points shared by the faces on both sides of each
// edge.
//
// Refinement runs as a fixed sequence of phases. Each phase consumes the
// completed result of the one before it, so quads are only assembled from a
// fully accumulated edge registry and edge-points are only normalized after
// every contribution has been recorded.
package refine

import (
	"fmt"

	"github.com/chazu/quadsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type options struct {
	requireNormals bool
}

// Option configures a refinement run.
type Option func(*options)

// WithRequireNormals controls whether the input must carry valid per-vertex
// normals. Enabled by default.
func WithRequireNormals(require bool) Option {
	return func(o *options) {
		o.requireNormals = require
	}
}

// Result is the output of a refinement run.
type Result struct {
	Mesh *mesh.Mesh

	// Carried is the number of input vertices copied to the output. They
	// keep their input indices.
	Carried int

	// FacePoints maps input faces to their face-point vertex.
	FacePoints *FaceRegistry

	// EdgePoints maps input edges to their edge-point vertex. It is
	// normalized by the time Run returns.
	EdgePoints *EdgeRegistry
}

// Refine runs a refinement and returns only the output mesh.
func Refine(src *mesh.Mesh, opts ...Option) (*mesh.Mesh, error) {
	res, err := Run(src, opts...)
	if err != nil {
		return nil, err
	}
	return res.Mesh, nil
}

// Run refines src into a new mesh. The source mesh is never mutated.
func Run(src *mesh.Mesh, opts ...Option) (*Result, error) {
	o := options{requireNormals: true}
	for _, opt := range opts {
		opt(&o)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrPrecondition)
	}
	if err := checkPreconditions(src, o); err != nil {
		return nil, err
	}

	out := &mesh.Mesh{
		Name:     src.Name,
		Vertices: make([]v3.Vec, 0, src.VertexCount()+src.FaceCount()+src.CornerCount()),
		Faces:    make([]mesh.Face, 0, src.CornerCount()),
	}

	carried := carryVertices(src, out)
	faces := generateFacePoints(src, out)
	edges := accumulateEdgePoints(src, out)
	if err := assembleQuads(src, out, faces, edges); err != nil {
		return nil, err
	}
	edges.Normalize(out)

	return &Result{
		Mesh:       out,
		Carried:    carried,
		FacePoints: faces,
		EdgePoints: edges,
	}, nil
}

func checkPreconditions(src *mesh.Mesh, o options) error {
	for _, e := range src.Validate() {
		if e.Severity == mesh.SeverityError {
			return fmt.Errorf("%w: %v", ErrPrecondition, e)
		}
	}
	if o.requireNormals {
		if err := src.RequireNormals(); err != nil {
			return fmt.Errorf("%w: %w", ErrPrecondition, err)
		}
	}
	return nil
}

// carryVertices copies every input vertex to the output unchanged, so input
// vertex i is output vertex i.
func carryVertices(src, out *mesh.Mesh) int {
	for _, p := range src.Vertices {
		out.AddVertex(p)
	}
	return len(src.Vertices)
}

// generateFacePoints appends one barycenter vertex per input face, in face
// order.
func generateFacePoints(src, out *mesh.Mesh) *FaceRegistry {
	r := &FaceRegistry{index: make([]int, len(src.Faces))}
	for fi, f := range src.Faces {
		r.index[fi] = out.AddVertex(src.PolyBarycenter(f))
	}
	return r
}

// accumulateEdgePoints visits every corner of every face once and records
// the contribution of that corner to the edge leaving it. Interior edges are
// visited from both incident faces, boundary edges from one.
//
// A visit from corner i adds 6*mid(V(i),V(i+1)) + P(V(i+2)) + P(V(i)),
// which is where the weight of 8 per visit comes from.
func accumulateEdgePoints(src, out *mesh.Mesh) *EdgeRegistry {
	r := newEdgeRegistry(src.CornerCount() / 2)
	for _, f := range src.Faces {
		for i := range f {
			key := MakeEdgeKey(f.V0(i), f.V1(i))
			mid := src.Midpoint(f.V0(i), f.V1(i))
			r.accumulate(out, key, mid, src.P(f.V2(i)), src.P(f.V(i)))
		}
	}
	return r
}

// assembleQuads emits one quad per corner: the carried corner vertex, the
// edge-point of the outgoing edge, the face-point and the edge-point of the
// incoming edge. The winding follows the source face.
func assembleQuads(src, out *mesh.Mesh, faces *FaceRegistry, edges *EdgeRegistry) error {
	for fi, f := range src.Faces {
		fp, ok := faces.Lookup(fi)
		if !ok {
			return fmt.Errorf("%w: face %d has no face-point", ErrTopology, fi)
		}
		for i := range f {
			outKey := MakeEdgeKey(f.V(i), f.V(i+1))
			next, ok := edges.Lookup(outKey)
			if !ok {
				return &TopologyError{Face: fi, Corner: i, Key: outKey}
			}
			inKey := MakeEdgeKey(f.V(i-1), f.V(i))
			prev, ok := edges.Lookup(inKey)
			if !ok {
				return &TopologyError{Face: fi, Corner: i, Key: inKey}
			}
			out.AddQuadFace(f.V(i), next.Index, fp, prev.Index)
		}
	}
	return nil
}
