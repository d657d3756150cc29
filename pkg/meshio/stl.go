package meshio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/chazu/quadsplit/pkg/mesh"
	"github.com/deadsy/sdfx/render"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// ReadSTL decodes an ASCII or binary STL file into a triangle soup with
// three vertices per facet. Facet normals are discarded. A file whose size
// matches the binary layout exactly is read as binary even when its header
// starts with "solid", which some exporters write.
func ReadSTL(r io.Reader) (*mesh.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "meshio: stl")
	}
	if isBinarySTL(data) {
		return readBinarySTL(data)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return readASCIISTL(bytes.NewReader(data))
	}
	if len(data) < stlHeaderSize+4 {
		return nil, malformed("stl", 1, "file too short (%d bytes)", len(data))
	}
	return nil, malformed("stl", 1, "size %d does not match the triangle count in the header", len(data))
}

func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return int64(len(data)) == stlHeaderSize+4+int64(n)*stlTriangleSize
}

func readBinarySTL(data []byte) (*mesh.Mesh, error) {
	n := int(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
	m := mesh.New()
	if name := strings.TrimSpace(strings.TrimRight(string(data[:stlHeaderSize]), "\x00")); !strings.HasPrefix(name, "solid") {
		m.Name = name
	}
	m.Vertices = make([]v3.Vec, 0, 3*n)
	m.Faces = make([]mesh.Face, 0, n)

	off := stlHeaderSize + 4
	for i := 0; i < n; i++ {
		rec := data[off : off+stlTriangleSize]
		base := len(m.Vertices)
		// Skip the 12-byte facet normal; three vertices follow.
		for c := 0; c < 3; c++ {
			m.AddVertex(readVec32(rec[12+12*c:]))
		}
		m.Faces = append(m.Faces, mesh.Face{base, base + 1, base + 2})
		off += stlTriangleSize
	}
	return m, nil
}

func readVec32(b []byte) v3.Vec {
	f := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
	}
	return v3.Vec{X: f(0), Y: f(1), Z: f(2)}
}

// readASCIISTL reads "solid ... facet ... outer loop ... vertex x y z ...
// endloop endfacet ... endsolid". Loops with more than three vertices are
// kept as polygons.
func readASCIISTL(r io.Reader) (*mesh.Mesh, error) {
	lr := newLineReader(r)
	m := mesh.New()
	var loop []int
	inFacet := false

	for {
		fields, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(fields[0]) {
		case "solid":
			if m.Name == "" && len(fields) > 1 {
				m.Name = strings.Join(fields[1:], " ")
			}
		case "facet":
			if inFacet {
				return nil, malformed("stl", lr.line, "facet inside facet")
			}
			inFacet = true
			loop = loop[:0]
		case "vertex":
			if !inFacet {
				return nil, malformed("stl", lr.line, "vertex outside facet")
			}
			p, err := parseVec(fields[1:])
			if err != nil {
				return nil, malformed("stl", lr.line, "vertex: %v", err)
			}
			loop = append(loop, m.AddVertex(p))
		case "endfacet":
			if !inFacet {
				return nil, malformed("stl", lr.line, "endfacet without facet")
			}
			if len(loop) < 3 {
				return nil, malformed("stl", lr.line, "facet has %d vertices", len(loop))
			}
			m.AddFace(loop...)
			inFacet = false
		case "outer", "endloop", "endsolid":
		default:
			return nil, malformed("stl", lr.line, "unexpected keyword %q", fields[0])
		}
	}
	if inFacet {
		return nil, malformed("stl", lr.line, "unterminated facet")
	}
	return m, nil
}

// SaveSTL writes m to path as binary STL, fan-triangulating polygons.
func SaveSTL(path string, m *mesh.Mesh) error {
	if err := render.SaveSTL(path, m.Triangles()); err != nil {
		return errors.Wrapf(err, "meshio: stl: %s", path)
	}
	return nil
}
