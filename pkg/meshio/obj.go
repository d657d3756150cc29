package meshio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/quadsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

// ReadOBJ decodes a Wavefront OBJ file. Only v, vn, f and o records are
// used; texture coordinates, groups and materials are skipped. Face corners
// may be written i, i/t, i/t/n or i//n, and negative indices count back
// from the last vertex read so far.
//
// OBJ normals are per corner. They become per-vertex normals when every
// vertex is given one by some corner; otherwise the mesh has no normals.
func ReadOBJ(r io.Reader) (*mesh.Mesh, error) {
	lr := newLineReader(r)
	m := mesh.New()
	var normals []v3.Vec
	var assigned []int // normal index per vertex, -1 when unset

	for {
		fields, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch fields[0] {
		case "v":
			p, err := parseVec(fields[1:])
			if err != nil {
				return nil, malformed("obj", lr.line, "vertex: %v", err)
			}
			m.AddVertex(p)
			assigned = append(assigned, -1)
		case "vn":
			n, err := parseVec(fields[1:])
			if err != nil {
				return nil, malformed("obj", lr.line, "normal: %v", err)
			}
			normals = append(normals, n)
		case "f":
			if len(fields) < 4 {
				return nil, malformed("obj", lr.line, "face needs at least 3 corners, got %d", len(fields)-1)
			}
			f := make(mesh.Face, len(fields)-1)
			for c, tok := range fields[1:] {
				v, n, err := parseCorner(tok, len(m.Vertices), len(normals))
				if err != nil {
					return nil, malformed("obj", lr.line, "corner %q: %v", tok, err)
				}
				f[c] = v
				if n >= 0 {
					assigned[v] = n
				}
			}
			m.Faces = append(m.Faces, f)
		case "o":
			if m.Name == "" && len(fields) > 1 {
				m.Name = strings.Join(fields[1:], " ")
			}
		}
	}

	if len(normals) > 0 && len(assigned) > 0 {
		m.Normals = make([]v3.Vec, len(assigned))
		for v, n := range assigned {
			if n < 0 {
				m.Normals = nil
				break
			}
			m.Normals[v] = normals[n]
		}
	}
	return m, nil
}

func parseVec(fields []string) (v3.Vec, error) {
	if len(fields) < 3 {
		return v3.Vec{}, errors.Errorf("want 3 coordinates, got %d", len(fields))
	}
	xs, err := parseFloats(fields[:3])
	if err != nil {
		return v3.Vec{}, err
	}
	return v3.Vec{X: xs[0], Y: xs[1], Z: xs[2]}, nil
}

// parseCorner resolves one face corner to a zero-based vertex index and
// normal index. The normal index is -1 when the corner names none.
func parseCorner(tok string, nv, nn int) (v, n int, err error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return 0, 0, errors.New("too many '/' separators")
	}
	v, err = resolveIndex(parts[0], nv)
	if err != nil {
		return 0, 0, errors.Wrap(err, "vertex")
	}
	n = -1
	if len(parts) == 3 && parts[2] != "" {
		n, err = resolveIndex(parts[2], nn)
		if err != nil {
			return 0, 0, errors.Wrap(err, "normal")
		}
	}
	return v, n, nil
}

// resolveIndex turns a one-based or negative OBJ index into a zero-based
// index into a list of length count.
func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	}
	return 0, errors.Errorf("index %d out of range (have %d)", i, count)
}

// WriteOBJ encodes m as OBJ with one-based indices. With per-vertex normals
// each vertex gets a vn record of the same index and corners are written
// i//i.
func WriteOBJ(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	if m.Name != "" {
		bw.WriteString("o ")
		bw.WriteString(m.Name)
		bw.WriteByte('\n')
	}
	for _, p := range m.Vertices {
		bw.WriteString("v ")
		writeVec(bw, p)
		bw.WriteByte('\n')
	}
	normals := m.HasNormals()
	if normals {
		for _, n := range m.Normals {
			bw.WriteString("vn ")
			writeVec(bw, n)
			bw.WriteByte('\n')
		}
	}
	for _, f := range m.Faces {
		bw.WriteByte('f')
		for _, v := range f {
			idx := strconv.Itoa(v + 1)
			bw.WriteByte(' ')
			bw.WriteString(idx)
			if normals {
				bw.WriteString("//")
				bw.WriteString(idx)
			}
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "meshio: obj")
}
