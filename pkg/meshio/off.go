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

// lineReader yields the significant lines of a text mesh file: comments
// after '#' stripped, blank lines skipped, line numbers tracked.
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &lineReader{sc: sc}
}

// next returns the fields of the next significant line, or io.EOF.
func (lr *lineReader) next() ([]string, error) {
	for lr.sc.Scan() {
		lr.line++
		text := lr.sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		if fields := strings.Fields(text); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, errors.Wrap(err, "meshio")
	}
	return nil, io.EOF
}

// maxPrealloc bounds the capacity reserved from element counts in a file
// header.
const maxPrealloc = 1 << 16

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// ReadOFF decodes an OFF file. The header may be OFF, NOFF, COFF or CNOFF;
// with N each vertex line carries a normal after its position, and colors
// are ignored.
func ReadOFF(r io.Reader) (*mesh.Mesh, error) {
	lr := newLineReader(r)

	fields, err := lr.next()
	if err == io.EOF {
		return nil, malformed("off", lr.line, "empty file")
	}
	if err != nil {
		return nil, err
	}
	header := strings.ToUpper(fields[0])
	if !strings.HasSuffix(header, "OFF") {
		return nil, malformed("off", lr.line, "bad header %q", fields[0])
	}
	prefix := strings.TrimSuffix(header, "OFF")
	if strings.Trim(prefix, "CN") != "" {
		return nil, malformed("off", lr.line, "unsupported header %q", fields[0])
	}
	hasNormals := strings.Contains(prefix, "N")

	counts := fields[1:]
	if len(counts) == 0 {
		if counts, err = lr.next(); err != nil {
			return nil, malformed("off", lr.line, "missing element counts")
		}
	}
	if len(counts) < 2 {
		return nil, malformed("off", lr.line, "want vertex and face counts, got %q", strings.Join(counts, " "))
	}
	nv, err1 := strconv.Atoi(counts[0])
	nf, err2 := strconv.Atoi(counts[1])
	if err1 != nil || err2 != nil || nv < 0 || nf < 0 {
		return nil, malformed("off", lr.line, "bad element counts %q", strings.Join(counts, " "))
	}

	// Header counts are untrusted; slices grow past this as lines arrive.
	prealloc := min(nv, maxPrealloc)
	m := mesh.New()
	m.Vertices = make([]v3.Vec, 0, prealloc)
	if hasNormals {
		m.Normals = make([]v3.Vec, 0, prealloc)
	}
	want := 3
	if hasNormals {
		want = 6
	}
	for i := 0; i < nv; i++ {
		fields, err := lr.next()
		if err != nil {
			return nil, malformed("off", lr.line, "expected %d vertices, got %d", nv, i)
		}
		if len(fields) < want {
			return nil, malformed("off", lr.line, "vertex %d: want %d values, got %d", i, want, len(fields))
		}
		xs, err := parseFloats(fields[:want])
		if err != nil {
			return nil, malformed("off", lr.line, "vertex %d: %v", i, err)
		}
		m.AddVertex(v3.Vec{X: xs[0], Y: xs[1], Z: xs[2]})
		if hasNormals {
			m.Normals = append(m.Normals, v3.Vec{X: xs[3], Y: xs[4], Z: xs[5]})
		}
	}

	for i := 0; i < nf; i++ {
		fields, err := lr.next()
		if err != nil {
			return nil, malformed("off", lr.line, "expected %d faces, got %d", nf, i)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 3 {
			return nil, malformed("off", lr.line, "face %d: bad corner count %q", i, fields[0])
		}
		if len(fields) < n+1 {
			return nil, malformed("off", lr.line, "face %d: want %d indices, got %d", i, n, len(fields)-1)
		}
		f := make(mesh.Face, n)
		for c := range f {
			v, err := strconv.Atoi(fields[c+1])
			if err != nil || v < 0 || v >= nv {
				return nil, malformed("off", lr.line, "face %d: bad vertex index %q", i, fields[c+1])
			}
			f[c] = v
		}
		m.Faces = append(m.Faces, f)
	}
	return m, nil
}

// WriteOFF encodes m as OFF, or NOFF when it carries per-vertex normals.
func WriteOFF(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	normals := m.HasNormals()
	if normals {
		bw.WriteString("NOFF\n")
	} else {
		bw.WriteString("OFF\n")
	}
	bw.WriteString(strconv.Itoa(m.VertexCount()))
	bw.WriteByte(' ')
	bw.WriteString(strconv.Itoa(m.FaceCount()))
	bw.WriteString(" 0\n")

	for i, p := range m.Vertices {
		writeVec(bw, p)
		if normals {
			bw.WriteByte(' ')
			writeVec(bw, m.Normals[i])
		}
		bw.WriteByte('\n')
	}
	for _, f := range m.Faces {
		bw.WriteString(strconv.Itoa(len(f)))
		for _, v := range f {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "meshio: off")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeVec(bw *bufio.Writer, p v3.Vec) {
	bw.WriteString(formatFloat(p.X))
	bw.WriteByte(' ')
	bw.WriteString(formatFloat(p.Y))
	bw.WriteByte(' ')
	bw.WriteString(formatFloat(p.Z))
}
