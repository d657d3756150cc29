// Package meshio reads and writes polygon meshes in OFF, OBJ and STL.
//
// Readers return an indexed *mesh.Mesh. OFF and OBJ keep the polygon
// connectivity of the file; STL has none, so it loads as a triangle soup
// that clean.Weld turns into an indexed mesh.
package meshio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/quadsplit/pkg/mesh"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownFormat is returned for a file extension or format name
	// this package cannot handle.
	ErrUnknownFormat = errors.New("meshio: unknown mesh format")

	// ErrMalformed is wrapped by every parse error.
	ErrMalformed = errors.New("meshio: malformed mesh data")
)

// Format names a mesh file format.
type Format string

const (
	FormatOFF Format = "off"
	FormatOBJ Format = "obj"
	FormatSTL Format = "stl"
)

// ParseFormat accepts a format name or a file extension, with or without
// the leading dot, in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatOFF, FormatOBJ, FormatSTL:
		return f, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", errors.Wrapf(ErrUnknownFormat, "%s: no file extension", path)
	}
	return ParseFormat(ext)
}

// Read decodes a mesh in format f.
func Read(r io.Reader, f Format) (*mesh.Mesh, error) {
	switch f {
	case FormatOFF:
		return ReadOFF(r)
	case FormatOBJ:
		return ReadOBJ(r)
	case FormatSTL:
		return ReadSTL(r)
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%q", string(f))
}

// Write encodes m in format f. STL output goes through SaveSTL and needs a
// file path, so Write only handles OFF and OBJ.
func Write(w io.Writer, m *mesh.Mesh, f Format) error {
	switch f {
	case FormatOFF:
		return WriteOFF(w, m)
	case FormatOBJ:
		return WriteOBJ(w, m)
	case FormatSTL:
		return errors.New("meshio: stl output needs a file path, use SaveSTL")
	}
	return errors.Wrapf(ErrUnknownFormat, "%q", string(f))
}

// Load reads the mesh at path, choosing the format from its extension. The
// mesh is named after the file.
func Load(path string) (*mesh.Mesh, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "meshio")
	}
	defer file.Close()

	m, err := Read(file, f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// Save writes m to path in the format implied by its extension.
func Save(path string, m *mesh.Mesh) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	return SaveAs(path, m, f)
}

// SaveAs writes m to path in format f regardless of the extension.
func SaveAs(path string, m *mesh.Mesh, f Format) error {
	if f == FormatSTL {
		return SaveSTL(path, m)
	}
	if f != FormatOFF && f != FormatOBJ {
		return errors.Wrapf(ErrUnknownFormat, "%q", string(f))
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "meshio")
	}
	if err := Write(file, m, f); err != nil {
		file.Close()
		return errors.Wrapf(err, "%s", path)
	}
	return errors.Wrap(file.Close(), "meshio")
}

// malformed wraps ErrMalformed with a line number.
func malformed(format string, line int, msg string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, "%s: line %d: %s", format, line, fmt.Sprintf(msg, args...))
}
