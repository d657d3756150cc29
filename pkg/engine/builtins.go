package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/quadsplit/pkg/clean"
	"github.com/chazu/quadsplit/pkg/kernel"
	"github.com/chazu/quadsplit/pkg/mesh"
	"github.com/chazu/quadsplit/pkg/meshio"
	"github.com/chazu/quadsplit/pkg/refine"
	"github.com/chazu/quadsplit/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before passing it to zygomys. It
// performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: vertex-count -> vertex_count
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //, the zygomys comment syntax.
//
// All transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid wraps a kernel solid so it can be passed between builtins.
type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	size := kernel.Size(s.solid)
	return fmt.Sprintf("(solid %gx%gx%g)", size.X, size.Y, size.Z)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpMesh wraps a mesh. Builtins never modify a mesh they receive; they
// return a new one.
type sexpMesh struct {
	mesh *mesh.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %d vertices %d faces)", m.mesh.VertexCount(), m.mesh.FaceCount())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a non-float integer from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool reads true or false.
func toBool(s zygo.Sexp) (bool, error) {
	switch s.SexpString(nil) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("expected true or false, got %s", s.SexpString(nil))
}

// toSolid extracts a kernel solid from a sexpSolid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toMesh extracts a mesh from a sexpMesh.
func toMesh(s zygo.Sexp) (*mesh.Mesh, error) {
	if v, ok := s.(*sexpMesh); ok {
		return v.mesh, nil
	}
	return nil, fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toVec reads a list of three numbers.
func toVec(s zygo.Sexp) (v3.Vec, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return v3.Vec{}, err
	}
	if len(items) != 3 {
		return v3.Vec{}, fmt.Errorf("expected 3 coordinates, got %d", len(items))
	}
	var xs [3]float64
	for i, item := range items {
		if xs[i], err = toFloat64(item); err != nil {
			return v3.Vec{}, err
		}
	}
	return v3.Vec{X: xs[0], Y: xs[1], Z: xs[2]}, nil
}

// toFloats reads exactly n numeric positional arguments.
func toFloats(fn string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires exactly %d numeric arguments, got %d", fn, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Evaluation state
// ---------------------------------------------------------------------------

// state is what builtins share during one evaluation.
type state struct {
	kernel  kernel.Kernel
	baseDir string
	outputs []Output
}

func (st *state) emit(name string, m *mesh.Mesh) error {
	for _, o := range st.outputs {
		if o.Name == name {
			return fmt.Errorf("duplicate output %q", name)
		}
	}
	st.outputs = append(st.outputs, Output{Name: name, Mesh: m})
	return nil
}

// resolve maps a script path to a file under baseDir.
func (st *state) resolve(p string) (string, error) {
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute path %q not allowed", p)
	}
	full := filepath.Join(st.baseDir, p)
	rel, err := filepath.Rel(st.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes the script directory", p)
	}
	return full, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the mesh pipeline builtins into a zygomys
// environment. Emitted meshes are collected in st.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals and
// kebab-case names match the underscore names registered here.
func registerBuiltins(env *zygo.Zlisp, st *state) {
	k := st.kernel

	// -----------------------------------------------------------------------
	// (box 10 20 30) (sphere 5) (cylinder 20 4)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		xs, err := toFloats("box", args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := k.Box(xs[0], xs[1], xs[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpSolid{solid: s}, nil
	})

	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		xs, err := toFloats("sphere", args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := k.Sphere(xs[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpSolid{solid: s}, nil
	})

	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		xs, err := toFloats("cylinder", args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := k.Cylinder(xs[0], xs[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpSolid{solid: s}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...) (difference a b ...) (intersection a b ...)
	// -----------------------------------------------------------------------
	fold := func(op string, combine func(a, b kernel.Solid) kernel.Solid) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", op, len(args))
			}
			acc, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: argument 1: %w", op, err)
			}
			for i, a := range args[1:] {
				s, err := toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", op, i+2, err)
				}
				acc = combine(acc, s)
			}
			return &sexpSolid{solid: acc}, nil
		}
	}
	env.AddFunction("union", fold("union", k.Union))
	env.AddFunction("difference", fold("difference", k.Difference))
	env.AddFunction("intersection", fold("intersection", k.Intersection))

	// -----------------------------------------------------------------------
	// (translate s 1 2 3) (rotate s 0 0 90)
	// -----------------------------------------------------------------------
	transform := func(op string, apply func(s kernel.Solid, x, y, z float64) kernel.Solid) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 4 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and 3 numbers, got %d arguments", op, len(args))
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			xs, err := toFloats(op, args[1:], 3)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpSolid{solid: apply(s, xs[0], xs[1], xs[2])}, nil
		}
	}
	env.AddFunction("translate", transform("translate", k.Translate))
	env.AddFunction("rotate", transform("rotate", k.Rotate))

	// -----------------------------------------------------------------------
	// (tessellate s :tolerance 0.001)
	// -----------------------------------------------------------------------
	env.AddFunction("tessellate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("tessellate requires one solid")
		}
		s, err := toSolid(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
		}
		var opts []tessellate.Option
		if v, ok := pa.kw["tolerance"]; ok {
			tol, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tessellate: tolerance: %w", err)
			}
			opts = append(opts, tessellate.WithTolerance(tol))
		}
		m, err := tessellate.Solid(k, s, opts...)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (polymesh (list (list 0 0 0) (list 1 0 0) (list 0 1 0)) (list (list 0 1 2)))
	// -----------------------------------------------------------------------
	env.AddFunction("polymesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("polymesh requires a vertex list and a face list")
		}
		verts, err := sexpListToSlice(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polymesh: vertices: %w", err)
		}
		faces, err := sexpListToSlice(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polymesh: faces: %w", err)
		}

		m := mesh.New()
		for i, v := range verts {
			p, err := toVec(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polymesh: vertex %d: %w", i, err)
			}
			m.AddVertex(p)
		}
		for i, f := range faces {
			items, err := sexpListToSlice(f)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polymesh: face %d: %w", i, err)
			}
			face := make(mesh.Face, len(items))
			for c, item := range items {
				if face[c], err = toInt(item); err != nil {
					return zygo.SexpNull, fmt.Errorf("polymesh: face %d: %w", i, err)
				}
			}
			m.Faces = append(m.Faces, face)
		}
		for _, e := range m.Validate() {
			if e.Severity == mesh.SeverityError {
				return zygo.SexpNull, fmt.Errorf("polymesh: %v", e)
			}
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (load "models/part.off")
	// -----------------------------------------------------------------------
	env.AddFunction("load", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("load requires a path")
		}
		p, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: %w", err)
		}
		full, err := st.resolve(p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: %w", err)
		}
		m, err := meshio.Load(full)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: %w", err)
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (weld m :tolerance 0.001) (normals m)
	// -----------------------------------------------------------------------
	env.AddFunction("weld", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("weld requires one mesh")
		}
		src, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("weld: %w", err)
		}
		tol := 0.0
		if v, ok := pa.kw["tolerance"]; ok {
			if tol, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("weld: tolerance: %w", err)
			}
		}
		m := src.Clone()
		clean.Weld(m, tol)
		return &sexpMesh{mesh: m}, nil
	})

	env.AddFunction("normals", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("normals requires one mesh")
		}
		src, err := toMesh(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("normals: %w", err)
		}
		m := src.Clone()
		m.UpdateNormals()
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (refine m :require-normals false)
	// -----------------------------------------------------------------------
	env.AddFunction("refine", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("refine requires one mesh")
		}
		src, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("refine: %w", err)
		}
		var opts []refine.Option
		if v, ok := pa.kw["require-normals"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("refine: require-normals: %w", err)
			}
			opts = append(opts, refine.WithRequireNormals(b))
		}
		m, err := refine.Refine(src, opts...)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (vertex-count m) (face-count m)
	// -----------------------------------------------------------------------
	count := func(op string, n func(m *mesh.Mesh) int) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires one mesh", op)
			}
			m, err := toMesh(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			return &zygo.SexpInt{Val: int64(n(m))}, nil
		}
	}
	env.AddFunction("vertex_count", count("vertex-count", (*mesh.Mesh).VertexCount))
	env.AddFunction("face_count", count("face-count", (*mesh.Mesh).FaceCount))

	// -----------------------------------------------------------------------
	// (emit "name" m)
	// -----------------------------------------------------------------------
	env.AddFunction("emit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("emit requires a name and a mesh")
		}
		outName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("emit: name: %w", err)
		}
		m, err := toMesh(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("emit: %w", err)
		}
		if m.Name == "" {
			m = m.Clone()
			m.Name = outName
		}
		if err := st.emit(outName, m); err != nil {
			return zygo.SexpNull, fmt.Errorf("emit: %w", err)
		}
		return args[1], nil
	})
}
