package mesh

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks
// processing or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks processing
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single structural finding. Face is -1 for
// mesh-level findings.
type ValidationError struct {
	Face     int
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Face < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] face %d: %s", e.Severity, e.Face, e.Message)
}

// Validate runs the structural checks on the mesh and returns every finding.
// An empty slice means the mesh is well formed. Validate never mutates the
// mesh.
func (m *Mesh) Validate() []ValidationError {
	var errs []ValidationError
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		errs = append(errs, ValidationError{
			Face:     -1,
			Message:  fmt.Sprintf("%d normals for %d vertices", len(m.Normals), len(m.Vertices)),
			Severity: SeverityWarning,
		})
	}
	for fi, f := range m.Faces {
		if len(f) < 3 {
			errs = append(errs, ValidationError{
				Face:     fi,
				Message:  fmt.Sprintf("face has %d corners, need at least 3", len(f)),
				Severity: SeverityError,
			})
			continue
		}
		seen := make(map[int]bool, len(f))
		for ci, v := range f {
			if v < 0 || v >= len(m.Vertices) {
				errs = append(errs, ValidationError{
					Face:     fi,
					Message:  fmt.Sprintf("corner %d references vertex %d, mesh has %d", ci, v, len(m.Vertices)),
					Severity: SeverityError,
				})
				continue
			}
			if seen[v] {
				errs = append(errs, ValidationError{
					Face:     fi,
					Message:  fmt.Sprintf("vertex %d repeated at corner %d", v, ci),
					Severity: SeverityWarning,
				})
			}
			seen[v] = true
		}
	}
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
