package refine

import "fmt"

// EdgeKey identifies an undirected edge of the input mesh by its two vertex
// indices, smaller index first. Both faces sharing an edge produce the same
// key whatever direction they traverse it in.
type EdgeKey struct {
	Lo, Hi int
}

// MakeEdgeKey canonicalizes the unordered pair (v0, v1).
func MakeEdgeKey(v0, v1 int) EdgeKey {
	if v0 > v1 {
		v0, v1 = v1, v0
	}
	return EdgeKey{Lo: v0, Hi: v1}
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("(%d,%d)", k.Lo, k.Hi)
}
