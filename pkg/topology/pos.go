package topology

// Pos is a position on the mesh: a face, one of its edges and one of that
// edge's two vertices. The Flip operations each change exactly one of the
// three while keeping the others consistent, which is enough to walk around
// a vertex or along a border.
type Pos struct {
	adj     *Adjacency
	F, E, V int
}

// Pos returns the position on face f, edge e, vertex v. The vertex must be
// an endpoint of the edge.
func (a *Adjacency) Pos(f, e, v int) Pos {
	return Pos{adj: a, F: f, E: e, V: v}
}

// FlipE moves to the other edge of the current face that shares the
// current vertex.
func (p *Pos) FlipE() {
	f := p.adj.m.Faces[p.F]
	n := len(f)
	if f.V(p.E+1) == p.V {
		p.E = (p.E + 1) % n
	} else {
		p.E = (p.E - 1 + n) % n
	}
}

// FlipF moves across the current edge to the neighbouring face. On a
// border edge the position does not change.
func (p *Pos) FlipF() {
	fe := p.adj.Across(p.F, p.E)
	p.F, p.E = fe.F, fe.E
}

// FlipV moves to the other endpoint of the current edge.
func (p *Pos) FlipV() {
	f := p.adj.m.Faces[p.F]
	if f.V(p.E+1) == p.V {
		p.V = f.V(p.E)
	} else {
		p.V = f.V(p.E + 1)
	}
}

// IsBorder reports whether the current edge is a border edge.
func (p *Pos) IsBorder() bool {
	return p.adj.IsBorder(p.F, p.E)
}

// Equal reports whether two positions name the same face, edge and vertex.
func (p Pos) Equal(q Pos) bool {
	return p.F == q.F && p.E == q.E && p.V == q.V
}
