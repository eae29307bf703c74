package meshproc

import (
	"container/heap"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/errs"
	"anatomy3d/pkg/geometry"
)

// Decimate reduces the mesh toward targetFaces triangles with quadric
// error edge collapses.
//
// Policy: targetFaces must be positive; a target at or above the current
// face count is a no-op returning the input unchanged; if simplification
// collapses the mesh away entirely the operation fails and the caller's
// mesh is untouched. The result never has more faces than the input.
func Decimate(m *geometry.Mesh, targetFaces int) (*geometry.Mesh, error) {
	if m.IsEmpty() {
		return nil, errs.Geometryf("no mesh to simplify")
	}
	if targetFaces <= 0 {
		return nil, errs.Validationf("target face count must be a positive integer, got %d", targetFaces)
	}
	if targetFaces >= len(m.Faces) {
		log.Debugf("target %d >= current %d faces, no simplification performed",
			targetFaces, len(m.Faces))
		return m, nil
	}

	d := newDecimator(m)
	d.run(targetFaces)
	out := d.compact()
	if out.IsEmpty() {
		return nil, errs.Geometryf("simplification to %d faces collapsed the mesh away", targetFaces)
	}
	out.RecomputeNormals()
	log.Infof("decimated mesh: %d -> %d faces (target %d)", len(m.Faces), len(out.Faces), targetFaces)
	return out, nil
}

// quadric is a symmetric 4x4 error matrix stored as its upper triangle.
type quadric [10]float64

func (q *quadric) add(o *quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

// planeQuadric builds the fundamental quadric of plane ax+by+cz+d=0.
func planeQuadric(a, b, c, d float64) quadric {
	return quadric{
		a * a, a * b, a * c, a * d,
		b * b, b * c, b * d,
		c * c, c * d,
		d * d,
	}
}

// cost evaluates v'Qv for v=(x,y,z,1).
func (q *quadric) cost(v r3.Vec) float64 {
	return q[0]*v.X*v.X + 2*q[1]*v.X*v.Y + 2*q[2]*v.X*v.Z + 2*q[3]*v.X +
		q[4]*v.Y*v.Y + 2*q[5]*v.Y*v.Z + 2*q[6]*v.Y +
		q[7]*v.Z*v.Z + 2*q[8]*v.Z +
		q[9]
}

type collapse struct {
	cost   float64
	a, b   int // vertex indices, a survives
	pos    r3.Vec
	genA   int // generation stamps for lazy invalidation
	genB   int
	index  int
}

type collapseHeap []*collapse

func (h collapseHeap) Len() int            { return len(h) }
func (h collapseHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h collapseHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *collapseHeap) Push(x interface{}) { c := x.(*collapse); c.index = len(*h); *h = append(*h, c) }
func (h *collapseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}

type decimator struct {
	verts    []r3.Vec
	faces    [][3]int
	faceLive []bool
	nLive    int
	quadrics []quadric
	vertFace [][]int // vertex -> incident face ids
	gen      []int   // vertex generation, bumped on every change
	heap     collapseHeap
}

func newDecimator(m *geometry.Mesh) *decimator {
	d := &decimator{
		verts:    append([]r3.Vec(nil), m.Vertices...),
		faces:    append([][3]int(nil), m.Faces...),
		faceLive: make([]bool, len(m.Faces)),
		nLive:    len(m.Faces),
		quadrics: make([]quadric, len(m.Vertices)),
		vertFace: make([][]int, len(m.Vertices)),
		gen:      make([]int, len(m.Vertices)),
	}
	for fi, f := range d.faces {
		d.faceLive[fi] = true
		for _, vi := range f {
			d.vertFace[vi] = append(d.vertFace[vi], fi)
		}
		a, b, c := d.verts[f[0]], d.verts[f[1]], d.verts[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		norm := r3.Norm(n)
		if norm < minFaceArea {
			continue
		}
		n = r3.Scale(1/norm, n)
		pq := planeQuadric(n.X, n.Y, n.Z, -r3.Dot(n, a))
		for _, vi := range f {
			d.quadrics[vi].add(&pq)
		}
	}

	heap.Init(&d.heap)
	seen := make(map[[2]int]bool)
	for _, f := range d.faces {
		for _, e := range [][2]int{{f[0], f[1]}, {f[1], f[2]}, {f[2], f[0]}} {
			a, b := e[0], e[1]
			if a > b {
				a, b = b, a
			}
			if seen[[2]int{a, b}] {
				continue
			}
			seen[[2]int{a, b}] = true
			d.pushCollapse(a, b)
		}
	}
	return d
}

// pushCollapse evaluates the best contraction position for edge (a,b)
// among its endpoints and midpoint, and queues it.
func (d *decimator) pushCollapse(a, b int) {
	q := d.quadrics[a]
	q.add(&d.quadrics[b])
	mid := r3.Scale(0.5, r3.Add(d.verts[a], d.verts[b]))
	best := mid
	bestCost := q.cost(mid)
	for _, cand := range []r3.Vec{d.verts[a], d.verts[b]} {
		if c := q.cost(cand); c < bestCost {
			best, bestCost = cand, c
		}
	}
	heap.Push(&d.heap, &collapse{
		cost: bestCost, a: a, b: b, pos: best,
		genA: d.gen[a], genB: d.gen[b],
	})
}

func (d *decimator) run(targetFaces int) {
	for d.nLive > targetFaces && d.heap.Len() > 0 {
		c := heap.Pop(&d.heap).(*collapse)
		if c.genA != d.gen[c.a] || c.genB != d.gen[c.b] {
			continue // stale
		}
		d.contract(c)
	}
}

// contract merges vertex b into a at the chosen position.
func (d *decimator) contract(c *collapse) {
	a, b := c.a, c.b
	d.verts[a] = c.pos
	d.quadrics[a].add(&d.quadrics[b])
	d.gen[a]++
	d.gen[b]++

	// Faces using both endpoints degenerate and die; faces using only b
	// are rewired to a.
	for _, fi := range d.vertFace[b] {
		if !d.faceLive[fi] {
			continue
		}
		f := &d.faces[fi]
		usesA := f[0] == a || f[1] == a || f[2] == a
		for i := range f {
			if f[i] == b {
				f[i] = a
			}
		}
		if usesA {
			d.faceLive[fi] = false
			d.nLive--
		} else {
			d.vertFace[a] = append(d.vertFace[a], fi)
		}
	}
	d.vertFace[b] = nil

	// Also retire faces a zero-length edge made degenerate.
	live := d.vertFace[a][:0]
	for _, fi := range d.vertFace[a] {
		if !d.faceLive[fi] {
			continue
		}
		f := d.faces[fi]
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			d.faceLive[fi] = false
			d.nLive--
			continue
		}
		live = append(live, fi)
	}
	d.vertFace[a] = live

	// Requeue the edges around the surviving vertex.
	neighbors := make(map[int]bool)
	for _, fi := range d.vertFace[a] {
		for _, vi := range d.faces[fi] {
			if vi != a {
				neighbors[vi] = true
			}
		}
	}
	for n := range neighbors {
		lo, hi := a, n
		if lo > hi {
			lo, hi = hi, lo
		}
		d.pushCollapse(lo, hi)
	}
}

// compact rebuilds a mesh from the surviving faces and vertices.
func (d *decimator) compact() *geometry.Mesh {
	out := &geometry.Mesh{}
	remap := make(map[int]int)
	for fi, f := range d.faces {
		if !d.faceLive[fi] {
			continue
		}
		var nf [3]int
		for i, vi := range f {
			li, ok := remap[vi]
			if !ok {
				li = len(out.Vertices)
				out.Vertices = append(out.Vertices, d.verts[vi])
				remap[vi] = li
			}
			nf[i] = li
		}
		out.Faces = append(out.Faces, nf)
	}
	dropDegenerateFaces(out)
	dropUnreferencedVertices(out)
	return out
}
