package meshproc

import (
	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/geometry"
)

// IsWatertight reports whether every edge of the mesh is shared by exactly
// two faces with opposite orientation.
func IsWatertight(m *geometry.Mesh) bool {
	if m.IsEmpty() {
		return false
	}
	directed := make(map[[2]int]int)
	for _, f := range m.Faces {
		directed[[2]int{f[0], f[1]}]++
		directed[[2]int{f[1], f[2]}]++
		directed[[2]int{f[2], f[0]}]++
	}
	for e, n := range directed {
		if n != 1 || directed[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}

// FillHoles closes boundary loops by fanning each loop around its
// centroid. The input is not modified; the returned mesh carries the
// repair, or is the input itself when there was nothing to repair.
// Non-loop boundary defects (non-manifold edges) are left as they are.
func FillHoles(m *geometry.Mesh) *geometry.Mesh {
	if m.IsEmpty() {
		return m
	}
	loops := boundaryLoops(m)
	if len(loops) == 0 {
		return m
	}

	out := m.Clone()
	filled := 0
	for _, loop := range loops {
		if len(loop) < 3 {
			continue
		}
		centroid := r3.Vec{}
		for _, vi := range loop {
			centroid = r3.Add(centroid, out.Vertices[vi])
		}
		centroid = r3.Scale(1/float64(len(loop)), centroid)
		ci := len(out.Vertices)
		out.Vertices = append(out.Vertices, centroid)
		for i := range loop {
			a := loop[i]
			b := loop[(i+1)%len(loop)]
			out.Faces = append(out.Faces, [3]int{a, b, ci})
		}
		filled++
	}
	if filled == 0 {
		return m
	}
	out.RecomputeNormals()
	log.Infof("filled %d boundary loops (%d->%d faces)", filled, len(m.Faces), len(out.Faces))
	return out
}

// boundaryLoops extracts closed loops of boundary edges, each traversed
// opposite to the adjacent face winding so fill triangles keep the
// surface orientation.
func boundaryLoops(m *geometry.Mesh) [][]int {
	directed := make(map[[2]int]bool)
	for _, f := range m.Faces {
		directed[[2]int{f[0], f[1]}] = true
		directed[[2]int{f[1], f[2]}] = true
		directed[[2]int{f[2], f[0]}] = true
	}
	// A face edge a->b without a b->a twin borders a hole; the hole is
	// walked b->a.
	next := make(map[int]int)
	for e := range directed {
		if !directed[[2]int{e[1], e[0]}] {
			next[e[1]] = e[0]
		}
	}

	var loops [][]int
	visited := make(map[int]bool)
	for start := range next {
		if visited[start] {
			continue
		}
		var loop []int
		v := start
		closed := false
		for range next {
			if visited[v] {
				break
			}
			visited[v] = true
			loop = append(loop, v)
			nv, ok := next[v]
			if !ok {
				break
			}
			if nv == start {
				closed = true
				break
			}
			v = nv
		}
		if closed {
			loops = append(loops, loop)
		}
	}
	return loops
}
