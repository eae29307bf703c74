package geometry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/errs"
)

// ReadOBJFile loads a Wavefront OBJ file and classifies its contents into
// a Scene. Each "o"/"g" statement starts a new part; files without object
// statements load as a single part.
func ReadOBJFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IOf("opening mesh file %s: %v", path, err)
	}
	defer f.Close()
	scene, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return scene, nil
}

// ReadOBJ parses a Wavefront OBJ stream. Supported statements: v, vn, f,
// o, g. Face indices are 1-based and may be negative (relative); faces
// with more than three corners are fan-triangulated. Vertex indices are
// global across parts, as the format specifies.
func ReadOBJ(r io.Reader) (*Scene, error) {
	var (
		verts   []r3.Vec
		normals []r3.Vec
		parts   []*Mesh
		current *Mesh
	)
	// Face indices reference the global vertex list; each part keeps a
	// remap so its vertex array stays self-contained.
	var remap map[int]int

	openPart := func() {
		current = &Mesh{}
		remap = make(map[int]int)
		parts = append(parts, current)
	}

	localIndex := func(global int) int {
		if li, ok := remap[global]; ok {
			return li
		}
		li := len(current.Vertices)
		current.Vertices = append(current.Vertices, verts[global])
		if len(normals) == len(verts) {
			current.Normals = append(current.Normals, normals[global])
		}
		remap[global] = li
		return li
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseVec(fields[1:])
			if err != nil {
				return nil, errs.Formatf("line %d: bad vertex: %v", lineNo, err)
			}
			verts = append(verts, v)
		case "vn":
			n, err := parseVec(fields[1:])
			if err != nil {
				return nil, errs.Formatf("line %d: bad normal: %v", lineNo, err)
			}
			normals = append(normals, n)
		case "o", "g":
			openPart()
		case "f":
			if len(fields) < 4 {
				return nil, errs.Formatf("line %d: face with %d corners", lineNo, len(fields)-1)
			}
			if current == nil {
				openPart()
			}
			corners := make([]int, 0, len(fields)-1)
			for _, fld := range fields[1:] {
				gi, err := parseFaceIndex(fld, len(verts))
				if err != nil {
					return nil, errs.Formatf("line %d: %v", lineNo, err)
				}
				corners = append(corners, localIndex(gi))
			}
			for i := 1; i < len(corners)-1; i++ {
				current.Faces = append(current.Faces, [3]int{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.IOf("reading mesh stream: %v", err)
	}
	if len(parts) == 0 && len(verts) > 0 {
		// Vertex-only file: no faces means no usable geometry.
		return &Scene{Kind: SingleMesh}, nil
	}
	return NewScene(parts), nil
}

// WriteOBJFile writes the mesh as a single-object Wavefront OBJ file.
func WriteOBJFile(path string, m *Mesh) error {
	if m.IsEmpty() {
		return errs.Geometryf("refusing to write empty mesh to %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.IOf("creating mesh file %s: %v", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := WriteOBJ(w, m); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errs.IOf("writing mesh file %s: %v", path, err)
	}
	return nil
}

// WriteOBJ streams the mesh in OBJ format: a vertex list, optional normals
// and 1-based face index triples.
func WriteOBJ(w io.Writer, m *Mesh) error {
	if _, err := fmt.Fprintln(w, "o mesh"); err != nil {
		return err
	}
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(w, "v %g %g %g\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	hasNormals := len(m.Normals) == len(m.Vertices)
	if hasNormals {
		for _, n := range m.Normals {
			if _, err := fmt.Fprintf(w, "vn %g %g %g\n", n.X, n.Y, n.Z); err != nil {
				return err
			}
		}
	}
	for _, f := range m.Faces {
		var err error
		if hasNormals {
			_, err = fmt.Fprintf(w, "f %d//%d %d//%d %d//%d\n",
				f[0]+1, f[0]+1, f[1]+1, f[1]+1, f[2]+1, f[2]+1)
		} else {
			_, err = fmt.Fprintf(w, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func parseVec(fields []string) (r3.Vec, error) {
	if len(fields) < 3 {
		return r3.Vec{}, fmt.Errorf("expected 3 coordinates, got %d", len(fields))
	}
	var c [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return r3.Vec{}, err
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseFaceIndex resolves one face corner ("7", "7/2", "7//3") to a
// zero-based global vertex index.
func parseFaceIndex(field string, nVerts int) (int, error) {
	if i := strings.IndexByte(field, '/'); i >= 0 {
		field = field[:i]
	}
	idx, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q: %v", field, err)
	}
	if idx < 0 {
		idx = nVerts + idx
	} else {
		idx--
	}
	if idx < 0 || idx >= nVerts {
		return 0, fmt.Errorf("face index %q out of range (have %d vertices)", field, nVerts)
	}
	return idx, nil
}
