package sfmesh

import (
	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

type VertexAttributes struct {
	Position vec3.T `json:"position"`
	Normal   vec3.T `json:"normal"`
	UV       vec2.T `json:"uv"`
	Tangent  vec3.T `json:"tangent"`
}

// Triangle holds its corners in source loop order. The encoder writes them
// last-to-first.
type Triangle [3]VertexAttributes

// Reversed returns the corners in the order they appear on disk.
func (t *Triangle) Reversed() Triangle {
	return Triangle{t[2], t[1], t[0]}
}

type MeshObject struct {
	Name      string     `json:"name"`
	Triangles []Triangle `json:"triangles"`
}

func (o *MeshObject) TriangleCount() int {
	return len(o.Triangles)
}

// Overflows reports whether the triangle count does not fit the 16-bit field.
func (o *MeshObject) Overflows() bool {
	return len(o.Triangles) > MAX_TRIANGLES
}

func (o *MeshObject) Bounds() dvec3.Box {
	if len(o.Triangles) == 0 {
		return dvec3.Box{}
	}
	bbox := dvec3.MinBox
	for i := range o.Triangles {
		for _, v := range o.Triangles[i] {
			p := dvec3.T{float64(v.Position[0]), float64(v.Position[1]), float64(v.Position[2])}
			bbx := dvec3.Box{Min: p, Max: p}
			bbox.Join(&bbx)
		}
	}
	return bbox
}

// Scene is the immutable object list a single export encodes. Both encoder
// passes iterate Objects, so it must not change once resolved.
type Scene struct {
	Version FormatVersion `json:"version"`
	Options uint32        `json:"options"`
	Objects []*MeshObject `json:"objects"`
	// Unresolved counts mesh-like nodes included in the header count but
	// never written. Only PolicyTruncate sets it.
	Unresolved int `json:"unresolved,omitempty"`
}

func NewScene(objects ...*MeshObject) *Scene {
	return &Scene{Version: DefaultVersion, Objects: objects}
}

func (s *Scene) ObjectCount() int {
	return len(s.Objects) + s.Unresolved
}

func (s *Scene) TriangleCount() int {
	n := 0
	for _, o := range s.Objects {
		n += o.TriangleCount()
	}
	return n
}

// RawSize is the exact length SceneMarshal produces for s.
func (s *Scene) RawSize() int {
	size := SCENE_HEADER_SIZE
	for _, o := range s.Objects {
		size += 4 + len(o.Name) + 2
		size += len(o.Triangles) * TRIANGLE_SIZE
	}
	return size
}

func (s *Scene) ComputeBBox() dvec3.Box {
	if len(s.Objects) == 0 {
		return dvec3.Box{}
	}
	bbox := dvec3.MinBox
	found := false
	for _, o := range s.Objects {
		if len(o.Triangles) == 0 {
			continue
		}
		bx := o.Bounds()
		bbox.Join(&bx)
		found = true
	}
	if !found {
		return dvec3.Box{}
	}
	return bbox
}
