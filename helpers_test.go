package sfmesh

import (
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// vertexAt returns a vertex whose every float is distinct and derived from seed.
func vertexAt(seed float32) VertexAttributes {
	return VertexAttributes{
		Position: vec3.T{seed, seed + 0.1, seed + 0.2},
		Normal:   vec3.T{0, 0, 1},
		UV:       vec2.T{seed / 100, 1 - seed/100},
		Tangent:  vec3.T{1, 0, 0},
	}
}

func triangleAt(seed float32) Triangle {
	return Triangle{vertexAt(seed), vertexAt(seed + 1), vertexAt(seed + 2)}
}

func meshWithTriangles(name string, n int) *MeshObject {
	o := &MeshObject{Name: name, Triangles: make([]Triangle, n)}
	for i := range o.Triangles {
		o.Triangles[i] = triangleAt(float32(i * 3))
	}
	return o
}

// staticNode is a SceneNode backed by fixed values.
type staticNode struct {
	name string
	kind NodeKind
	obj  *MeshObject
	err  error

	evaluated int
}

func (n *staticNode) Name() string   { return n.name }
func (n *staticNode) Kind() NodeKind { return n.kind }

func (n *staticNode) Evaluate() (*MeshObject, error) {
	n.evaluated++
	return n.obj, n.err
}

func meshNode(name string, tris int) *staticNode {
	return &staticNode{name: name, kind: KindMesh, obj: meshWithTriangles(name, tris)}
}
