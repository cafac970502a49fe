package sfmesh

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	dmat "github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/vec4"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const KHR_LIGHTS_PUNCTUAL = "KHR_lights_punctual"

var identity16 = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func OpenGltf(path string) (*gltf.Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return doc, nil
}

// GltfNode adapts one node of a glTF document to SceneNode. Geometry is read
// lazily by Evaluate, already placed in export space.
type GltfNode struct {
	doc   *gltf.Document
	node  *gltf.Node
	name  string
	world dmat.T
	opts  TransformOptions
}

func (n *GltfNode) Name() string {
	return n.name
}

func (n *GltfNode) Kind() NodeKind {
	switch {
	case n.node.Mesh != nil:
		return KindMesh
	case n.node.Camera != nil:
		return KindCamera
	}
	if _, ok := n.node.Extensions[KHR_LIGHTS_PUNCTUAL]; ok {
		return KindLight
	}
	return KindEmpty
}

// World is the full node transform: global conversion, glTF to Z-up and the
// node hierarchy.
func (n *GltfNode) World() dmat.T {
	return n.world
}

// GltfScene flattens the default scene of doc (or every root node when the
// document has no scenes) into depth-first node order.
func GltfScene(doc *gltf.Document, opts TransformOptions) ([]SceneNode, error) {
	global, err := opts.GlobalMatrix()
	if err != nil {
		return nil, err
	}
	base := mulMat(global, &yUpToZUp)

	var roots []uint32
	if len(doc.Scenes) > 0 {
		sc := uint32(0)
		if doc.Scene != nil {
			sc = *doc.Scene
		}
		if int(sc) >= len(doc.Scenes) {
			return nil, errors.Errorf("scene %d out of range", sc)
		}
		roots = doc.Scenes[sc].Nodes
	} else {
		isChild := make(map[uint32]bool)
		for _, nd := range doc.Nodes {
			for _, c := range nd.Children {
				isChild[c] = true
			}
		}
		for i := range doc.Nodes {
			if !isChild[uint32(i)] {
				roots = append(roots, uint32(i))
			}
		}
	}

	var nodes []SceneNode
	visited := make(map[uint32]bool)
	var walk func(idx uint32, parent *dmat.T) error
	walk = func(idx uint32, parent *dmat.T) error {
		if int(idx) >= len(doc.Nodes) {
			return errors.Errorf("node %d out of range", idx)
		}
		if visited[idx] {
			return errors.Errorf("node %d visited twice, hierarchy is not a tree", idx)
		}
		visited[idx] = true
		nd := doc.Nodes[idx]
		world := mulMat(parent, localMatrix(nd))
		nodes = append(nodes, &GltfNode{doc: doc, node: nd, name: nodeName(doc, idx), world: *world, opts: opts})
		for _, c := range nd.Children {
			if err := walk(c, world); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r, base); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

func nodeName(doc *gltf.Document, idx uint32) string {
	nd := doc.Nodes[idx]
	if nd.Name != "" {
		return nd.Name
	}
	if nd.Mesh != nil && int(*nd.Mesh) < len(doc.Meshes) && doc.Meshes[*nd.Mesh].Name != "" {
		return doc.Meshes[*nd.Mesh].Name
	}
	return fmt.Sprintf("node_%d", idx)
}

func toMat(mat [16]float32) *dmat.T {
	m := &dmat.T{}
	for c := 0; c < 4; c++ {
		m[c] = vec4.T{float64(mat[c*4]), float64(mat[c*4+1]), float64(mat[c*4+2]), float64(mat[c*4+3])}
	}
	return m
}

// localMatrix prefers an explicit matrix and falls back to T * R * S.
func localMatrix(nd *gltf.Node) *dmat.T {
	if mt := nd.MatrixOrDefault(); mt != identity16 {
		return toMat(mt)
	}
	t := nd.TranslationOrDefault()
	q := nd.RotationOrDefault()
	s := nd.ScaleOrDefault()
	x, y, z, w := float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])
	sx, sy, sz := float64(s[0]), float64(s[1]), float64(s[2])
	return &dmat.T{
		vec4.T{(1 - 2*(y*y+z*z)) * sx, 2 * (x*y + z*w) * sx, 2 * (x*z - y*w) * sx, 0},
		vec4.T{2 * (x*y - z*w) * sy, (1 - 2*(x*x+z*z)) * sy, 2 * (y*z + x*w) * sy, 0},
		vec4.T{2 * (x*z + y*w) * sz, 2 * (y*z - x*w) * sz, (1 - 2*(x*x+y*y)) * sz, 0},
		vec4.T{float64(t[0]), float64(t[1]), float64(t[2]), 1},
	}
}

// Evaluate triangulates every primitive of the node's mesh, fills missing
// normals, UVs and tangents, and transforms the result into export space.
func (n *GltfNode) Evaluate() (*MeshObject, error) {
	if n.node.Mesh == nil {
		return nil, errors.Wrapf(ErrObjectUnresolved, "node %q has no mesh", n.name)
	}
	if int(*n.node.Mesh) >= len(n.doc.Meshes) {
		return nil, errors.Wrapf(ErrObjectUnresolved, "mesh %d out of range", *n.node.Mesh)
	}
	mesh := n.doc.Meshes[*n.node.Mesh]
	weights := mesh.Weights
	if len(n.node.Weights) > 0 {
		weights = n.node.Weights
	}
	if !n.opts.UseMeshModifiers {
		weights = nil
	}
	tf := newVertexTransform(&n.world)
	obj := &MeshObject{Name: n.name}
	for i, ps := range mesh.Primitives {
		tris, err := n.primitiveTriangles(ps, weights, tf)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q primitive %d", mesh.Name, i)
		}
		obj.Triangles = append(obj.Triangles, tris...)
	}
	return obj, nil
}

type primitiveData struct {
	positions [][3]float32
	normals   [][3]float32
	uvs       [][2]float32
	tangents  [][4]float32
}

func (n *GltfNode) accessor(idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(n.doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", idx)
	}
	return n.doc.Accessors[idx], nil
}

func (n *GltfNode) readPrimitive(ps *gltf.Primitive, weights []float32) (*primitiveData, error) {
	pd := &primitiveData{}
	idx, ok := ps.Attributes["POSITION"]
	if !ok {
		return nil, ErrEmptyPrimitive
	}
	acc, err := n.accessor(idx)
	if err != nil {
		return nil, err
	}
	if pd.positions, err = modeler.ReadPosition(n.doc, acc, nil); err != nil {
		return nil, errors.Wrap(err, "read positions")
	}
	if idx, ok := ps.Attributes["NORMAL"]; ok {
		if acc, err = n.accessor(idx); err != nil {
			return nil, err
		}
		if pd.normals, err = modeler.ReadNormal(n.doc, acc, nil); err != nil {
			return nil, errors.Wrap(err, "read normals")
		}
	}
	if idx, ok := ps.Attributes["TEXCOORD_0"]; ok {
		if acc, err = n.accessor(idx); err != nil {
			return nil, err
		}
		if pd.uvs, err = modeler.ReadTextureCoord(n.doc, acc, nil); err != nil {
			return nil, errors.Wrap(err, "read uvs")
		}
	}
	if idx, ok := ps.Attributes["TANGENT"]; ok {
		if acc, err = n.accessor(idx); err != nil {
			return nil, err
		}
		if pd.tangents, err = modeler.ReadTangent(n.doc, acc, nil); err != nil {
			return nil, errors.Wrap(err, "read tangents")
		}
	}
	for t, target := range ps.Targets {
		if t >= len(weights) || weights[t] == 0 {
			continue
		}
		if err := n.applyTarget(pd, target, weights[t]); err != nil {
			return nil, errors.Wrapf(err, "morph target %d", t)
		}
	}
	return pd, nil
}

func (n *GltfNode) applyTarget(pd *primitiveData, target gltf.Attribute, w float32) error {
	if idx, ok := target["POSITION"]; ok {
		acc, err := n.accessor(idx)
		if err != nil {
			return err
		}
		deltas, err := modeler.ReadPosition(n.doc, acc, nil)
		if err != nil {
			return err
		}
		addDeltas(pd.positions, deltas, w)
	}
	if idx, ok := target["NORMAL"]; ok && pd.normals != nil {
		acc, err := n.accessor(idx)
		if err != nil {
			return err
		}
		deltas, err := modeler.ReadNormal(n.doc, acc, nil)
		if err != nil {
			return err
		}
		addDeltas(pd.normals, deltas, w)
	}
	return nil
}

func addDeltas(dst, deltas [][3]float32, w float32) {
	for i := range dst {
		if i >= len(deltas) {
			return
		}
		for k := range dst[i] {
			dst[i][k] += deltas[i][k] * w
		}
	}
}

// triangleIndices expands lists, strips and fans into corner triples.
func triangleIndices(mode gltf.PrimitiveMode, idx []uint32) ([][3]uint32, error) {
	var tris [][3]uint32
	switch mode {
	case gltf.PrimitiveTriangles:
		for i := 0; i+2 < len(idx); i += 3 {
			tris = append(tris, [3]uint32{idx[i], idx[i+1], idx[i+2]})
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				tris = append(tris, [3]uint32{idx[i], idx[i+1], idx[i+2]})
			} else {
				tris = append(tris, [3]uint32{idx[i+1], idx[i], idx[i+2]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			tris = append(tris, [3]uint32{idx[0], idx[i], idx[i+1]})
		}
	default:
		return nil, ErrUnsupportedPrimitive
	}
	return tris, nil
}

func (n *GltfNode) primitiveTriangles(ps *gltf.Primitive, weights []float32, tf *vertexTransform) ([]Triangle, error) {
	switch ps.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return nil, ErrUnsupportedPrimitive
	}
	pd, err := n.readPrimitive(ps, weights)
	if err != nil {
		return nil, err
	}
	var indices []uint32
	if ps.Indices != nil {
		acc, err := n.accessor(*ps.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(n.doc, acc, nil); err != nil {
			return nil, errors.Wrap(err, "read indices")
		}
	} else {
		indices = make([]uint32, len(pd.positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	corners, err := triangleIndices(ps.Mode, indices)
	if err != nil {
		return nil, err
	}

	tris := make([]Triangle, 0, len(corners))
	for _, c := range corners {
		for _, i := range c {
			if int(i) >= len(pd.positions) {
				return nil, errors.Errorf("index %d out of %d vertices", i, len(pd.positions))
			}
		}
		tri := pd.triangle(c)
		for j := range tri {
			tri[j].Position = tf.point(tri[j].Position)
			tri[j].Normal = tf.normalDir(tri[j].Normal)
			tri[j].Tangent = tf.direction(tri[j].Tangent)
		}
		if tf.negative {
			tri[1], tri[2] = tri[2], tri[1]
		}
		tris = append(tris, tri)
	}
	return tris, nil
}

// triangle gathers the attributes of one triangle in source space.
func (pd *primitiveData) triangle(c [3]uint32) Triangle {
	var tri Triangle
	for j, i := range c {
		tri[j].Position = vec3.T(pd.positions[i])
		if int(i) < len(pd.uvs) {
			tri[j].UV = vec2.T(pd.uvs[i])
		}
	}
	face := faceNormal(&tri)
	for j, i := range c {
		if int(i) < len(pd.normals) {
			tri[j].Normal = vec3.T(pd.normals[i])
		} else {
			tri[j].Normal = face
		}
	}
	if pd.tangents != nil {
		for j, i := range c {
			if int(i) < len(pd.tangents) {
				t := pd.tangents[i]
				tri[j].Tangent = vec3.T{t[0], t[1], t[2]}
			}
		}
		return tri
	}
	for j := range tri {
		tri[j].Tangent = faceTangent(&tri, &tri[j].Normal)
	}
	return tri
}

func faceNormal(tri *Triangle) vec3.T {
	e1 := vec3.Sub(&tri[1].Position, &tri[0].Position)
	e2 := vec3.Sub(&tri[2].Position, &tri[0].Position)
	cro := vec3.Cross(&e1, &e2)
	return normalized(float64(cro[0]), float64(cro[1]), float64(cro[2]))
}

// faceTangent derives the U direction of the triangle's texture mapping,
// orthogonalised against the vertex normal.
func faceTangent(tri *Triangle, normal *vec3.T) vec3.T {
	e1 := vec3.Sub(&tri[1].Position, &tri[0].Position)
	e2 := vec3.Sub(&tri[2].Position, &tri[0].Position)
	du1, dv1 := tri[1].UV[0]-tri[0].UV[0], tri[1].UV[1]-tri[0].UV[1]
	du2, dv2 := tri[2].UV[0]-tri[0].UV[0], tri[2].UV[1]-tri[0].UV[1]
	var t [3]float64
	if d := float64(du1*dv2 - du2*dv1); math.Abs(d) > 1e-12 {
		r := 1 / d
		for k := 0; k < 3; k++ {
			t[k] = (float64(e1[k])*float64(dv2) - float64(e2[k])*float64(dv1)) * r
		}
	} else {
		t = [3]float64{float64(e1[0]), float64(e1[1]), float64(e1[2])}
	}
	// Gram-Schmidt against the normal
	nx, ny, nz := float64(normal[0]), float64(normal[1]), float64(normal[2])
	dot := t[0]*nx + t[1]*ny + t[2]*nz
	return normalized(t[0]-nx*dot, t[1]-ny*dot, t[2]-nz*dot)
}
