package sfmesh

import (
	"bytes"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const GLTF_VERSION = "2.0"

// GLB chunks are aligned to four bytes
const GLB_PADDING = 4

// SceneToGltf rebuilds a viewable document from a decoded scene: one node and
// one mesh per object, rotated back to glTF's Y-up space. Units are kept as
// exported.
func SceneToGltf(s *Scene) *gltf.Document {
	doc := CreateDoc()
	for _, o := range s.Objects {
		BuildGltf(doc, o)
	}
	return doc
}

func CreateDoc() *gltf.Document {
	doc := &gltf.Document{}
	doc.Asset.Version = GLTF_VERSION
	doc.Asset.Generator = "sfmesh"
	srcIndex := uint32(0)
	doc.Scene = &srcIndex
	doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	return doc
}

func toYUp(v [3]float32) [3]float32 {
	return [3]float32{v[0], v[2], -v[1]}
}

// BuildGltf appends o as a non-indexed triangle list. Objects without
// triangles still get a node so names survive the round trip.
func BuildGltf(doc *gltf.Document, o *MeshObject) {
	nodeId := uint32(len(doc.Nodes))
	nd := &gltf.Node{Name: o.Name}
	doc.Nodes = append(doc.Nodes, nd)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, nodeId)
	if len(o.Triangles) == 0 {
		return
	}

	n := len(o.Triangles) * 3
	positions := make([][3]float32, 0, n)
	normals := make([][3]float32, 0, n)
	uvs := make([][2]float32, 0, n)
	tangents := make([][4]float32, 0, n)
	for i := range o.Triangles {
		for _, v := range o.Triangles[i] {
			positions = append(positions, toYUp(v.Position))
			normals = append(normals, toYUp(v.Normal))
			uvs = append(uvs, v.UV)
			t := toYUp(v.Tangent)
			tangents = append(tangents, [4]float32{t[0], t[1], t[2], 1})
		}
	}
	meshId := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: o.Name,
		Primitives: []*gltf.Primitive{{
			Mode: gltf.PrimitiveTriangles,
			Attributes: gltf.Attribute{
				"POSITION":   modeler.WritePosition(doc, positions),
				"NORMAL":     modeler.WriteNormal(doc, normals),
				"TEXCOORD_0": modeler.WriteTextureCoord(doc, uvs),
				"TANGENT":    modeler.WriteTangent(doc, tangents),
			},
		}},
	})
	nd.Mesh = &meshId
}

func calcPadding(offset, paddingUnit int) int {
	padding := offset % paddingUnit
	if padding != 0 {
		padding = paddingUnit - padding
	}
	return padding
}

// GltfBinary encodes doc as GLB, padded with spaces to paddingUnit.
func GltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if padding := calcPadding(buf.Len(), paddingUnit); padding > 0 {
		buf.Write(bytes.Repeat([]byte{0x20}, padding))
	}
	return buf.Bytes(), nil
}

// WriteGltf writes the preview document of s as GLB.
func WriteGltf(wt io.Writer, s *Scene) error {
	data, err := GltfBinary(SceneToGltf(s), GLB_PADDING)
	if err != nil {
		return err
	}
	_, err = wt.Write(data)
	return err
}
