package sfmesh

const (
	SFMESH_EXT = ".sfmesh"
	PACKED_EXT = ".txt"
)

const (
	V1_MAJOR     uint8 = 1
	V1_MINOR     uint8 = 0
	TYPE_DEFAULT uint8 = 0
)

// 3 version bytes + 4 option bytes
const PREAMBLE_SIZE = 7

// preamble + object count
const SCENE_HEADER_SIZE = PREAMBLE_SIZE + 4

// position(3) + normal(3) + uv(2) + tangent(3), float32 each
const VERTEX_SIZE = 44

const TRIANGLE_SIZE = 3 * VERTEX_SIZE

const MAX_TRIANGLES = 1<<16 - 1

// LZMA-alone header: properties(1) + dictionary size(4) + uncompressed size(8)
const (
	LZMA_HEADER_SIZE = 13
	LZMA_SIZE_OFFSET = 5
)

// PACKED_PREFIX turns the base64 literal into a loadable GLua chunk.
const PACKED_PREFIX = "return \""

const PACKED_SUFFIX = "\""

// FormatVersion is the 3-byte tag at the start of every stream.
type FormatVersion struct {
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
	Type  uint8 `json:"type"`
}

var DefaultVersion = FormatVersion{Major: V1_MAJOR, Minor: V1_MINOR, Type: TYPE_DEFAULT}

type NodeKind int

const (
	KindEmpty NodeKind = iota
	KindMesh
	KindCamera
	KindLight
)

func (k NodeKind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindCamera:
		return "camera"
	case KindLight:
		return "light"
	default:
		return "empty"
	}
}

// SceneNode is the contract a host-tool adapter implements. Evaluate is only
// called for KindMesh nodes, once per export.
type SceneNode interface {
	Name() string
	Kind() NodeKind
	Evaluate() (*MeshObject, error)
}
