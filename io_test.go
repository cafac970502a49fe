package sfmesh

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/flywave/go3d/vec3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexMarshal(t *testing.T) {
	v := vertexAt(7)
	v.Normal = vec3.T{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))}

	var buf bytes.Buffer
	require.NoError(t, VertexMarshal(&buf, &v))
	require.Equal(t, VERTEX_SIZE, buf.Len())

	want := []float32{
		v.Position[0], v.Position[1], v.Position[2],
		v.Normal[0], v.Normal[1], v.Normal[2],
		v.UV[0], v.UV[1],
		v.Tangent[0], v.Tangent[1], v.Tangent[2],
	}
	data := buf.Bytes()
	for i, f := range want {
		assert.Equal(t, math.Float32bits(f), binary.LittleEndian.Uint32(data[i*4:]), "field %d", i)
	}

	back, err := VertexUnMarshal(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(back.Normal[0])))
	assert.True(t, math.IsInf(float64(back.Normal[1]), 1))
	assert.Equal(t, v.Position, back.Position)
}

func TestObjectHeaderMarshal(t *testing.T) {
	var buf bytes.Buffer
	overflow, err := ObjectHeaderMarshal(&buf, meshWithTriangles("Würfel", 3))
	require.NoError(t, err)
	assert.False(t, overflow)

	name := []byte("Würfel")
	want := binary.LittleEndian.AppendUint32(nil, uint32(len(name)))
	want = append(want, name...)
	want = binary.LittleEndian.AppendUint16(want, 3)
	assert.Equal(t, want, buf.Bytes())
	// byte length, not rune count
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf.Bytes()))
}

func TestWindingReversed(t *testing.T) {
	o := meshWithTriangles("tri", 2)

	var buf bytes.Buffer
	require.NoError(t, ObjectBodyMarshal(&buf, o))
	require.Equal(t, 2*TRIANGLE_SIZE, buf.Len())

	rd := bytes.NewReader(buf.Bytes())
	for _, tri := range o.Triangles {
		for j := 2; j >= 0; j-- {
			v, err := VertexUnMarshal(rd)
			require.NoError(t, err)
			assert.Equal(t, tri[j], *v)
		}
	}
}

func TestTriangleCountTruncation(t *testing.T) {
	tests := []struct {
		name      string
		triangles int
		want      uint16
		warn      bool
	}{
		{"Empty", 0, 0, false},
		{"Max", 65535, 65535, false},
		{"Wrap", 65536, 0, true},
		{"WrapPlusOne", 65537, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &MeshObject{Name: "big", Triangles: make([]Triangle, tt.triangles)}
			raw, warns := SceneBytes(NewScene(o))

			count := binary.LittleEndian.Uint16(raw[SCENE_HEADER_SIZE+4+len(o.Name):])
			assert.Equal(t, tt.want, count)
			if tt.warn {
				require.Len(t, warns, 1)
				assert.Equal(t, WarnTriangleOverflow, warns[0].Kind)
				assert.Equal(t, tt.triangles, warns[0].Triangles)
			} else {
				assert.Empty(t, warns)
			}
			// the body is never truncated
			assert.Equal(t, SCENE_HEADER_SIZE+4+len(o.Name)+2+tt.triangles*TRIANGLE_SIZE, len(raw))
		})
	}
}

func TestCubeScene(t *testing.T) {
	raw, warns := SceneBytes(NewScene(meshWithTriangles("Cube", 12)))
	assert.Empty(t, warns)

	header := []byte{
		0x01, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00,
		'C', 'u', 'b', 'e',
		0x0C, 0x00,
	}
	require.True(t, len(raw) > len(header))
	assert.Equal(t, header, raw[:len(header)])
	assert.Equal(t, 12*3*44, len(raw)-len(header))
	assert.Equal(t, 1584, len(raw)-len(header))
}

func TestEmptyScene(t *testing.T) {
	raw, warns := SceneBytes(NewScene())
	assert.Empty(t, warns)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, raw)
}

func TestHeaderBeforeBodies(t *testing.T) {
	a := meshWithTriangles("A", 1)
	b := meshWithTriangles("Bee", 2)
	raw, _ := SceneBytes(NewScene(a, b))

	off := SCENE_HEADER_SIZE
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw[PREAMBLE_SIZE:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[off:]))
	assert.Equal(t, "A", string(raw[off+4:off+5]))
	off += 4 + 1 + 2
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(raw[off:]))
	assert.Equal(t, "Bee", string(raw[off+4:off+7]))
	off += 4 + 3 + 2
	// A's body follows the last header directly, then B's
	assert.Equal(t, off+3*TRIANGLE_SIZE, len(raw))
}

func TestSceneRoundTrip(t *testing.T) {
	scene := NewScene(meshWithTriangles("Cube", 12), meshWithTriangles("", 0), meshWithTriangles("Cône", 5))
	scene.Version = FormatVersion{Major: 1, Minor: 2, Type: 3}

	raw, _ := SceneBytes(scene)
	assert.Equal(t, scene.RawSize(), len(raw))

	back, err := SceneUnMarshal(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, scene.Version, back.Version)
	require.Len(t, back.Objects, 3)
	for i, o := range scene.Objects {
		assert.Equal(t, o.Name, back.Objects[i].Name)
		assert.Equal(t, o.Triangles, back.Objects[i].Triangles)
	}
}

func TestSceneUnMarshalTruncated(t *testing.T) {
	raw, _ := SceneBytes(NewScene(meshWithTriangles("Cube", 2)))
	for _, n := range []int{0, 2, 6, 10, 14, 17, len(raw) - 1} {
		_, err := SceneUnMarshal(bytes.NewReader(raw[:n]))
		assert.True(t, errors.Is(err, ErrInvalidStream), "cut at %d", n)
	}
}

func TestSceneObjectCountWithUnresolved(t *testing.T) {
	scene := NewScene(meshWithTriangles("A", 1))
	scene.Unresolved = 2
	raw, _ := SceneBytes(scene)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(raw[PREAMBLE_SIZE:]))
	assert.Equal(t, scene.RawSize(), len(raw))
}

func TestBounds(t *testing.T) {
	o := meshWithTriangles("A", 2)
	bb := o.Bounds()
	assert.InDelta(t, 0, bb.Min[0], 1e-6)
	assert.InDelta(t, 5.2, bb.Max[2], 1e-5)

	empty := NewScene(meshWithTriangles("E", 0))
	assert.Equal(t, empty.ComputeBBox(), (&MeshObject{}).Bounds())
}
