package sfmesh

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// largest name the inspection decoder accepts
const maxNameSize = 1 << 24

func writeLittleByte(wt io.Writer, v interface{}) error {
	return binary.Write(wt, binary.LittleEndian, v)
}

func readLittleByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.LittleEndian, v)
}

func putFloats(buf []byte, fs ...float32) []byte {
	for _, f := range fs {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		buf = buf[4:]
	}
	return buf
}

// VertexMarshal appends exactly VERTEX_SIZE bytes. Float values are written
// bit for bit, NaN and Inf included.
func VertexMarshal(wt io.Writer, v *VertexAttributes) error {
	var buf [VERTEX_SIZE]byte
	rest := putFloats(buf[:], v.Position[0], v.Position[1], v.Position[2])
	rest = putFloats(rest, v.Normal[0], v.Normal[1], v.Normal[2])
	rest = putFloats(rest, v.UV[0], v.UV[1])
	putFloats(rest, v.Tangent[0], v.Tangent[1], v.Tangent[2])
	_, err := wt.Write(buf[:])
	return err
}

func getFloats(buf []byte, fs ...*float32) []byte {
	for _, f := range fs {
		*f = math.Float32frombits(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}
	return buf
}

func VertexUnMarshal(rd io.Reader) (*VertexAttributes, error) {
	var buf [VERTEX_SIZE]byte
	if _, err := io.ReadFull(rd, buf[:]); err != nil {
		return nil, err
	}
	v := &VertexAttributes{}
	rest := getFloats(buf[:], &v.Position[0], &v.Position[1], &v.Position[2])
	rest = getFloats(rest, &v.Normal[0], &v.Normal[1], &v.Normal[2])
	rest = getFloats(rest, &v.UV[0], &v.UV[1])
	getFloats(rest, &v.Tangent[0], &v.Tangent[1], &v.Tangent[2])
	return v, nil
}

// ObjectHeaderMarshal writes the metadata half of an object: name length,
// name bytes and the 16-bit triangle count. A count above MAX_TRIANGLES wraps
// and is reported through the returned bool.
func ObjectHeaderMarshal(wt io.Writer, o *MeshObject) (bool, error) {
	name := []byte(o.Name)
	if err := writeLittleByte(wt, uint32(len(name))); err != nil {
		return false, err
	}
	if _, err := wt.Write(name); err != nil {
		return false, err
	}
	if err := writeLittleByte(wt, uint16(len(o.Triangles))); err != nil {
		return false, err
	}
	return o.Overflows(), nil
}

// ObjectBodyMarshal writes every triangle of o with its corners reversed.
func ObjectBodyMarshal(wt io.Writer, o *MeshObject) error {
	for i := range o.Triangles {
		tri := o.Triangles[i].Reversed()
		for j := range tri {
			if err := VertexMarshal(wt, &tri[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func sceneHeaderMarshal(wt io.Writer, s *Scene) error {
	if _, err := wt.Write([]byte{s.Version.Major, s.Version.Minor, s.Version.Type}); err != nil {
		return err
	}
	if err := writeLittleByte(wt, s.Options); err != nil {
		return err
	}
	return writeLittleByte(wt, uint32(s.ObjectCount()))
}

// SceneMarshal writes the complete raw stream in two passes over s.Objects:
// preamble, count and per-object metadata first, then every object body.
func SceneMarshal(wt io.Writer, s *Scene) ([]Warning, error) {
	var warns []Warning
	if err := sceneHeaderMarshal(wt, s); err != nil {
		return nil, errors.Wrap(err, "write scene header")
	}
	for _, o := range s.Objects {
		overflow, err := ObjectHeaderMarshal(wt, o)
		if err != nil {
			return warns, errors.Wrapf(err, "write header of %q", o.Name)
		}
		if overflow {
			warns = append(warns, overflowWarning(o))
		}
	}
	for _, o := range s.Objects {
		if err := ObjectBodyMarshal(wt, o); err != nil {
			return warns, errors.Wrapf(err, "write body of %q", o.Name)
		}
	}
	return warns, nil
}

// SceneBytes encodes s into a fresh buffer sized up front.
func SceneBytes(s *Scene) ([]byte, []Warning) {
	buf := bytes.NewBuffer(make([]byte, 0, s.RawSize()))
	// writes to a bytes.Buffer cannot fail
	warns, _ := SceneMarshal(buf, s)
	return buf.Bytes(), warns
}

type objectHeader struct {
	name      string
	triangles uint16
}

// SceneUnMarshal reads a raw stream back. It trusts the 16-bit counts, so an
// overflowed object decodes with its truncated triangle count.
func SceneUnMarshal(rd io.Reader) (*Scene, error) {
	s := &Scene{}
	var ver [3]byte
	if _, err := io.ReadFull(rd, ver[:]); err != nil {
		return nil, errors.Wrap(ErrInvalidStream, "version")
	}
	s.Version = FormatVersion{Major: ver[0], Minor: ver[1], Type: ver[2]}
	if err := readLittleByte(rd, &s.Options); err != nil {
		return nil, errors.Wrap(ErrInvalidStream, "options")
	}
	var count uint32
	if err := readLittleByte(rd, &count); err != nil {
		return nil, errors.Wrap(ErrInvalidStream, "object count")
	}
	var headers []objectHeader
	for i := uint32(0); i < count; i++ {
		var size uint32
		if err := readLittleByte(rd, &size); err != nil {
			return nil, errors.Wrapf(ErrInvalidStream, "name length of object %d", i)
		}
		if size > maxNameSize {
			return nil, errors.Wrapf(ErrInvalidStream, "name of object %d is %d bytes", i, size)
		}
		nm := make([]byte, size)
		if _, err := io.ReadFull(rd, nm); err != nil {
			return nil, errors.Wrapf(ErrInvalidStream, "name of object %d", i)
		}
		hd := objectHeader{name: string(nm)}
		if err := readLittleByte(rd, &hd.triangles); err != nil {
			return nil, errors.Wrapf(ErrInvalidStream, "triangle count of %q", hd.name)
		}
		headers = append(headers, hd)
	}
	for _, hd := range headers {
		o := &MeshObject{Name: hd.name, Triangles: make([]Triangle, hd.triangles)}
		for i := range o.Triangles {
			var disk Triangle
			for j := range disk {
				v, err := VertexUnMarshal(rd)
				if err != nil {
					return nil, errors.Wrapf(ErrInvalidStream, "triangle %d of %q", i, hd.name)
				}
				disk[j] = *v
			}
			o.Triangles[i] = disk.Reversed()
		}
		s.Objects = append(s.Objects, o)
	}
	return s, nil
}

// SceneReadFrom loads a raw or packed file, telling them apart by the
// packed prefix.
func SceneReadFrom(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte(PACKED_PREFIX)) {
		data, err = Unpack(data)
		if err != nil {
			return nil, err
		}
	}
	return SceneUnMarshal(bytes.NewReader(data))
}
