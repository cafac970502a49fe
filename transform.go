package sfmesh

import (
	"math"

	"github.com/pkg/errors"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/float64/vec4"

	"github.com/flywave/go3d/vec3"
)

// Axis is one of X, Y, Z, -X, -Y, -Z.
type Axis string

const (
	AxisX    Axis = "X"
	AxisY    Axis = "Y"
	AxisZ    Axis = "Z"
	AxisNegX Axis = "-X"
	AxisNegY Axis = "-Y"
	AxisNegZ Axis = "-Z"
)

// metres per inch; the target runtime measures in inches
const INCH = 0.0254

func (a Axis) Vec() (dvec3.T, error) {
	switch a {
	case AxisX:
		return dvec3.T{1, 0, 0}, nil
	case AxisY:
		return dvec3.T{0, 1, 0}, nil
	case AxisZ:
		return dvec3.T{0, 0, 1}, nil
	case AxisNegX:
		return dvec3.T{-1, 0, 0}, nil
	case AxisNegY:
		return dvec3.T{0, -1, 0}, nil
	case AxisNegZ:
		return dvec3.T{0, 0, -1}, nil
	}
	return dvec3.T{}, errors.Errorf("invalid axis %q", string(a))
}

type TransformOptions struct {
	AxisForward Axis
	AxisUp      Axis
	Scale       float64
	// UseSceneUnit converts metres into inches on top of Scale.
	UseSceneUnit bool
	// UseMeshModifiers evaluates geometry with its default morph weights.
	UseMeshModifiers bool
}

func DefaultTransformOptions() TransformOptions {
	return TransformOptions{AxisForward: AxisY, AxisUp: AxisZ, Scale: 1, UseSceneUnit: true, UseMeshModifiers: true}
}

// AxisConversion maps the Z-up, Y-forward source frame onto a frame where
// the source forward lies along forward and the source up along up.
func AxisConversion(forward, up Axis) (*dmat.T, error) {
	f, err := forward.Vec()
	if err != nil {
		return nil, err
	}
	u, err := up.Vec()
	if err != nil {
		return nil, err
	}
	if math.Abs(dvec3.Dot(&f, &u)) != 0 {
		return nil, errors.Errorf("forward %s and up %s must use different axes", forward, up)
	}
	r := dvec3.Cross(&f, &u)
	// columns are right, forward, up
	return &dmat.T{
		vec4.T{r[0], r[1], r[2], 0},
		vec4.T{f[0], f[1], f[2], 0},
		vec4.T{u[0], u[1], u[2], 0},
		vec4.T{0, 0, 0, 1},
	}, nil
}

// GlobalMatrix is the axis conversion followed by the uniform scale.
func (o TransformOptions) GlobalMatrix() (*dmat.T, error) {
	conv, err := AxisConversion(o.AxisForward, o.AxisUp)
	if err != nil {
		return nil, err
	}
	scale := o.Scale
	if scale == 0 {
		scale = 1
	}
	if o.UseSceneUnit {
		scale /= INCH
	}
	s := dmat.Ident
	s[0][0], s[1][1], s[2][2] = scale, scale, scale
	m := &dmat.T{}
	m.AssignMul(conv, &s)
	return m, nil
}

// yUpToZUp rotates glTF's Y-up space into the Z-up source frame.
var yUpToZUp = dmat.T{
	vec4.T{1, 0, 0, 0},
	vec4.T{0, 0, 1, 0},
	vec4.T{0, -1, 0, 0},
	vec4.T{0, 0, 0, 1},
}

func mulMat(a, b *dmat.T) *dmat.T {
	m := &dmat.T{}
	m.AssignMul(a, b)
	return m
}

func det3(m *dmat.T) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[2][1]*m[1][2]) -
		m[1][0]*(m[0][1]*m[2][2]-m[2][1]*m[0][2]) +
		m[2][0]*(m[0][1]*m[1][2]-m[1][1]*m[0][2])
}

// vertexTransform applies a world matrix to positions and directions.
type vertexTransform struct {
	m        dmat.T
	normal   [3][3]float64
	negative bool
}

func newVertexTransform(m *dmat.T) *vertexTransform {
	t := &vertexTransform{m: *m}
	d := det3(m)
	t.negative = d < 0
	// cofactor matrix scaled by |det| keeps the inverse-transpose direction
	sign := 1.0
	if d < 0 {
		sign = -1
	}
	at := func(r, c int) float64 { return m[c][r] }
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			r1, r2 := (r+1)%3, (r+2)%3
			c1, c2 := (c+1)%3, (c+2)%3
			t.normal[r][c] = sign * (at(r1, c1)*at(r2, c2) - at(r1, c2)*at(r2, c1))
		}
	}
	return t
}

func (t *vertexTransform) point(p vec3.T) vec3.T {
	m := &t.m
	x, y, z := float64(p[0]), float64(p[1]), float64(p[2])
	return vec3.T{
		float32(m[0][0]*x + m[1][0]*y + m[2][0]*z + m[3][0]),
		float32(m[0][1]*x + m[1][1]*y + m[2][1]*z + m[3][1]),
		float32(m[0][2]*x + m[1][2]*y + m[2][2]*z + m[3][2]),
	}
}

func (t *vertexTransform) direction(d vec3.T) vec3.T {
	m := &t.m
	x, y, z := float64(d[0]), float64(d[1]), float64(d[2])
	return normalized(
		m[0][0]*x+m[1][0]*y+m[2][0]*z,
		m[0][1]*x+m[1][1]*y+m[2][1]*z,
		m[0][2]*x+m[1][2]*y+m[2][2]*z,
	)
}

func (t *vertexTransform) normalDir(n vec3.T) vec3.T {
	x, y, z := float64(n[0]), float64(n[1]), float64(n[2])
	c := &t.normal
	return normalized(
		c[0][0]*x+c[0][1]*y+c[0][2]*z,
		c[1][0]*x+c[1][1]*y+c[1][2]*z,
		c[2][0]*x+c[2][1]*y+c[2][2]*z,
	)
}

func normalized(x, y, z float64) vec3.T {
	l := math.Sqrt(x*x + y*y + z*z)
	if l == 0 {
		return vec3.T{}
	}
	return vec3.T{float32(x / l), float32(y / l), float32(z / l)}
}
