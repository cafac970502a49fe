package sfmesh

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrObjectUnresolved     = errors.New("sfmesh: object geometry could not be evaluated")
	ErrEmptyPrimitive       = errors.New("sfmesh: primitive has no position data")
	ErrUnsupportedPrimitive = errors.New("sfmesh: primitive is not a triangle list")
	ErrInvalidStream        = errors.New("sfmesh: invalid raw stream")
	ErrInvalidPacked        = errors.New("sfmesh: invalid packed literal")
)

// FailurePolicy decides what happens when a mesh node fails to evaluate.
type FailurePolicy int

const (
	// PolicySkip drops the failing object and keeps going.
	PolicySkip FailurePolicy = iota
	// PolicyTruncate stops at the first failure while the header still counts
	// every mesh node. Byte-compatible with the legacy exporter.
	PolicyTruncate
	// PolicyAbort fails the whole export.
	PolicyAbort
)

func (p FailurePolicy) String() string {
	switch p {
	case PolicyTruncate:
		return "truncate"
	case PolicyAbort:
		return "abort"
	default:
		return "skip"
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "skip":
		return PolicySkip, nil
	case "truncate":
		return PolicyTruncate, nil
	case "abort":
		return PolicyAbort, nil
	}
	return PolicySkip, errors.Errorf("unknown failure policy %q", s)
}

type WarningKind int

const (
	WarnTriangleOverflow WarningKind = iota
	WarnObjectSkipped
	WarnObjectTruncated
)

// Warning is a non-fatal condition surfaced to the caller. The export that
// produced it still completes.
type Warning struct {
	Kind      WarningKind
	Object    string
	Triangles int
	Err       error
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnTriangleOverflow:
		return fmt.Sprintf("object %q has too many triangles (%d), count written as %d", w.Object, w.Triangles, uint16(w.Triangles))
	case WarnObjectSkipped:
		return fmt.Sprintf("object %q skipped: %v", w.Object, w.Err)
	case WarnObjectTruncated:
		return fmt.Sprintf("export truncated at object %q: %v", w.Object, w.Err)
	}
	return fmt.Sprintf("object %q: unknown warning", w.Object)
}

func overflowWarning(o *MeshObject) Warning {
	return Warning{Kind: WarnTriangleOverflow, Object: o.Name, Triangles: len(o.Triangles)}
}

func logWarning(log *zap.Logger, w Warning) {
	fields := []zap.Field{zap.String("object", w.Object)}
	if w.Kind == WarnTriangleOverflow {
		fields = append(fields, zap.Int("triangles", w.Triangles))
	}
	if w.Err != nil {
		fields = append(fields, zap.Error(w.Err))
	}
	log.Warn(w.String(), fields...)
}

// ResolveScene evaluates every mesh-like node exactly once and freezes the
// result into a Scene. Non-mesh nodes are ignored.
func ResolveScene(nodes []SceneNode, policy FailurePolicy, log *zap.Logger) (*Scene, []Warning, error) {
	if log == nil {
		log = zap.NewNop()
	}
	scene := NewScene()
	var warns []Warning
	meshNodes := 0
	for _, nd := range nodes {
		if nd.Kind() == KindMesh {
			meshNodes++
		}
	}
	for _, nd := range nodes {
		if nd.Kind() != KindMesh {
			log.Debug("skipping node", zap.String("node", nd.Name()), zap.Stringer("kind", nd.Kind()))
			continue
		}
		obj, err := nd.Evaluate()
		if err == nil && obj == nil {
			err = ErrObjectUnresolved
		}
		if err != nil {
			switch policy {
			case PolicyAbort:
				return nil, warns, errors.Wrapf(err, "evaluate %q", nd.Name())
			case PolicyTruncate:
				scene.Unresolved = meshNodes - len(scene.Objects)
				w := Warning{Kind: WarnObjectTruncated, Object: nd.Name(), Err: err}
				logWarning(log, w)
				return scene, append(warns, w), nil
			default:
				w := Warning{Kind: WarnObjectSkipped, Object: nd.Name(), Err: err}
				logWarning(log, w)
				warns = append(warns, w)
				continue
			}
		}
		scene.Objects = append(scene.Objects, obj)
	}
	return scene, warns, nil
}
