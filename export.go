package sfmesh

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ExportOptions struct {
	Raw    bool
	Policy FailurePolicy
	Pack   PackOptions
	Logger *zap.Logger
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{Policy: PolicySkip, Pack: DefaultPackOptions()}
}

func (o *ExportOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Ext is the file extension matching the output mode.
func (o *ExportOptions) Ext() string {
	if o.Raw {
		return SFMESH_EXT
	}
	return PACKED_EXT
}

type ExportResult struct {
	Path      string
	Objects   int
	Triangles int
	RawSize   int
	FileSize  int
	Warnings  []Warning
	Err       error
}

// Encode turns a resolved scene into the bytes that go to disk: the raw
// stream, or the packed literal.
func Encode(s *Scene, opts ExportOptions) ([]byte, []Warning, error) {
	log := opts.logger()
	raw, warns := SceneBytes(s)
	for _, w := range warns {
		logWarning(log, w)
	}
	if opts.Raw {
		return raw, warns, nil
	}
	packed, err := Pack(raw, opts.Pack)
	if err != nil {
		return nil, warns, errors.Wrap(err, "pack")
	}
	log.Debug("packed scene", zap.Int("raw", len(raw)), zap.Int("packed", len(packed)))
	return packed, warns, nil
}

// ExportScene runs the full pipeline for one output file.
func ExportScene(nodes []SceneNode, path string, opts ExportOptions) *ExportResult {
	log := opts.logger()
	res := &ExportResult{Path: path}
	scene, warns, err := ResolveScene(nodes, opts.Policy, log)
	res.Warnings = warns
	if err != nil {
		res.Err = err
		return res
	}
	return writeScene(scene, path, opts, res)
}

// ExportResolved writes an already resolved scene.
func ExportResolved(s *Scene, path string, opts ExportOptions) *ExportResult {
	return writeScene(s, path, opts, &ExportResult{Path: path})
}

func writeScene(s *Scene, path string, opts ExportOptions, res *ExportResult) *ExportResult {
	log := opts.logger()
	log.Info("writing sfmesh", zap.String("path", path), zap.Int("objects", len(s.Objects)), zap.Bool("raw", opts.Raw))
	data, warns, err := Encode(s, opts)
	res.Warnings = append(res.Warnings, warns...)
	res.Objects = len(s.Objects)
	res.Triangles = s.TriangleCount()
	res.RawSize = s.RawSize()
	if err != nil {
		res.Err = err
		return res
	}
	if err := WriteFileAtomic(path, data); err != nil {
		res.Err = err
		return res
	}
	res.FileSize = len(data)
	log.Info("done", zap.String("path", path), zap.Int("bytes", res.FileSize))
	return res
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so a failed export never leaves a partial file behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "close %s", path)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "chmod %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}
