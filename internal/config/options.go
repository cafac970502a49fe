package config

import (
	"go.uber.org/zap"

	"github.com/Veegi/sfmesh"
)

// TransformOptions resolves the transform section.
func (c *Config) TransformOptions() sfmesh.TransformOptions {
	return sfmesh.TransformOptions{
		AxisForward:      sfmesh.Axis(c.Transform.AxisForward),
		AxisUp:           sfmesh.Axis(c.Transform.AxisUp),
		Scale:            c.Transform.Scale,
		UseSceneUnit:     c.Transform.UseSceneUnit,
		UseMeshModifiers: c.Transform.UseModifiers,
	}
}

// BatchOptions resolves the export and pack sections.
func (c *Config) BatchOptions(log *zap.Logger) (sfmesh.BatchOptions, error) {
	policy, err := sfmesh.ParseFailurePolicy(c.Export.FailurePolicy)
	if err != nil {
		return sfmesh.BatchOptions{}, err
	}
	mode, err := sfmesh.ParseBatchMode(c.Export.Batch)
	if err != nil {
		return sfmesh.BatchOptions{}, err
	}
	return sfmesh.BatchOptions{
		ExportOptions: sfmesh.ExportOptions{
			Raw:    c.Export.Raw,
			Policy: policy,
			Pack: sfmesh.PackOptions{
				DictCap: c.Pack.DictCap,
				Matcher: c.Pack.Matcher,
				Prefix:  c.Pack.Prefix,
			},
			Logger: log,
		},
		Mode:      mode,
		Workers:   c.Export.Workers,
		Selection: c.Export.Selection,
	}, nil
}
