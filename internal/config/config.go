// Package config loads exporter settings from YAML and command-line flags.
package config

import (
	"github.com/go-playground/validator"

	"github.com/Veegi/sfmesh"
)

// Config holds every resolved export setting.
type Config struct {
	Export    ExportConfig    `yaml:"export"`
	Transform TransformConfig `yaml:"transform"`
	Pack      PackConfig      `yaml:"pack"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ExportConfig selects the output format and batching.
type ExportConfig struct {
	Raw           bool     `yaml:"raw"`
	Batch         string   `yaml:"batch" validate:"oneof=off object"`
	Selection     []string `yaml:"selection,omitempty"`
	FailurePolicy string   `yaml:"failure_policy" validate:"oneof=skip truncate abort"`
	Workers       int      `yaml:"workers" validate:"gte=1,lte=64"`
}

// TransformConfig is applied to geometry before encoding.
type TransformConfig struct {
	AxisForward  string  `yaml:"axis_forward" validate:"oneof=X Y Z -X -Y -Z"`
	AxisUp       string  `yaml:"axis_up" validate:"oneof=X Y Z -X -Y -Z"`
	Scale        float64 `yaml:"scale" validate:"gte=0.01,lte=1000"`
	UseSceneUnit bool    `yaml:"use_scene_unit"`
	UseModifiers bool    `yaml:"use_modifiers"`
}

// PackConfig tunes the LZMA container.
type PackConfig struct {
	DictCap int    `yaml:"dict_cap" validate:"gte=0"`
	Matcher string `yaml:"matcher" validate:"oneof=hc4"`
	Prefix  string `yaml:"prefix" validate:"required"`
}

type LoggingConfig struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	LogFile string `yaml:"log_file"`
}

// Default mirrors the exporter's defaults.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Raw:           false,
			Batch:         "off",
			FailurePolicy: "skip",
			Workers:       1,
		},
		Transform: TransformConfig{
			AxisForward:  "Y",
			AxisUp:       "Z",
			Scale:        1.0,
			UseSceneUnit: true,
			UseModifiers: true,
		},
		Pack: PackConfig{
			DictCap: 0,
			Matcher: sfmesh.MATCHER_HC4,
			Prefix:  sfmesh.PACKED_PREFIX,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
