package config

import (
	"flag"
	"strings"
)

// Flags are the command-line overrides of a Config. Only flags given
// explicitly on the command line override file values.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath string
	debug      bool
	logFile    string
	raw        bool
	batch      string
	selection  string
	policy     string
	workers    int
	forward    string
	up         string
	scale      float64
	sceneUnit  bool
	modifiers  bool
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log", "", "Also log to this file")
	fs.BoolVar(&f.raw, "raw", false, "Write uncompressed .sfmesh instead of the packed .txt")
	fs.StringVar(&f.batch, "batch", "off", "Batch mode: off (one file) or object (one file per object)")
	fs.StringVar(&f.selection, "selection", "", "Comma separated node names to export")
	fs.StringVar(&f.policy, "policy", "skip", "On object failure: skip, truncate or abort")
	fs.IntVar(&f.workers, "workers", 1, "Parallel per-object exports")
	fs.StringVar(&f.forward, "forward", "Y", "Forward axis")
	fs.StringVar(&f.up, "up", "Z", "Up axis")
	fs.Float64Var(&f.scale, "scale", 1.0, "Global scale")
	fs.BoolVar(&f.sceneUnit, "scene-unit", true, "Convert metres to inches")
	fs.BoolVar(&f.modifiers, "modifiers", true, "Apply default morph target weights")
	return f
}

func (f *Flags) apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "log":
			cfg.Logging.LogFile = f.logFile
		case "raw":
			cfg.Export.Raw = f.raw
		case "batch":
			cfg.Export.Batch = f.batch
		case "selection":
			cfg.Export.Selection = splitList(f.selection)
		case "policy":
			cfg.Export.FailurePolicy = f.policy
		case "workers":
			cfg.Export.Workers = f.workers
		case "forward":
			cfg.Transform.AxisForward = f.forward
		case "up":
			cfg.Transform.AxisUp = f.up
		case "scale":
			cfg.Transform.Scale = f.scale
		case "scene-unit":
			cfg.Transform.UseSceneUnit = f.sceneUnit
		case "modifiers":
			cfg.Transform.UseModifiers = f.modifiers
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
