// sfmesh converts glTF scenes into SFMesh files for the GLua runtime.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Veegi/sfmesh"
	"github.com/Veegi/sfmesh/internal/config"
	"github.com/Veegi/sfmesh/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "export", "x":
		err = cmdExport(args)
	case "info", "i":
		err = cmdInfo(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sfmesh - SFMesh exporter

Usage:
  sfmesh <command> [options]

Commands:
  export [flags] <scene.gltf|glb> <output>    Export a glTF scene
  info [-gltf out.glb] <file.txt|file.sfmesh> Show header, objects and bounds
  config [flags] [-save]                      Print the effective settings, or store them

Export flags:
  -raw              write uncompressed .sfmesh
  -batch object     one file per object
  -selection a,b    export only the named nodes
  -policy abort     fail when an object cannot be evaluated
  -config file      load settings from YAML

Examples:
  sfmesh export scene.glb props/crate
  sfmesh export -batch object -workers 4 level.gltf out/level_
  sfmesh info props/crate.txt
  sfmesh info -gltf preview.glb props/crate.txt
  sfmesh config -policy abort -workers 4 -save`)
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: sfmesh export [flags] <scene.gltf> <output>")
	}
	input, output := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load(flags.ConfigPath, flags)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}
	log := logger.Log

	opts, err := cfg.BatchOptions(log)
	if err != nil {
		return err
	}
	doc, err := sfmesh.OpenGltf(input)
	if err != nil {
		return err
	}
	nodes, err := sfmesh.GltfScene(doc, cfg.TransformOptions())
	if err != nil {
		return err
	}
	log.Info("scene loaded", zap.String("input", input), zap.Int("nodes", len(nodes)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := sfmesh.ExportBatch(ctx, nodes, output, opts)
	logger.Sugar.Infof("%d file(s) exported from %s", len(results), input)
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("FAILED %s: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Printf("%s: %d objects, %d triangles, %d bytes (raw %d)\n",
			res.Path, res.Objects, res.Triangles, res.FileSize, res.RawSize)
		for _, w := range res.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}
	return err
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	preview := fs.String("gltf", "", "also write the decoded objects as GLB")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sfmesh info [-gltf out.glb] <file>")
	}
	path := fs.Arg(0)
	scene, err := sfmesh.SceneReadFrom(path)
	if err != nil {
		return err
	}

	fmt.Printf("File:      %s\n", path)
	fmt.Printf("Version:   %d.%d (type %d)\n", scene.Version.Major, scene.Version.Minor, scene.Version.Type)
	fmt.Printf("Options:   0x%08x\n", scene.Options)
	fmt.Printf("Objects:   %d\n", len(scene.Objects))
	fmt.Printf("Triangles: %d\n", scene.TriangleCount())
	fmt.Printf("Raw size:  %d bytes\n", scene.RawSize())
	if len(scene.Objects) > 0 {
		bb := scene.ComputeBBox()
		fmt.Printf("Bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
			bb.Min[0], bb.Min[1], bb.Min[2], bb.Max[0], bb.Max[1], bb.Max[2])
	}
	fmt.Println()
	for i, o := range scene.Objects {
		fmt.Printf("  [%d] %-32s %6d triangles\n", i, o.Name, o.TriangleCount())
	}
	if *preview == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := sfmesh.WriteGltf(&buf, scene); err != nil {
		return err
	}
	if err := sfmesh.WriteFileAtomic(*preview, buf.Bytes()); err != nil {
		return err
	}
	fmt.Printf("\nPreview written to %s\n", *preview)
	return nil
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	save := fs.Bool("save", false, "store the settings as the user default")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	cfg, err := config.Load(flags.ConfigPath, flags)
	if err != nil {
		return err
	}
	if *save {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved to %s\n", config.Path())
		return nil
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
